package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// ListDatabases returns all user databases on the server.
func (d *Driver) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT datname FROM pg_database
		WHERE datistemplate = false
		ORDER BY datname`)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		databases = append(databases, name)
	}
	return databases, rows.Err()
}

// ListTables returns the public-schema tables in name order.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableExists reports whether the table exists in the public schema.
func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	return exists, err
}

// ColumnExists reports whether the column exists on the table.
func (d *Driver) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	return exists, err
}

// GetColumns returns column metadata in ordinal order, including the
// attributes needed to reconstruct a column definition.
func (d *Driver) GetColumns(ctx context.Context, table string) ([]snapshot.Column, error) {
	exists, err := d.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("table %q does not exist", table)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT column_name,
		       data_type,
		       is_nullable = 'YES',
		       COALESCE(column_default, ''),
		       ordinal_position,
		       COALESCE(character_maximum_length, 0),
		       COALESCE(numeric_precision, 0),
		       COALESCE(numeric_scale, 0)
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []snapshot.Column
	for rows.Next() {
		var (
			col                     snapshot.Column
			maxLen, precision, scale int
		)
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.Default,
			&col.Position, &maxLen, &precision, &scale); err != nil {
			return nil, err
		}
		col.DataType = renderDataType(col.DataType, maxLen, precision, scale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// renderDataType reattaches length, precision, and scale to the base type
// so the definition can be replayed as DDL.
func renderDataType(dataType string, maxLen, precision, scale int) string {
	switch dataType {
	case "character varying":
		if maxLen > 0 {
			return fmt.Sprintf("varchar(%d)", maxLen)
		}
		return "varchar"
	case "character":
		if maxLen > 0 {
			return fmt.Sprintf("char(%d)", maxLen)
		}
		return "char"
	case "numeric":
		if precision > 0 {
			return fmt.Sprintf("numeric(%d,%d)", precision, scale)
		}
		return "numeric"
	}
	return dataType
}

// CountRecords returns the row count of a table.
func (d *Driver) CountRecords(ctx context.Context, table string) (int64, error) {
	var count int64
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))
	if err := d.db.QueryRowContext(ctx, stmt).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// SnapshotState captures per-table columns and row counts, plus indexes
// for structural comparison.
func (d *Driver) SnapshotState(ctx context.Context) (*snapshot.State, error) {
	state := snapshot.NewState(d.dbName)

	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		columns, err := d.GetColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		count, err := d.CountRecords(ctx, table)
		if err != nil {
			return nil, err
		}
		state.Tables[table] = snapshot.Table{Name: table, Columns: columns, RowCount: count}
	}

	indexes, err := d.listIndexes(ctx)
	if err != nil {
		return nil, err
	}
	state.Indexes = indexes
	return state, nil
}

func (d *Driver) listIndexes(ctx context.Context) ([]snapshot.Index, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT indexname, tablename, indexdef
		FROM pg_indexes
		WHERE schemaname = 'public'
		ORDER BY indexname`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer rows.Close()

	var indexes []snapshot.Index
	for rows.Next() {
		var idx snapshot.Index
		if err := rows.Scan(&idx.Name, &idx.Table, &idx.Definition); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// CreateDatabase creates a database. Requires a handle on a system
// database such as postgres.
func (d *Driver) CreateDatabase(ctx context.Context, name string) error {
	_, err := d.db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(name)))
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase drops a database if it exists.
func (d *Driver) DropDatabase(ctx context.Context, name string) error {
	_, err := d.db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", pq.QuoteIdentifier(name)))
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", name, err)
	}
	return nil
}
