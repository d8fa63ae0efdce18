package postgres

import (
	"context"
	"fmt"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
)

// EnsureMigrationLedger creates the migrations table if missing.
func (d *Driver) EnsureMigrationLedger(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			content    TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}
	return nil
}

// MigrationApplied reports whether the named migration is recorded.
func (d *Driver) MigrationApplied(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", name).Scan(&exists)
	return exists, err
}

// ExecuteMigration runs a migration body inside one transaction. The body
// is split into statements with awareness of quoting and dollar-quoted
// function bodies, so semicolons inside them survive.
func (d *Driver) ExecuteMigration(ctx context.Context, body string) error {
	statements := SplitStatements(body)
	if len(statements) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to open migration transaction: %w", err)
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration statement failed: %w", err)
		}
	}
	return tx.Commit()
}

// ApplyMigration runs a migration body and its ledger insert in one
// transaction. A crash between body and record cannot happen: either both
// commit or neither does, so a re-run never executes an applied body.
func (d *Driver) ApplyMigration(ctx context.Context, name, body string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to open migration transaction: %w", err)
	}

	for _, stmt := range SplitStatements(body) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration statement failed: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO migrations (name, content) VALUES ($1, $2)", name, body); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return tx.Commit()
}

// AppliedMigrations lists ledger records in application order.
func (d *Driver) AppliedMigrations(ctx context.Context) ([]common.MigrationRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT name, applied_at, content FROM migrations ORDER BY applied_at, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []common.MigrationRecord
	for rows.Next() {
		var rec common.MigrationRecord
		if err := rows.Scan(&rec.Name, &rec.AppliedAt, &rec.Content); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
