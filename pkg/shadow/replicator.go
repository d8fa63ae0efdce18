// Package shadow materializes a disposable twin of a live database so
// destructive operations can be rehearsed without side effects.
package shadow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/postgres"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// ErrUnsupportedBackend marks backends without shadow replication. The
// safety pipeline degrades to temp-backup-only protection for them.
var ErrUnsupportedBackend = dberrors.New(dberrors.KindValidation,
	"shadow replication is only supported for PostgreSQL targets")

// Replica is a live shadow database. Destroy must run on every exit path.
type Replica struct {
	// Driver is a handle on the shadow database.
	Driver common.Driver

	// Name is the generated shadow database name.
	Name string

	admin *postgres.Driver
}

// Replicate builds a shadow of the target: a fresh database named
// test_<slug>_<epoch_ms> holding copies of every table's structure and
// rows. Foreign keys and indexes are deliberately omitted; the shadow
// exists for structural and count diffs, not referential integrity, and
// omitting FKs sidesteps creation-order problems.
func Replicate(ctx context.Context, target common.Driver, tools *common.ToolLocator) (*Replica, error) {
	if target.Type() != config.BackendPostgres {
		return nil, ErrUnsupportedBackend
	}

	profile := target.Profile()
	admin, err := postgres.Open(ctx, profile, "postgres", tools)
	if err != nil {
		return nil, dberrors.Classify(err).
			WithSuggestions("shadow replication needs access to the postgres system database")
	}

	name := shadowName(target.DatabaseName())
	if err := admin.CreateDatabase(ctx, name); err != nil {
		admin.Close(ctx)
		return nil, dberrors.Classify(err).
			WithSuggestions("the connection user needs CREATEDB to run the safety pipeline",
				"re-run with --force --skip-safety to proceed without a shadow")
	}

	shadowDrv, err := postgres.Open(ctx, profile, name, tools)
	if err != nil {
		admin.DropDatabase(ctx, name)
		admin.Close(ctx)
		return nil, err
	}

	replica := &Replica{Driver: shadowDrv, Name: name, admin: admin}
	if err := replica.populate(ctx, target); err != nil {
		replica.Destroy(ctx)
		return nil, err
	}
	return replica, nil
}

func shadowName(database string) string {
	slugged := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, database)
	return fmt.Sprintf("test_%s_%d", slugged, time.Now().UnixMilli())
}

// populate recreates every source table in the shadow and copies its rows.
func (r *Replica) populate(ctx context.Context, source common.Driver) error {
	tables, err := source.ListTables(ctx)
	if err != nil {
		return err
	}

	for _, table := range tables {
		columns, err := source.GetColumns(ctx, table)
		if err != nil {
			return err
		}
		if err := r.createTable(ctx, table, columns); err != nil {
			return err
		}
		if err := r.copyRows(ctx, source, table, columns); err != nil {
			return err
		}
	}
	return nil
}

// createTable reconstructs a CREATE TABLE from column metadata. Sequence
// defaults are dropped: the shadow has no sequences and does not need
// generated values.
func (r *Replica) createTable(ctx context.Context, table string, columns []snapshot.Column) error {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		def := pq.QuoteIdentifier(col.Name) + " " + col.DataType
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != "" && !strings.Contains(col.Default, "nextval(") {
			def += " DEFAULT " + col.Default
		}
		defs = append(defs, def)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", pq.QuoteIdentifier(table), strings.Join(defs, ", "))
	if _, err := r.Driver.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to recreate table %s in shadow: %w", table, err)
	}
	return nil
}

// copyRows bulk-copies rows from source to shadow with parameterized
// per-row inserts; the driver handles literal escaping by type.
func (r *Replica) copyRows(ctx context.Context, source common.Driver, table string, columns []snapshot.Column) error {
	result, err := source.Query(ctx, fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(table)))
	if err != nil {
		return fmt.Errorf("failed to read rows of %s: %w", table, err)
	}
	if len(result.Rows) == 0 {
		return nil
	}

	names := make([]string, len(columns))
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
		quoted[i] = pq.QuoteIdentifier(col.Name)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	for _, row := range result.Rows {
		values := make([]interface{}, len(names))
		for i, name := range names {
			values[i] = row[name]
		}
		if _, err := r.Driver.Exec(ctx, insert, values...); err != nil {
			return fmt.Errorf("failed to copy row into shadow %s: %w", table, err)
		}
	}
	return nil
}

// Destroy closes the shadow handle and drops the shadow database. Safe to
// call more than once.
func (r *Replica) Destroy(ctx context.Context) {
	if r.Driver != nil {
		r.Driver.Close(ctx)
		r.Driver = nil
	}
	if r.admin != nil {
		if err := r.admin.DropDatabase(ctx, r.Name); err != nil {
			logging.Logger.Warnf("Cannot drop shadow database %s: %v", r.Name, err)
		}
		r.admin.Close(ctx)
		r.admin = nil
	}
}
