// Package common provides shared types and interfaces for database operations.
package common

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// Driver is the uniform capability set every backend implements. A Driver
// value is a live handle: it bundles an open connection, the originating
// profile, and the backend discriminator. Drivers are opened and closed by
// the command adapter only.
type Driver interface {
	// Type returns the backend discriminator.
	Type() config.Backend

	// Profile returns the connection profile this handle was opened from.
	Profile() config.ConnectionProfile

	// DatabaseName returns the database the handle is bound to.
	DatabaseName() string

	// Close releases the connection. Best-effort and idempotent.
	Close(ctx context.Context) error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Query executes an engine-native statement and returns a uniform
	// result: rows for reads, affected count for writes.
	Query(ctx context.Context, stmt string, params ...interface{}) (*Result, error)

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, stmt string, params ...interface{}) (int64, error)

	// ListDatabases returns the server's user databases.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListTables returns the ordered set of tables (or collections).
	ListTables(ctx context.Context) ([]string, error)

	// TableExists reports whether the named table or collection exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// ColumnExists reports whether the column (or document field) exists.
	ColumnExists(ctx context.Context, table, column string) (bool, error)

	// GetColumns returns column metadata for the table, in ordinal order.
	GetColumns(ctx context.Context, table string) ([]snapshot.Column, error)

	// CountRecords returns the row or document count for the table.
	CountRecords(ctx context.Context, table string) (int64, error)

	// SnapshotState captures per-table columns and row counts.
	SnapshotState(ctx context.Context) (*snapshot.State, error)

	// DumpTo writes a full logical dump of the database to w using the
	// engine's dump tool.
	DumpTo(ctx context.Context, w io.Writer) error

	// RestoreFrom replays a logical dump read from r using the engine's
	// restore tool.
	RestoreFrom(ctx context.Context, r io.Reader) error

	// Backup writes a dump file to path. When opts.Encrypt is set the file
	// is AES-256-CBC encrypted and the key lands in a sibling .key file.
	Backup(ctx context.Context, path string, opts BackupOptions) (*BackupResult, error)

	// Restore replays a dump file, decrypting first when a key is given.
	Restore(ctx context.Context, path string, opts RestoreOptions) error

	// EnsureMigrationLedger creates the migrations namespace if missing.
	EnsureMigrationLedger(ctx context.Context) error

	// MigrationApplied reports whether the named migration is recorded.
	MigrationApplied(ctx context.Context, name string) (bool, error)

	// ExecuteMigration runs a migration body with the engine's strongest
	// available atomicity (a transaction on PostgreSQL).
	ExecuteMigration(ctx context.Context, body string) error

	// ApplyMigration runs a migration body and writes its ledger record as
	// one unit: on PostgreSQL both commit in the same transaction, so the
	// body never lands without its record. MongoDB has no cross-command
	// transaction here; the record is written last, after the body.
	ApplyMigration(ctx context.Context, name, body string) error

	// AppliedMigrations lists ledger records in application order.
	AppliedMigrations(ctx context.Context) ([]MigrationRecord, error)
}

// Administrator is implemented by drivers that can create and drop whole
// databases from a handle on a system database. The shadow replicator
// requires it.
type Administrator interface {
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
}

// Result is the uniform shape of a query outcome across engines.
type Result struct {
	Columns  []string
	Rows     []map[string]interface{}
	Affected int64
}

// BackupOptions controls a user-facing backup.
type BackupOptions struct {
	// Format selects the dump format: "plain" or "custom" (PostgreSQL
	// only; MongoDB always uses a gzip archive).
	Format string

	// Encrypt enables AES-256-CBC encryption of the dump file.
	Encrypt bool

	// SchemaOnly dumps structure without data.
	SchemaOnly bool
}

// RestoreOptions controls a user-facing restore.
type RestoreOptions struct {
	// KeyPath points at the key file for an encrypted dump.
	KeyPath string

	// DropFirst drops existing objects before replaying the dump.
	DropFirst bool

	// DryRun validates the dump without touching the target.
	DryRun bool
}

// BackupResult reports where a backup landed.
type BackupResult struct {
	Path      string
	KeyPath   string
	Encrypted bool
	SizeBytes int64
	Warnings  []string
}

// MigrationRecord is one row of the migrations ledger.
type MigrationRecord struct {
	Name      string
	AppliedAt time.Time
	Content   string
}

// Opener creates a live Driver from a profile. The dbOverride, when
// non-empty, replaces the database named in the URI.
type Opener func(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *ToolLocator) (Driver, error)

// openers stores the registered backend openers.
var openers = make(map[config.Backend]Opener)

// RegisterOpener registers a backend opener. Called from driver init funcs.
func RegisterOpener(backend config.Backend, opener Opener) {
	openers[backend] = opener
}

// Open dispatches to the opener registered for the profile's backend.
func Open(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *ToolLocator) (Driver, error) {
	opener, ok := openers[profile.Type]
	if !ok {
		return nil, fmt.Errorf("no driver registered for backend %q", profile.Type)
	}
	return opener(ctx, profile, dbOverride, tools)
}
