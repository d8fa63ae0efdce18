// Package drivertest provides a configurable in-memory Driver for tests.
package drivertest

import (
	"context"
	"fmt"
	"io"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// Fake implements common.Driver with overridable hooks. Every method has
// a zero-value default; set only the hooks a test cares about.
type Fake struct {
	Backend      config.Backend
	ProfileValue config.ConnectionProfile
	Database     string

	Closed    int
	PingErr   error
	DumpData  []byte
	DumpErr   error
	Tables    []string
	Columns   map[string][]snapshot.Column
	Counts    map[string]int64
	Snapshots []*snapshot.State

	QueryFn   func(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error)
	ExecFn    func(ctx context.Context, stmt string, params ...interface{}) (int64, error)
	RestoreFn func(ctx context.Context, r io.Reader) error

	Applied  map[string]string
	ExecLog  []string
	Restored []byte
}

var _ common.Driver = (*Fake)(nil)

func (f *Fake) Type() config.Backend {
	if f.Backend == "" {
		return config.BackendPostgres
	}
	return f.Backend
}

func (f *Fake) Profile() config.ConnectionProfile { return f.ProfileValue }
func (f *Fake) DatabaseName() string              { return f.Database }

func (f *Fake) Close(ctx context.Context) error {
	f.Closed++
	return nil
}

func (f *Fake) Ping(ctx context.Context) error { return f.PingErr }

func (f *Fake) Query(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error) {
	if f.QueryFn != nil {
		return f.QueryFn(ctx, stmt, params...)
	}
	return &common.Result{}, nil
}

func (f *Fake) Exec(ctx context.Context, stmt string, params ...interface{}) (int64, error) {
	f.ExecLog = append(f.ExecLog, stmt)
	if f.ExecFn != nil {
		return f.ExecFn(ctx, stmt, params...)
	}
	return 0, nil
}

func (f *Fake) ListDatabases(ctx context.Context) ([]string, error) { return []string{f.Database}, nil }
func (f *Fake) ListTables(ctx context.Context) ([]string, error)    { return f.Tables, nil }

func (f *Fake) TableExists(ctx context.Context, table string) (bool, error) {
	for _, t := range f.Tables {
		if t == table {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	for _, c := range f.Columns[table] {
		if c.Name == column {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) GetColumns(ctx context.Context, table string) ([]snapshot.Column, error) {
	return f.Columns[table], nil
}

func (f *Fake) CountRecords(ctx context.Context, table string) (int64, error) {
	return f.Counts[table], nil
}

// SnapshotState pops from Snapshots so a test can script the before and
// after states the differ will see.
func (f *Fake) SnapshotState(ctx context.Context) (*snapshot.State, error) {
	if len(f.Snapshots) == 0 {
		return snapshot.NewState(f.Database), nil
	}
	next := f.Snapshots[0]
	f.Snapshots = f.Snapshots[1:]
	return next, nil
}

func (f *Fake) DumpTo(ctx context.Context, w io.Writer) error {
	if f.DumpErr != nil {
		return f.DumpErr
	}
	_, err := w.Write(f.DumpData)
	return err
}

func (f *Fake) RestoreFrom(ctx context.Context, r io.Reader) error {
	if f.RestoreFn != nil {
		return f.RestoreFn(ctx, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.Restored = data
	return nil
}

func (f *Fake) Backup(ctx context.Context, path string, opts common.BackupOptions) (*common.BackupResult, error) {
	return &common.BackupResult{Path: path}, nil
}

func (f *Fake) Restore(ctx context.Context, path string, opts common.RestoreOptions) error {
	return nil
}

func (f *Fake) EnsureMigrationLedger(ctx context.Context) error {
	if f.Applied == nil {
		f.Applied = make(map[string]string)
	}
	return nil
}

func (f *Fake) MigrationApplied(ctx context.Context, name string) (bool, error) {
	_, ok := f.Applied[name]
	return ok, nil
}

func (f *Fake) ExecuteMigration(ctx context.Context, body string) error {
	f.ExecLog = append(f.ExecLog, body)
	return nil
}

func (f *Fake) ApplyMigration(ctx context.Context, name, body string) error {
	if f.Applied == nil {
		f.Applied = make(map[string]string)
	}
	if _, ok := f.Applied[name]; ok {
		return fmt.Errorf("duplicate migration %q", name)
	}
	f.ExecLog = append(f.ExecLog, body)
	f.Applied[name] = body
	return nil
}

func (f *Fake) AppliedMigrations(ctx context.Context) ([]common.MigrationRecord, error) {
	records := make([]common.MigrationRecord, 0, len(f.Applied))
	for name, content := range f.Applied {
		records = append(records, common.MigrationRecord{Name: name, Content: content})
	}
	return records, nil
}
