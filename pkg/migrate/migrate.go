// Package migrate applies migrations exactly once through the ledger.
package migrate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
)

// Status reports what happened to one migration.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result pairs a migration name with its outcome.
type Result struct {
	Name   string
	Status Status
	Err    error
}

// Apply runs one migration by name. A name already present in the ledger
// is skipped without executing the body, so repeated application records
// at most one row and runs the body at most once.
func Apply(ctx context.Context, drv common.Driver, name, body string) (Result, error) {
	if err := drv.EnsureMigrationLedger(ctx); err != nil {
		return Result{Name: name, Status: StatusFailed, Err: err}, err
	}

	applied, err := drv.MigrationApplied(ctx, name)
	if err != nil {
		return Result{Name: name, Status: StatusFailed, Err: err}, err
	}
	if applied {
		logging.Logger.Infof("Migration %s already applied, skipping", name)
		return Result{Name: name, Status: StatusSkipped}, nil
	}

	if err := drv.ApplyMigration(ctx, name, body); err != nil {
		classified := dberrors.Classify(err).WithContext("migration", name)
		return Result{Name: name, Status: StatusFailed, Err: classified}, classified
	}

	logging.Logger.Infof("Migration %s applied", name)
	return Result{Name: name, Status: StatusApplied}, nil
}

// ApplyFile loads a migration from disk, deriving the ledger name from
// the file name.
func ApplyFile(ctx context.Context, drv common.Driver, path string) (Result, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		classified := dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read migration file")
		return Result{Name: filepath.Base(path), Status: StatusFailed, Err: classified}, classified
	}
	return Apply(ctx, drv, filepath.Base(path), string(body))
}

// List returns the applied migrations in application order.
func List(ctx context.Context, drv common.Driver) ([]common.MigrationRecord, error) {
	if err := drv.EnsureMigrationLedger(ctx); err != nil {
		return nil, err
	}
	return drv.AppliedMigrations(ctx)
}
