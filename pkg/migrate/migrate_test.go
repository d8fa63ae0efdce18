package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoDBAdmin/pkg/database/common/drivertest"
)

// TestApplyRunsBodyOnce tests idempotence: applying the same migration
// twice runs the body once and records one ledger row.
func TestApplyRunsBodyOnce(t *testing.T) {
	drv := &drivertest.Fake{Database: "app"}
	body := "CREATE TABLE users (id SERIAL);"

	first, err := Apply(context.Background(), drv, "001_init.sql", body)
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, first.Status)

	second, err := Apply(context.Background(), drv, "001_init.sql", body)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, second.Status)

	assert.Equal(t, []string{body}, drv.ExecLog, "body must run exactly once")
	assert.Len(t, drv.Applied, 1)
}

// TestApplyFailedBodyNotRecorded tests that a failing body leaves no
// ledger row, so the migration can be retried.
func TestApplyFailedBodyNotRecorded(t *testing.T) {
	drv := &drivertest.Fake{Database: "app"}
	failing := &failingMigrator{Fake: drv}
	result, err := Apply(context.Background(), failing, "002_bad.sql", "DROP TABLE nope;")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, drv.Applied)
}

// failingMigrator fails every migration body.
type failingMigrator struct {
	*drivertest.Fake
}

func (f *failingMigrator) ApplyMigration(ctx context.Context, name, body string) error {
	return errors.New("syntax error near DROP")
}

// TestApplyFile tests name derivation from the file path.
func TestApplyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "003_orders.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE orders (id SERIAL);"), 0o600))

	drv := &drivertest.Fake{Database: "app"}
	result, err := ApplyFile(context.Background(), drv, path)
	require.NoError(t, err)
	assert.Equal(t, "003_orders.sql", result.Name)
	assert.Equal(t, StatusApplied, result.Status)
	assert.Contains(t, drv.Applied, "003_orders.sql")
}

// TestApplyFileMissing tests the filesystem failure path.
func TestApplyFileMissing(t *testing.T) {
	drv := &drivertest.Fake{Database: "app"}
	result, err := ApplyFile(context.Background(), drv, filepath.Join(t.TempDir(), "nope.sql"))
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

// TestList tests that listing ensures the ledger first.
func TestList(t *testing.T) {
	drv := &drivertest.Fake{Database: "app"}
	records, err := List(context.Background(), drv)
	require.NoError(t, err)
	assert.Empty(t, records)
}
