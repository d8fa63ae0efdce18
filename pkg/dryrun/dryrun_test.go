package dryrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/common/drivertest"
)

// TestCountStatementDelete tests DELETE rewrites with and without WHERE.
func TestCountStatementDelete(t *testing.T) {
	stmt, ok := countStatement("DELETE FROM users WHERE active = false;")
	require.True(t, ok)
	assert.Equal(t, "SELECT COUNT(*) FROM users WHERE active = false", stmt)

	stmt, ok = countStatement("delete from users")
	require.True(t, ok)
	assert.Equal(t, "SELECT COUNT(*) FROM users", stmt)
}

// TestCountStatementUpdate tests UPDATE rewrites preserve the WHERE clause.
func TestCountStatementUpdate(t *testing.T) {
	stmt, ok := countStatement("UPDATE users SET active = false WHERE last_login < now()")
	require.True(t, ok)
	assert.Equal(t, "SELECT COUNT(*) FROM users WHERE last_login < now()", stmt)

	stmt, ok = countStatement("UPDATE users SET active = false")
	require.True(t, ok)
	assert.Equal(t, "SELECT COUNT(*) FROM users", stmt)
}

// TestCountStatementNonDestructive tests that reads are not rewritten.
func TestCountStatementNonDestructive(t *testing.T) {
	_, ok := countStatement("SELECT * FROM users")
	assert.False(t, ok)

	_, ok = countStatement("INSERT INTO users (email) VALUES ('a@b.c')")
	assert.False(t, ok)
}

// TestDeleteTablePostgres tests the preview for a table drop.
func TestDeleteTablePostgres(t *testing.T) {
	drv := &drivertest.Fake{Counts: map[string]int64{"users": 42}}

	report, err := DeleteTable(context.Background(), drv, "users")
	require.NoError(t, err)
	assert.Equal(t, "delete-table", report.Operation)
	assert.Equal(t, []string{`DROP TABLE "users" CASCADE`}, report.Statements)
	assert.Equal(t, int64(42), report.EstimatedRows)
	assert.Equal(t, 1, report.Summary.Deleted)
	assert.Contains(t, report.Summary.Warnings[0], "42 rows would be lost")
}

// TestDeleteTableMongo tests the collection drop preview.
func TestDeleteTableMongo(t *testing.T) {
	drv := &drivertest.Fake{
		Backend: config.BackendMongoDB,
		Counts:  map[string]int64{"events": 7},
	}

	report, err := DeleteTable(context.Background(), drv, "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"db.events.drop()"}, report.Statements)
	assert.Equal(t, int64(7), report.EstimatedRows)
}

// TestRemoveColumn tests the column drop preview.
func TestRemoveColumn(t *testing.T) {
	drv := &drivertest.Fake{Counts: map[string]int64{"users": 10}}

	report, err := RemoveColumn(context.Background(), drv, "users", "legacy_flag")
	require.NoError(t, err)
	assert.Equal(t, []string{`ALTER TABLE "users" DROP COLUMN "legacy_flag"`}, report.Statements)
	assert.Equal(t, 1, report.Summary.Modified)
	assert.Contains(t, report.Summary.Warnings[0], "10 rows")
}

// TestQueryEstimatesRows tests that a destructive query is counted through
// the driver.
func TestQueryEstimatesRows(t *testing.T) {
	drv := &drivertest.Fake{
		QueryFn: func(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error) {
			assert.Equal(t, "SELECT COUNT(*) FROM users WHERE active = false", stmt)
			return &common.Result{
				Columns: []string{"count"},
				Rows:    []map[string]interface{}{{"count": int64(19)}},
			}, nil
		},
	}

	report, err := Query(context.Background(), drv, "DELETE FROM users WHERE active = false")
	require.NoError(t, err)
	assert.Equal(t, int64(19), report.EstimatedRows)
}

// TestQueryEchoesReads tests that reads pass through with a zero estimate.
func TestQueryEchoesReads(t *testing.T) {
	drv := &drivertest.Fake{}

	report, err := Query(context.Background(), drv, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, report.Statements)
	assert.Zero(t, report.EstimatedRows)
}

// TestUnsupported tests the visible degradation for commands without a
// preview.
func TestUnsupported(t *testing.T) {
	report := Unsupported("create-index")
	assert.Equal(t, "create-index", report.Operation)
	require.Len(t, report.Summary.Warnings, 1)
	assert.Contains(t, report.Summary.Warnings[0], "not supported")
}

// TestSupported tests the preview allowlist.
func TestSupported(t *testing.T) {
	assert.True(t, Supported("delete-table"))
	assert.True(t, Supported("migrate"))
	assert.False(t, Supported("list-tables"))
}
