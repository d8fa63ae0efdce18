package safety

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/common/drivertest"
	"github.com/supporttools/GoDBAdmin/pkg/operations"
	"github.com/supporttools/GoDBAdmin/pkg/shadow"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
	"github.com/supporttools/GoDBAdmin/pkg/tempbackup"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return &Pipeline{
		Store: tempbackup.NewStore(filepath.Join(t.TempDir(), "tb")),
		Tools: common.NewToolLocator(),
	}
}

// TestEvaluateSafeOperation tests that reads proceed without a rehearsal.
func TestEvaluateSafeOperation(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "query",
		Project:   "prod-pg",
		QueryText: "SELECT * FROM users",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	assert.Equal(t, operations.RiskSafe, verdict.Risk)
	assert.Nil(t, verdict.TempBackup)
	assert.Empty(t, verdict.Warnings)
	assert.NotEmpty(t, verdict.OperationID)
}

// TestEvaluateCautionSkipsRehearsal tests that additive schema work does
// not pay for a shadow.
func TestEvaluateCautionSkipsRehearsal(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "create-table",
		Project:   "prod-pg",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	assert.Equal(t, operations.RiskCaution, verdict.Risk)
	assert.Nil(t, verdict.TempBackup)
}

// TestEvaluateQueryTextUpgradesRisk tests that a destructive statement
// lifts the query command out of the safe band.
func TestEvaluateQueryTextUpgradesRisk(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{Backend: config.BackendMongoDB, DumpData: []byte("dump")}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "query",
		Project:   "prod-mongo",
		QueryText: `{"drop": "events"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, operations.RiskDanger, verdict.Risk)
}

// TestEvaluateSkipSafety tests the explicit bypass.
func TestEvaluateSkipSafety(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation:  "migrate",
		Project:    "prod-pg",
		SkipSafety: true,
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	assert.Nil(t, verdict.TempBackup)
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "safety checks skipped")
}

// TestEvaluateMongoDegradesToTempBackup tests the documented degradation:
// no shadow for MongoDB, so a danger operation proceeds protected by the
// temp backup alone.
func TestEvaluateMongoDegradesToTempBackup(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{
		Backend:  config.BackendMongoDB,
		Database: "app",
		DumpData: []byte("mongo archive bytes"),
	}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "delete-collection",
		Project:   "prod-mongo",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	require.NotNil(t, verdict.TempBackup)
	assert.Contains(t, verdict.TempBackup.Name, "prod-mongo")
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "protected by temp backup only")
}

// TestEvaluateTempBackupFailureIsWarning tests that a failed temp backup
// does not block the pipeline.
func TestEvaluateTempBackupFailureIsWarning(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{
		Backend: config.BackendMongoDB,
		DumpErr: assert.AnError,
	}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "delete-collection",
		Project:   "prod-mongo",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	assert.Nil(t, verdict.TempBackup)
	require.Len(t, verdict.Warnings, 2)
	assert.Contains(t, verdict.Warnings[0], "temp backup failed")
	assert.Contains(t, verdict.Warnings[1], "protected by temp backup only")
}

// TestEvaluateShadowUnavailable tests the veto when the shadow cannot be
// built for a PostgreSQL target.
func TestEvaluateShadowUnavailable(t *testing.T) {
	p := testPipeline(t)
	// The fake reports PostgreSQL but its profile points nowhere, so the
	// replicator cannot open the system database.
	drv := &drivertest.Fake{
		ProfileValue: config.ConnectionProfile{
			Name:        "prod-pg",
			Type:        config.BackendPostgres,
			PostgresURI: "postgres://nobody@127.0.0.1:1/app?sslmode=disable&connect_timeout=1",
		},
		Database: "app",
		DumpData: []byte("pg dump bytes"),
	}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "delete-table",
		Project:   "prod-pg",
	})
	require.NoError(t, err)
	assert.False(t, verdict.Proceed)
	require.NotEmpty(t, verdict.Errors)
	assert.Contains(t, verdict.Errors[0], "shadow unavailable")
}

// TestEvaluateForceOverridesVeto tests that --force flips a negative
// verdict and says so loudly.
func TestEvaluateForceOverridesVeto(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{
		ProfileValue: config.ConnectionProfile{
			Name:        "prod-pg",
			Type:        config.BackendPostgres,
			PostgresURI: "postgres://nobody@127.0.0.1:1/app?sslmode=disable&connect_timeout=1",
		},
		Database: "app",
		DumpData: []byte("pg dump bytes"),
	}

	verdict, err := p.Evaluate(context.Background(), drv, Request{
		Operation: "delete-table",
		Project:   "prod-pg",
		Force:     true,
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	found := false
	for _, w := range verdict.Warnings {
		if w == "FORCED: proceeding despite a negative safety verdict" {
			found = true
		}
	}
	assert.True(t, found, "expected the FORCED warning, got %v", verdict.Warnings)
}

func rehearsalState(tables map[string]int64) *snapshot.State {
	s := snapshot.NewState("app")
	for name, rows := range tables {
		s.Tables[name] = snapshot.Table{
			Name:     name,
			Columns:  []snapshot.Column{{Name: "id", DataType: "integer"}},
			RowCount: rows,
		}
	}
	return s
}

// scriptedPipeline wires a shadow built on a scripted fake so the
// rehearsal path runs without a server. The temp backup comes from the
// target; the before/after snapshots come from the shadow fake's queue.
func scriptedPipeline(t *testing.T, shadowDrv *drivertest.Fake) (*Pipeline, *drivertest.Fake) {
	t.Helper()
	p := testPipeline(t)
	p.replicate = func(ctx context.Context, target common.Driver, tools *common.ToolLocator) (*shadow.Replica, error) {
		return &shadow.Replica{Driver: shadowDrv, Name: "test_app_1"}, nil
	}
	target := &drivertest.Fake{Database: "app", DumpData: []byte("pg dump bytes")}
	return p, target
}

// TestEvaluateRehearsalPasses tests the full rehearsal on a harmless
// change: the candidate runs against the shadow, the diff is additive, and
// the verdict clears the live run.
func TestEvaluateRehearsalPasses(t *testing.T) {
	shadowDrv := &drivertest.Fake{
		Database: "app",
		Snapshots: []*snapshot.State{
			rehearsalState(map[string]int64{"users": 10}),
			rehearsalState(map[string]int64{"users": 10, "audit": 0}),
		},
	}
	p, target := scriptedPipeline(t, shadowDrv)

	var rehearsedOn common.Driver
	verdict, err := p.Evaluate(context.Background(), target, Request{
		Operation: "migrate",
		Project:   "prod-pg",
		Candidate: func(ctx context.Context, drv common.Driver) error {
			rehearsedOn = drv
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, verdict.Proceed)
	assert.Same(t, shadowDrv, rehearsedOn, "the candidate must run against the shadow")
	require.NotNil(t, verdict.Changes)
	assert.Equal(t, []string{"audit"}, verdict.Changes.TablesAdded)
	assert.Empty(t, verdict.Errors)
	assert.Equal(t, 1, shadowDrv.Closed, "the shadow must be destroyed")
}

// TestEvaluateRehearsalVetoesDestructiveDiff tests that a rehearsal
// showing a dropped table vetoes the live run and names the loss.
func TestEvaluateRehearsalVetoesDestructiveDiff(t *testing.T) {
	shadowDrv := &drivertest.Fake{
		Database: "app",
		Snapshots: []*snapshot.State{
			rehearsalState(map[string]int64{"users": 10, "orders": 4}),
			rehearsalState(map[string]int64{"users": 10}),
		},
	}
	p, target := scriptedPipeline(t, shadowDrv)

	verdict, err := p.Evaluate(context.Background(), target, Request{
		Operation: "delete-table",
		Project:   "prod-pg",
		Candidate: func(ctx context.Context, drv common.Driver) error { return nil },
	})
	require.NoError(t, err)
	assert.False(t, verdict.Proceed)
	require.NotNil(t, verdict.Changes)
	assert.Equal(t, []string{"orders"}, verdict.Changes.TablesRemoved)
	require.NotEmpty(t, verdict.Warnings)
	assert.Contains(t, verdict.Warnings[len(verdict.Warnings)-1], `table "orders" would be removed`)
	assert.Equal(t, 1, shadowDrv.Closed)
}

// TestEvaluateRehearsalVetoesRowLoss tests that a negative row delta alone
// is enough to veto.
func TestEvaluateRehearsalVetoesRowLoss(t *testing.T) {
	shadowDrv := &drivertest.Fake{
		Database: "app",
		Snapshots: []*snapshot.State{
			rehearsalState(map[string]int64{"users": 10}),
			rehearsalState(map[string]int64{"users": 3}),
		},
	}
	p, target := scriptedPipeline(t, shadowDrv)

	verdict, err := p.Evaluate(context.Background(), target, Request{
		Operation: "migrate",
		Project:   "prod-pg",
		Candidate: func(ctx context.Context, drv common.Driver) error { return nil },
	})
	require.NoError(t, err)
	assert.False(t, verdict.Proceed)
	require.NotEmpty(t, verdict.Warnings)
	assert.Contains(t, verdict.Warnings[len(verdict.Warnings)-1], "would lose 7 rows")
}

// TestEvaluateRehearsalCandidateFailure tests that an operation failing in
// the shadow vetoes even when the diff shows nothing.
func TestEvaluateRehearsalCandidateFailure(t *testing.T) {
	shadowDrv := &drivertest.Fake{
		Database: "app",
		Snapshots: []*snapshot.State{
			rehearsalState(map[string]int64{"users": 10}),
			rehearsalState(map[string]int64{"users": 10}),
		},
	}
	p, target := scriptedPipeline(t, shadowDrv)

	verdict, err := p.Evaluate(context.Background(), target, Request{
		Operation: "migrate",
		Project:   "prod-pg",
		Candidate: func(ctx context.Context, drv common.Driver) error {
			return assert.AnError
		},
	})
	require.NoError(t, err)
	assert.False(t, verdict.Proceed)
	require.NotEmpty(t, verdict.Errors)
	assert.Contains(t, verdict.Errors[0], "operation failed in rehearsal")
}

// TestEvaluateUnknownOperation tests that an unregistered command is
// rejected outright.
func TestEvaluateUnknownOperation(t *testing.T) {
	p := testPipeline(t)
	drv := &drivertest.Fake{}

	_, err := p.Evaluate(context.Background(), drv, Request{Operation: "frobnicate"})
	assert.Error(t, err)
}
