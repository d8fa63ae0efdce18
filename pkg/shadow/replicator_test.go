package shadow

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/common/drivertest"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// TestShadowName tests the generated name: test_ prefix, slugged database,
// millisecond suffix.
func TestShadowName(t *testing.T) {
	name := shadowName("App-Prod DB")
	assert.Regexp(t, regexp.MustCompile(`^test_app_prod_db_\d+$`), name)
}

// TestShadowNameKeepsSafeRunes tests that legal identifier runes survive.
func TestShadowNameKeepsSafeRunes(t *testing.T) {
	name := shadowName("orders_2024")
	assert.Regexp(t, regexp.MustCompile(`^test_orders_2024_\d+$`), name)
}

// TestCreateTableStripsSequenceDefaults tests the DDL rewrite: sequence
// defaults drop, plain defaults and NOT NULL survive.
func TestCreateTableStripsSequenceDefaults(t *testing.T) {
	drv := &drivertest.Fake{Database: "shadow"}
	r := &Replica{Driver: drv, Name: "test_app_1"}

	err := r.createTable(context.Background(), "users", []snapshot.Column{
		{Name: "id", DataType: "integer", Nullable: false, Default: "nextval('users_id_seq'::regclass)"},
		{Name: "email", DataType: "text", Nullable: false},
		{Name: "active", DataType: "boolean", Nullable: true, Default: "true"},
	})
	require.NoError(t, err)
	require.Len(t, drv.ExecLog, 1)
	assert.Equal(t,
		`CREATE TABLE "users" ("id" integer NOT NULL, "email" text NOT NULL, "active" boolean DEFAULT true)`,
		drv.ExecLog[0])
}

// TestCopyRowsParameterizedInsert tests the per-row copy statement shape.
func TestCopyRowsParameterizedInsert(t *testing.T) {
	source := &drivertest.Fake{
		Database: "app",
		QueryFn: func(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error) {
			assert.Equal(t, `SELECT * FROM "users"`, stmt)
			return &common.Result{
				Columns: []string{"id", "email"},
				Rows: []map[string]interface{}{
					{"id": int64(1), "email": "a@example.com"},
					{"id": int64(2), "email": "b@example.com"},
				},
			}, nil
		},
	}
	shadowDrv := &drivertest.Fake{Database: "shadow"}
	r := &Replica{Driver: shadowDrv, Name: "test_app_1"}

	columns := []snapshot.Column{
		{Name: "id", DataType: "integer"},
		{Name: "email", DataType: "text"},
	}
	require.NoError(t, r.copyRows(context.Background(), source, "users", columns))
	require.Len(t, shadowDrv.ExecLog, 2)
	assert.Equal(t, `INSERT INTO "users" ("id", "email") VALUES ($1, $2)`, shadowDrv.ExecLog[0])
}

// TestCopyRowsEmptyTable tests that an empty source issues no inserts.
func TestCopyRowsEmptyTable(t *testing.T) {
	source := &drivertest.Fake{Database: "app"}
	shadowDrv := &drivertest.Fake{Database: "shadow"}
	r := &Replica{Driver: shadowDrv, Name: "test_app_1"}

	require.NoError(t, r.copyRows(context.Background(), source, "users", nil))
	assert.Empty(t, shadowDrv.ExecLog)
}

// TestReplicateRejectsMongo tests the backend guard before any I/O.
func TestReplicateRejectsMongo(t *testing.T) {
	target := &drivertest.Fake{Backend: config.BackendMongoDB}
	_, err := Replicate(context.Background(), target, common.NewToolLocator())
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

// TestDestroyIdempotent tests that Destroy tolerates a second call.
func TestDestroyIdempotent(t *testing.T) {
	drv := &drivertest.Fake{Database: "shadow"}
	r := &Replica{Driver: drv, Name: "test_app_1"}

	r.Destroy(context.Background())
	r.Destroy(context.Background())
	assert.Equal(t, 1, drv.Closed)
}
