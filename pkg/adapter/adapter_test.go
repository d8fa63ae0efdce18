package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/common/drivertest"
	"github.com/supporttools/GoDBAdmin/pkg/prompt"
)

// fakeBackend keeps the test opener out of the real drivers' way.
const fakeBackend = config.Backend("faketest")

func testAdapter(t *testing.T, drv *drivertest.Fake) *Adapter {
	t.Helper()
	drv.Backend = fakeBackend
	common.RegisterOpener(fakeBackend, func(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *common.ToolLocator) (common.Driver, error) {
		return drv, nil
	})
	return &Adapter{
		Registry: &config.Registry{Profiles: []config.ConnectionProfile{
			{Name: "prod-pg", Type: fakeBackend, PostgresURI: "postgres://u@h:5432/app"},
		}},
		Tools: common.NewToolLocator(),
	}
}

// TestRunSuccess tests the zero exit and the guaranteed close.
func TestRunSuccess(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)

	var gotOpts Options
	code := a.Run(context.Background(), "prod-pg", Options{Force: true},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			gotOpts = opts
			return true, nil
		})

	assert.Equal(t, ExitOK, code)
	assert.True(t, gotOpts.Force)
	assert.Equal(t, 1, drv.Closed)
}

// TestRunHandlerFailure tests that (false, nil) maps to the recoverable
// exit code.
func TestRunHandlerFailure(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)

	code := a.Run(context.Background(), "prod-pg", Options{},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			return false, nil
		})

	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, 1, drv.Closed)
}

// TestRunHandlerError tests that a returned error also exits recoverably.
func TestRunHandlerError(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)

	code := a.Run(context.Background(), "prod-pg", Options{},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			return false, assert.AnError
		})

	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, 1, drv.Closed)
}

// TestRunPanicRecovery tests that a handler panic closes the handle and
// exits critically.
func TestRunPanicRecovery(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)

	code := a.Run(context.Background(), "prod-pg", Options{},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			panic("handler blew up")
		})

	assert.Equal(t, ExitCritical, code)
	assert.Equal(t, 1, drv.Closed)
}

// TestRunUnknownProject tests the profile miss.
func TestRunUnknownProject(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)

	code := a.Run(context.Background(), "staging-pg", Options{},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			t.Fatal("handler must not run for an unknown project")
			return true, nil
		})

	assert.Equal(t, ExitFailure, code)
	assert.Zero(t, drv.Closed)
}

// TestRunPromptsForMissingProject tests the interactive fallback.
func TestRunPromptsForMissingProject(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)
	scripted := &prompt.Scripted{Answers: []string{"prod-pg"}}
	a.Prompter = scripted

	code := a.Run(context.Background(), "", Options{},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			return true, nil
		})

	assert.Equal(t, ExitOK, code)
	require.Len(t, scripted.Asked, 1)
	assert.Equal(t, "Project name:", scripted.Asked[0])
}

// TestRunNoProjectNoPrompter tests the non-interactive miss.
func TestRunNoProjectNoPrompter(t *testing.T) {
	drv := &drivertest.Fake{}
	a := testAdapter(t, drv)

	code := a.Run(context.Background(), "", Options{},
		func(ctx context.Context, d common.Driver, opts Options) (bool, error) {
			t.Fatal("handler must not run without a project")
			return true, nil
		})

	assert.Equal(t, ExitFailure, code)
}

// TestRunDetached tests the handle-free variant's exit codes.
func TestRunDetached(t *testing.T) {
	assert.Equal(t, ExitOK, RunDetached(func() (bool, error) { return true, nil }))
	assert.Equal(t, ExitFailure, RunDetached(func() (bool, error) { return false, nil }))
	assert.Equal(t, ExitFailure, RunDetached(func() (bool, error) { return false, assert.AnError }))
}
