// Package adapter turns engine-agnostic command handlers into
// lifecycle-scoped invocations: resolve profile, open handle, invoke,
// always release.
package adapter

import (
	"context"
	"fmt"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/prompt"
)

// Exit codes of the process.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitCritical = 2
)

// Options carries the resolved per-command flags into a handler.
type Options struct {
	Database   string
	TypeHint   config.Backend
	Force      bool
	DryRun     bool
	SkipSafety bool
}

// Handler is an engine-agnostic command body. It returns whether the
// operation succeeded; expected failures (missing object, declined
// confirmation) come back as (false, nil).
type Handler func(ctx context.Context, drv common.Driver, opts Options) (bool, error)

// Adapter owns handle lifecycle for every command. It is the only place
// that opens and closes drivers; handlers must never leak connections.
type Adapter struct {
	Registry *config.Registry
	Tools    *common.ToolLocator
	Prompter prompt.Prompter
}

// Run resolves the project, opens the backend handle, invokes the
// handler, and closes the handle on every exit path including panic. The
// return value is the process exit code.
func (a *Adapter) Run(ctx context.Context, project string, opts Options, handler Handler) (code int) {
	defer func() {
		if r := recover(); r != nil {
			logging.ReportError(dberrors.Newf(dberrors.KindUnknown, "internal error: %v", r))
			code = ExitCritical
		}
	}()

	if project == "" {
		if a.Prompter == nil {
			logging.ReportError(dberrors.New(dberrors.KindValidation, "no project name given"))
			return ExitFailure
		}
		answer, err := a.Prompter.Ask("Project name:")
		if err != nil || answer == "" {
			logging.ReportError(dberrors.New(dberrors.KindValidation, "no project name given"))
			return ExitFailure
		}
		project = answer
	}

	profile, err := a.Registry.Get(project, opts.TypeHint)
	if err != nil {
		logging.ReportError(err)
		return ExitFailure
	}

	drv, err := common.Open(ctx, *profile, opts.Database, a.Tools)
	if err != nil {
		logging.ReportError(err)
		return ExitFailure
	}
	defer func() {
		if err := drv.Close(context.Background()); err != nil {
			logging.Logger.Warnf("Error closing connection to %s: %v", profile.Name, err)
		}
	}()

	ok, err := handler(ctx, drv, opts)
	if err != nil {
		logging.ReportError(err)
		return ExitFailure
	}
	if !ok {
		return ExitFailure
	}
	return ExitOK
}

// RunDetached invokes a handler that needs no backend handle (config
// validation, temp-backup listing) with the same exit-code contract.
func RunDetached(handler func() (bool, error)) int {
	ok, err := handler()
	if err != nil {
		logging.ReportError(err)
		return ExitFailure
	}
	if !ok {
		return ExitFailure
	}
	return ExitOK
}

// Describe renders a profile for log lines.
func Describe(p *config.ConnectionProfile) string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Type)
}
