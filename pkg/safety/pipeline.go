// Package safety gates destructive operations behind a rehearsal: temp
// backup, shadow replica, candidate execution, diff, verdict.
package safety

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/operations"
	"github.com/supporttools/GoDBAdmin/pkg/shadow"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
	"github.com/supporttools/GoDBAdmin/pkg/tempbackup"
)

// Request describes the candidate operation under evaluation.
type Request struct {
	// Operation is the command name looked up in the operation registry.
	Operation string

	// Project is the profile name, used for temp-backup naming.
	Project string

	// QueryText, when non-empty, is lexically classified and the higher
	// of the two risk levels wins.
	QueryText string

	// Candidate executes the operation against the driver it is given.
	// The pipeline invokes it against the shadow only.
	Candidate func(ctx context.Context, drv common.Driver) error

	// Force turns a veto into loud warnings plus proceed=true.
	Force bool

	// SkipSafety bypasses the rehearsal entirely.
	SkipSafety bool
}

// Verdict is the pipeline's decision. The pipeline never executes the
// real mutation; callers that receive Proceed=true run it afterwards.
type Verdict struct {
	OperationID string
	Risk        operations.RiskLevel
	Proceed     bool
	Changes     *snapshot.Diff
	Warnings    []string
	Errors      []string
	TempBackup  *tempbackup.Entry
}

// Pipeline wires the orchestrator's collaborators.
type Pipeline struct {
	Store *tempbackup.Store
	Tools *common.ToolLocator

	// replicate is swapped in tests; nil means shadow.Replicate.
	replicate func(ctx context.Context, target common.Driver, tools *common.ToolLocator) (*shadow.Replica, error)
}

// Evaluate drives risk lookup → temp backup → shadow → candidate → diff →
// verdict. Ordering is fixed: the temp backup completes before the shadow
// is created, the shadow run completes before the diff, and the verdict is
// emitted before any live mutation can run.
func (p *Pipeline) Evaluate(ctx context.Context, target common.Driver, req Request) (*Verdict, error) {
	verdict := &Verdict{OperationID: uuid.NewString()}

	risk, err := operations.Lookup(req.Operation)
	if err != nil {
		return nil, err
	}
	if req.QueryText != "" {
		if q := operations.ClassifyQuery(req.QueryText); q > risk {
			risk = q
		}
	}
	verdict.Risk = risk

	if risk <= operations.RiskCaution {
		verdict.Proceed = true
		return verdict, nil
	}

	if req.SkipSafety {
		verdict.Proceed = true
		verdict.Warnings = append(verdict.Warnings,
			"safety checks skipped; the operation runs without a rehearsal")
		logging.Logger.Warnf("Safety checks skipped for %s (%s risk)", req.Operation, risk)
		return verdict, nil
	}

	if risk == operations.RiskDanger {
		entry, err := p.Store.Create(ctx, target, req.Project, req.Operation)
		if err != nil {
			verdict.Warnings = append(verdict.Warnings,
				fmt.Sprintf("temp backup failed: %v; continuing without one", err))
			logging.Logger.Warnf("Temp backup before %s failed: %v", req.Operation, err)
		} else {
			verdict.TempBackup = entry
			logging.Logger.Infof("Temp backup %s written (expires %s)",
				entry.Name, entry.ExpiresAt.Format("15:04:05"))
		}
	}

	replicate := p.replicate
	if replicate == nil {
		replicate = shadow.Replicate
	}
	replica, err := replicate(ctx, target, p.Tools)
	if err != nil {
		if errors.Is(err, shadow.ErrUnsupportedBackend) {
			// MongoDB: no shadow support; degrade to temp-backup-only
			// protection and let the operation proceed.
			verdict.Proceed = true
			verdict.Warnings = append(verdict.Warnings,
				"shadow rehearsal unavailable for this backend; protected by temp backup only")
			return verdict, nil
		}

		verdict.Errors = append(verdict.Errors, fmt.Sprintf("shadow unavailable: %v", err))
		return p.finalize(verdict, req), nil
	}
	defer replica.Destroy(ctx)

	before, err := replica.Driver.SnapshotState(ctx)
	if err != nil {
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("cannot snapshot shadow: %v", err))
		return p.finalize(verdict, req), nil
	}

	opSucceeded := true
	if err := req.Candidate(ctx, replica.Driver); err != nil {
		opSucceeded = false
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("operation failed in rehearsal: %v", err))
	}

	after, err := replica.Driver.SnapshotState(ctx)
	if err != nil {
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("cannot snapshot shadow: %v", err))
		return p.finalize(verdict, req), nil
	}

	verdict.Changes = snapshot.Compute(before, after)
	diffSafe := verdict.Changes.Safe()
	if !diffSafe {
		verdict.Warnings = append(verdict.Warnings, describeUnsafe(verdict.Changes)...)
	}

	verdict.Proceed = opSucceeded && diffSafe
	return p.finalize(verdict, req), nil
}

// finalize applies the force override to a negative verdict. Force alone
// flips any veto, a failed shadow rehearsal included; the warnings stay on
// the verdict so the override is always visible.
func (p *Pipeline) finalize(verdict *Verdict, req Request) *Verdict {
	if !verdict.Proceed && req.Force {
		verdict.Proceed = true
		verdict.Warnings = append(verdict.Warnings,
			"FORCED: proceeding despite a negative safety verdict")
		logging.Logger.Warnf("Operation %s forced past a negative safety verdict", req.Operation)
	}
	return verdict
}

func describeUnsafe(diff *snapshot.Diff) []string {
	var warnings []string
	for _, table := range diff.TablesRemoved {
		warnings = append(warnings, fmt.Sprintf("table %q would be removed", table))
	}
	for table, td := range diff.Tables {
		for _, col := range td.ColumnsRemoved {
			warnings = append(warnings, fmt.Sprintf("column %s.%s would be removed", table, col))
		}
		if td.RowDelta < 0 {
			warnings = append(warnings, fmt.Sprintf("table %q would lose %d rows", table, -td.RowDelta))
		}
	}
	return warnings
}
