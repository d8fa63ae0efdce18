package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dryrun"
	"github.com/supporttools/GoDBAdmin/pkg/prompt"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
)

// guarded runs a mutation through the safety pipeline and, on a positive
// verdict, executes it against the live handle. The pipeline only ever
// sees the shadow; live is the single point where the real database is
// touched.
func guarded(ctx context.Context, a *app, drv common.Driver, req safety.Request, live func(ctx context.Context, drv common.Driver) error) (bool, error) {
	verdict, err := a.pipeline.Evaluate(ctx, drv, req)
	if err != nil {
		return false, err
	}
	printVerdict(verdict)
	if !verdict.Proceed {
		return false, nil
	}
	if err := live(ctx, drv); err != nil {
		return false, err
	}
	return true, nil
}

var (
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	okColor   = color.New(color.FgGreen)
)

func printVerdict(v *safety.Verdict) {
	for _, w := range v.Warnings {
		warnColor.Fprintf(os.Stderr, "⚠ %s\n", w)
	}
	for _, e := range v.Errors {
		failColor.Fprintf(os.Stderr, "✖ %s\n", e)
	}
	if v.TempBackup != nil {
		fmt.Printf("Temp backup: %s\n", v.TempBackup.Name)
	}
	if v.Changes != nil && !v.Changes.Empty() {
		fmt.Println("Rehearsal changes:")
		for _, t := range v.Changes.TablesAdded {
			fmt.Printf("  + table %s\n", t)
		}
		for _, t := range v.Changes.TablesRemoved {
			fmt.Printf("  - table %s\n", t)
		}
		names := make([]string, 0, len(v.Changes.Tables))
		for name := range v.Changes.Tables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			td := v.Changes.Tables[name]
			for _, c := range td.ColumnsAdded {
				fmt.Printf("  + column %s.%s\n", name, c)
			}
			for _, c := range td.ColumnsRemoved {
				fmt.Printf("  - column %s.%s\n", name, c)
			}
			if td.RowDelta != 0 {
				fmt.Printf("  ~ %s: %+d rows\n", name, td.RowDelta)
			}
		}
	}
	if !v.Proceed {
		failColor.Fprintln(os.Stderr, "✖ Safety verdict: do not proceed (use --force to override)")
	}
}

func printDryRun(report *dryrun.Report) {
	fmt.Printf("Dry run: %s\n", report.Operation)
	for _, stmt := range report.Statements {
		fmt.Printf("  would execute: %s\n", stmt)
	}
	if report.EstimatedRows > 0 {
		fmt.Printf("  estimated rows affected: %d\n", report.EstimatedRows)
	}
	s := report.Summary
	fmt.Printf("  summary: created=%d modified=%d deleted=%d\n", s.Created, s.Modified, s.Deleted)
	for _, w := range s.Warnings {
		warnColor.Fprintf(os.Stderr, "⚠ %s\n", w)
	}
}

// argOr returns the positional argument at index i, prompting for it when
// missing. An empty answer aborts the command.
func argOr(p prompt.Prompter, args []string, i int, question string) (string, error) {
	if i < len(args) && args[i] != "" {
		return args[i], nil
	}
	answer, err := p.Ask(question)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", fmt.Errorf("no value given for %q", question)
	}
	return answer, nil
}

// confirmUnlessForced asks before a destructive command touches the
// pipeline at all. Force implies yes.
func confirmUnlessForced(p prompt.Prompter, force bool, question string) (bool, error) {
	if force {
		return true, nil
	}
	ok, err := p.Confirm(question)
	if err != nil {
		return false, err
	}
	if !ok {
		fmt.Println("Cancelled.")
	}
	return ok, nil
}
