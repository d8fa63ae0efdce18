// Package dryrun previews destructive operations without mutating state.
package dryrun

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
)

// Summary totals the object-level effects of the previewed operation.
type Summary struct {
	Created  int
	Modified int
	Deleted  int
	Warnings []string
}

// Report is the deterministic preview artifact.
type Report struct {
	Operation     string
	Statements    []string
	EstimatedRows int64
	Summary       Summary
}

// supported lists the destructive operations with a dry-run preview.
var supported = map[string]bool{
	"delete-table":      true,
	"remove-column":     true,
	"delete-collection": true,
	"remove-field":      true,
	"migrate":           true,
}

// Supported reports whether op has a dry-run preview.
func Supported(op string) bool {
	return supported[op]
}

// Unsupported emits the visible degradation for commands without a
// preview and returns an empty report.
func Unsupported(op string) *Report {
	logging.Logger.Warnf("Dry run is not supported for %s; nothing will be executed", op)
	return &Report{Operation: op, Summary: Summary{
		Warnings: []string{fmt.Sprintf("dry run not supported for %s", op)},
	}}
}

// DeleteTable previews dropping a table or collection.
func DeleteTable(ctx context.Context, drv common.Driver, table string) (*Report, error) {
	count, err := drv.CountRecords(ctx, table)
	if err != nil {
		return nil, err
	}

	var stmt string
	if drv.Type() == config.BackendPostgres {
		stmt = fmt.Sprintf("DROP TABLE %s CASCADE", pq.QuoteIdentifier(table))
	} else {
		stmt = fmt.Sprintf("db.%s.drop()", table)
	}

	return &Report{
		Operation:     "delete-table",
		Statements:    []string{stmt},
		EstimatedRows: count,
		Summary: Summary{
			Deleted:  1,
			Warnings: []string{fmt.Sprintf("%d rows would be lost", count)},
		},
	}, nil
}

// RemoveColumn previews dropping a column or unsetting a field.
func RemoveColumn(ctx context.Context, drv common.Driver, table, column string) (*Report, error) {
	count, err := drv.CountRecords(ctx, table)
	if err != nil {
		return nil, err
	}

	var stmt string
	if drv.Type() == config.BackendPostgres {
		stmt = fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			pq.QuoteIdentifier(table), pq.QuoteIdentifier(column))
	} else {
		stmt = fmt.Sprintf(`db.%s.updateMany({}, {"$unset": {%q: ""}})`, table, column)
	}

	return &Report{
		Operation:     "remove-column",
		Statements:    []string{stmt},
		EstimatedRows: count,
		Summary: Summary{
			Modified: 1,
			Warnings: []string{fmt.Sprintf("column data on %d rows would be lost", count)},
		},
	}, nil
}

// Query previews an arbitrary statement by counting the rows its WHERE
// clause matches. Only PostgreSQL DELETE/UPDATE statements get a count;
// anything else is echoed with a zero estimate.
func Query(ctx context.Context, drv common.Driver, stmt string) (*Report, error) {
	report := &Report{Operation: "query", Statements: []string{stmt}}

	if drv.Type() == config.BackendPostgres {
		if countStmt, ok := countStatement(stmt); ok {
			result, err := drv.Query(ctx, countStmt)
			if err == nil && len(result.Rows) == 1 {
				for _, v := range result.Rows[0] {
					report.EstimatedRows = asInt64(v)
				}
			}
		}
	}
	return report, nil
}

// Migration previews the statements a migration would run.
func Migration(name string, statements []string) *Report {
	return &Report{
		Operation:  "migrate",
		Statements: statements,
		Summary:    Summary{Modified: len(statements)},
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		var out int64
		fmt.Sscanf(n, "%d", &out)
		return out
	}
	return 0
}
