package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/mongodb"
	"github.com/supporttools/GoDBAdmin/pkg/dryrun"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/output"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
	"github.com/supporttools/GoDBAdmin/pkg/schema"
	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// addOutputFlags attaches the result-format flags shared by query and
// search.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "emit results as JSON")
	cmd.Flags().Bool("csv", false, "emit results as CSV")
	cmd.Flags().Bool("compact", false, "emit results one row per line")
}

func outputFormat(cmd *cobra.Command) output.Format {
	if v, _ := cmd.Flags().GetBool("json"); v {
		return output.FormatJSON
	}
	if v, _ := cmd.Flags().GetBool("csv"); v {
		return output.FormatCSV
	}
	if v, _ := cmd.Flags().GetBool("compact"); v {
		return output.FormatCompact
	}
	return output.FormatTable
}

var queryCmd = &cobra.Command{
	Use:   "query [project] [statement]",
	Short: "Execute an engine-native statement",
	Long: `Execute a raw statement. PostgreSQL statements are SQL; MongoDB
statements are extended-JSON command documents.

Statements are classified lexically: reads run directly, while anything
destructive goes through the full safety rehearsal first.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			format := outputFormat(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				stmt, err := argOr(a.prompter, args, 1, "Statement:")
				if err != nil {
					return false, err
				}

				if opts.DryRun {
					report, err := dryrun.Query(ctx, drv, stmt)
					if err != nil {
						return false, err
					}
					printDryRun(report)
					return true, nil
				}

				run := func(ctx context.Context, d common.Driver) error {
					result, err := d.Query(ctx, stmt)
					if err != nil {
						return err
					}
					return output.WriteResult(os.Stdout, result, format)
				}
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "query",
					Project:    drv.Profile().Name,
					QueryText:  stmt,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Query(ctx, stmt)
						return err
					},
				}, run)
			})
		})
	},
}

var countRecordsCmd = &cobra.Command{
	Use:   "count-records [project] [table]",
	Short: "Count rows in a table or documents in a collection",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				table, err := argOr(a.prompter, args, 1, "Table name:")
				if err != nil {
					return false, err
				}
				exists, err := drv.TableExists(ctx, table)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Table %s does not exist", table)
					return false, nil
				}
				count, err := drv.CountRecords(ctx, table)
				if err != nil {
					return false, err
				}
				fmt.Printf("%s: %d records\n", table, count)
				return true, nil
			})
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [project] [term] [table]",
	Short: "Search for a value across tables or collections",
	Long: `Search every text-representable column for a term. With a table
argument only that table is searched; --recursive restores the
all-tables sweep. Matching is substring and case-insensitive by default;
--exact, --case-sensitive and --regex tighten it.`,
	Args: cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			mode := searchMode{format: outputFormat(cmd)}
			mode.caseSensitive, _ = cmd.Flags().GetBool("case-sensitive")
			mode.exact, _ = cmd.Flags().GetBool("exact")
			mode.regex, _ = cmd.Flags().GetBool("regex")
			mode.recursive, _ = cmd.Flags().GetBool("recursive")
			mode.highlight, _ = cmd.Flags().GetBool("highlight")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				term, err := argOr(a.prompter, args, 1, "Search term:")
				if err != nil {
					return false, err
				}
				mode.term = term

				var tables []string
				if len(args) > 2 && !mode.recursive {
					tables = []string{args[2]}
				} else {
					tables, err = drv.ListTables(ctx)
					if err != nil {
						return false, err
					}
				}

				total := 0
				for _, table := range tables {
					result, err := searchTable(ctx, drv, table, mode)
					if err != nil {
						logging.Logger.Warnf("Search in %s failed: %v", table, err)
						continue
					}
					if len(result.Rows) == 0 {
						continue
					}
					total += len(result.Rows)
					fmt.Printf("-- %s (%d matches)\n", table, len(result.Rows))
					markMatches(result, mode)
					if err := output.WriteResult(os.Stdout, result, mode.format); err != nil {
						return false, err
					}
				}
				if total == 0 {
					fmt.Printf("No matches for %q.\n", term)
				}
				return true, nil
			})
		})
	},
}

type searchMode struct {
	term          string
	caseSensitive bool
	exact         bool
	regex         bool
	recursive     bool
	highlight     bool
	format        output.Format
}

func searchTable(ctx context.Context, drv common.Driver, table string, mode searchMode) (*common.Result, error) {
	columns, err := drv.GetColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return &common.Result{}, nil
	}
	if drv.Type() == config.BackendPostgres {
		return searchPostgres(ctx, drv, table, columns, mode)
	}
	return searchMongo(ctx, drv, table, columns, mode)
}

func searchPostgres(ctx context.Context, drv common.Driver, table string, columns []snapshot.Column, mode searchMode) (*common.Result, error) {
	var op, param string
	switch {
	case mode.regex && mode.caseSensitive:
		op, param = "~", mode.term
	case mode.regex:
		op, param = "~*", mode.term
	case mode.exact:
		op, param = "=", mode.term
	case mode.caseSensitive:
		op, param = "LIKE", "%"+mode.term+"%"
	default:
		op, param = "ILIKE", "%"+mode.term+"%"
	}

	predicates := make([]string, len(columns))
	for i, col := range columns {
		predicates[i] = fmt.Sprintf("%s::text %s $1", pq.QuoteIdentifier(col.Name), op)
	}
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE %s",
		pq.QuoteIdentifier(table), strings.Join(predicates, " OR "))
	return drv.Query(ctx, stmt, param)
}

func searchMongo(ctx context.Context, drv common.Driver, collection string, columns []snapshot.Column, mode searchMode) (*common.Result, error) {
	var clauses []map[string]interface{}
	for _, col := range columns {
		var clause map[string]interface{}
		switch {
		case mode.exact:
			clause = map[string]interface{}{col.Name: mode.term}
		default:
			pattern := mode.term
			if !mode.regex {
				pattern = regexp.QuoteMeta(mode.term)
			}
			match := map[string]interface{}{"$regex": pattern}
			if !mode.caseSensitive {
				match["$options"] = "i"
			}
			clause = map[string]interface{}{col.Name: match}
		}
		clauses = append(clauses, clause)
	}

	command := map[string]interface{}{
		"find":   collection,
		"filter": map[string]interface{}{"$or": clauses},
	}
	doc, err := json.Marshal(command)
	if err != nil {
		return nil, err
	}
	return drv.Query(ctx, string(doc))
}

// markMatches highlights the term in string cells for table output.
func markMatches(result *common.Result, mode searchMode) {
	if !mode.highlight || mode.format != output.FormatTable {
		return
	}
	h := output.NewHighlighter(true)
	for _, row := range result.Rows {
		for k, v := range row {
			if s, ok := v.(string); ok {
				row[k] = h.Mark(s, mode.term)
			}
		}
	}
}

var seedCmd = &cobra.Command{
	Use:   "seed [project]",
	Short: "Insert the seed rows declared in the schema document",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			schemaPath, _ := cmd.Flags().GetString("schema")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				doc, err := schema.Load(schemaPath)
				if err != nil {
					return false, err
				}
				if m, ok := drv.(*mongodb.Driver); ok {
					return seedMongo(ctx, m, doc)
				}
				return seedPostgres(ctx, drv, doc)
			})
		})
	},
}

func seedPostgres(ctx context.Context, drv common.Driver, doc *schema.ProjectSchema) (bool, error) {
	var script strings.Builder
	rows := 0
	for _, t := range doc.Tables {
		for _, row := range t.Seed {
			cols := make([]string, 0, len(row))
			vals := make([]string, 0, len(row))
			for _, k := range output.SortedKeys(row) {
				cols = append(cols, pq.QuoteIdentifier(k))
				vals = append(vals, sqlLiteral(row[k]))
			}
			fmt.Fprintf(&script, "INSERT INTO %s (%s) VALUES (%s);\n",
				pq.QuoteIdentifier(t.Name), strings.Join(cols, ", "), strings.Join(vals, ", "))
			rows++
		}
	}
	if rows == 0 {
		logging.Logger.Warn("Schema document declares no seed rows")
		return false, nil
	}
	// One transaction: either every seed row lands or none do.
	if err := drv.ExecuteMigration(ctx, script.String()); err != nil {
		return false, err
	}
	okColor.Printf("✔ Seeded %d rows\n", rows)
	return true, nil
}

func seedMongo(ctx context.Context, m *mongodb.Driver, doc *schema.ProjectSchema) (bool, error) {
	rows := 0
	for _, t := range doc.Tables {
		if len(t.Seed) == 0 {
			continue
		}
		command := map[string]interface{}{
			"insert":    t.Name,
			"documents": t.Seed,
		}
		body, err := json.Marshal(command)
		if err != nil {
			return false, err
		}
		if _, err := m.Exec(ctx, string(body)); err != nil {
			return false, err
		}
		rows += len(t.Seed)
	}
	if rows == 0 {
		logging.Logger.Warn("Schema document declares no seed rows")
		return false, nil
	}
	okColor.Printf("✔ Seeded %d documents\n", rows)
	return true, nil
}

// sqlLiteral renders a seed value as a SQL literal. Strings are quoted
// with doubled quotes; everything else rides on fmt.
func sqlLiteral(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case float64, int, int64:
		return fmt.Sprintf("%v", x)
	default:
		body, err := json.Marshal(x)
		if err != nil {
			return "NULL"
		}
		return "'" + strings.ReplaceAll(string(body), "'", "''") + "'"
	}
}

func init() {
	seedCmd.Flags().String("schema", "schema.yaml", "path to the project schema document")
	searchCmd.Flags().Bool("case-sensitive", false, "match case exactly")
	searchCmd.Flags().Bool("exact", false, "match whole values instead of substrings")
	searchCmd.Flags().Bool("regex", false, "treat the term as a regular expression")
	searchCmd.Flags().Bool("recursive", false, "search every table even when one is named")
	searchCmd.Flags().Bool("highlight", false, "highlight matches in table output")
	addOutputFlags(queryCmd)
	addOutputFlags(searchCmd)

	for _, cmd := range []*cobra.Command{queryCmd, countRecordsCmd, searchCmd, seedCmd} {
		addMutationFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}
