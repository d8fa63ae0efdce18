package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/mongodb"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/dryrun"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
	"github.com/supporttools/GoDBAdmin/pkg/schema"
)

// addMutationFlags attaches the flags shared by every mutating command.
func addMutationFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("force", false, "proceed despite a negative safety verdict")
	cmd.Flags().Bool("dry-run", false, "preview without executing")
	cmd.Flags().Bool("skip-safety", false, "bypass the safety rehearsal entirely")
	cmd.Flags().StringP("database", "d", "", "override the database named in the profile URI")
}

func mutationOpts(cmd *cobra.Command) adapter.Options {
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skip, _ := cmd.Flags().GetBool("skip-safety")
	db, _ := cmd.Flags().GetString("database")
	return adapter.Options{
		Database:   db,
		TypeHint:   typeHint(),
		Force:      force,
		DryRun:     dryRun,
		SkipSafety: skip,
	}
}

func projectArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func requirePostgres(drv common.Driver) error {
	if drv.Type() != config.BackendPostgres {
		return dberrors.New(dberrors.KindValidation,
			"this command applies to PostgreSQL projects only").
			WithSuggestions("for MongoDB use rename-collection, delete-collection or remove-field")
	}
	return nil
}

func requireMongo(drv common.Driver) (*mongodb.Driver, error) {
	m, ok := drv.(*mongodb.Driver)
	if !ok {
		return nil, dberrors.New(dberrors.KindValidation,
			"this command applies to MongoDB projects only")
	}
	return m, nil
}

var referencesClause = regexp.MustCompile(`(?i)\s+references\s+\S+(\s*\([^)]*\))?`)

var initCmd = &cobra.Command{
	Use:   "init [project]",
	Short: "Create the declared schema for a project",
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
					return initMongo(ctx, m, doc)
				}
				return initPostgres(ctx, drv, doc)
			})
		})
	},
}

func initPostgres(ctx context.Context, drv common.Driver, doc *schema.ProjectSchema) (bool, error) {
	tables, cyclic := doc.CreationOrder()
	if cyclic {
		logging.Logger.Warn("Foreign-key references form a cycle; creating tables in discovery order without foreign keys")
	}

	var script strings.Builder
	for _, ext := range doc.Extensions {
		fmt.Fprintf(&script, "CREATE EXTENSION IF NOT EXISTS %s;\n", pq.QuoteIdentifier(ext))
	}
	for _, t := range tables {
		defs := t.ColumnDefs()
		if cyclic {
			for i, def := range defs {
				defs[i] = referencesClause.ReplaceAllString(def, "")
			}
		}
		fmt.Fprintf(&script, "CREATE TABLE IF NOT EXISTS %s (\n  %s\n);\n",
			pq.QuoteIdentifier(t.Name), strings.Join(defs, ",\n  "))
		for _, idx := range t.Indexes {
			unique := ""
			if idx.Unique {
				unique = "UNIQUE "
			}
			cols := make([]string, len(idx.Columns))
			for i, c := range idx.Columns {
				cols[i] = pq.QuoteIdentifier(c)
			}
			fmt.Fprintf(&script, "CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);\n",
				unique, pq.QuoteIdentifier(idx.Name), pq.QuoteIdentifier(t.Name), strings.Join(cols, ", "))
		}
	}
	for _, fn := range doc.Functions {
		script.WriteString(fn)
		script.WriteString(";\n")
	}
	for _, tr := range doc.Triggers {
		script.WriteString(tr)
		script.WriteString(";\n")
	}

	if err := drv.ExecuteMigration(ctx, script.String()); err != nil {
		return false, err
	}
	okColor.Printf("✔ Created %d tables\n", len(tables))
	return true, nil
}

func initMongo(ctx context.Context, m *mongodb.Driver, doc *schema.ProjectSchema) (bool, error) {
	for _, t := range doc.Tables {
		exists, err := m.TableExists(ctx, t.Name)
		if err != nil {
			return false, err
		}
		if !exists {
			if _, err := m.Query(ctx, fmt.Sprintf(`{"create": %q}`, t.Name)); err != nil {
				return false, err
			}
		}
		for _, idx := range t.Indexes {
			if _, err := m.CreateIndex(ctx, t.Name, idx.Columns, idx.Unique); err != nil {
				return false, err
			}
		}
	}
	okColor.Printf("✔ Created %d collections\n", len(doc.Tables))
	return true, nil
}

var createTableCmd = &cobra.Command{
	Use:   "create-table [project] [table]",
	Short: "Create a single table",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			columns, _ := cmd.Flags().GetStringArray("column")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				table, err := argOr(a.prompter, args, 1, "Table name:")
				if err != nil {
					return false, err
				}
				if m, ok := drv.(*mongodb.Driver); ok {
					_, err := m.Query(ctx, fmt.Sprintf(`{"create": %q}`, table))
					if err != nil {
						return false, err
					}
					okColor.Printf("✔ Created collection %s\n", table)
					return true, nil
				}
				if len(columns) == 0 {
					return false, dberrors.New(dberrors.KindValidation,
						"no column definitions given").
						WithSuggestions(`pass each column with --column "name TYPE [constraints]"`)
				}
				stmt := fmt.Sprintf("CREATE TABLE %s (%s)",
					pq.QuoteIdentifier(table), strings.Join(columns, ", "))
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "create-table",
					Project:    drv.Profile().Name,
					QueryText:  stmt,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Exec(ctx, stmt)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					if _, err := d.Exec(ctx, stmt); err != nil {
						return err
					}
					okColor.Printf("✔ Created table %s\n", table)
					return nil
				})
			})
		})
	},
}

var addColumnCmd = &cobra.Command{
	Use:   "add-column [project] [table] [column] [definition...]",
	Short: "Add a column to a table",
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				if err := requirePostgres(drv); err != nil {
					return false, err
				}
				table, err := argOr(a.prompter, args, 1, "Table name:")
				if err != nil {
					return false, err
				}
				column, err := argOr(a.prompter, args, 2, "Column name:")
				if err != nil {
					return false, err
				}
				definition := "TEXT"
				if len(args) > 3 {
					definition = strings.Join(args[3:], " ")
				}

				exists, err := drv.ColumnExists(ctx, table, column)
				if err != nil {
					return false, err
				}
				if exists {
					logging.Logger.Warnf("Column %s.%s already exists", table, column)
					return false, nil
				}

				stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
					pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), definition)
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "add-column",
					Project:    drv.Profile().Name,
					QueryText:  stmt,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Exec(ctx, stmt)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					if _, err := d.Exec(ctx, stmt); err != nil {
						return err
					}
					okColor.Printf("✔ Added column %s.%s\n", table, column)
					return nil
				})
			})
		})
	},
}

var removeColumnCmd = &cobra.Command{
	Use:   "remove-column [project] [table] [column]",
	Short: "Drop a column after a shadow rehearsal",
	Args:  cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				if err := requirePostgres(drv); err != nil {
					return false, err
				}
				table, err := argOr(a.prompter, args, 1, "Table name:")
				if err != nil {
					return false, err
				}
				column, err := argOr(a.prompter, args, 2, "Column name:")
				if err != nil {
					return false, err
				}

				exists, err := drv.ColumnExists(ctx, table, column)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Column %s.%s does not exist", table, column)
					return false, nil
				}

				if opts.DryRun {
					report, err := dryrun.RemoveColumn(ctx, drv, table, column)
					if err != nil {
						return false, err
					}
					printDryRun(report)
					return true, nil
				}

				ok, err := confirmUnlessForced(a.prompter, opts.Force,
					fmt.Sprintf("Drop column %s.%s?", table, column))
				if err != nil || !ok {
					return false, err
				}

				stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
					pq.QuoteIdentifier(table), pq.QuoteIdentifier(column))
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "remove-column",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Exec(ctx, stmt)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					if _, err := d.Exec(ctx, stmt); err != nil {
						return err
					}
					okColor.Printf("✔ Dropped column %s.%s\n", table, column)
					return nil
				})
			})
		})
	},
}

var createIndexCmd = &cobra.Command{
	Use:   "create-index [project] [table] [column...]",
	Short: "Create an index on a table or collection",
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			name, _ := cmd.Flags().GetString("name")
			unique, _ := cmd.Flags().GetBool("unique")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				table, err := argOr(a.prompter, args, 1, "Table name:")
				if err != nil {
					return false, err
				}
				if len(args) < 3 {
					return false, dberrors.New(dberrors.KindValidation, "no index columns given")
				}
				columns := args[2:]

				if m, ok := drv.(*mongodb.Driver); ok {
					created, err := m.CreateIndex(ctx, table, columns, unique)
					if err != nil {
						return false, err
					}
					okColor.Printf("✔ Created index %s on %s\n", created, table)
					return true, nil
				}

				if name == "" {
					name = fmt.Sprintf("idx_%s_%s", table, strings.Join(columns, "_"))
				}
				quoted := make([]string, len(columns))
				for i, c := range columns {
					quoted[i] = pq.QuoteIdentifier(c)
				}
				uniqueKw := ""
				if unique {
					uniqueKw = "UNIQUE "
				}
				stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
					uniqueKw, pq.QuoteIdentifier(name), pq.QuoteIdentifier(table), strings.Join(quoted, ", "))
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "create-index",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Exec(ctx, stmt)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					if _, err := d.Exec(ctx, stmt); err != nil {
						return err
					}
					okColor.Printf("✔ Created index %s on %s\n", name, table)
					return nil
				})
			})
		})
	},
}

var renameTableCmd = &cobra.Command{
	Use:   "rename-table [project] [from] [to]",
	Short: "Rename a table",
	Args:  cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				if err := requirePostgres(drv); err != nil {
					return false, err
				}
				from, err := argOr(a.prompter, args, 1, "Current table name:")
				if err != nil {
					return false, err
				}
				to, err := argOr(a.prompter, args, 2, "New table name:")
				if err != nil {
					return false, err
				}
				exists, err := drv.TableExists(ctx, from)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Table %s does not exist", from)
					return false, nil
				}
				stmt := fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
					pq.QuoteIdentifier(from), pq.QuoteIdentifier(to))
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "rename-table",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Exec(ctx, stmt)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					if _, err := d.Exec(ctx, stmt); err != nil {
						return err
					}
					okColor.Printf("✔ Renamed %s to %s\n", from, to)
					return nil
				})
			})
		})
	},
}

var renameColumnCmd = &cobra.Command{
	Use:   "rename-column [project] [table] [from] [to]",
	Short: "Rename a column",
	Args:  cobra.MaximumNArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				if err := requirePostgres(drv); err != nil {
					return false, err
				}
				table, err := argOr(a.prompter, args, 1, "Table name:")
				if err != nil {
					return false, err
				}
				from, err := argOr(a.prompter, args, 2, "Current column name:")
				if err != nil {
					return false, err
				}
				to, err := argOr(a.prompter, args, 3, "New column name:")
				if err != nil {
					return false, err
				}
				exists, err := drv.ColumnExists(ctx, table, from)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Column %s.%s does not exist", table, from)
					return false, nil
				}
				stmt := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
					pq.QuoteIdentifier(table), pq.QuoteIdentifier(from), pq.QuoteIdentifier(to))
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "rename-column",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.Exec(ctx, stmt)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					if _, err := d.Exec(ctx, stmt); err != nil {
						return err
					}
					okColor.Printf("✔ Renamed %s.%s to %s\n", table, from, to)
					return nil
				})
			})
		})
	},
}

var deleteTableCmd = &cobra.Command{
	Use:   "delete-table [project] [table]",
	Short: "Drop a table after a backup and shadow rehearsal",
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

				if opts.DryRun {
					report, err := dryrun.DeleteTable(ctx, drv, table)
					if err != nil {
						return false, err
					}
					printDryRun(report)
					return true, nil
				}

				ok, err := confirmUnlessForced(a.prompter, opts.Force,
					fmt.Sprintf("Drop table %s from %s?", table, drv.Profile().Name))
				if err != nil || !ok {
					return false, err
				}

				drop := func(ctx context.Context, d common.Driver) error {
					if m, ok := d.(*mongodb.Driver); ok {
						return m.DropCollection(ctx, table)
					}
					_, err := d.Exec(ctx, fmt.Sprintf("DROP TABLE %s CASCADE", pq.QuoteIdentifier(table)))
					return err
				}
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "delete-table",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate:  drop,
				}, func(ctx context.Context, d common.Driver) error {
					if err := drop(ctx, d); err != nil {
						return err
					}
					okColor.Printf("✔ Dropped %s\n", table)
					return nil
				})
			})
		})
	},
}

var renameCollectionCmd = &cobra.Command{
	Use:   "rename-collection [project] [from] [to]",
	Short: "Rename a MongoDB collection",
	Args:  cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				m, err := requireMongo(drv)
				if err != nil {
					return false, err
				}
				from, err := argOr(a.prompter, args, 1, "Current collection name:")
				if err != nil {
					return false, err
				}
				to, err := argOr(a.prompter, args, 2, "New collection name:")
				if err != nil {
					return false, err
				}
				exists, err := m.TableExists(ctx, from)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Collection %s does not exist", from)
					return false, nil
				}
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "rename-collection",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						return d.(*mongodb.Driver).RenameCollection(ctx, from, to)
					},
				}, func(ctx context.Context, d common.Driver) error {
					if err := m.RenameCollection(ctx, from, to); err != nil {
						return err
					}
					okColor.Printf("✔ Renamed %s to %s\n", from, to)
					return nil
				})
			})
		})
	},
}

var deleteCollectionCmd = &cobra.Command{
	Use:   "delete-collection [project] [collection]",
	Short: "Drop a MongoDB collection after a backup",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				m, err := requireMongo(drv)
				if err != nil {
					return false, err
				}
				collection, err := argOr(a.prompter, args, 1, "Collection name:")
				if err != nil {
					return false, err
				}
				exists, err := m.TableExists(ctx, collection)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Collection %s does not exist", collection)
					return false, nil
				}

				if opts.DryRun {
					report, err := dryrun.DeleteTable(ctx, drv, collection)
					if err != nil {
						return false, err
					}
					report.Operation = "delete-collection"
					printDryRun(report)
					return true, nil
				}

				ok, err := confirmUnlessForced(a.prompter, opts.Force,
					fmt.Sprintf("Drop collection %s from %s?", collection, drv.Profile().Name))
				if err != nil || !ok {
					return false, err
				}
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "delete-collection",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						return d.(*mongodb.Driver).DropCollection(ctx, collection)
					},
				}, func(ctx context.Context, d common.Driver) error {
					if err := m.DropCollection(ctx, collection); err != nil {
						return err
					}
					okColor.Printf("✔ Dropped %s\n", collection)
					return nil
				})
			})
		})
	},
}

var removeFieldCmd = &cobra.Command{
	Use:   "remove-field [project] [collection] [field]",
	Short: "Unset a field from every document in a collection",
	Args:  cobra.MaximumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				m, err := requireMongo(drv)
				if err != nil {
					return false, err
				}
				collection, err := argOr(a.prompter, args, 1, "Collection name:")
				if err != nil {
					return false, err
				}
				field, err := argOr(a.prompter, args, 2, "Field name:")
				if err != nil {
					return false, err
				}
				exists, err := m.ColumnExists(ctx, collection, field)
				if err != nil {
					return false, err
				}
				if !exists {
					logging.Logger.Warnf("Field %s.%s does not exist", collection, field)
					return false, nil
				}

				if opts.DryRun {
					report, err := dryrun.RemoveColumn(ctx, drv, collection, field)
					if err != nil {
						return false, err
					}
					report.Operation = "remove-field"
					printDryRun(report)
					return true, nil
				}

				ok, err := confirmUnlessForced(a.prompter, opts.Force,
					fmt.Sprintf("Remove field %s from every document in %s?", field, collection))
				if err != nil || !ok {
					return false, err
				}
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "remove-field",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						_, err := d.(*mongodb.Driver).RemoveField(ctx, collection, field)
						return err
					},
				}, func(ctx context.Context, d common.Driver) error {
					modified, err := m.RemoveField(ctx, collection, field)
					if err != nil {
						return err
					}
					okColor.Printf("✔ Removed %s from %d documents\n", field, modified)
					return nil
				})
			})
		})
	},
}

func init() {
	initCmd.Flags().String("schema", "schema.yaml", "path to the project schema document")
	createTableCmd.Flags().StringArray("column", nil, `column definition, e.g. "id SERIAL PRIMARY KEY"`)
	createIndexCmd.Flags().String("name", "", "index name (derived from columns when omitted)")
	createIndexCmd.Flags().Bool("unique", false, "create a unique index")

	for _, cmd := range []*cobra.Command{
		initCmd, createTableCmd, addColumnCmd, removeColumnCmd, createIndexCmd,
		renameTableCmd, renameColumnCmd, deleteTableCmd,
		renameCollectionCmd, deleteCollectionCmd, removeFieldCmd,
	} {
		addMutationFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}
