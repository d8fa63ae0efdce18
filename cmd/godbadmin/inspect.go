package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/postgres"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
)

var listDatabasesCmd = &cobra.Command{
	Use:   "list-databases [project]",
	Short: "List the server's user databases",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				names, err := drv.ListDatabases(ctx)
				if err != nil {
					return false, err
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return true, nil
			})
		})
	},
}

var listTablesCmd = &cobra.Command{
	Use:   "list-tables [project]",
	Short: "List tables or collections",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				names, err := drv.ListTables(ctx)
				if err != nil {
					return false, err
				}
				if len(names) == 0 {
					fmt.Println("No tables.")
					return true, nil
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return true, nil
			})
		})
	},
}

var listColumnsCmd = &cobra.Command{
	Use:   "list-columns [project] [table]",
	Short: "List column metadata for a table or collection",
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
				columns, err := drv.GetColumns(ctx, table)
				if err != nil {
					return false, err
				}
				for _, col := range columns {
					nullable := "NOT NULL"
					if col.Nullable {
						nullable = "NULL"
					}
					line := fmt.Sprintf("%-3d %-30s %-20s %s", col.Position, col.Name, col.DataType, nullable)
					if col.Default != "" {
						line += "  DEFAULT " + col.Default
					}
					fmt.Println(line)
				}
				return true, nil
			})
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [project]",
	Short: "Verify connectivity, server version and client tools",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				healthy := true

				if err := drv.Ping(ctx); err != nil {
					failColor.Printf("✖ connection: %v\n", err)
					return false, nil
				}
				okColor.Printf("✔ connected to %s (%s)\n", drv.DatabaseName(), drv.Type())

				var tools []string
				if pg, ok := drv.(*postgres.Driver); ok {
					major, err := pg.ServerMajorVersion(ctx)
					if err != nil {
						warnColor.Printf("⚠ server version: %v\n", err)
					} else {
						okColor.Printf("✔ server major version %d\n", major)
					}
					tools = []string{"pg_dump", "pg_restore", "psql"}
				} else {
					tools = []string{"mongodump", "mongorestore"}
				}
				for _, tool := range tools {
					path, err := a.tools.Locate(tool)
					if err != nil {
						failColor.Printf("✖ %s not found\n", tool)
						healthy = false
						continue
					}
					okColor.Printf("✔ %s at %s\n", tool, path)
				}

				applied, err := drv.AppliedMigrations(ctx)
				if err != nil {
					warnColor.Printf("⚠ migration ledger unreadable: %v\n", err)
				} else {
					okColor.Printf("✔ migration ledger: %d applied\n", len(applied))
				}

				return healthy, nil
			})
		})
	},
}

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate connect.json and list its profiles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode = adapter.RunDetached(func() (bool, error) {
			registry, err := config.Load(flagConnect)
			if err != nil {
				return false, err
			}
			for _, name := range registry.Names() {
				profile, err := registry.Get(name, "")
				if err != nil {
					failColor.Fprintf(os.Stderr, "✖ %s: %v\n", name, err)
					continue
				}
				okColor.Printf("✔ %s (%s)\n", profile.Name, profile.Type)
			}
			fmt.Printf("%d profiles valid.\n", len(registry.Names()))
			return true, nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{listDatabasesCmd, listTablesCmd, listColumnsCmd, checkCmd} {
		cmd.Flags().StringP("database", "d", "", "override the database named in the profile URI")
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(validateConfigCmd)
}
