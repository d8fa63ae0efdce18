package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/postgres"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/dryrun"
	"github.com/supporttools/GoDBAdmin/pkg/migrate"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [project] [path]",
	Short: "Apply a migration file, or every pending file in a directory",
	Long: `Apply migrations from a .sql (PostgreSQL) or .json (MongoDB) file.
Given a directory, files are applied in name order. Names already in
the migrations ledger are skipped, so re-running is harmless.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				path, err := argOr(a.prompter, args, 1, "Migration file or directory:")
				if err != nil {
					return false, err
				}
				files, err := migrationFiles(path)
				if err != nil {
					return false, err
				}
				if len(files) == 0 {
					return false, dberrors.New(dberrors.KindValidation, "no migration files found").
						WithContext("path", path)
				}

				if opts.DryRun {
					for _, file := range files {
						body, err := os.ReadFile(file)
						if err != nil {
							return false, err
						}
						statements := []string{string(body)}
						if drv.Type() == config.BackendPostgres {
							statements = postgres.SplitStatements(string(body))
						}
						printDryRun(dryrun.Migration(filepath.Base(file), statements))
					}
					return true, nil
				}

				apply := func(ctx context.Context, d common.Driver) error {
					for _, file := range files {
						result, err := migrate.ApplyFile(ctx, d, file)
						if err != nil {
							return err
						}
						switch result.Status {
						case migrate.StatusSkipped:
							fmt.Printf("%s already applied, skipping\n", result.Name)
						case migrate.StatusApplied:
							okColor.Printf("✔ Applied %s\n", result.Name)
						}
					}
					return nil
				}
				return guarded(ctx, a, drv, safety.Request{
					Operation:  "migrate",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate:  apply,
				}, apply)
			})
		})
	},
}

// migrationFiles expands a path into an ordered migration list. A single
// file stands alone; a directory contributes every .sql and .json entry
// sorted by name.
func migrationFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "migration path not found")
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read migration directory")
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".sql", ".json":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

var migrationsCmd = &cobra.Command{
	Use:   "migrations [project]",
	Short: "List applied migrations",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				records, err := migrate.List(ctx, drv)
				if err != nil {
					return false, err
				}
				if len(records) == 0 {
					fmt.Println("No migrations applied.")
					return true, nil
				}
				for _, r := range records {
					fmt.Printf("%s  %s\n", r.AppliedAt.Format("2006-01-02 15:04:05"), r.Name)
				}
				return true, nil
			})
		})
	},
}

func init() {
	addMutationFlags(migrateCmd)
	migrationsCmd.Flags().StringP("database", "d", "", "override the database named in the profile URI")
	rootCmd.AddCommand(migrateCmd, migrationsCmd)
}
