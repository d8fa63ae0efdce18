package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/output"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
)

var listTempBackupsCmd = &cobra.Command{
	Use:   "list-temp-backups",
	Short: "List the encrypted pre-operation backups",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			return adapter.RunDetached(func() (bool, error) {
				entries, err := a.store.List()
				if err != nil {
					return false, err
				}
				output.WriteTempBackups(os.Stdout, entries, time.Now())
				return true, nil
			})
		})
	},
}

var restoreTempCmd = &cobra.Command{
	Use:   "restore-temp [project] [name]",
	Short: "Restore an encrypted temp backup into the live database",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				name, err := argOr(a.prompter, args, 1, "Temp backup name:")
				if err != nil {
					return false, err
				}
				entry, err := a.store.Get(name)
				if err != nil {
					return false, err
				}

				ok, err := confirmUnlessForced(a.prompter, opts.Force,
					fmt.Sprintf("Restore %s into %s? Existing data may be overwritten.",
						entry.Name, drv.Profile().Name))
				if err != nil || !ok {
					return false, err
				}

				replayed, err := guarded(ctx, a, drv, safety.Request{
					Operation:  "restore-temp",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						return a.store.Restore(ctx, d, name)
					},
				}, func(ctx context.Context, d common.Driver) error {
					if err := a.store.Restore(ctx, d, name); err != nil {
						return err
					}
					okColor.Printf("✔ Restored %s\n", entry.Name)
					return nil
				})
				if err != nil || !replayed {
					return replayed, err
				}

				// Eviction after a successful restore is opt-in.
				evict, err := a.prompter.Confirm(fmt.Sprintf("Evict %s now that it is restored?", entry.Name))
				if err == nil && evict {
					if err := a.store.Evict(name); err != nil {
						logging.Logger.Warnf("Could not evict %s: %v", name, err)
					} else {
						fmt.Printf("Evicted %s.\n", entry.Name)
					}
				}
				return true, nil
			})
		})
	},
}

func init() {
	addMutationFlags(restoreTempCmd)
	rootCmd.AddCommand(listTempBackupsCmd, restoreTempCmd)
}
