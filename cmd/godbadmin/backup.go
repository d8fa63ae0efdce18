package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/database/mongodb"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
	"github.com/supporttools/GoDBAdmin/pkg/safety"
	"github.com/supporttools/GoDBAdmin/pkg/storage/s3"
)

var backupCmd = &cobra.Command{
	Use:   "backup [project]",
	Short: "Write a logical dump of a project database",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			outPath, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")
			encrypt, _ := cmd.Flags().GetBool("encrypt")
			schemaOnly, _ := cmd.Flags().GetBool("schema-only")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				if outPath == "" {
					outPath = defaultDumpName(drv, "")
				}
				result, err := drv.Backup(ctx, outPath, common.BackupOptions{
					Format:     format,
					Encrypt:    encrypt,
					SchemaOnly: schemaOnly,
				})
				if err != nil {
					return false, err
				}
				for _, w := range result.Warnings {
					warnColor.Fprintf(os.Stderr, "⚠ %s\n", w)
				}
				okColor.Printf("✔ Backup written to %s (%s)\n",
					result.Path, humanize.Bytes(uint64(result.SizeBytes)))
				if result.Encrypted {
					fmt.Printf("Key file: %s (keep it or the backup is unreadable)\n", result.KeyPath)
				}
				return true, nil
			})
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [project] [path]",
	Short: "Replay a dump into a project database",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			keyPath, _ := cmd.Flags().GetString("key")
			dropFirst, _ := cmd.Flags().GetBool("drop-first")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				path, err := argOr(a.prompter, args, 1, "Dump path:")
				if err != nil {
					return false, err
				}
				if _, err := os.Stat(path); err != nil {
					return false, dberrors.Wrap(dberrors.KindFileSystem, err, "dump file not found")
				}
				if keyPath == "" {
					if _, err := os.Stat(path + ".key"); err == nil {
						keyPath = path + ".key"
						logging.Logger.Infof("Using sibling key file %s", keyPath)
					}
				}
				restoreOpts := common.RestoreOptions{
					KeyPath:   keyPath,
					DropFirst: dropFirst,
					DryRun:    opts.DryRun,
				}

				if opts.DryRun {
					return true, drv.Restore(ctx, path, restoreOpts)
				}

				ok, err := confirmUnlessForced(a.prompter, opts.Force,
					fmt.Sprintf("Restore %s into %s? Existing data may be overwritten.",
						filepath.Base(path), drv.Profile().Name))
				if err != nil || !ok {
					return false, err
				}

				return guarded(ctx, a, drv, safety.Request{
					Operation:  "restore",
					Project:    drv.Profile().Name,
					Force:      opts.Force,
					SkipSafety: opts.SkipSafety,
					Candidate: func(ctx context.Context, d common.Driver) error {
						return d.Restore(ctx, path, restoreOpts)
					},
				}, func(ctx context.Context, d common.Driver) error {
					if err := d.Restore(ctx, path, restoreOpts); err != nil {
						return err
					}
					okColor.Printf("✔ Restored %s\n", filepath.Base(path))
					return nil
				})
			})
		})
	},
}

var autoBackupCmd = &cobra.Command{
	Use:   "auto-backup [project]",
	Short: "Write a timestamped dump into the backups directory",
	Long: `Write a dump named <database>_<timestamp> into --dir, optionally
uploading it to S3 afterwards. Unlike temp backups these dumps are kept
until you delete them.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			dir, _ := cmd.Flags().GetString("dir")
			format, _ := cmd.Flags().GetString("format")
			encrypt, _ := cmd.Flags().GetBool("encrypt")
			bucket, _ := cmd.Flags().GetString("s3-bucket")
			prefix, _ := cmd.Flags().GetString("s3-prefix")
			region, _ := cmd.Flags().GetString("s3-region")
			endpoint, _ := cmd.Flags().GetString("s3-endpoint")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return false, dberrors.Wrap(dberrors.KindFileSystem, err, "cannot create backups directory")
				}
				outPath := filepath.Join(dir, defaultDumpName(drv, time.Now().UTC().Format("20060102T150405Z")))
				result, err := drv.Backup(ctx, outPath, common.BackupOptions{
					Format:  format,
					Encrypt: encrypt,
				})
				if err != nil {
					return false, err
				}
				for _, w := range result.Warnings {
					warnColor.Fprintf(os.Stderr, "⚠ %s\n", w)
				}
				okColor.Printf("✔ Backup written to %s (%s)\n",
					result.Path, humanize.Bytes(uint64(result.SizeBytes)))

				if bucket == "" {
					return true, nil
				}
				client, err := s3.NewClient(ctx, s3.Options{
					Bucket:   bucket,
					Prefix:   prefix,
					Region:   region,
					Endpoint: endpoint,
				})
				if err != nil {
					return false, err
				}
				key, err := client.Upload(ctx, result.Path)
				if err != nil {
					return false, err
				}
				okColor.Printf("✔ Uploaded to s3://%s/%s\n", bucket, key)
				if result.Encrypted {
					// The key file stays local on purpose.
					logging.Logger.Infof("Key file %s was not uploaded", result.KeyPath)
				}
				return true, nil
			})
		})
	},
}

var managePermissionsCmd = &cobra.Command{
	Use:   "manage-permissions [project] [user]",
	Short: "Grant or revoke privileges for a database user",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runWithApp(func(ctx context.Context, a *app) int {
			opts := mutationOpts(cmd)
			revoke, _ := cmd.Flags().GetBool("revoke")
			privileges, _ := cmd.Flags().GetString("privileges")
			table, _ := cmd.Flags().GetString("table")
			role, _ := cmd.Flags().GetString("role")
			return a.adapter.Run(ctx, projectArg(args), opts, func(ctx context.Context, drv common.Driver, opts adapter.Options) (bool, error) {
				user, err := argOr(a.prompter, args, 1, "User name:")
				if err != nil {
					return false, err
				}
				if m, ok := drv.(*mongodb.Driver); ok {
					return manageMongoRoles(ctx, m, user, role, revoke)
				}
				return managePostgresGrants(ctx, a, drv, opts, user, privileges, table, revoke)
			})
		})
	},
}

func managePostgresGrants(ctx context.Context, a *app, drv common.Driver, opts adapter.Options, user, privileges, table string, revoke bool) (bool, error) {
	if privileges == "" {
		privileges = "SELECT"
	}
	target := "ALL TABLES IN SCHEMA public"
	if table != "" {
		target = "TABLE " + pq.QuoteIdentifier(table)
	}

	var stmt string
	if revoke {
		stmt = fmt.Sprintf("REVOKE %s ON %s FROM %s", privileges, target, pq.QuoteIdentifier(user))
	} else {
		stmt = fmt.Sprintf("GRANT %s ON %s TO %s", privileges, target, pq.QuoteIdentifier(user))
	}

	return guarded(ctx, a, drv, safety.Request{
		Operation:  "manage-permissions",
		Project:    drv.Profile().Name,
		Force:      opts.Force,
		SkipSafety: opts.SkipSafety,
		Candidate: func(ctx context.Context, d common.Driver) error {
			// Grants touch no schema or rows; the rehearsal only proves
			// the statement parses and the role exists.
			_, err := d.Exec(ctx, stmt)
			return err
		},
	}, func(ctx context.Context, d common.Driver) error {
		if _, err := d.Exec(ctx, stmt); err != nil {
			return err
		}
		okColor.Printf("✔ %s\n", stmt)
		return nil
	})
}

func manageMongoRoles(ctx context.Context, m *mongodb.Driver, user, role string, revoke bool) (bool, error) {
	if role == "" {
		role = "read"
	}
	verb := "grantRolesToUser"
	if revoke {
		verb = "revokeRolesFromUser"
	}
	command := map[string]interface{}{
		verb: user,
		"roles": []map[string]interface{}{
			{"role": role, "db": m.DatabaseName()},
		},
	}
	body, err := json.Marshal(command)
	if err != nil {
		return false, err
	}
	if _, err := m.Query(ctx, string(body)); err != nil {
		return false, err
	}
	okColor.Printf("✔ %s %s for %s\n", verb, role, user)
	return true, nil
}

// defaultDumpName derives a dump filename from the handle. An empty
// stamp yields <database>.sql style names for one-off backups.
func defaultDumpName(drv common.Driver, stamp string) string {
	ext := ".sql"
	if drv.Type() == config.BackendMongoDB {
		ext = ".archive"
	}
	name := strings.ReplaceAll(drv.DatabaseName(), " ", "_")
	if stamp != "" {
		name += "_" + stamp
	}
	return name + ext
}

func init() {
	backupCmd.Flags().String("output", "", "dump file path (default <database>.sql)")
	backupCmd.Flags().String("format", "plain", "dump format: plain or custom (PostgreSQL only)")
	backupCmd.Flags().Bool("encrypt", false, "encrypt the dump and write a sibling .key file")
	backupCmd.Flags().Bool("schema-only", false, "dump structure without data")

	restoreCmd.Flags().String("key", "", "key file for an encrypted dump (default <path>.key when present)")
	restoreCmd.Flags().Bool("drop-first", false, "drop existing objects before replaying")

	autoBackupCmd.Flags().String("dir", "backups", "backups directory")
	autoBackupCmd.Flags().String("format", "plain", "dump format: plain or custom (PostgreSQL only)")
	autoBackupCmd.Flags().Bool("encrypt", false, "encrypt the dump and write a sibling .key file")
	autoBackupCmd.Flags().String("s3-bucket", "", "upload the dump to this S3 bucket")
	autoBackupCmd.Flags().String("s3-prefix", "", "key prefix inside the bucket")
	autoBackupCmd.Flags().String("s3-region", "", "bucket region")
	autoBackupCmd.Flags().String("s3-endpoint", "", "custom S3 endpoint (MinIO and friends)")

	managePermissionsCmd.Flags().Bool("revoke", false, "revoke instead of grant")
	managePermissionsCmd.Flags().String("privileges", "", "PostgreSQL privilege list, e.g. SELECT,INSERT (default SELECT)")
	managePermissionsCmd.Flags().String("table", "", "restrict the grant to one table")
	managePermissionsCmd.Flags().String("role", "", "MongoDB role name (default read)")

	for _, cmd := range []*cobra.Command{backupCmd, restoreCmd, autoBackupCmd, managePermissionsCmd} {
		addMutationFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
}
