package postgres

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/encryption"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
)

// commandEnv builds the child environment for a PG client tool. The
// password travels via PGPASSWORD only; it never appears on the command
// line. The slice is per-process and discarded when the child exits.
func (d *Driver) commandEnv() []string {
	env := os.Environ()
	if d.conn.Password != "" {
		env = append(env, "PGPASSWORD="+d.conn.Password)
	}
	return env
}

// connectionArgs are the flags shared by every PG client invocation.
func (d *Driver) connectionArgs() []string {
	return []string{
		"--host", d.conn.Host,
		"--port", d.conn.Port,
		"--username", d.conn.User,
		"--no-password",
	}
}

// locateTool resolves a client tool, gated on the server major version.
// An unresolved version skew produces a warning, not a failure.
func (d *Driver) locateTool(ctx context.Context, tool string) (string, error) {
	serverMajor, err := d.ServerMajorVersion(ctx)
	if err != nil {
		logging.Logger.Warnf("Cannot determine server version, skipping %s version check: %v", tool, err)
		return d.tools.Locate(tool)
	}

	path, warning, err := d.tools.LocateCompatible(ctx, tool, serverMajor)
	if err != nil {
		return "", dberrors.Wrap(dberrors.KindFileSystem, err, tool+" is not installed").
			WithSuggestions("install the PostgreSQL client tools matching the server version")
	}
	if warning != "" {
		logging.Logger.Warn(warning)
	}
	return path, nil
}

// runTool starts a client tool and waits for it, honoring cancellation by
// killing the child.
func runTool(ctx context.Context, cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Args[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			detail := bytes.TrimSpace(stderr.Bytes())
			if len(detail) > 0 {
				return fmt.Errorf("%s failed: %w: %s", cmd.Args[0], err, detail)
			}
			return fmt.Errorf("%s failed: %w", cmd.Args[0], err)
		}
		return nil
	}
}

// DumpTo writes a plain-format logical dump of the database to w.
func (d *Driver) DumpTo(ctx context.Context, w io.Writer) error {
	path, err := d.locateTool(ctx, "pg_dump")
	if err != nil {
		return err
	}

	args := append(d.connectionArgs(), "--format", "p", d.dbName)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = d.commandEnv()
	cmd.Stdout = w
	return runTool(ctx, cmd)
}

// RestoreFrom replays a plain-format dump from r through psql.
func (d *Driver) RestoreFrom(ctx context.Context, r io.Reader) error {
	path, err := d.locateTool(ctx, "psql")
	if err != nil {
		return err
	}

	args := append(d.connectionArgs(), "--quiet", "--dbname", d.dbName)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = d.commandEnv()
	cmd.Stdin = r
	return runTool(ctx, cmd)
}

// formatFlag maps the engine-neutral format name onto pg_dump's -F flag.
func formatFlag(format string) (string, error) {
	switch format {
	case "", "plain":
		return "p", nil
	case "custom":
		return "c", nil
	}
	return "", fmt.Errorf("unsupported backup format %q (use plain or custom)", format)
}

// Backup writes a dump of the database to path, optionally encrypted.
func (d *Driver) Backup(ctx context.Context, path string, opts common.BackupOptions) (*common.BackupResult, error) {
	flag, err := formatFlag(opts.Format)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindValidation, err, "invalid backup options")
	}

	toolPath, err := d.locateTool(ctx, "pg_dump")
	if err != nil {
		return nil, err
	}

	args := append(d.connectionArgs(), "--format", flag)
	if opts.SchemaOnly {
		args = append(args, "--schema-only")
	}
	args = append(args, d.dbName)
	cmd := exec.CommandContext(ctx, toolPath, args...)
	cmd.Env = d.commandEnv()

	result := &common.BackupResult{Path: path, Encrypted: opts.Encrypt}

	if opts.Encrypt {
		var buf bytes.Buffer
		cmd.Stdout = &buf
		if err := runTool(ctx, cmd); err != nil {
			return nil, err
		}

		key, err := encryption.GenerateKey()
		if err != nil {
			return nil, err
		}
		ciphertext, err := encryption.Encrypt(buf.Bytes(), key)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, ciphertext, 0o600); err != nil {
			return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "failed to write encrypted backup")
		}
		result.KeyPath = path + ".key"
		if err := encryption.WriteKeyFile(result.KeyPath, key); err != nil {
			os.Remove(path)
			return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "failed to write backup key")
		}
		result.SizeBytes = int64(len(ciphertext))
		return result, nil
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "failed to create backup file")
	}
	defer out.Close()

	cmd.Stdout = out
	if err := runTool(ctx, cmd); err != nil {
		os.Remove(path)
		return nil, err
	}
	if info, err := out.Stat(); err == nil {
		result.SizeBytes = info.Size()
	}
	return result, nil
}

// Restore replays a dump file against the database. Plain dumps go through
// psql; custom-format dumps go through pg_restore. Encrypted dumps are
// decrypted in memory first.
func (d *Driver) Restore(ctx context.Context, path string, opts common.RestoreOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read backup file")
	}

	if opts.KeyPath != "" {
		key, err := encryption.ReadKeyFile(opts.KeyPath)
		if err != nil {
			return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read backup key")
		}
		data, err = encryption.Decrypt(data, key)
		if err != nil {
			return dberrors.Wrap(dberrors.KindValidation, err, "backup decryption failed").
				WithSuggestions("verify that the key file matches this backup")
		}
	}

	if opts.DryRun {
		logging.Logger.Infof("Dry run: would restore %d bytes into %s", len(data), d.dbName)
		return nil
	}

	// Custom-format archives start with the PGDMP magic.
	if bytes.HasPrefix(data, []byte("PGDMP")) {
		toolPath, err := d.locateTool(ctx, "pg_restore")
		if err != nil {
			return err
		}
		args := append(d.connectionArgs(), "--dbname", d.dbName)
		if opts.DropFirst {
			args = append(args, "--clean", "--if-exists")
		}
		cmd := exec.CommandContext(ctx, toolPath, args...)
		cmd.Env = d.commandEnv()
		cmd.Stdin = bytes.NewReader(data)
		return runTool(ctx, cmd)
	}

	return d.RestoreFrom(ctx, bytes.NewReader(data))
}
