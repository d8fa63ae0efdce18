package mongodb

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

// runTool starts a mongo tool and waits for it, honoring cancellation.
func runTool(ctx context.Context, cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

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

// DumpTo writes a gzip archive dump of the database to w via mongodump.
func (d *Driver) DumpTo(ctx context.Context, w io.Writer) error {
	path, err := d.tools.Locate("mongodump")
	if err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "mongodump is not installed").
			WithSuggestions("install the MongoDB database tools")
	}

	cmd := exec.CommandContext(ctx, path,
		"--uri", d.uri,
		"--db", d.dbName,
		"--archive", "--gzip")
	cmd.Stdout = w
	return runTool(ctx, cmd)
}

// RestoreFrom replays a gzip archive dump from r via mongorestore.
func (d *Driver) RestoreFrom(ctx context.Context, r io.Reader) error {
	path, err := d.tools.Locate("mongorestore")
	if err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "mongorestore is not installed").
			WithSuggestions("install the MongoDB database tools")
	}

	cmd := exec.CommandContext(ctx, path,
		"--uri", d.uri,
		"--archive", "--gzip",
		"--drop")
	cmd.Stdin = r
	return runTool(ctx, cmd)
}

// Backup writes an archive dump to path, optionally encrypted. The Format
// option is ignored: MongoDB always produces a gzip archive.
func (d *Driver) Backup(ctx context.Context, path string, opts common.BackupOptions) (*common.BackupResult, error) {
	result := &common.BackupResult{Path: path, Encrypted: opts.Encrypt}
	if opts.Format != "" && opts.Format != "plain" {
		result.Warnings = append(result.Warnings, "MongoDB backups are always gzip archives; --format ignored")
	}

	if opts.Encrypt {
		var buf bytes.Buffer
		if err := d.DumpTo(ctx, &buf); err != nil {
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

	if err := d.DumpTo(ctx, out); err != nil {
		os.Remove(path)
		return nil, err
	}
	if info, err := out.Stat(); err == nil {
		result.SizeBytes = info.Size()
	}
	return result, nil
}

// Restore replays a dump file, decrypting first when a key is given.
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

	return d.RestoreFrom(ctx, bytes.NewReader(data))
}
