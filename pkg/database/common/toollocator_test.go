package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocateOverride tests that explicit overrides win over PATH lookup.
func TestLocateOverride(t *testing.T) {
	l := &ToolLocator{
		Overrides: map[string]string{"pg_dump": "/opt/pg/bin/pg_dump"},
		lookPath: func(name string) (string, error) {
			t.Fatal("lookPath should not be consulted for an overridden tool")
			return "", nil
		},
	}

	path, err := l.Locate("pg_dump")
	require.NoError(t, err)
	assert.Equal(t, "/opt/pg/bin/pg_dump", path)
}

// TestLocatePath tests the PATH fallback and the not-found error.
func TestLocatePath(t *testing.T) {
	l := &ToolLocator{
		lookPath: func(name string) (string, error) {
			if name == "psql" {
				return "/usr/bin/psql", nil
			}
			return "", fmt.Errorf("not found")
		},
	}

	path, err := l.Locate("psql")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/psql", path)

	_, err = l.Locate("mongodump")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodump not found on PATH")
}

// TestToolMajorVersion tests version extraction from --version output.
func TestToolMajorVersion(t *testing.T) {
	cases := map[string]int{
		"pg_dump (PostgreSQL) 16.2":                   16,
		"pg_dump (PostgreSQL) 15.4 (Debian 15.4-1)":   15,
		"mongodump version: 100.9.4":                  100,
		"psql (PostgreSQL) 14.11 (Ubuntu 14.11-0ubu)": 14,
	}

	for out, want := range cases {
		l := &ToolLocator{
			runVersion: func(ctx context.Context, path string) (string, error) {
				return out, nil
			},
		}
		major, err := l.ToolMajorVersion(context.Background(), "/bin/tool")
		require.NoError(t, err, out)
		assert.Equal(t, want, major, out)
	}
}

// TestToolMajorVersionUnparseable tests the error path for garbage output.
func TestToolMajorVersionUnparseable(t *testing.T) {
	l := &ToolLocator{
		runVersion: func(ctx context.Context, path string) (string, error) {
			return "no digits here", nil
		},
	}
	_, err := l.ToolMajorVersion(context.Background(), "/bin/tool")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable version output")
}

// TestLocateCompatibleCurrent tests that a recent PATH copy is used as-is.
func TestLocateCompatibleCurrent(t *testing.T) {
	l := &ToolLocator{
		lookPath: func(name string) (string, error) { return "/usr/bin/pg_dump", nil },
		runVersion: func(ctx context.Context, path string) (string, error) {
			return "pg_dump (PostgreSQL) 16.2", nil
		},
	}

	path, warning, err := l.LocateCompatible(context.Background(), "pg_dump", 16)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/pg_dump", path)
	assert.Empty(t, warning)
}

// TestLocateCompatibleVersionedInstall tests the scan of versioned install
// directories when the PATH copy is too old.
func TestLocateCompatibleVersionedInstall(t *testing.T) {
	dir := t.TempDir()
	newer := filepath.Join(dir, "16", "bin")
	require.NoError(t, os.MkdirAll(newer, 0o755))
	newerTool := filepath.Join(newer, "pg_dump")
	require.NoError(t, os.WriteFile(newerTool, []byte("#!/bin/sh\n"), 0o755))

	l := &ToolLocator{
		ExtraDirs: []string{filepath.Join(dir, "*", "bin")},
		lookPath:  func(name string) (string, error) { return "/usr/bin/pg_dump", nil },
		runVersion: func(ctx context.Context, path string) (string, error) {
			if path == newerTool {
				return "pg_dump (PostgreSQL) 16.2", nil
			}
			return "pg_dump (PostgreSQL) 14.11", nil
		},
	}

	path, warning, err := l.LocateCompatible(context.Background(), "pg_dump", 16)
	require.NoError(t, err)
	assert.Equal(t, newerTool, path)
	assert.Empty(t, warning)
}

// TestLocateCompatibleSkew tests that a stale copy is returned with a
// warning when nothing newer exists.
func TestLocateCompatibleSkew(t *testing.T) {
	l := &ToolLocator{
		ExtraDirs: []string{filepath.Join(t.TempDir(), "*", "bin")},
		lookPath:  func(name string) (string, error) { return "/usr/bin/pg_dump", nil },
		runVersion: func(ctx context.Context, path string) (string, error) {
			return "pg_dump (PostgreSQL) 14.11", nil
		},
	}

	path, warning, err := l.LocateCompatible(context.Background(), "pg_dump", 16)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/pg_dump", path)
	assert.Contains(t, warning, "version 14 but the server is version 16")
}
