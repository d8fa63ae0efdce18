package common

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// ToolLocator resolves the client binaries (pg_dump, pg_restore, psql,
// mongodump, mongorestore) used for logical backup and restore. It is a
// plain value passed into drivers; nothing here mutates process-global
// state such as PATH.
type ToolLocator struct {
	// Overrides maps a tool name to an explicit binary path.
	Overrides map[string]string

	// ExtraDirs are searched, newest version first, when the PATH copy
	// of a PostgreSQL tool is older than the server.
	ExtraDirs []string

	// lookPath is swapped in tests.
	lookPath func(name string) (string, error)

	// runVersion is swapped in tests; returns the tool's --version output.
	runVersion func(ctx context.Context, path string) (string, error)
}

// defaultVersionedDirs are the common locations of versioned PostgreSQL
// client installs on Linux, macOS (Homebrew), and Debian-style layouts.
var defaultVersionedDirs = []string{
	"/usr/lib/postgresql/*/bin",
	"/usr/pgsql-*/bin",
	"/opt/homebrew/opt/postgresql@*/bin",
	"/usr/local/opt/postgresql@*/bin",
}

// NewToolLocator returns a locator with the standard search behavior.
func NewToolLocator() *ToolLocator {
	return &ToolLocator{
		Overrides: make(map[string]string),
		lookPath:  exec.LookPath,
		runVersion: func(ctx context.Context, path string) (string, error) {
			out, err := exec.CommandContext(ctx, path, "--version").Output()
			return string(out), err
		},
	}
}

// Locate returns the path for a tool, honoring explicit overrides first.
func (l *ToolLocator) Locate(tool string) (string, error) {
	if path, ok := l.Overrides[tool]; ok && path != "" {
		return path, nil
	}
	look := l.lookPath
	if look == nil {
		look = exec.LookPath
	}
	path, err := look(tool)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", tool, err)
	}
	return path, nil
}

var versionOutputPattern = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ToolMajorVersion runs `tool --version` and extracts the major version.
func (l *ToolLocator) ToolMajorVersion(ctx context.Context, path string) (int, error) {
	run := l.runVersion
	if run == nil {
		run = func(ctx context.Context, path string) (string, error) {
			out, err := exec.CommandContext(ctx, path, "--version").Output()
			return string(out), err
		}
	}
	out, err := run(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("cannot determine version of %s: %w", path, err)
	}
	m := versionOutputPattern.FindString(out)
	if m == "" {
		return 0, fmt.Errorf("unparseable version output from %s: %q", path, strings.TrimSpace(out))
	}
	v, err := goversion.NewVersion(m)
	if err != nil {
		return 0, fmt.Errorf("unparseable version %q from %s: %w", m, path, err)
	}
	return v.Segments()[0], nil
}

// LocateCompatible returns a path to the tool whose major version is at
// least serverMajor. The PATH copy is preferred; when it is too old the
// versioned install locations are scanned, newest first. When no
// compatible copy exists the PATH copy is returned together with a
// warning; proceeding with a version skew is the operator's call.
func (l *ToolLocator) LocateCompatible(ctx context.Context, tool string, serverMajor int) (string, string, error) {
	path, err := l.Locate(tool)
	if err != nil {
		return "", "", err
	}

	major, err := l.ToolMajorVersion(ctx, path)
	if err != nil {
		return path, fmt.Sprintf("cannot verify %s version: %v", tool, err), nil
	}
	if major >= serverMajor {
		return path, "", nil
	}

	for _, candidate := range l.versionedCandidates(tool) {
		m, err := l.ToolMajorVersion(ctx, candidate)
		if err != nil {
			continue
		}
		if m >= serverMajor {
			return candidate, "", nil
		}
	}

	warning := fmt.Sprintf("%s is version %d but the server is version %d; the dump may be incomplete",
		tool, major, serverMajor)
	return path, warning, nil
}

// versionedCandidates expands the versioned install globs, newest first.
func (l *ToolLocator) versionedCandidates(tool string) []string {
	dirs := l.ExtraDirs
	if len(dirs) == 0 {
		dirs = defaultVersionedDirs
	}

	var candidates []string
	for _, pattern := range dirs {
		matches, err := filepath.Glob(filepath.Join(pattern, tool))
		if err != nil {
			continue
		}
		candidates = append(candidates, matches...)
	}
	// Lexically descending puts higher version directories first for the
	// common /usr/lib/postgresql/<N>/bin layout.
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))
	return candidates
}
