package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connect.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// TestLoadMissingFile tests that a missing config file fails before any
// profile is produced.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// TestLoadInvalidJSON tests the malformed-file failure.
func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"not": "an array"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

// TestLoadEmptyArray tests that an empty registry is rejected.
func TestLoadEmptyArray(t *testing.T) {
	path := writeConfig(t, `[]`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no connection profiles")
}

// TestLoadMissingName tests the per-profile name requirement.
func TestLoadMissingName(t *testing.T) {
	path := writeConfig(t, `[{"postgres_uri": "postgresql://u:p@localhost:5432/app"}]`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")
}

// TestLoadNeitherURI tests that a profile without any URI is rejected.
func TestLoadNeitherURI(t *testing.T) {
	path := writeConfig(t, `[{"name": "empty"}]`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither postgres_uri nor mongodb_uri")
}

// TestLoadBadURI tests the per-backend URI shape check.
func TestLoadBadURI(t *testing.T) {
	path := writeConfig(t, `[{"name": "bad", "postgres_uri": "mysql://u:p@localhost/app"}]`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_uri")
}

// TestLoadInfersType tests backend inference from the URI field.
func TestLoadInfersType(t *testing.T) {
	path := writeConfig(t, `[
		{"name": "pg", "postgres_uri": "postgresql://u:p@localhost:5432/app"},
		{"name": "mongo", "mongodb_uri": "mongodb://u:p@localhost:27017/app"}
	]`)
	registry, err := Load(path)
	require.NoError(t, err)
	require.Len(t, registry.Profiles, 2)
	assert.Equal(t, BackendPostgres, registry.Profiles[0].Type)
	assert.Equal(t, BackendMongoDB, registry.Profiles[1].Type)
}

// TestLoadDuplicateNamesWarnButLoad tests that duplicate names do not
// fail the load; the first entry wins at resolution time.
func TestLoadDuplicateNamesWarnButLoad(t *testing.T) {
	path := writeConfig(t, `[
		{"name": "app", "postgres_uri": "postgresql://u:p@a:5432/one"},
		{"name": "app", "postgres_uri": "postgresql://u:p@b:5432/two"}
	]`)
	registry, err := Load(path)
	require.NoError(t, err)

	profile, err := registry.Get("app", "")
	require.NoError(t, err)
	assert.Contains(t, profile.PostgresURI, "/one")
}

// TestGetExactMatch tests plain resolution.
func TestGetExactMatch(t *testing.T) {
	registry := &Registry{Profiles: []ConnectionProfile{
		{Name: "Prod PG", Type: BackendPostgres},
		{Name: "Staging PG", Type: BackendPostgres},
	}}
	profile, err := registry.Get("Prod PG", "")
	require.NoError(t, err)
	assert.Equal(t, "Prod PG", profile.Name)
}

// TestGetNearMiss tests the resolver miss: available names are listed and
// a close match is suggested.
func TestGetNearMiss(t *testing.T) {
	registry := &Registry{Path: "connect.json", Profiles: []ConnectionProfile{
		{Name: "Prod PG", Type: BackendPostgres},
		{Name: "Staging PG", Type: BackendPostgres},
	}}
	_, err := registry.Get("prod-pg", "")
	require.Error(t, err)

	msg := errorWithSuggestions(t, err)
	assert.Contains(t, msg, "Did you mean")
	assert.Contains(t, msg, "Prod PG")
	assert.Contains(t, msg, "Staging PG")
}

// TestGetTypeHintFilters tests that a type hint excludes profiles of the
// other backend.
func TestGetTypeHintFilters(t *testing.T) {
	registry := &Registry{Profiles: []ConnectionProfile{
		{Name: "app", Type: BackendPostgres},
		{Name: "app-docs", Type: BackendMongoDB},
	}}

	_, err := registry.Get("app-docs", BackendPostgres)
	assert.Error(t, err)

	profile, err := registry.Get("app-docs", BackendMongoDB)
	require.NoError(t, err)
	assert.Equal(t, BackendMongoDB, profile.Type)
}

// TestLoadRoundTrip tests that a written config loads back with the same
// profiles.
func TestLoadRoundTrip(t *testing.T) {
	path := writeConfig(t, `[
		{"name": "app", "type": "postgres", "postgres_uri": "postgresql://u:p@localhost:5432/app", "database": "app"}
	]`)
	registry, err := Load(path)
	require.NoError(t, err)
	require.Len(t, registry.Profiles, 1)

	p := registry.Profiles[0]
	assert.Equal(t, "app", p.Name)
	assert.Equal(t, BackendPostgres, p.Type)
	assert.Equal(t, "postgresql://u:p@localhost:5432/app", p.URI())
	assert.Equal(t, "app", p.Database)
}

// errorWithSuggestions flattens a classified error and its suggestions
// into one string for containment checks.
func errorWithSuggestions(t *testing.T, err error) string {
	t.Helper()
	msg := err.Error()
	var classified *dberrors.Error
	if errors.As(err, &classified) {
		msg += "\n" + strings.Join(classified.Suggestions, "\n")
	}
	return msg
}
