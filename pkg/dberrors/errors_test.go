package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewAssignsSeverity tests the kind-to-severity defaults.
func TestNewAssignsSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, New(KindValidation, "x").Severity)
	assert.Equal(t, SeverityHigh, New(KindConnection, "x").Severity)
	assert.Equal(t, SeverityMedium, New(KindDatabase, "x").Severity)
}

// TestErrorString tests message rendering with and without a cause.
func TestErrorString(t *testing.T) {
	assert.Equal(t, "bad input", New(KindValidation, "bad input").Error())

	wrapped := Wrap(KindDatabase, errors.New("relation missing"), "query failed")
	assert.Equal(t, "query failed: relation missing", wrapped.Error())
}

// TestUnwrap tests that wrapped causes survive errors.Is chains.
func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(KindUnknown, fmt.Errorf("middle: %w", cause), "outer")
	assert.True(t, errors.Is(wrapped, cause))
}

// TestWithSuggestionsAndContext tests the fluent builders.
func TestWithSuggestionsAndContext(t *testing.T) {
	e := New(KindValidation, "no project named x").
		WithSuggestions("check the project name", "run validate-config").
		WithContext("project", "x")

	assert.Equal(t, []string{"check the project name", "run validate-config"}, e.Suggestions)
	assert.Equal(t, "x", e.Context["project"])
}

// TestClassify tests the message heuristics backing cross-engine errors.
func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		kind Kind
	}{
		{"dial tcp 10.0.0.1:5432: connection refused", KindConnection},
		{"server selection error: timed out", KindConnection},
		{"pq: password authentication failed for user \"app\"", KindPermission},
		{"(Unauthorized) not authorized on app to execute command", KindPermission},
		{"pq: relation \"users\" does not exist", KindDatabase},
		{"ns not found", KindDatabase},
		{"open backups/app.sql: no such file or directory", KindFileSystem},
		{"cannot parse uri", KindValidation},
		{"something else entirely", KindUnknown},
	}

	for _, c := range cases {
		classified := Classify(errors.New(c.msg))
		require.NotNil(t, classified, c.msg)
		assert.Equal(t, c.kind, classified.Kind, c.msg)
	}
}

// TestClassifyPassthrough tests that already-classified errors keep their
// kind.
func TestClassifyPassthrough(t *testing.T) {
	original := New(KindPermission, "must be owner of table users")
	assert.Same(t, original, Classify(original))
}

// TestClassifyNil tests the nil guard.
func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}
