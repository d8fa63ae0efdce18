package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScriptedAsk tests that answers pop in order and questions are
// recorded.
func TestScriptedAsk(t *testing.T) {
	s := &Scripted{Answers: []string{"prod-pg", "users"}}

	answer, err := s.Ask("Project name?")
	require.NoError(t, err)
	assert.Equal(t, "prod-pg", answer)

	answer, err = s.Ask("Table name?")
	require.NoError(t, err)
	assert.Equal(t, "users", answer)

	assert.Equal(t, []string{"Project name?", "Table name?"}, s.Asked)
}

// TestScriptedUnexpectedPrompt tests the fail-fast on an exhausted queue.
func TestScriptedUnexpectedPrompt(t *testing.T) {
	s := &Scripted{}

	_, err := s.Ask("Project name?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected prompt")
}

// TestScriptedConfirm tests the yes/no interpretation.
func TestScriptedConfirm(t *testing.T) {
	s := &Scripted{Answers: []string{"y", "YES", "n", "", "nope"}}

	for _, want := range []bool{true, true, false, false, false} {
		got, err := s.Confirm("Proceed?")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
