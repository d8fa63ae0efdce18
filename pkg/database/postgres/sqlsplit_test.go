package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitStatementsSimple tests the plain multi-statement case.
func TestSplitStatementsSimple(t *testing.T) {
	got := SplitStatements("CREATE TABLE a (id INT); CREATE TABLE b (id INT);")
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", got[0])
	assert.Equal(t, "CREATE TABLE b (id INT)", got[1])
}

// TestSplitStatementsTrailingWithoutSemicolon tests that a final
// statement without a terminator still comes back.
func TestSplitStatementsTrailingWithoutSemicolon(t *testing.T) {
	got := SplitStatements("SELECT 1; SELECT 2")
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, got)
}

// TestSplitStatementsQuotedSemicolon tests that semicolons inside string
// literals do not split, including the '' escape.
func TestSplitStatementsQuotedSemicolon(t *testing.T) {
	got := SplitStatements(`INSERT INTO t (v) VALUES ('a;b'); INSERT INTO t (v) VALUES ('it''s; fine');`)
	require.Len(t, got, 2)
	assert.Equal(t, `INSERT INTO t (v) VALUES ('a;b')`, got[0])
	assert.Equal(t, `INSERT INTO t (v) VALUES ('it''s; fine')`, got[1])
}

// TestSplitStatementsDollarQuoted tests that function bodies in $$ and
// $tag$ quoting keep their internal semicolons.
func TestSplitStatementsDollarQuoted(t *testing.T) {
	script := `CREATE FUNCTION bump() RETURNS trigger AS $body$
BEGIN
  NEW.updated_at := now();
  RETURN NEW;
END;
$body$ LANGUAGE plpgsql;
SELECT 1;`

	got := SplitStatements(script)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "RETURN NEW;")
	assert.Contains(t, got[0], "$body$ LANGUAGE plpgsql")
	assert.Equal(t, "SELECT 1", got[1])
}

// TestSplitStatementsAnonymousDollar tests the bare $$ form.
func TestSplitStatementsAnonymousDollar(t *testing.T) {
	got := SplitStatements(`DO $$ BEGIN PERFORM 1; END $$; SELECT 2;`)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "PERFORM 1;")
}

// TestSplitStatementsComments tests that semicolons inside comments do
// not split statements.
func TestSplitStatementsComments(t *testing.T) {
	script := `SELECT 1 -- trailing; comment
; SELECT /* block; comment */ 2;`
	got := SplitStatements(script)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "-- trailing; comment")
	assert.Contains(t, got[1], "/* block; comment */")
}

// TestSplitStatementsQuotedIdentifier tests double-quoted identifiers.
func TestSplitStatementsQuotedIdentifier(t *testing.T) {
	got := SplitStatements(`SELECT "odd;name" FROM t; SELECT 1;`)
	require.Len(t, got, 2)
	assert.Equal(t, `SELECT "odd;name" FROM t`, got[0])
}

// TestSplitStatementsEmpty tests that blank scripts and empty statements
// produce nothing.
func TestSplitStatementsEmpty(t *testing.T) {
	assert.Empty(t, SplitStatements(""))
	assert.Empty(t, SplitStatements(" ;; ; "))
}

// TestSplitStatementsPositionalParam tests that a lone $1 is not
// mistaken for a dollar-quote opener.
func TestSplitStatementsPositionalParam(t *testing.T) {
	got := SplitStatements(`SELECT * FROM t WHERE id = $1 AND v = 'x'; SELECT 2;`)
	require.Len(t, got, 2)
}
