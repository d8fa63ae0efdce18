package dryrun

import (
	"regexp"
	"strings"
)

var (
	deletePattern = regexp.MustCompile(`(?is)^\s*DELETE\s+FROM\s+([\w".]+)(\s+WHERE\s+.*)?$`)
	updatePattern = regexp.MustCompile(`(?is)^\s*UPDATE\s+([\w".]+)\s+SET\s+.*?(\s+WHERE\s+.*)?$`)
)

// countStatement rewrites a DELETE or UPDATE into the SELECT COUNT(*)
// that estimates its affected rows, preserving any WHERE clause.
func countStatement(stmt string) (string, bool) {
	stmt = strings.TrimRight(strings.TrimSpace(stmt), ";")

	if m := deletePattern.FindStringSubmatch(stmt); m != nil {
		return "SELECT COUNT(*) FROM " + m[1] + m[2], true
	}
	if m := updatePattern.FindStringSubmatch(stmt); m != nil {
		return "SELECT COUNT(*) FROM " + m[1] + m[2], true
	}
	return "", false
}
