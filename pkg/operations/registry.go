// Package operations classifies every command by risk level.
package operations

import (
	"fmt"
	"sort"
	"strings"
)

// RiskLevel orders commands from harmless to destructive.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskCaution
	RiskWarning
	RiskDanger
)

// String renders the level for verdicts and logs.
func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskCaution:
		return "caution"
	case RiskWarning:
		return "warning"
	case RiskDanger:
		return "danger"
	}
	return fmt.Sprintf("risk(%d)", int(r))
}

// Descriptor ties a command name to its static risk level.
type Descriptor struct {
	Name string
	Risk RiskLevel
}

// registry is the static classification of every CLI command. Every
// command the CLI exposes appears here exactly once; Lookup on an
// unregistered name is a programming error surfaced loudly.
var registry = map[string]RiskLevel{
	// Read-only surface.
	"list-databases":    RiskSafe,
	"list-tables":       RiskSafe,
	"list-columns":      RiskSafe,
	"count-records":     RiskSafe,
	"query":             RiskSafe, // raw queries re-classify lexically
	"search":            RiskSafe,
	"check":             RiskSafe,
	"backup":            RiskSafe,
	"auto-backup":       RiskSafe,
	"validate-config":   RiskSafe,
	"list-temp-backups": RiskSafe,
	"migrations":        RiskSafe,
	"version":           RiskSafe,

	// Additive schema changes.
	"init":         RiskCaution,
	"create-table": RiskCaution,
	"add-column":   RiskCaution,
	"create-index": RiskCaution,
	"seed":         RiskCaution,

	// Mutations that can change meaning but not destroy data outright.
	"rename-table":       RiskWarning,
	"rename-column":      RiskWarning,
	"rename-collection":  RiskWarning,
	"migrate":            RiskWarning,
	"manage-permissions": RiskWarning,

	// Destructive surface.
	"delete-table":      RiskDanger,
	"remove-column":     RiskDanger,
	"delete-collection": RiskDanger,
	"remove-field":      RiskDanger,
	"restore":           RiskDanger,
	"restore-temp":      RiskDanger,
}

// Lookup returns the static risk level for a command.
func Lookup(name string) (RiskLevel, error) {
	risk, ok := registry[name]
	if !ok {
		return RiskDanger, fmt.Errorf("command %q is not registered in the operation registry", name)
	}
	return risk, nil
}

// Names returns every registered command name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dangerKeywords are top-level statement keywords that destroy data.
var dangerKeywords = map[string]bool{
	"DELETE": true, "DROP": true, "TRUNCATE": true,
}

// warningKeywords mutate data without necessarily destroying it.
var warningKeywords = map[string]bool{
	"UPDATE": true, "INSERT": true, "CREATE": true, "GRANT": true, "REVOKE": true,
}

// safeKeywords are read-only top-level keywords.
var safeKeywords = map[string]bool{
	"SELECT": true, "SHOW": true, "EXPLAIN": true, "WITH": true,
	"VALUES": true, "TABLE": true, "FIND": true, "COUNT": true,
	"AGGREGATE": true, "DISTINCT": true,
}

// mongoDangerOps are command-document keys or shell fragments that destroy
// data.
var mongoDangerOps = []string{
	"dropdatabase", "dropcollection", "deletemany", "\"drop\"", "'drop'",
}

// ClassifyQuery assigns a risk level to a raw query string using a lexical
// rule over the top-level statement keyword. Ambiguous statements default
// upward.
func ClassifyQuery(stmt string) RiskLevel {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return RiskSafe
	}

	lower := strings.ToLower(trimmed)
	for _, op := range mongoDangerOps {
		if strings.Contains(lower, op) {
			return RiskDanger
		}
	}

	keyword := strings.ToUpper(firstKeyword(trimmed))
	switch {
	case dangerKeywords[keyword]:
		return RiskDanger
	case keyword == "ALTER":
		// ALTER ... DROP destroys columns; other ALTERs remain warnings.
		if strings.Contains(strings.ToUpper(trimmed), " DROP ") ||
			strings.HasSuffix(strings.ToUpper(trimmed), " DROP") {
			return RiskDanger
		}
		return RiskWarning
	case warningKeywords[keyword]:
		return RiskWarning
	case safeKeywords[keyword]:
		return RiskSafe
	}

	// Unknown statements default upward.
	return RiskDanger
}

func firstKeyword(stmt string) string {
	fields := strings.FieldsFunc(stmt, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '(' || r == '{' || r == '"'
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ":,'")
}
