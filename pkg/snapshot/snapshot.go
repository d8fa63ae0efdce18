// Package snapshot captures database state and computes structural diffs.
package snapshot

import (
	"sort"
	"time"
)

// Column describes one column of a table as reported by the engine.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	Position int    `json:"position"`
}

// Index describes an index structurally; only names and definitions are
// compared, never physical layout.
type Index struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	Unique     bool     `json:"unique"`
	Definition string   `json:"definition,omitempty"`
}

// Table is one table (or collection) within a state snapshot.
type Table struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// State is the full picture of a database at an instant: per-table columns
// and row counts, plus indexes captured for structural comparison.
type State struct {
	CapturedAt time.Time        `json:"captured_at"`
	Database   string           `json:"database"`
	Tables     map[string]Table `json:"tables"`
	Indexes    []Index          `json:"indexes,omitempty"`
}

// NewState returns an empty snapshot for the named database.
func NewState(database string) *State {
	return &State{
		CapturedAt: time.Now(),
		Database:   database,
		Tables:     make(map[string]Table),
	}
}

// TableNames returns the snapshot's table names sorted for stable output.
func (s *State) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// columnSet maps column name to its definition for set arithmetic.
func (t Table) columnSet() map[string]Column {
	set := make(map[string]Column, len(t.Columns))
	for _, c := range t.Columns {
		set[c.Name] = c
	}
	return set
}
