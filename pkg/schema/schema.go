// Package schema models the declarative expected schema for a project.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
)

// TableSpec declares one expected table.
type TableSpec struct {
	Name    string            `yaml:"name" json:"name"`
	Columns map[string]string `yaml:"columns" json:"columns"`
	Indexes []IndexSpec       `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Seed    []map[string]any  `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// IndexSpec declares one expected index.
type IndexSpec struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
}

// ProjectSchema is the whole declarative schema document.
type ProjectSchema struct {
	Tables     []TableSpec `yaml:"tables" json:"tables"`
	Extensions []string    `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	Functions  []string    `yaml:"functions,omitempty" json:"functions,omitempty"`
	Triggers   []string    `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

// Load reads a schema document from a YAML or JSON file.
func Load(path string) (*ProjectSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read schema file")
	}

	var s ProjectSchema
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, dberrors.Wrap(dberrors.KindValidation, err, "schema file is not valid JSON")
		}
	} else {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, dberrors.Wrap(dberrors.KindValidation, err, "schema file is not valid YAML")
		}
	}

	if len(s.Tables) == 0 {
		return nil, dberrors.New(dberrors.KindValidation, "schema file declares no tables")
	}
	for _, t := range s.Tables {
		if t.Name == "" {
			return nil, dberrors.New(dberrors.KindValidation, "schema declares a table without a name")
		}
		if len(t.Columns) == 0 {
			return nil, dberrors.Newf(dberrors.KindValidation, "table %q declares no columns", t.Name)
		}
	}
	return &s, nil
}

// referencePattern matches REFERENCES <table> in a column constraint.
var referencedTable = func(constraint string) string {
	upper := strings.ToUpper(constraint)
	idx := strings.Index(upper, "REFERENCES ")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(constraint[idx+len("REFERENCES "):])
	end := strings.IndexAny(rest, " (")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// CreationOrder topologically sorts the tables so that every table is
// created after the tables its foreign keys reference. A cycle degrades
// to the discovery order and the caller should create without FKs; the
// second return reports whether a cycle was found.
func (s *ProjectSchema) CreationOrder() ([]TableSpec, bool) {
	byName := make(map[string]TableSpec, len(s.Tables))
	deps := make(map[string][]string, len(s.Tables))
	for _, t := range s.Tables {
		byName[t.Name] = t
		for _, constraint := range t.Columns {
			if ref := referencedTable(constraint); ref != "" && ref != t.Name {
				if _, known := indexOf(s.Tables, ref); known {
					deps[t.Name] = append(deps[t.Name], ref)
				}
			}
		}
	}

	var (
		order   []TableSpec
		state   = make(map[string]int, len(s.Tables)) // 0 unvisited, 1 visiting, 2 done
		cyclic  bool
		visit   func(name string)
	)
	visit = func(name string) {
		switch state[name] {
		case 1:
			cyclic = true
			return
		case 2:
			return
		}
		state[name] = 1
		for _, dep := range deps[name] {
			visit(dep)
		}
		state[name] = 2
		order = append(order, byName[name])
	}
	for _, t := range s.Tables {
		visit(t.Name)
	}

	if cyclic {
		return s.Tables, true
	}
	return order, false
}

func indexOf(tables []TableSpec, name string) (int, bool) {
	for i, t := range tables {
		if t.Name == name {
			return i, true
		}
	}
	return 0, false
}

// ColumnDefs renders the table's column definitions in a stable order,
// name first so diffs stay readable.
func (t TableSpec) ColumnDefs() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	// id first, then lexical; mirrors how these documents are written.
	for i, name := range names {
		if name == "id" && i != 0 {
			names[0], names[i] = names[i], names[0]
		}
	}
	sortTail(names)

	defs := make([]string, 0, len(names))
	for _, name := range names {
		defs = append(defs, fmt.Sprintf("%s %s", name, t.Columns[name]))
	}
	return defs
}

func sortTail(names []string) {
	start := 0
	if len(names) > 0 && names[0] == "id" {
		start = 1
	}
	tail := names[start:]
	for i := 1; i < len(tail); i++ {
		for j := i; j > 0 && tail[j] < tail[j-1]; j-- {
			tail[j], tail[j-1] = tail[j-1], tail[j]
		}
	}
}
