package snapshot

import "sort"

// TableDiff describes what changed for one table present in both snapshots.
type TableDiff struct {
	ColumnsAdded   []string `json:"columns_added,omitempty"`
	ColumnsRemoved []string `json:"columns_removed,omitempty"`
	RowDelta       int64    `json:"row_delta"`
}

// Diff is the inert result of comparing two snapshots. It neither logs nor
// mutates anything; callers decide what to do with it.
type Diff struct {
	TablesAdded   []string             `json:"tables_added,omitempty"`
	TablesRemoved []string             `json:"tables_removed,omitempty"`
	Tables        map[string]TableDiff `json:"tables,omitempty"`
}

// Compute derives the structural and count delta between two snapshots.
func Compute(before, after *State) *Diff {
	d := &Diff{Tables: make(map[string]TableDiff)}

	for name := range after.Tables {
		if _, ok := before.Tables[name]; !ok {
			d.TablesAdded = append(d.TablesAdded, name)
		}
	}
	for name := range before.Tables {
		if _, ok := after.Tables[name]; !ok {
			d.TablesRemoved = append(d.TablesRemoved, name)
		}
	}
	sort.Strings(d.TablesAdded)
	sort.Strings(d.TablesRemoved)

	for name, beforeTable := range before.Tables {
		afterTable, ok := after.Tables[name]
		if !ok {
			continue
		}

		beforeCols := beforeTable.columnSet()
		afterCols := afterTable.columnSet()

		var td TableDiff
		for col := range afterCols {
			if _, ok := beforeCols[col]; !ok {
				td.ColumnsAdded = append(td.ColumnsAdded, col)
			}
		}
		for col := range beforeCols {
			if _, ok := afterCols[col]; !ok {
				td.ColumnsRemoved = append(td.ColumnsRemoved, col)
			}
		}
		sort.Strings(td.ColumnsAdded)
		sort.Strings(td.ColumnsRemoved)
		td.RowDelta = afterTable.RowCount - beforeTable.RowCount

		if len(td.ColumnsAdded) > 0 || len(td.ColumnsRemoved) > 0 || td.RowDelta != 0 {
			d.Tables[name] = td
		}
	}

	return d
}

// Safe reports whether the diff contains no destructive change: no removed
// table, no removed column on a retained table, and no negative row delta.
func (d *Diff) Safe() bool {
	if len(d.TablesRemoved) > 0 {
		return false
	}
	for _, td := range d.Tables {
		if len(td.ColumnsRemoved) > 0 {
			return false
		}
		if td.RowDelta < 0 {
			return false
		}
	}
	return true
}

// Empty reports whether the diff records no change at all.
func (d *Diff) Empty() bool {
	return len(d.TablesAdded) == 0 && len(d.TablesRemoved) == 0 && len(d.Tables) == 0
}
