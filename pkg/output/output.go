// Package output renders query results and store listings for the
// terminal, JSON, and CSV.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/tempbackup"
)

// Format selects how a result is rendered.
type Format string

const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatCompact Format = "compact"
)

// WriteResult renders a uniform query result in the requested format.
func WriteResult(w io.Writer, result *common.Result, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return writeCSV(w, result)
	case FormatCompact:
		return writeCompact(w, result)
	default:
		return writeTable(w, result)
	}
}

func writeJSON(w io.Writer, result *common.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"columns":  result.Columns,
		"rows":     result.Rows,
		"affected": result.Affected,
	})
}

func writeCSV(w io.Writer, result *common.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	for _, row := range result.Rows {
		record := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			record[i] = cell(row[col])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCompact(w io.Writer, result *common.Result) error {
	for _, row := range result.Rows {
		parts := make([]string, 0, len(result.Columns))
		for _, col := range result.Columns {
			parts = append(parts, col+"="+cell(row[col]))
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
	return nil
}

func writeTable(w io.Writer, result *common.Result) error {
	if len(result.Rows) == 0 {
		if len(result.Columns) == 0 {
			fmt.Fprintf(w, "OK, %d affected\n", result.Affected)
			return nil
		}
		fmt.Fprintln(w, "(no rows)")
		return nil
	}

	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(result.Rows))
	for r, row := range result.Rows {
		cells[r] = make([]string, len(result.Columns))
		for i, col := range result.Columns {
			v := cell(row[col])
			cells[r][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	header := make([]string, len(result.Columns))
	rule := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = pad(col, widths[i])
		rule[i] = strings.Repeat("-", widths[i])
	}
	fmt.Fprintln(w, strings.Join(header, " | "))
	fmt.Fprintln(w, strings.Join(rule, "-+-"))
	for _, row := range cells {
		for i := range row {
			row[i] = pad(row[i], widths[i])
		}
		fmt.Fprintln(w, strings.Join(row, " | "))
	}
	fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
	return nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func cell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return value.Format(time.RFC3339)
	case []byte:
		return string(value)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(value)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

// WriteTempBackups renders the temp-backup listing with human sizes and
// remaining lifetimes.
func WriteTempBackups(w io.Writer, entries []tempbackup.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No temp backups.")
		return
	}
	for _, e := range entries {
		restorable := "restorable"
		if !e.Restorable {
			restorable = "NOT RESTORABLE (key missing)"
		}
		fmt.Fprintf(w, "%s  %s  created %s  expires in %s  %s\n",
			e.Name,
			humanize.Bytes(uint64(e.SizeBytes)),
			humanize.Time(e.CreatedAt),
			e.ExpiresIn(now).Round(time.Minute),
			restorable)
	}
}

// Highlighter wraps matched substrings in color for search output.
type Highlighter struct {
	Enabled bool
	color   *color.Color
}

// NewHighlighter returns a highlighter; disabled ones pass text through.
func NewHighlighter(enabled bool) *Highlighter {
	return &Highlighter{Enabled: enabled, color: color.New(color.FgYellow, color.Bold)}
}

// Mark highlights every occurrence of term in text, case-insensitively.
func (h *Highlighter) Mark(text, term string) string {
	if !h.Enabled || term == "" {
		return text
	}
	lower := strings.ToLower(text)
	lowerTerm := strings.ToLower(term)

	var b strings.Builder
	for {
		idx := strings.Index(lower, lowerTerm)
		if idx < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:idx])
		b.WriteString(h.color.Sprint(text[idx : idx+len(term)]))
		text = text[idx+len(term):]
		lower = lower[idx+len(term):]
	}
}

// SortedKeys returns a document's keys in stable order.
func SortedKeys(doc map[string]interface{}) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
