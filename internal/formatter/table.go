// Package formatter renders pipeline results for the CLI: tabular listings,
// policy decision reports, and verification summaries.
package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table accumulates rows and renders them in aligned columns. Nothing is
// written until Render, so an empty table produces no output at all.
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth map[int]int // column index -> max width (0 = unlimited)
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers:  headers,
		maxWidth: make(map[int]int),
	}
}

// SetMaxWidth sets the maximum display width for a column (0-indexed).
// Values exceeding the limit are truncated with "...".
func (t *Table) SetMaxWidth(col, width int) *Table {
	t.maxWidth[col] = width
	return t
}

// AddRow appends a data row. Extra values beyond the header count are
// ignored; missing values are filled with empty strings.
func (t *Table) AddRow(values ...string) {
	cells := make([]string, len(t.headers))
	for i := range cells {
		if i < len(values) {
			cells[i] = t.truncate(i, values[i])
		}
	}
	t.rows = append(t.rows, cells)
}

// Render writes the table to w. A table with no rows renders nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeLine(tw, t.headers)

	separators := make([]string, len(t.headers))
	for i, h := range t.headers {
		separators[i] = strings.Repeat("-", len(h))
	}
	writeLine(tw, separators)

	for _, row := range t.rows {
		writeLine(tw, row)
	}
	return tw.Flush()
}

func writeLine(w io.Writer, cells []string) {
	//nolint:errcheck // tabwriter output to stdout
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func (t *Table) truncate(col int, s string) string {
	max, ok := t.maxWidth[col]
	if !ok || max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
