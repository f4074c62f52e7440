package logging

import (
	"fmt"
	"strings"
)

// Row is one labelled line of a Table.
type Row struct {
	Label  string
	Values []string
	Unit   string
	Note   string
}

// WithUnit sets the unit printed after the values.
func (r *Row) WithUnit(unit string) *Row {
	r.Unit = unit
	return r
}

// WithNote sets the free text printed in the last column.
func (r *Row) WithNote(note string) *Row {
	r.Note = note
	return r
}

// Table renders rows of right-aligned values under column headers. The unit
// and note columns only take space when some row uses them.
type Table struct {
	Title   string
	Columns []string
	rows    []*Row
}

// NewTable returns an empty table with the given column headers.
func NewTable(title string, columns ...string) *Table {
	return &Table{Title: title, Columns: columns}
}

// Add appends a row. Values beyond the column count are dropped; missing or
// empty ones print as MissingValue.
func (t *Table) Add(label string, values ...string) *Row {
	r := &Row{Label: label, Values: values}
	t.rows = append(t.rows, r)
	return r
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// String renders the table, or "" when it has no rows.
func (t *Table) String() string {
	if len(t.rows) == 0 {
		return ""
	}

	labelWidth, unitWidth := 0, 0
	hasNotes := false
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, r := range t.rows {
		labelWidth = max(labelWidth, len(r.Label))
		unitWidth = max(unitWidth, len(r.Unit))
		hasNotes = hasNotes || r.Note != ""
		for i := range widths {
			widths[i] = max(widths[i], len(t.value(r, i)))
		}
	}

	var lines []string
	if t.Title != "" {
		lines = append(lines, t.Title)
	}

	header := t.line(strings.Repeat(" ", labelWidth), t.Columns, widths, strings.Repeat(" ", unitWidth))
	if hasNotes {
		header += "Notes"
	}
	lines = append(lines, strings.TrimRight(header, " "))

	for _, r := range t.rows {
		values := make([]string, len(t.Columns))
		for i := range values {
			values[i] = t.value(r, i)
		}
		line := t.line(fmt.Sprintf("%-*s", labelWidth, r.Label), values, widths, fmt.Sprintf("%-*s", unitWidth, r.Unit))
		lines = append(lines, strings.TrimRight(line+r.Note, " "))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (t *Table) line(label string, values []string, widths []int, unit string) string {
	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString("  ")
	for i, v := range values {
		fmt.Fprintf(&sb, "%*s  ", widths[i], v)
	}
	if unit != "" {
		sb.WriteString(unit)
		sb.WriteString("  ")
	}
	return sb.String()
}

func (t *Table) value(r *Row, i int) string {
	if i < len(r.Values) && r.Values[i] != "" {
		return r.Values[i]
	}
	return MissingValue
}
