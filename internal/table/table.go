package table

import (
	"strconv"
	"strings"
)

// Table is a small header-plus-rows view of one worksheet tab. Cells are kept
// as strings; the remote store has no schema, so all typing is done here.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New creates an empty table with the given columns
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// IsEmpty reports whether the table has no data rows
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the position of the named column, or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Get returns the cell at (row, column name). Rows shorter than the header
// read as empty cells rather than failing.
func (t *Table) Get(row int, column string) string {
	ci := t.ColumnIndex(column)
	if ci < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if ci >= len(r) {
		return ""
	}
	return r[ci]
}

// Append adds a row given as column->value. Values for unknown columns are
// dropped; missing columns become empty cells.
func (t *Table) Append(values map[string]string) {
	row := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = values[c]
	}
	t.Rows = append(t.Rows, row)
}

// FilterColumns projects the table onto the allow-list, in allow-list order.
// Columns absent from the source are synthesized with empty cells, so a sheet
// missing an expected column never fails downstream.
func (t *Table) FilterColumns(allowed []string) *Table {
	out := New(allowed...)
	if t == nil {
		return out
	}
	src := make([]int, len(allowed))
	for i, c := range allowed {
		src[i] = t.ColumnIndex(c)
	}
	for ri := range t.Rows {
		row := make([]string, len(allowed))
		for i, si := range src {
			if si >= 0 && si < len(t.Rows[ri]) {
				row[i] = t.Rows[ri][si]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// DropMatching removes every row whose key columns all equal the given values.
// Both sides are compared as trimmed strings; sheets round-trip integers
// through floats, so "7" and "7.0" compare equal. Returns the number of rows
// dropped.
func (t *Table) DropMatching(keyColumns []string, keyValues []string) int {
	if t.IsEmpty() || len(keyColumns) == 0 || len(keyColumns) != len(keyValues) {
		return 0
	}
	idx := make([]int, len(keyColumns))
	for i, c := range keyColumns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return 0
		}
	}
	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		if rowMatches(row, idx, keyValues) {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return dropped
}

func rowMatches(row []string, idx []int, values []string) bool {
	for i, ci := range idx {
		var cell string
		if ci < len(row) {
			cell = row[ci]
		}
		if normalizeKey(cell) != normalizeKey(values[i]) {
			return false
		}
	}
	return true
}

// normalizeKey folds the cell representations the sheet API produces for the
// same logical value: surrounding whitespace and a float rendering of an
// integer ("12.0" for 12).
func normalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// CellInt coerces a cell to an int. Empty cells, NaN markers and anything
// non-numeric report ok=false and are treated as "no value" by callers, never
// as an error.
func CellInt(cell string) (int, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := New(t.Columns...)
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}
