package dataset

import (
	"fmt"
)

// Row maps header names to cell values.
type Row map[string]Value

// Table is an ordered list of rows in file order.
type Table []Row

// Dataset is a parsed table together with its derived metadata.
// A Dataset is treated as immutable once built; editors return new values.
type Dataset struct {
	Rows       Table                  `json:"data"`
	Columns    []string               `json:"columns"`
	Stats      map[string]ColumnStats `json:"columnStats"`
	Shape      [2]int                 `json:"shape"`
	Duplicates int                    `json:"duplicates"`
}

// New builds a Dataset and derives its statistics, shape and duplicate count.
func New(rows Table, columns []string) *Dataset {
	if rows == nil {
		rows = Table{}
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{
		Rows:       rows,
		Columns:    cols,
		Stats:      ComputeStats(rows, cols),
		Shape:      [2]int{len(rows), len(cols)},
		Duplicates: CountDuplicates(rows, cols),
	}
}

// Head returns up to n leading rows.
func (d *Dataset) Head(n int) Table {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Page returns the rows of a 1-based page of the given size.
func (d *Dataset) Page(page, size int) Table {
	if page < 1 || size < 1 {
		return Table{}
	}
	start := (page - 1) * size
	if start >= len(d.Rows) {
		return Table{}
	}
	end := min(start+size, len(d.Rows))
	return d.Rows[start:end]
}

// MissingTotal sums missing cells across all columns.
func (d *Dataset) MissingTotal() int {
	total := 0
	for _, s := range d.Stats {
		total += s.Missing
	}
	return total
}

// ColumnsWithMissing returns, in header order, the columns that have at
// least one missing value.
func (d *Dataset) ColumnsWithMissing() []string {
	var out []string
	for _, c := range uniqueColumns(d.Columns) {
		if d.Stats[c].Missing > 0 {
			out = append(out, c)
		}
	}
	return out
}

// DuplicateHeaders returns header names that occur more than once.
func (d *Dataset) DuplicateHeaders() []string {
	counts := make(map[string]int, len(d.Columns))
	var dups []string
	for _, c := range d.Columns {
		counts[c]++
		if counts[c] == 2 {
			dups = append(dups, c)
		}
	}
	return dups
}

// HasColumn reports whether name is one of the dataset's columns.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Cells returns the row's values in the given column order as strings.
func (r Row) Cells(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r[c].String()
	}
	return out
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String renders a short description such as "120 rows x 4 columns".
func (d *Dataset) String() string {
	return fmt.Sprintf("%d rows x %d columns", d.Shape[0], d.Shape[1])
}
