package dataset

import (
	"strings"
)

// rowKey serializes a row's values in column order. Values carry their kind
// so a number never equals a text cell with the same digits.
func rowKey(row Row, columns []string) string {
	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(row[c].key())
	}
	return b.String()
}

// CountDuplicates returns the number of rows that repeat an earlier row.
func CountDuplicates(rows Table, columns []string) int {
	cols := uniqueColumns(columns)
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[rowKey(row, cols)] = struct{}{}
	}
	return len(rows) - len(seen)
}

// dedupe keeps the first occurrence of every distinct row.
func dedupe(rows Table, columns []string) Table {
	cols := uniqueColumns(columns)
	seen := make(map[string]struct{}, len(rows))
	out := make(Table, 0, len(rows))
	for _, row := range rows {
		k := rowKey(row, cols)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}
