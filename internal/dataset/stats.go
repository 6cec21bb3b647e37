package dataset

// ColumnType classifies a column for statistics and fill rules.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
)

// ColumnStats describes one column. Min, Max and Mean are set only for
// numeric columns; Unique only for categorical ones.
type ColumnStats struct {
	Type    ColumnType `json:"dtype" yaml:"dtype"`
	Missing int        `json:"missing" yaml:"missing"`
	Min     *float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Mean    *float64   `json:"mean,omitempty" yaml:"mean,omitempty"`
	Unique  *int       `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// IsNumeric reports whether the column was classified numeric.
func (s ColumnStats) IsNumeric() bool { return s.Type == TypeNumeric }

// ComputeStats derives a descriptor for every distinct column name.
func ComputeStats(rows Table, columns []string) map[string]ColumnStats {
	stats := make(map[string]ColumnStats, len(columns))
	for _, col := range uniqueColumns(columns) {
		stats[col] = columnStats(rows, col)
	}
	return stats
}

func columnStats(rows Table, col string) ColumnStats {
	values := make([]Value, 0, len(rows))
	numeric := true
	for _, row := range rows {
		v := row[col]
		if v.IsMissing() {
			continue
		}
		values = append(values, v)
		if !v.IsNumber() {
			numeric = false
		}
	}
	missing := len(rows) - len(values)

	// A column with no values has nothing to average; treat it as categorical.
	if numeric && len(values) > 0 {
		lo, hi, sum := values[0].num, values[0].num, 0.0
		for _, v := range values {
			lo = min(lo, v.num)
			hi = max(hi, v.num)
			sum += v.num
		}
		mean := sum / float64(len(values))
		return ColumnStats{
			Type:    TypeNumeric,
			Missing: missing,
			Min:     &lo,
			Max:     &hi,
			Mean:    &mean,
		}
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v.key()] = struct{}{}
	}
	unique := len(seen)
	return ColumnStats{
		Type:    TypeCategorical,
		Missing: missing,
		Unique:  &unique,
	}
}

// uniqueColumns returns columns with repeated names removed, keeping the
// first position of each.
func uniqueColumns(columns []string) []string {
	seen := make(map[string]struct{}, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
