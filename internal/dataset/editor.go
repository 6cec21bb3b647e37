package dataset

import (
	"errors"
	"slices"
	"sort"
)

// FillMethod selects how missing cells in a column are replaced.
type FillMethod string

const (
	FillConstant FillMethod = "constant"
	FillMean     FillMethod = "mean"
	FillMedian   FillMethod = "median"
	FillMode     FillMethod = "mode"
)

// ParseFillMethod validates a method name.
func ParseFillMethod(s string) (FillMethod, error) {
	switch m := FillMethod(s); m {
	case FillConstant, FillMean, FillMedian, FillMode:
		return m, nil
	}
	return "", errors.New("unknown fill method " + s)
}

// FillRule is the replacement strategy for one column. Value is used only
// by FillConstant.
type FillRule struct {
	Method FillMethod `json:"method"`
	Value  string     `json:"value,omitempty"`
}

// FillReport lists how many cells were filled per column and which rules
// were skipped.
type FillReport struct {
	Filled  map[string]int `json:"filled"`
	Skipped []*FillError   `json:"skipped,omitempty"`
}

// RemoveColumns returns a dataset without the named columns. Names that are
// not present are ignored, so repeating the call is harmless.
func RemoveColumns(ds *Dataset, names []string) *Dataset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	remaining := make([]string, 0, len(ds.Columns))
	for _, c := range ds.Columns {
		if _, ok := drop[c]; !ok {
			remaining = append(remaining, c)
		}
	}

	rows := make(Table, len(ds.Rows))
	for i, row := range ds.Rows {
		out := make(Row, len(remaining))
		for _, c := range remaining {
			out[c] = row[c]
		}
		rows[i] = out
	}
	return New(rows, remaining)
}

// RemoveDuplicates returns a dataset keeping only the first occurrence of
// each distinct row.
func RemoveDuplicates(ds *Dataset) *Dataset {
	return New(dedupe(ds.Rows, ds.Columns), ds.Columns)
}

// FillMissing replaces missing cells according to rules. Rules that name an
// unknown column or do not suit the column's type are skipped and listed in
// the report; the remaining rules still apply.
func FillMissing(ds *Dataset, rules map[string]FillRule) (*Dataset, FillReport) {
	report := FillReport{Filled: make(map[string]int)}
	fills := make(map[string]Value, len(rules))
	for _, col := range sortedKeys(rules) {
		v, err := resolveFill(ds, col, rules[col])
		if err != nil {
			var fe *FillError
			if errors.As(err, &fe) {
				report.Skipped = append(report.Skipped, fe)
			}
			continue
		}
		fills[col] = v
	}
	return applyFills(ds, fills, report.Filled), report
}

// FillMissingStrict is FillMissing but fails with a *FillError on the first
// rule, in column name order, that cannot be applied.
func FillMissingStrict(ds *Dataset, rules map[string]FillRule) (*Dataset, error) {
	fills := make(map[string]Value, len(rules))
	for _, col := range sortedKeys(rules) {
		v, err := resolveFill(ds, col, rules[col])
		if err != nil {
			return nil, err
		}
		fills[col] = v
	}
	return applyFills(ds, fills, nil), nil
}

func applyFills(ds *Dataset, fills map[string]Value, counts map[string]int) *Dataset {
	rows := make(Table, len(ds.Rows))
	for i, row := range ds.Rows {
		out := row.clone()
		for col, v := range fills {
			if out[col].IsMissing() {
				out[col] = v
				if counts != nil {
					counts[col]++
				}
			}
		}
		rows[i] = out
	}
	return New(rows, ds.Columns)
}

// resolveFill computes the replacement value for one column.
func resolveFill(ds *Dataset, col string, rule FillRule) (Value, error) {
	fail := func(reason string) (Value, error) {
		return Value{}, &FillError{Column: col, Method: rule.Method, Reason: reason}
	}

	stats, ok := ds.Stats[col]
	if !ok {
		return fail("column does not exist")
	}

	switch rule.Method {
	case FillConstant:
		if rule.Value == "" {
			return fail("a constant value is required")
		}
		if !stats.IsNumeric() {
			return Text(rule.Value), nil
		}
		v := Coerce(rule.Value)
		if !v.IsNumber() {
			return fail("value is not a number")
		}
		return v, nil

	case FillMean:
		if !stats.IsNumeric() || stats.Mean == nil {
			return fail("column is not numeric")
		}
		return Number(*stats.Mean), nil

	case FillMedian:
		if !stats.IsNumeric() {
			return fail("column is not numeric")
		}
		return Number(median(ds.Rows, col)), nil

	case FillMode:
		v, ok := mode(ds.Rows, col)
		if !ok {
			return fail("column has no values")
		}
		return v, nil
	}

	return fail("unknown method")
}

// median of the numeric values in col. The caller guarantees at least one.
func median(rows Table, col string) float64 {
	nums := make([]float64, 0, len(rows))
	for _, row := range rows {
		if f, ok := row[col].Float(); ok {
			nums = append(nums, f)
		}
	}
	slices.Sort(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 0 {
		return (nums[mid-1] + nums[mid]) / 2
	}
	return nums[mid]
}

// mode returns the most frequent non-missing value in col. Values are
// counted by their rendered text; on a tie the value seen first wins.
func mode(rows Table, col string) (Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]Value)
	var order []string
	for _, row := range rows {
		v := row[col]
		if v.IsMissing() {
			continue
		}
		k := v.String()
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}
	if len(order) == 0 {
		return Value{}, false
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return first[best], true
}

func sortedKeys(rules map[string]FillRule) []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
