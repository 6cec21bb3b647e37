package dataset

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ColumnSummary pairs a column name with its statistics.
type ColumnSummary struct {
	Name        string `json:"name" yaml:"name"`
	ColumnStats `yaml:",inline"`
}

// Summary is the descriptive view of a dataset shown on the dashboard.
type Summary struct {
	Rows       int             `json:"rows" yaml:"rows"`
	Columns    int             `json:"columns" yaml:"columns"`
	Duplicates int             `json:"duplicates" yaml:"duplicates"`
	Missing    int             `json:"missing" yaml:"missing"`
	Stats      []ColumnSummary `json:"stats" yaml:"stats"`
	Warnings   []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summary returns per-column statistics in header order.
func (d *Dataset) Summary() Summary {
	cols := uniqueColumns(d.Columns)
	s := Summary{
		Rows:       d.Shape[0],
		Columns:    d.Shape[1],
		Duplicates: d.Duplicates,
		Missing:    d.MissingTotal(),
		Stats:      make([]ColumnSummary, 0, len(cols)),
	}
	for _, c := range cols {
		s.Stats = append(s.Stats, ColumnSummary{Name: c, ColumnStats: d.Stats[c]})
	}
	for _, name := range d.DuplicateHeaders() {
		s.Warnings = append(s.Warnings, fmt.Sprintf("header %q appears more than once; only its last column is kept", name))
	}
	return s
}

// WriteSummaryYAML writes the dataset summary as a YAML document.
func WriteSummaryYAML(w io.Writer, ds *Dataset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ds.Summary()); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return enc.Close()
}
