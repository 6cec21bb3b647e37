package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdash/internal/dataset"
)

type cleanOptions struct {
	drop   []string
	dedupe bool
	fills  []string
	format string
	out    string
}

func newCleanCmd(load func(string) (*dataset.Dataset, error)) *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean <file.csv>",
		Short: "Drop columns, remove duplicates, fill missing values and export",
		Long: `clean applies its steps in a fixed order: --drop, then --dedupe, then --fill.
Fill rules take the form column=method[:value] where method is constant, mean,
median or mode. Rules that do not suit their column are skipped with a warning.`,
		Example: `  csvdash clean sales.csv --drop notes --dedupe --fill price=median --fill region=constant:unknown --format xlsx --out clean.xlsx`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := dataset.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			rules, err := parseFillFlags(opts.fills)
			if err != nil {
				return err
			}

			ds, err := load(args[0])
			if err != nil {
				return err
			}

			for _, name := range opts.drop {
				if !ds.HasColumn(name) {
					fmt.Fprintln(cmd.ErrOrStderr(), "⚠ unknown column:", name)
				}
			}

			ds, report := applyCleaning(ds, opts, rules)
			for _, skipped := range report.Skipped {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠ skipped:", skipped)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ %d rows × %d columns\n", ds.Shape[0], ds.Shape[1])

			return writeOutput(cmd.OutOrStdout(), opts.out, ds, format)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.drop, "drop", nil, "columns to remove (comma-separated or repeated)")
	f.BoolVar(&opts.dedupe, "dedupe", false, "remove duplicate rows, keeping the first")
	f.StringArrayVar(&opts.fills, "fill", nil, "fill rule column=method[:value] (repeatable)")
	f.StringVar(&opts.format, "format", "csv", "output format: csv, tsv, json or xlsx")
	f.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// applyCleaning runs the selected steps in order.
func applyCleaning(ds *dataset.Dataset, opts cleanOptions, rules map[string]dataset.FillRule) (*dataset.Dataset, dataset.FillReport) {
	if len(opts.drop) > 0 {
		ds = dataset.RemoveColumns(ds, opts.drop)
	}
	if opts.dedupe {
		ds = dataset.RemoveDuplicates(ds)
	}
	var report dataset.FillReport
	if len(rules) > 0 {
		ds, report = dataset.FillMissing(ds, rules)
	}
	return ds, report
}

// parseFillFlags turns column=method[:value] flags into rules.
func parseFillFlags(flags []string) (map[string]dataset.FillRule, error) {
	rules := make(map[string]dataset.FillRule, len(flags))
	for _, raw := range flags {
		col, how, ok := strings.Cut(raw, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" || how == "" {
			return nil, fmt.Errorf("invalid --fill %q (want column=method[:value])", raw)
		}
		name, value, _ := strings.Cut(how, ":")
		method, err := dataset.ParseFillMethod(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("invalid --fill %q: %w", raw, err)
		}
		rules[col] = dataset.FillRule{Method: method, Value: value}
	}
	return rules, nil
}

func writeOutput(stdout io.Writer, path string, ds *dataset.Dataset, format dataset.Format) error {
	if path == "" {
		return dataset.Write(stdout, ds, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.Write(f, ds, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
