package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdash/internal/dataset"
)

func newStatsCmd(load func(string) (*dataset.Dataset, error)) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats <file.csv>",
		Short: "Print shape, duplicates and per-column statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "table":
				return writeStatsTable(out, ds.Summary())
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ds.Summary())
			case "yaml":
				return dataset.WriteSummaryYAML(out, ds)
			default:
				return fmt.Errorf("unknown --format %q (want table, json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json or yaml")
	return cmd
}

func writeStatsTable(w io.Writer, s dataset.Summary) error {
	fmt.Fprintf(w, "rows: %d  columns: %d  duplicates: %d  missing: %d\n\n", s.Rows, s.Columns, s.Duplicates, s.Missing)
	for _, warn := range s.Warnings {
		fmt.Fprintln(w, "⚠", warn)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tMISSING\tMIN\tMAX\tMEAN\tUNIQUE")
	for _, c := range s.Stats {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			c.Name, c.Type, c.Missing, optFloat(c.Min), optFloat(c.Max), optFloat(c.Mean), optInt(c.Unique))
	}
	return tw.Flush()
}

func optFloat(p *float64) string {
	if p == nil {
		return "-"
	}
	return dataset.FormatNumber(*p)
}

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
