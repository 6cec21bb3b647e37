// Package cli implements the csvdash command line: dataset statistics and
// offline cleaning with the same rules the dashboard applies.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/dataset"
)

// defaultMaxSize matches the server's default upload limit.
const defaultMaxSize int64 = 50 << 20

// NewRootCmd builds the csvdash command tree.
func NewRootCmd() *cobra.Command {
	var maxSize int64

	root := &cobra.Command{
		Use:           "csvdash",
		Short:         "Inspect and clean CSV datasets",
		Long:          `csvdash reads a CSV file, reports per-column statistics and applies the dashboard's cleaning steps without running the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Int64Var(&maxSize, "max-size", defaultMaxSize, "largest accepted input in bytes")

	load := func(path string) (*dataset.Dataset, error) {
		return loadFile(path, maxSize)
	}
	root.AddCommand(newStatsCmd(load), newCleanCmd(load))
	return root
}

// Execute is the entry point called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", errorText(err))
		os.Exit(1)
	}
}

// errorText prefers the support-coded message for errors the dashboard
// also reports, and falls back to the raw error for flag and I/O problems.
func errorText(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

// loadFile parses a CSV file with the same checks as an upload.
func loadFile(path string, maxSize int64) (*dataset.Dataset, error) {
	if err := dataset.CheckFileType(path, ""); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := dataset.ParseReader(f, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
