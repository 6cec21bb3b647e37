package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type: only .csv files are accepted")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
)

// MalformedRowError reports a data line whose field count differs from the
// header. Row is the line index with the header counted as line 0.
type MalformedRowError struct {
	Row      int
	Expected int
	Actual   int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("Row %d has %d columns instead of %d", e.Row, e.Actual, e.Expected)
}

// FillError reports a fill rule that cannot be applied to its column.
type FillError struct {
	Column string
	Method FillMethod
	Reason string
}

func (e *FillError) Error() string {
	return fmt.Sprintf("cannot fill column %q with %s: %s", e.Column, e.Method, e.Reason)
}
