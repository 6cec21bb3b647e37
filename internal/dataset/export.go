package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a download rendering.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. The empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatTSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// FileName returns the download name, e.g. "dataset.csv".
func (f Format) FileName() string {
	return "dataset." + string(f)
}

// Write renders ds in the given format.
func Write(w io.Writer, ds *Dataset, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, ds)
	case FormatTSV:
		return WriteTSV(w, ds)
	case FormatJSON:
		return WriteJSON(w, ds)
	case FormatXLSX:
		return WriteXLSX(w, ds)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// WriteCSV writes the header and rows joined by commas. Fields are not
// quoted and the output has no trailing newline.
func WriteCSV(w io.Writer, ds *Dataset) error {
	return writeDelimited(w, ds, ",")
}

// WriteTSV is WriteCSV with tab separators.
func WriteTSV(w io.Writer, ds *Dataset) error {
	return writeDelimited(w, ds, "\t")
}

func writeDelimited(w io.Writer, ds *Dataset, sep string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(ds.Columns, sep))
	for _, row := range ds.Rows {
		bw.WriteByte('\n')
		bw.WriteString(strings.Join(row.Cells(ds.Columns), sep))
	}
	return bw.Flush()
}

// WriteJSON writes the rows as an array of objects indented by two spaces,
// with keys in header order.
func WriteJSON(w io.Writer, ds *Dataset) error {
	cols := uniqueColumns(ds.Columns)
	if len(ds.Rows) == 0 {
		_, err := io.WriteString(w, "[]")
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, row := range ds.Rows {
		buf.WriteString("  {")
		for j, c := range cols {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalString(c)
			if err != nil {
				return err
			}
			val, err := row[c].MarshalJSON()
			if err != nil {
				return err
			}
			buf.WriteString("\n    ")
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(val)
		}
		if len(cols) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteByte('}')
		if i < len(ds.Rows)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte(']')
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadJSON parses an array of row objects as written by WriteJSON. Column
// order follows the key order of the first object.
func ReadJSON(r io.Reader) (Table, []string, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '['); err != nil {
		return nil, nil, err
	}

	var columns []string
	rows := Table{}
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, nil, err
		}
		row := make(Row)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			key, ok := tok.(string)
			if !ok {
				return nil, nil, fmt.Errorf("dataset: expected object key, got %v", tok)
			}
			var v Value
			if err := dec.Decode(&v); err != nil {
				return nil, nil, fmt.Errorf("dataset: value for %q: %w", key, err)
			}
			row[key] = v
			if len(rows) == 0 {
				columns = append(columns, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	return rows, columns, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("dataset: read JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("dataset: expected %q, got %v", want, tok)
	}
	return nil
}

const xlsxSheet = "Sheet1"

// WriteXLSX writes a single-sheet workbook with a header row. Numbers are
// stored as numeric cells and missing values as empty cells.
func WriteXLSX(w io.Writer, ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range ds.Rows {
		cells := make([]interface{}, len(ds.Columns))
		for j, c := range ds.Columns {
			v := row[c]
			if n, ok := v.Float(); ok {
				cells[j] = n
			} else {
				cells[j] = v.String()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	return f.Write(w)
}
