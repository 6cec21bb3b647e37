package dataset

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CheckFileType accepts a file with a .csv extension or a text/csv content type.
func CheckFileType(name, contentType string) error {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil
	}
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "text/csv" {
			return nil
		}
	}
	return ErrUnsupportedFileType
}

// ParseReader reads at most limit bytes from r and parses them with Parse.
// A limit of zero or less disables the size check. A leading UTF-8 byte order
// mark is dropped and invalid UTF-8 sequences are replaced before parsing.
func ParseReader(r io.Reader, limit int64) (*Dataset, error) {
	src := &countingReader{r: r}
	if limit > 0 {
		r = io.LimitReader(src, limit+1)
	} else {
		r = src
	}
	r, err := skipBOM(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && src.n > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, limit)
	}
	return Parse(strings.ToValidUTF8(string(data), "\uFFFD"))
}

// Parse converts CSV text into a Dataset. Lines are separated by "\n" and
// fields by ","; quoting is not interpreted. Blank data lines are skipped.
// Parsing stops at the first line whose field count differs from the header.
func Parse(text string) (*Dataset, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(text, "\n")
	header := splitFields(lines[0])

	rows := make(Table, 0, len(lines)-1)
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		fields := splitFields(lines[i])
		if len(fields) != len(header) {
			return nil, &MalformedRowError{Row: i, Expected: len(header), Actual: len(fields)}
		}
		row := make(Row, len(header))
		for j, name := range header {
			row[name] = Coerce(fields[j])
		}
		rows = append(rows, row)
	}

	return New(rows, header), nil
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
