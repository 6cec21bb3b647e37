package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericPattern accepts integers, decimals and scientific notation.
// Anything else (currency, thousands separators, hex, "NaN") stays text.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Kind is the scalar kind held by a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// Value is a single table cell: a number, a text string, or missing.
// The zero Value is missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number returns a numeric Value. Negative zero is stored as zero.
func Number(f float64) Value {
	if f == 0 {
		f = 0
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text Value. Text("") is treated as missing by IsMissing.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Missing returns an absent Value.
func Missing() Value {
	return Value{}
}

// Coerce converts a raw CSV field into a Value. The field is trimmed first;
// it becomes a number only if the entire trimmed string is numeric.
func Coerce(field string) Value {
	s := strings.TrimSpace(field)
	if s == "" {
		return Text("")
	}
	if f, ok := parseNumber(s); ok {
		return Number(f)
	}
	return Text(s)
}

// parseNumber reports whether s is a finite number in plain decimal notation.
func parseNumber(s string) (float64, bool) {
	if !numericPattern.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the cell is absent or an empty string.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing || (v.kind == KindText && v.text == "")
}

// IsNumber reports whether the cell holds a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric payload and whether the value is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// String renders the value the way it appears in CSV output.
// Missing values render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.text == o.text
}

// key returns a kind-tagged string so 1 and "1" never collide.
func (v Value) key() string {
	switch v.kind {
	case KindNumber:
		return "n:" + FormatNumber(v.num)
	case KindText:
		return "s:" + v.text
	default:
		return "m:"
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return []byte(FormatNumber(v.num)), nil
	case KindText:
		return marshalString(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, strings, booleans and null.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*v = Missing()
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
	case string(b) == "true" || string(b) == "false":
		*v = Text(string(b))
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("dataset: unsupported JSON value %s", b)
		}
		*v = Number(f)
	}
	return nil
}

// FormatNumber renders f without an exponent for ordinary magnitudes and
// falls back to exponent notation for very large or very small values.
func FormatNumber(f float64) string {
	abs := math.Abs(f)
	if abs == 0 {
		return "0"
	}
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// marshalString JSON-encodes s without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
