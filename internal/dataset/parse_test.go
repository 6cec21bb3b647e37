package dataset

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NumericAndCategorical(t *testing.T) {
	ds, err := Parse("name,age\nAnn,30\nBob,\nAnn,30")
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, ds.Columns)
	assert.Equal(t, [2]int{3, 2}, ds.Shape)
	assert.Equal(t, 1, ds.Duplicates)

	age := ds.Stats["age"]
	assert.Equal(t, TypeNumeric, age.Type)
	assert.Equal(t, 1, age.Missing)
	require.NotNil(t, age.Mean)
	assert.InDelta(t, 30.0, *age.Mean, 1e-9)
	assert.InDelta(t, 30.0, *age.Min, 1e-9)
	assert.InDelta(t, 30.0, *age.Max, 1e-9)

	name := ds.Stats["name"]
	assert.Equal(t, TypeCategorical, name.Type)
	require.NotNil(t, name.Unique)
	assert.Equal(t, 2, *name.Unique)
	assert.Equal(t, 0, name.Missing)
}

func TestParse_FieldCoercion(t *testing.T) {
	tests := []struct {
		field string
		kind  Kind
		text  string
	}{
		{"42", KindNumber, "42"},
		{" 3.5 ", KindNumber, "3.5"},
		{"-1e3", KindNumber, "-1000"},
		{".5", KindNumber, "0.5"},
		{"", KindText, ""},
		{"abc", KindText, "abc"},
		{"$5", KindText, "$5"},
		{"1,000", KindText, "1,000"},
		{"NaN", KindText, "NaN"},
		{"Infinity", KindText, "Infinity"},
		{"0x10", KindText, "0x10"},
		{"1e999", KindText, "1e999"},
		{"-0", KindNumber, "0"},
		{"-0.0", KindNumber, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v := Coerce(tt.field)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.text, v.String())
		})
	}
}

func TestParse_EmptyValuesAreNotZero(t *testing.T) {
	ds, err := Parse("a,b\n1,\n2,3")
	require.NoError(t, err)

	v := ds.Rows[0]["b"]
	assert.True(t, v.IsMissing())
	assert.False(t, v.IsNumber())
	assert.Equal(t, 1, ds.Stats["b"].Missing)
}

func TestParse_BlankLinesSkipped(t *testing.T) {
	ds, err := Parse("a,b\n1,2\n\n   \n3,4\n")
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 2)
	assert.Equal(t, [2]int{2, 2}, ds.Shape)
}

func TestParse_CRLF(t *testing.T) {
	ds, err := Parse("a,b\r\n1,x\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Columns)
	assert.Equal(t, "x", ds.Rows[0]["b"].String())
}

func TestParse_MalformedRow(t *testing.T) {
	_, err := Parse("a,b\n1,2\n3")
	require.Error(t, err)

	var mre *MalformedRowError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, 2, mre.Row)
	assert.Equal(t, 2, mre.Expected)
	assert.Equal(t, 1, mre.Actual)
	assert.Equal(t, "Row 2 has 1 columns instead of 2", mre.Error())
}

func TestParse_MalformedRowCountsBlankLines(t *testing.T) {
	_, err := Parse("a,b\n\n1,2,3")

	var mre *MalformedRowError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, 2, mre.Row)
	assert.Equal(t, 3, mre.Actual)
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "\n", "  \n \n"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrEmptyFile)
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	ds, err := Parse("a,b")
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 2}, ds.Shape)
	assert.Empty(t, ds.Rows)
	assert.Equal(t, 0, ds.Duplicates)
}

func TestParse_AllMissingColumnIsCategorical(t *testing.T) {
	ds, err := Parse("a,b\n1,\n2,")
	require.NoError(t, err)

	b := ds.Stats["b"]
	assert.Equal(t, TypeCategorical, b.Type)
	assert.Equal(t, 2, b.Missing)
	require.NotNil(t, b.Unique)
	assert.Equal(t, 0, *b.Unique)
	assert.Nil(t, b.Mean)
}

func TestParse_MixedColumnIsCategorical(t *testing.T) {
	ds, err := Parse("v\n1\nx\n1")
	require.NoError(t, err)

	v := ds.Stats["v"]
	assert.Equal(t, TypeCategorical, v.Type)
	assert.Equal(t, 2, *v.Unique)
}

func TestParse_NegativeZeroEqualsZero(t *testing.T) {
	ds, err := Parse("a\n0\n-0\n5")
	require.NoError(t, err)

	assert.Equal(t, 1, ds.Duplicates)
	assert.Equal(t, "0", ds.Rows[1]["a"].String())

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, ds))
	assert.Equal(t, "a\n0\n0\n5", buf.String())

	out := RemoveDuplicates(ds)
	assert.Len(t, out.Rows, 2)
}

func TestParse_DuplicateHeaders(t *testing.T) {
	ds, err := Parse("a,a\n1,2")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, ds.DuplicateHeaders())
	assert.Equal(t, "2", ds.Rows[0]["a"].String())
	assert.Len(t, ds.Stats, 1)
}

func TestParseReader(t *testing.T) {
	t.Run("strips BOM", func(t *testing.T) {
		ds, err := ParseReader(strings.NewReader("\xEF\xBB\xBFid,v\n1,2"), 0)
		require.NoError(t, err)
		assert.Equal(t, "id", ds.Columns[0])
	})

	t.Run("replaces invalid UTF-8", func(t *testing.T) {
		ds, err := ParseReader(strings.NewReader("id\nab\xffc"), 0)
		require.NoError(t, err)
		assert.Equal(t, "ab\uFFFDc", ds.Rows[0]["id"].String())
	})

	t.Run("enforces limit", func(t *testing.T) {
		_, err := ParseReader(strings.NewReader("a,b\n1,2\n3,4"), 5)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("exact limit is allowed", func(t *testing.T) {
		in := "a\n1"
		_, err := ParseReader(strings.NewReader(in), int64(len(in)))
		assert.NoError(t, err)
	})
}

func TestCheckFileType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantErr     bool
	}{
		{"data.csv", "", false},
		{"DATA.CSV", "application/octet-stream", false},
		{"export", "text/csv; charset=utf-8", false},
		{"data.xlsx", "application/vnd.ms-excel", true},
		{"data.txt", "text/plain", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"|"+tt.contentType, func(t *testing.T) {
			err := CheckFileType(tt.name, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFileType)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDataset_Page(t *testing.T) {
	ds, err := Parse("n\n1\n2\n3\n4\n5")
	require.NoError(t, err)

	assert.Len(t, ds.Page(1, 2), 2)
	assert.Equal(t, "5", ds.Page(3, 2)[0]["n"].String())
	assert.Empty(t, ds.Page(4, 2))
	assert.Empty(t, ds.Page(0, 2))
	assert.Len(t, ds.Head(10), 5)
}

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with BOM", "\xEF\xBB\xBFa,b", "a,b"},
		{"without BOM", "a,b,c", "a,b,c"},
		{"shorter than BOM", "a", "a"},
		{"BOM only", "\xEF\xBB\xBF", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := skipBOM(strings.NewReader(tt.in))
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
