package dataset

import (
	"bytes"
	"errors"
	"io"
)

// skipBOM returns a reader over r with a leading UTF-8 byte order mark
// removed. Only the first three bytes are inspected; the rest of r streams
// through untouched.
func skipBOM(r io.Reader) (io.Reader, error) {
	var head [3]byte
	n, err := io.ReadFull(r, head[:])
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return bytes.NewReader(head[:n]), nil
	case err != nil:
		return nil, err
	}
	if bytes.Equal(head[:], utf8BOM) {
		return r, nil
	}
	return io.MultiReader(bytes.NewReader(head[:n]), r), nil
}

// countingReader tracks how many bytes have passed through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
