package table

// decode.go prepares raw input bytes for the CSV reader:
//
//   - A leading byte order mark is stripped (common in files saved on Windows)
//   - Input is decoded from the configured encoding to UTF-8
//   - Invalid UTF-8 sequences are replaced with U+FFFD
//   - Bytes consumed are counted for reporting
//
// Use NewDecodingReader to apply all transforms in the correct order.

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// lookupEncoding resolves a WHATWG encoding label. Empty means UTF-8.
func lookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	switch label {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc, nil
}

// NewDecodingReader wraps r so that it yields sanitized UTF-8.
//
// The order matters:
//  1. Bytes are counted as read from the source
//  2. A BOM, if present, overrides the configured encoding and is dropped
//  3. Everything else is decoded from the configured encoding; the UTF-8
//     decoder replaces invalid sequences with U+FFFD
func NewDecodingReader(r io.Reader, label string) (io.Reader, *CountingReader, error) {
	enc, err := lookupEncoding(label)
	if err != nil {
		return nil, nil, err
	}

	counter := NewCountingReader(r)
	decoder := unicode.BOMOverride(enc.NewDecoder())
	return transform.NewReader(counter, decoder), counter, nil
}
