package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ReadOptions controls how delimited input is parsed.
type ReadOptions struct {
	Delimiter rune   // Field separator (default ',')
	Encoding  string // WHATWG encoding label (default UTF-8)
}

// ReadStats describes what was consumed while loading.
type ReadStats struct {
	BytesRead int64
	Records   int // Data records, excluding the header
}

// ReadFile loads a delimited file into a Table.
func ReadFile(path string, opts ReadOptions) (*Table, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return Read(f, opts)
}

// Read parses delimited input with a header row into a Table.
//
// Empty header cells become "Unnamed: <position>" and repeated names get a
// ".1", ".2" suffix. Rows shorter than the header are padded with nulls;
// longer rows are rejected. A record of only delimiters is kept as a row of
// nulls.
func Read(r io.Reader, opts ReadOptions) (*Table, ReadStats, error) {
	decoded, counter, err := NewDecodingReader(r, opts.Encoding)
	if err != nil {
		return nil, ReadStats{}, err
	}

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ReadStats{}, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("read header: %w", err)
	}

	names := headerNames(header)

	raw := make([][]string, len(names))
	null := make([][]bool, len(names))

	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ReadStats{}, fmt.Errorf("parse csv: %w", err)
		}
		line++

		if isBlankLine(record) {
			continue
		}
		if len(record) > len(names) {
			return nil, ReadStats{}, fmt.Errorf("line %d: row has %d fields, header has %d", line, len(record), len(names))
		}

		for j := range names {
			cell := ""
			if j < len(record) {
				cell = record[j]
			}
			raw[j] = append(raw[j], cell)
			null[j] = append(null[j], j >= len(record) || IsNullMarker(cell))
		}
	}

	cols := make([]*Column, len(names))
	for j, name := range names {
		kind := inferKind(raw[j], null[j])
		cols[j] = &Column{Name: name, Kind: kind, Values: convertCells(raw[j], null[j], kind)}
	}

	t, err := New(cols...)
	if err != nil {
		return nil, ReadStats{}, err
	}

	return t, ReadStats{BytesRead: counter.BytesRead, Records: t.Len()}, nil
}

// headerNames cleans header cells: NFC-normalized, trimmed, positional
// names for blanks and numbered suffixes for repeats.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(norm.NFC.String(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		names[i] = h
	}
	return dedupeNames(names)
}

// dedupeNames renames the second and later occurrences of a name to
// "name.1", "name.2" and so on, skipping suffixes that are already taken.
func dedupeNames(names []string) []string {
	counts := make(map[string]int, len(names))
	for i, name := range names {
		n := counts[name]
		for n > 0 {
			counts[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
			n = counts[name]
		}
		names[i] = name
		counts[name] = n + 1
	}
	return names
}

// isBlankLine reports whether a record is a single empty field, such as a
// line holding only "".
func isBlankLine(record []string) bool {
	return len(record) == 1 && record[0] == ""
}
