// Package quality runs the best-effort data-quality steps of a load: null and
// duplicate counts, identifier repair, masking and schema reporting.
//
// Nothing in this package fails a run. Results are written to a runlog.Sink;
// absent columns are skipped.
package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/table"
)

// Log titles for the pre-upload checks.
const (
	TitleMissingValues = "Data Quality: Missing Values"
	TitleDuplicates    = "Data Quality: Duplicates"
	TitleUniqueValues  = "Data Integrity: Unique Values"
)

// NullCount is the number of null cells in one column.
type NullCount struct {
	Column string
	Count  int
}

// NullCounts returns per-column null counts in column order.
func NullCounts(t *table.Table) []NullCount {
	counts := make([]NullCount, 0, t.Width())
	for _, c := range t.Columns() {
		n := 0
		for _, v := range c.Values {
			if v == nil {
				n++
			}
		}
		counts = append(counts, NullCount{Column: c.Name, Count: n})
	}
	return counts
}

// FormatNullCounts renders counts as aligned "name  count" lines.
func FormatNullCounts(counts []NullCount) string {
	nameWidth, countWidth := 0, 1
	for _, nc := range counts {
		nameWidth = max(nameWidth, len(nc.Column))
		countWidth = max(countWidth, len(strconv.Itoa(nc.Count)))
	}

	lines := make([]string, len(counts))
	for i, nc := range counts {
		lines[i] = fmt.Sprintf("%-*s  %*d", nameWidth, nc.Column, countWidth, nc.Count)
	}
	return strings.Join(lines, "\n")
}

// DuplicateRows counts rows identical to an earlier row. Nulls compare equal.
func DuplicateRows(t *table.Table) int {
	seen := make(map[string]struct{}, t.Len())
	dups := 0
	for i := 0; i < t.Len(); i++ {
		key := rowKey(t, i)
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// rowKey encodes a row so that equal rows, and only equal rows, share a key.
func rowKey(t *table.Table, i int) string {
	var b strings.Builder
	for _, c := range t.Columns() {
		writeValueKey(&b, c.Values[i])
	}
	return b.String()
}

func writeValueKey(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("n;")
	case int64:
		b.WriteString("i")
		b.WriteString(strconv.FormatInt(x, 10))
		b.WriteString(";")
	case float64:
		b.WriteString("f")
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		b.WriteString(";")
	case string:
		// Length prefix keeps embedded separators from colliding
		b.WriteString("s")
		b.WriteString(strconv.Itoa(len(x)))
		b.WriteString(":")
		b.WriteString(x)
	default:
		fmt.Fprintf(b, "o%v;", x)
	}
}

// UniqueCount returns the number of distinct non-null values in a column.
// ok is false when the column does not exist.
func UniqueCount(t *table.Table, column string) (n int, ok bool) {
	col, ok := t.Column(column)
	if !ok {
		return 0, false
	}

	seen := make(map[string]struct{}, len(col.Values))
	var b strings.Builder
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		b.Reset()
		writeValueKey(&b, v)
		seen[b.String()] = struct{}{}
	}
	return len(seen), true
}

// LogNullCounts appends the per-column null counts under title.
func LogNullCounts(sink runlog.Sink, title string, t *table.Table) {
	sink.Add(title, FormatNullCounts(NullCounts(t)))
}

// LogDuplicates appends the duplicate row count under title.
func LogDuplicates(sink runlog.Sink, title string, t *table.Table) int {
	n := DuplicateRows(t)
	sink.Add(title, fmt.Sprintf("Number of duplicate rows: %d", n))
	return n
}

// CheckOptions selects the columns the pre-upload checks look at.
type CheckOptions struct {
	UniqueColumn string
}

// CheckResult summarizes the pre-upload checks.
type CheckResult struct {
	Nulls      []NullCount
	Duplicates int
	Unique     int
	HasUnique  bool
}

// Check runs null, duplicate and uniqueness checks and appends their results
// to sink. The uniqueness entry is omitted when the column is absent.
func Check(t *table.Table, sink runlog.Sink, opts CheckOptions) CheckResult {
	res := CheckResult{Nulls: NullCounts(t)}
	sink.Add(TitleMissingValues, FormatNullCounts(res.Nulls))

	res.Duplicates = LogDuplicates(sink, TitleDuplicates, t)

	if opts.UniqueColumn != "" {
		res.Unique, res.HasUnique = UniqueCount(t, opts.UniqueColumn)
		if res.HasUnique {
			sink.Add(TitleUniqueValues,
				fmt.Sprintf("Number of unique values in '%s': %d", opts.UniqueColumn, res.Unique))
		}
	}

	return res
}
