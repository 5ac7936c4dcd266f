package quality

import (
	"math"
	"strconv"
	"strings"

	"github.com/JonMunkholm/movieload/internal/table"
)

// FillResult describes what FillIdentifiers changed.
type FillResult struct {
	Nulls       int  // Null values found before filling
	Synthesized int  // Values replaced or created
	Inserted    bool // Column did not exist and was added at position 0
}

// FillIdentifiers makes the named column hold unique, non-null integers.
//
// The first occurrence of each integer value is kept. Nulls, repeated values
// and values that are not integers receive surrogate values counting up from
// one past the largest kept value. A missing column is inserted first, with
// values 0..n-1.
func FillIdentifiers(t *table.Table, column string) (FillResult, error) {
	col, ok := t.Column(column)
	if !ok {
		values := make([]any, t.Len())
		for i := range values {
			values[i] = int64(i)
		}
		if err := t.Insert(0, &table.Column{Name: column, Kind: table.KindInt, Values: values}); err != nil {
			return FillResult{}, err
		}
		return FillResult{Synthesized: len(values), Inserted: true}, nil
	}

	var res FillResult
	seen := make(map[int64]bool, len(col.Values))
	keep := make([]bool, len(col.Values))
	next := int64(0)

	for i, v := range col.Values {
		if v == nil {
			res.Nulls++
			continue
		}
		n, ok := asInteger(v)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		keep[i] = true
		col.Values[i] = n
		if n >= next {
			next = n + 1
		}
	}

	for i := range col.Values {
		if keep[i] {
			continue
		}
		for seen[next] {
			next++
		}
		col.Values[i] = next
		seen[next] = true
		next++
		res.Synthesized++
	}

	col.Kind = table.KindInt
	return res, nil
}

// asInteger accepts int64, integral float64 and integer strings.
func asInteger(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || x >= math.MaxInt64 || x < math.MinInt64 {
			return 0, false
		}
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
