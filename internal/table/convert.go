package table

// convert.go turns raw CSV cells into typed values.
//
// Cells are first checked against the null markers, then each column's kind
// is inferred from its non-null cells: all integers gives KindInt, all numbers
// gives KindFloat, anything else keeps the column as text.

import (
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates decimal and scientific notation numbers.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// integerRegex validates plain integers.
var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// nullMarkers are cell values read as null.
var nullMarkers = map[string]bool{
	"":         true,
	"NA":       true,
	"N/A":      true,
	"n/a":      true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"<NA>":     true,
	"NaN":      true,
	"nan":      true,
	"-NaN":     true,
	"-nan":     true,
	"null":     true,
	"NULL":     true,
	"None":     true,
	"1.#IND":   true,
	"-1.#IND":  true,
	"1.#QNAN":  true,
	"-1.#QNAN": true,
}

// IsNullMarker reports whether a raw cell represents a missing value. Only
// exact matches count: " NA " is text.
func IsNullMarker(s string) bool {
	return nullMarkers[s]
}

// inferKind picks the narrowest kind that fits every non-null raw cell.
// Columns with no non-null cells are text.
func inferKind(raw []string, null []bool) Kind {
	kind := KindInt
	seen := false

	for i, s := range raw {
		if null[i] {
			continue
		}
		seen = true
		s = strings.TrimSpace(s)

		if kind == KindInt {
			if integerRegex.MatchString(s) {
				if _, err := strconv.ParseInt(s, 10, 64); err == nil {
					continue
				}
			}
			kind = KindFloat
		}
		if !numericRegex.MatchString(s) {
			return KindText
		}
	}

	if !seen {
		return KindText
	}
	return kind
}

// convertCells converts raw cells to values of the given kind.
// Kind must come from inferKind over the same cells.
func convertCells(raw []string, null []bool, kind Kind) []any {
	out := make([]any, len(raw))
	for i, s := range raw {
		if null[i] {
			continue
		}
		switch kind {
		case KindInt:
			n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			out[i] = n
		case KindFloat:
			f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
			out[i] = f
		default:
			out[i] = s
		}
	}
	return out
}

// normalizeValue maps driver scalar types onto the table's value set.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, float64, string:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// inferValueKind derives a column kind from already-typed values.
func inferValueKind(values []any) Kind {
	kind := KindInt
	seen := false
	for _, v := range values {
		switch v.(type) {
		case nil:
			continue
		case int64:
			seen = true
		case float64:
			seen = true
			kind = KindFloat
		default:
			return KindText
		}
	}
	if !seen {
		return KindText
	}
	return kind
}
