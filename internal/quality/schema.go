package quality

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/schema"
	"github.com/JonMunkholm/movieload/internal/table"
)

// Log titles for schema validation.
const (
	TitleSchema           = "Schema Validation"
	TitleSchemaMismatches = "Schema Validation: Type Mismatches"
)

// TypeMismatch is a present column whose inferred type differs from the
// declared one.
type TypeMismatch struct {
	Column   string
	Expected string
	Actual   string
}

// SchemaReport lists how a table deviates from the expected schema.
type SchemaReport struct {
	Missing    []string
	Mismatches []TypeMismatch
}

// OK reports whether the table matched the schema.
func (r SchemaReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Mismatches) == 0
}

// ValidateSchema compares a table's columns against the expected schema.
// Extra columns are ignored.
func ValidateSchema(t *table.Table, s *schema.Schema) SchemaReport {
	var r SchemaReport
	for _, f := range s.Columns {
		col, ok := t.Column(f.Name)
		if !ok {
			r.Missing = append(r.Missing, f.Name)
			continue
		}
		if actual := col.Kind.String(); actual != f.Type {
			r.Mismatches = append(r.Mismatches, TypeMismatch{Column: f.Name, Expected: f.Type, Actual: actual})
		}
	}
	return r
}

// LogSchemaReport appends entries for missing columns and mismatches.
// Nothing is logged for a clean report.
func LogSchemaReport(sink runlog.Sink, r SchemaReport) {
	if len(r.Missing) > 0 {
		sink.Add(TitleSchema, fmt.Sprintf("Missing columns: %s", strings.Join(r.Missing, ", ")))
	}
	if len(r.Mismatches) > 0 {
		lines := make([]string, len(r.Mismatches))
		for i, m := range r.Mismatches {
			lines[i] = fmt.Sprintf("%s: expected %s, got %s", m.Column, m.Expected, m.Actual)
		}
		sink.Add(TitleSchemaMismatches, strings.Join(lines, "\n"))
	}
}
