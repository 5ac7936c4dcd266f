package etl

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/movieload/internal/logging"
	"github.com/JonMunkholm/movieload/internal/quality"
	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/store"
)

// Log titles for the post-upload validation.
const (
	TitleRowsLoaded    = "SQL Validation: Rows Loaded"
	TitleSQLMissing    = "SQL Validation: Missing Values"
	TitleSQLDuplicates = "SQL Validation: Duplicate Rows"
)

// ValidationResult is what Validate found in the uploaded table.
type ValidationResult struct {
	Rows       int
	Nulls      []quality.NullCount
	Duplicates int
}

// Validate reads the uploaded table back and logs its row count, per-column
// null counts and duplicate row count. A read failure, such as a missing
// table, is returned without logging anything.
func Validate(ctx context.Context, db store.DB, tableName string, sink runlog.Sink) (ValidationResult, error) {
	t, err := db.ReadTable(ctx, tableName)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate %s: %w", tableName, err)
	}

	res := ValidationResult{Rows: t.Len(), Nulls: quality.NullCounts(t)}
	sink.Add(TitleRowsLoaded, fmt.Sprintf("Loaded %d rows from the database table: %s", res.Rows, tableName))
	sink.Add(TitleSQLMissing, quality.FormatNullCounts(res.Nulls))
	res.Duplicates = quality.LogDuplicates(sink, TitleSQLDuplicates, t)

	logging.WithFields(ctx, "table", tableName).Info("upload validated",
		"rows", res.Rows, "duplicates", res.Duplicates)
	return res, nil
}
