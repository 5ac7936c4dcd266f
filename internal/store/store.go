// Package store provides the database primitives behind the backup-and-replace
// upload: existence checks, table copies, bulk replacement and the identifier
// constraints.
//
// Two dialects are supported. PostgreSQL goes through a pgx connection pool;
// SQLite goes through database/sql with the mattn/go-sqlite3 driver. Both hand
// out a Session bound to a single connection so that the upload steps run on
// one handle in order.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/table"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// DB is a connection pool for one dialect.
type DB interface {
	// Acquire reserves a single connection for a sequence of steps.
	Acquire(ctx context.Context) (Session, error)

	// ReadTable reads every row of the named table.
	ReadTable(ctx context.Context, name string) (*table.Table, error)

	// Close releases all pooled connections.
	Close()
}

// Session is one acquired connection. Each method is a separate statement or
// transaction; nothing spans calls.
type Session interface {
	// TableExists reports whether the named table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// CopyTable drops dst if present and recreates it with the full contents
	// of src. Returns the number of rows copied.
	CopyTable(ctx context.Context, src, dst string) (int64, error)

	// ReplaceTable drops and recreates name from t, inserting rows in
	// multi-row statements of at most batchSize rows, in one transaction.
	// Returns the number of rows inserted.
	ReplaceTable(ctx context.Context, name string, t *table.Table, batchSize int) (int64, error)

	// SetNotNull marks a column NOT NULL.
	SetNotNull(ctx context.Context, name, column string) error

	// AddPrimaryKey adds a named primary key constraint on a column.
	AddPrimaryKey(ctx context.Context, name, constraint, column string) error

	// Release returns the connection to the pool.
	Release()
}

// Open connects to the database selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return OpenPostgres(ctx, cfg)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
// Both dialects accept standard double-quoted identifiers.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnTypes maps column kinds to a dialect's SQL types.
type columnTypes struct {
	Int   string
	Float string
	Text  string
}

func (ct columnTypes) of(k table.Kind) string {
	switch k {
	case table.KindInt:
		return ct.Int
	case table.KindFloat:
		return ct.Float
	default:
		return ct.Text
	}
}

// createStatement builds CREATE TABLE for t's columns.
func createStatement(name string, t *table.Table, types columnTypes) string {
	defs := make([]string, 0, t.Width())
	for _, c := range t.Columns() {
		defs = append(defs, quoteIdentifier(c.Name)+" "+types.of(c.Kind))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdentifier(name), strings.Join(defs, ", "))
}

// rowsPerStatement caps batchSize so one statement stays under maxParams
// bound parameters.
func rowsPerStatement(batchSize, width, maxParams int) int {
	if batchSize < 1 {
		batchSize = 1
	}
	if width == 0 {
		return batchSize
	}
	if limit := max(maxParams/width, 1); limit < batchSize {
		return limit
	}
	return batchSize
}

// insertStatement builds a multi-row INSERT for rows rows of the given
// columns. placeholder renders the n-th (1-based) bound parameter.
func insertStatement(name string, columns []string, rows int, placeholder func(n int) string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdentifier(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdentifier(name), strings.Join(quoted, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// dollarPlaceholder renders PostgreSQL positional parameters.
func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// questionPlaceholder renders SQLite anonymous parameters.
func questionPlaceholder(int) string { return "?" }

// batchArgs flattens rows [start, end) of t into statement arguments, each
// cell coerced to its column's kind.
func batchArgs(t *table.Table, start, end int) []any {
	cols := t.Columns()
	args := make([]any, 0, (end-start)*len(cols))
	for i := start; i < end; i++ {
		for j, v := range t.Row(i) {
			args = append(args, cellValue(cols[j].Kind, v))
		}
	}
	return args
}

// cellValue converts a value to the Go type matching the column's SQL type.
func cellValue(k table.Kind, v any) any {
	if v == nil {
		return nil
	}
	switch k {
	case table.KindInt:
		switch x := v.(type) {
		case int64:
			return x
		case float64:
			return int64(x)
		}
	case table.KindFloat:
		switch x := v.(type) {
		case float64:
			return x
		case int64:
			return float64(x)
		}
	default:
		switch x := v.(type) {
		case string:
			return x
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
	}
	return fmt.Sprint(v)
}
