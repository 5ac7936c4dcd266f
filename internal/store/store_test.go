package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/table"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(context.Background(), config.DatabaseConfig{
		URL:      filepath.Join(t.TempDir(), "movies.db"),
		Driver:   DriverSQLite,
		MaxConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func movieTable(t *testing.T, ids ...any) *table.Table {
	t.Helper()
	titles := make([]any, len(ids))
	scores := make([]any, len(ids))
	for i := range ids {
		titles[i] = fmt.Sprintf("Movie %d", i)
		scores[i] = float64(i) + 0.5
	}
	scores[0] = int64(7)

	tbl, err := table.New(
		&table.Column{Name: "ID", Kind: table.KindInt, Values: ids},
		&table.Column{Name: "title", Kind: table.KindText, Values: titles},
		&table.Column{Name: "imdb", Kind: table.KindFloat, Values: scores},
	)
	require.NoError(t, err)
	return tbl
}

func int64s(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"normal identifier", "disney_Movies", `"disney_Movies"`},
		{"contains space", "Running time", `"Running time"`},
		{"contains double quote", `user"name`, `"user""name"`},
		{"injection attempt", `t"; DROP TABLE t; --`, `"t""; DROP TABLE t; --"`},
		{"empty string", "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteIdentifier(tt.input))
		})
	}
}

func TestRowsPerStatement(t *testing.T) {
	tests := []struct {
		name                      string
		batch, width, max, expect int
	}{
		{"under limit", 20, 21, pgMaxParams, 20},
		{"capped by params", 5000, 21, pgMaxParams, 3120},
		{"zero batch", 0, 3, pgMaxParams, 1},
		{"wider than limit", 10, 70000, pgMaxParams, 1},
		{"no columns", 20, 0, pgMaxParams, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, rowsPerStatement(tt.batch, tt.width, tt.max))
		})
	}
}

func TestInsertStatement(t *testing.T) {
	got := insertStatement("movies", []string{"ID", "title"}, 2, dollarPlaceholder)
	assert.Equal(t, `INSERT INTO "movies" ("ID", "title") VALUES ($1, $2), ($3, $4)`, got)

	got = insertStatement("movies", []string{"ID"}, 3, questionPlaceholder)
	assert.Equal(t, `INSERT INTO "movies" ("ID") VALUES (?), (?), (?)`, got)
}

func TestCreateStatement(t *testing.T) {
	tbl := movieTable(t, int64s(1)...)

	assert.Equal(t,
		`CREATE TABLE "movies" ("ID" BIGINT, "title" TEXT, "imdb" DOUBLE PRECISION)`,
		createStatement("movies", tbl, pgTypes))
	assert.Equal(t,
		`CREATE TABLE "movies" ("ID" INTEGER, "title" TEXT, "imdb" REAL)`,
		createStatement("movies", tbl, sqliteTypes))
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		name string
		kind table.Kind
		in   any
		want any
	}{
		{"null", table.KindInt, nil, nil},
		{"int stays int", table.KindInt, int64(3), int64(3)},
		{"int in float column", table.KindFloat, int64(3), float64(3)},
		{"int in text column", table.KindText, int64(3), "3"},
		{"float in text column", table.KindText, 2.5, "2.5"},
		{"string", table.KindText, "Bambi", "Bambi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.kind, tt.in))
		})
	}
}

func TestBatchArgs(t *testing.T) {
	tbl := movieTable(t, int64(10), nil, int64(12))

	got := batchArgs(tbl, 1, 3)
	assert.Equal(t, []any{
		nil, "Movie 1", 1.5,
		int64(12), "Movie 2", 2.5,
	}, got)

	// int64 in the float column is widened
	assert.Equal(t, []any{int64(10), "Movie 0", float64(7)}, batchArgs(tbl, 0, 1))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{URL: "x", Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSQLite_ReplaceAndConstrain(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	sess, err := db.Acquire(ctx)
	require.NoError(t, err)

	exists, err := sess.TableExists(ctx, "movies")
	require.NoError(t, err)
	assert.False(t, exists)

	tbl := movieTable(t, int64s(5)...)
	n, err := sess.ReplaceTable(ctx, "movies", tbl, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	require.NoError(t, sess.SetNotNull(ctx, "movies", "ID"))
	require.NoError(t, sess.AddPrimaryKey(ctx, "movies", "pk_movies_ID", "ID"))

	exists, err = sess.TableExists(ctx, "movies")
	require.NoError(t, err)
	assert.True(t, exists)
	sess.Release()

	var ddl string
	require.NoError(t, db.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'movies'").Scan(&ddl))
	assert.Contains(t, ddl, `"ID" INTEGER NOT NULL`)
	assert.Contains(t, ddl, `CONSTRAINT "pk_movies_ID" PRIMARY KEY ("ID")`)

	got, err := db.ReadTable(ctx, "movies")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Len())
	assert.Equal(t, []string{"ID", "title", "imdb"}, got.Names())

	imdb, ok := got.Column("imdb")
	require.True(t, ok)
	assert.Equal(t, table.KindFloat, imdb.Kind)
	assert.Equal(t, float64(7), imdb.Values[0])
}

func TestSQLite_ReplaceEmptyTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	sess, err := db.Acquire(ctx)
	require.NoError(t, err)
	defer sess.Release()

	n, err := sess.ReplaceTable(ctx, "movies", movieTable(t, int64s(1)...), 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	empty, err := table.New(&table.Column{Name: "ID", Kind: table.KindInt, Values: []any{}})
	require.NoError(t, err)
	n, err = sess.ReplaceTable(ctx, "movies", empty, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestSQLite_CopyTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	sess, err := db.Acquire(ctx)
	require.NoError(t, err)

	_, err = sess.ReplaceTable(ctx, "movies", movieTable(t, int64s(7)...), 3)
	require.NoError(t, err)

	// An older backup is replaced, not appended to
	_, err = sess.ReplaceTable(ctx, "movies_backup", movieTable(t, int64s(2)...), 3)
	require.NoError(t, err)

	n, err := sess.CopyTable(ctx, "movies", "movies_backup")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	sess.Release()

	backup, err := db.ReadTable(ctx, "movies_backup")
	require.NoError(t, err)
	assert.Equal(t, 7, backup.Len())
}

func TestSQLite_ConstraintViolations(t *testing.T) {
	ctx := context.Background()

	t.Run("null identifier", func(t *testing.T) {
		db := openTestDB(t)
		sess, err := db.Acquire(ctx)
		require.NoError(t, err)
		defer sess.Release()

		_, err = sess.ReplaceTable(ctx, "movies", movieTable(t, int64(0), nil, int64(2)), 20)
		require.NoError(t, err)

		err = sess.SetNotNull(ctx, "movies", "ID")
		require.Error(t, err)
		assert.Equal(t, "DB002", Describe(err).Code)

		// Failed rebuild leaves the table intact
		exists, err := sess.TableExists(ctx, "movies")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate identifier", func(t *testing.T) {
		db := openTestDB(t)
		sess, err := db.Acquire(ctx)
		require.NoError(t, err)
		defer sess.Release()

		_, err = sess.ReplaceTable(ctx, "movies", movieTable(t, int64(0), int64(1), int64(1)), 20)
		require.NoError(t, err)
		require.NoError(t, sess.SetNotNull(ctx, "movies", "ID"))

		err = sess.AddPrimaryKey(ctx, "movies", "pk_movies_ID", "ID")
		require.Error(t, err)
		assert.Equal(t, "DB001", Describe(err).Code)
	})

	t.Run("missing table", func(t *testing.T) {
		db := openTestDB(t)
		sess, err := db.Acquire(ctx)
		require.NoError(t, err)
		defer sess.Release()

		err = sess.SetNotNull(ctx, "nope", "ID")
		require.Error(t, err)
		assert.Equal(t, "DB003", Describe(err).Code)
	})
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantState string
	}{
		{"nil", nil, "", ""},
		{
			"postgres unique violation",
			fmt.Errorf("add primary key: %w", &pgconn.PgError{Code: "23505", Message: "could not create unique index"}),
			"DB001", "23505",
		},
		{"postgres not null", &pgconn.PgError{Code: "23502"}, "DB002", "23502"},
		{"postgres connection class", &pgconn.PgError{Code: "08006"}, "DB005", "08006"},
		{"postgres unmapped state", &pgconn.PgError{Code: "XX000", Message: "internal"}, "ERR000", "XX000"},
		{"pattern fallback", errors.New("dial tcp: connection refused"), "DB005", ""},
		{"missing table text", errors.New("no such table: movies"), "DB003", ""},
		{"unknown", errors.New("something odd"), "ERR000", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Describe(tt.err)
			assert.Equal(t, tt.wantCode, f.Code)
			assert.Equal(t, tt.wantState, f.SQLState)
		})
	}
}

func TestFailureString(t *testing.T) {
	f := Describe(&pgconn.PgError{Code: "23505"})
	s := f.String()
	assert.True(t, strings.HasPrefix(s, "Duplicate key values in the identifier column (Code: DB001)."))
	assert.True(t, strings.HasSuffix(s, "[SQL state 23505]"))

	assert.Empty(t, Failure{}.String())
}
