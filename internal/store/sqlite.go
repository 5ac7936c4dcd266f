package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/table"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteMaxParams is SQLITE_MAX_VARIABLE_NUMBER for the bundled library.
const sqliteMaxParams = 32766

var sqliteTypes = columnTypes{Int: "INTEGER", Float: "REAL", Text: "TEXT"}

// SQLite is a database/sql pool over a SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database named by cfg.URL (a file path or SQLite URI)
// and applies the connection pragmas.
//
// The pool is limited to a single connection, so ReadTable must not be called
// while a Session is held.
func OpenSQLite(ctx context.Context, cfg config.DatabaseConfig) (*SQLite, error) {
	db, err := sql.Open(DriverSQLite, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return &SQLite{db: db}, nil
}

// Acquire reserves the pool's connection.
func (s *SQLite) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &sqliteSession{conn: conn}, nil
}

// ReadTable reads the whole table.
func (s *SQLite) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdentifier(name))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return table.FromRows(names, data)
}

// Close closes the pool.
func (s *SQLite) Close() {
	s.db.Close()
}

type sqliteSession struct {
	conn *sql.Conn
}

func (s *sqliteSession) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *sqliteSession) CopyTable(ctx context.Context, src, dst string) (int64, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(dst)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", dst, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s",
		quoteIdentifier(dst), quoteIdentifier(src))); err != nil {
		return 0, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	// CREATE TABLE AS does not report a change count
	var n int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdentifier(dst)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", dst, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *sqliteSession) ReplaceTable(ctx context.Context, name string, t *table.Table, batchSize int) (int64, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(name)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, createStatement(name, t, sqliteTypes)); err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	per := rowsPerStatement(batchSize, t.Width(), sqliteMaxParams)
	names := t.Names()
	var inserted int64
	for start, batch := 0, 1; start < t.Len(); start, batch = start+per, batch+1 {
		end := min(start+per, t.Len())
		res, err := tx.ExecContext(ctx, insertStatement(name, names, end-start, questionPlaceholder),
			batchArgs(t, start, end)...)
		if err != nil {
			return 0, fmt.Errorf("insert batch %d into %s: %w", batch, name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// SQLite has no ALTER COLUMN or ADD CONSTRAINT, so both constraint steps
// rebuild the table with the new definition and copy the rows across.

func (s *sqliteSession) SetNotNull(ctx context.Context, name, column string) error {
	err := s.rebuild(ctx, name, func(def *sqliteTableDef) error {
		col := def.column(column)
		if col == nil {
			return fmt.Errorf("column %q not found", column)
		}
		col.notNull = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s.%s not null: %w", name, column, err)
	}
	return nil
}

func (s *sqliteSession) AddPrimaryKey(ctx context.Context, name, constraint, column string) error {
	err := s.rebuild(ctx, name, func(def *sqliteTableDef) error {
		if def.column(column) == nil {
			return fmt.Errorf("column %q not found", column)
		}
		if len(def.primaryKey) > 0 {
			return fmt.Errorf("table already has a primary key")
		}
		def.constraint = constraint
		def.primaryKey = []string{column}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add primary key %s: %w", constraint, err)
	}
	return nil
}

func (s *sqliteSession) Release() {
	s.conn.Close()
}

type sqliteColumnDef struct {
	name    string
	typ     string
	notNull bool
}

type sqliteTableDef struct {
	columns    []*sqliteColumnDef
	constraint string
	primaryKey []string
}

func (d *sqliteTableDef) column(name string) *sqliteColumnDef {
	for _, c := range d.columns {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (d *sqliteTableDef) createStatement(name string) string {
	defs := make([]string, 0, len(d.columns)+1)
	for _, c := range d.columns {
		def := quoteIdentifier(c.name)
		if c.typ != "" {
			def += " " + c.typ
		}
		if c.notNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(d.primaryKey) > 0 {
		quoted := make([]string, len(d.primaryKey))
		for i, k := range d.primaryKey {
			quoted[i] = quoteIdentifier(k)
		}
		pk := "PRIMARY KEY (" + strings.Join(quoted, ", ") + ")"
		if d.constraint != "" {
			pk = "CONSTRAINT " + quoteIdentifier(d.constraint) + " " + pk
		}
		defs = append(defs, pk)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdentifier(name), strings.Join(defs, ", "))
}

// tableDef reads a table's column definitions. Names of existing
// constraints are not recoverable and are dropped on rebuild.
func tableDef(ctx context.Context, tx *sql.Tx, name string) (*sqliteTableDef, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	def := &sqliteTableDef{}
	var pkCols []struct {
		pos  int
		name string
	}
	for rows.Next() {
		var col sqliteColumnDef
		var pk int
		if err := rows.Scan(&col.name, &col.typ, &col.notNull, &pk); err != nil {
			return nil, err
		}
		def.columns = append(def.columns, &col)
		if pk > 0 {
			pkCols = append(pkCols, struct {
				pos  int
				name string
			}{pk, col.name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(def.columns) == 0 {
		return nil, fmt.Errorf("no such table: %s", name)
	}

	def.primaryKey = make([]string, len(pkCols))
	for _, c := range pkCols {
		def.primaryKey[c.pos-1] = c.name
	}
	return def, nil
}

// rebuild recreates name with a modified definition inside one transaction.
// Rows that violate the new definition abort the rebuild.
func (s *sqliteSession) rebuild(ctx context.Context, name string, modify func(*sqliteTableDef) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	def, err := tableDef(ctx, tx, name)
	if err != nil {
		return fmt.Errorf("read definition: %w", err)
	}
	if err := modify(def); err != nil {
		return err
	}

	tmp := name + "__rebuild"
	stmts := []string{
		"DROP TABLE IF EXISTS " + quoteIdentifier(tmp),
		def.createStatement(tmp),
		fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", quoteIdentifier(tmp), quoteIdentifier(name)),
		"DROP TABLE " + quoteIdentifier(name),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdentifier(tmp), quoteIdentifier(name)),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}
