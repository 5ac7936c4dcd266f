package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/table"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgMaxParams is the PostgreSQL wire protocol limit on bound parameters.
const pgMaxParams = 65535

var pgTypes = columnTypes{Int: "BIGINT", Float: "DOUBLE PRECISION", Text: "TEXT"}

// Postgres is a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pool from cfg and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Acquire reserves one pooled connection.
func (p *Postgres) Acquire(ctx context.Context) (Session, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &pgSession{conn: conn}, nil
}

// ReadTable reads the whole table, converting PostgreSQL values into the
// table package's value set.
func (p *Postgres) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	rows, err := p.pool.Query(ctx, "SELECT * FROM "+quoteIdentifier(name))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		for i, v := range values {
			values[i] = pgValue(v)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return table.FromRows(names, data)
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// pgValue converts decoded values that have no direct table equivalent.
func pgValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(x).String()
	default:
		return v
	}
}

type pgSession struct {
	conn *pgxpool.Conn
}

func (s *pgSession) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return exists, nil
}

func (s *pgSession) CopyTable(ctx context.Context, src, dst string) (int64, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(dst)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", dst, err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s",
		quoteIdentifier(dst), quoteIdentifier(src)))
	if err != nil {
		return 0, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *pgSession) ReplaceTable(ctx context.Context, name string, t *table.Table, batchSize int) (int64, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(name)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, createStatement(name, t, pgTypes)); err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	per := rowsPerStatement(batchSize, t.Width(), pgMaxParams)
	names := t.Names()
	batch := &pgx.Batch{}
	for start := 0; start < t.Len(); start += per {
		end := min(start+per, t.Len())
		batch.Queue(insertStatement(name, names, end-start, dollarPlaceholder), batchArgs(t, start, end)...)
	}

	var inserted int64
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return 0, fmt.Errorf("insert batch %d into %s: %w", i+1, name, err)
			}
			inserted += tag.RowsAffected()
		}
		if err := br.Close(); err != nil {
			return 0, fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *pgSession) SetNotNull(ctx context.Context, name, column string) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL",
		quoteIdentifier(name), quoteIdentifier(column)))
	if err != nil {
		return fmt.Errorf("set %s.%s not null: %w", name, column, err)
	}
	return nil
}

func (s *pgSession) AddPrimaryKey(ctx context.Context, name, constraint, column string) error {
	_, err := s.conn.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
		quoteIdentifier(name), quoteIdentifier(constraint), quoteIdentifier(column)))
	if err != nil {
		return fmt.Errorf("add primary key %s: %w", constraint, err)
	}
	return nil
}

func (s *pgSession) Release() {
	s.conn.Release()
}
