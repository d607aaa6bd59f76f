// Package postgres is a PostgreSQL-backed [settings.Store].
//
// Values live in a single bot_settings table keyed by (scope_id, key).
// [Migrate] creates it if needed; [New] runs it automatically.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/lexibot/internal/settings"
)

const table = "bot_settings"

const ddl = `
CREATE TABLE IF NOT EXISTS bot_settings (
    scope_id   TEXT        NOT NULL,
    key        TEXT        NOT NULL,
    value      TEXT        NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (scope_id, key)
);`

var _ settings.Store = (*Store)(nil)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Store persists settings in PostgreSQL. It is safe for concurrent use.
type Store struct {
	db   DB
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New connects to dsn, verifies the connection and migrates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("settings postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("settings postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	s := NewWithDB(pool)
	s.pool = pool
	return s, nil
}

// NewWithDB wraps an existing connection. The caller owns db and is
// responsible for running [Migrate].
func NewWithDB(db DB) *Store {
	return &Store{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Migrate creates the settings table.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("settings postgres: migrate: %w", err)
	}
	return nil
}

// Values implements [settings.Store].
func (s *Store) Values(ctx context.Context, scope string) (map[string]string, error) {
	query, args, err := s.sb.Select("key", "value").From(table).Where(sq.Eq{"scope_id": scope}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("settings postgres: build query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("settings postgres: query %s: %w", scope, err)
	}
	defer rows.Close()

	vals := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("settings postgres: scan: %w", err)
		}
		vals[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settings postgres: rows: %w", err)
	}
	return vals, nil
}

// Set implements [settings.Store].
func (s *Store) Set(ctx context.Context, scope, key, value string) error {
	if scope == "" || key == "" {
		return errors.New("settings postgres: scope and key must not be empty")
	}

	var (
		query string
		args  []any
		err   error
	)
	if value == "" {
		query, args, err = s.sb.Delete(table).Where(sq.Eq{"scope_id": scope, "key": key}).ToSql()
	} else {
		query, args, err = s.sb.Insert(table).
			Columns("scope_id", "key", "value").
			Values(scope, key, value).
			Suffix("ON CONFLICT (scope_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()").
			ToSql()
	}
	if err != nil {
		return fmt.Errorf("settings postgres: build query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("settings postgres: set %s/%s: %w", scope, key, err)
	}
	return nil
}

// Ping implements [settings.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool opened by [New]. It is a no-op for stores built
// with [NewWithDB].
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
