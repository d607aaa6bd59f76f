// Package sqlite is a single-file [settings.Store] for small deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MrWong99/lexibot/internal/settings"
)

const table = "bot_settings"

var _ settings.Store = (*Store)(nil)

// Store persists settings in an SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS bot_settings (
	scope_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (scope_id, key)
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate bot_settings: %w", err)
	}
	return nil
}

// Values implements [settings.Store].
func (s *Store) Values(ctx context.Context, scope string) (map[string]string, error) {
	rows, err := sq.Select("key", "value").
		From(table).
		Where(sq.Eq{"scope_id": scope}).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query settings: %w", err)
	}
	defer rows.Close()

	vals := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlite: scan settings: %w", err)
		}
		vals[k] = v
	}
	return vals, rows.Err()
}

// Set implements [settings.Store].
func (s *Store) Set(ctx context.Context, scope, key, value string) error {
	if scope == "" || key == "" {
		return errors.New("sqlite: scope and key must not be empty")
	}
	var err error
	if value == "" {
		_, err = sq.Delete(table).
			Where(sq.Eq{"scope_id": scope, "key": key}).
			RunWith(s.db).
			ExecContext(ctx)
	} else {
		_, err = sq.Insert(table).
			Columns("scope_id", "key", "value").
			Values(scope, key, value).
			Suffix("ON CONFLICT(scope_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
			RunWith(s.db).
			ExecContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("sqlite: set %s/%s: %w", scope, key, err)
	}
	return nil
}

// Ping implements [settings.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
