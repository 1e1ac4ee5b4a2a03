package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/samirrijal/campfinder/internal/core/ports"
)

const migration = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);`

// Store is a file-backed ports.KeyValueStore. capacity bounds the total size
// of all values in bytes; 0 means unbounded.
type Store struct {
	db       *sql.DB
	capacity int
}

// Open opens (or creates) the database at path. Use ":memory:" in tests.
func Open(path string, capacity int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		migration,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite exec %q: %w", stmt, err)
		}
	}
	return &Store{db: db, capacity: capacity}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv WHERE key = ?`

	var value []byte
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if s.capacity > 0 {
		const q = `SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key <> ?`
		var used int
		if err := tx.QueryRowContext(ctx, q, key).Scan(&used); err != nil {
			return fmt.Errorf("sqlite usage: %w", err)
		}
		if used+len(value) > s.capacity {
			return fmt.Errorf("set %s (%d bytes): %w", key, len(value), ports.ErrQuotaExceeded)
		}
	}

	const upsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, key, value); err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv WHERE key = ?`

	_, err := s.db.ExecContext(ctx, q, key)
	return err
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
