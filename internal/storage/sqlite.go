package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

// SQLiteKV implements KV on a single SQLite file. Expiry is stored in unix
// milliseconds, 0 meaning never.
type SQLiteKV struct {
	db  *sql.DB
	now func() time.Time
}

// Ensure SQLiteKV implements KV interface
var _ KV = (*SQLiteKV)(nil)

// OpenSQLiteKV opens (creating if needed) the database at path.
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		cleanPath := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps SETNX semantics simple and :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLiteKV{db: db, now: time.Now}, nil
}

func (s *SQLiteKV) nowMillis() int64 {
	return s.now().UnixMilli()
}

func (s *SQLiteKV) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).UnixMilli()
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, s.nowMillis()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get: %w", err)
	}
	return value, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, s.expiry(ttl))
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

func (s *SQLiteKV) Del(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite del: %w", err)
	}
	return nil
}

func (s *SQLiteKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite setnx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM kv WHERE key = ? AND expires_at != 0 AND expires_at <= ?`,
		key, s.nowMillis()); err != nil {
		return false, fmt.Errorf("sqlite setnx purge: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO kv (key, value, expires_at) VALUES (?, ?, ?)`,
		key, value, s.expiry(ttl))
	if err != nil {
		return false, fmt.Errorf("sqlite setnx: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite setnx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite setnx commit: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteKV) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE key = ? AND value = ? AND (expires_at = 0 OR expires_at > ?)`,
		key, value, s.nowMillis())
	if err != nil {
		return false, fmt.Errorf("sqlite compare-and-delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite compare-and-delete: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteKV) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *SQLiteKV) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
