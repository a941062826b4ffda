package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	key      TEXT PRIMARY KEY,
	payload  BLOB NOT NULL,
	revision TEXT NOT NULL,
	saved_at TEXT NOT NULL
)`

// SQLiteStore is a SQLite-backed store.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLiteStore opens a SQLite database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, key string, blob []byte) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Record{}, ErrClosed
	}

	rec := newRecord(key, blob)
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO snapshots (key, payload, revision, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, revision = excluded.revision, saved_at = excluded.saved_at`,
		key, rec.Payload, rec.Revision, rec.SavedAt.Format(timeFormat))
	if err != nil {
		return Record{}, fmt.Errorf("put %s: %w", key, err)
	}
	return rec, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Record{}, ErrClosed
	}

	rec := Record{Key: key}
	var savedAt string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload, revision, saved_at FROM snapshots WHERE key = ?`, key,
	).Scan(&rec.Payload, &rec.Revision, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	if rec.SavedAt, err = time.Parse(timeFormat, savedAt); err != nil {
		return Record{}, fmt.Errorf("%w: saved_at: %v", ErrCorruptSnapshot, err)
	}
	return rec, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	err := s.sqlDB.Close()
	s.sqlDB = nil
	return err
}
