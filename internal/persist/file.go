package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	closed bool
}

type fileEnvelope struct {
	Revision string          `json:"revision"`
	SavedAt  time.Time       `json:"savedAt"`
	Payload  json.RawMessage `json:"payload"`
}

// OpenFileStore opens (creating if needed) a file store rooted at dir.
func OpenFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, key string, blob []byte) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	if !json.Valid(blob) {
		return Record{}, fmt.Errorf("file store payload must be json: %w", ErrCorruptSnapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	rec := newRecord(key, blob)
	data, err := json.Marshal(fileEnvelope{
		Revision: rec.Revision,
		SavedAt:  rec.SavedAt,
		Payload:  rec.Payload,
	})
	if err != nil {
		return Record{}, fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".save-*")
	if err != nil {
		return Record{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Record{}, fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Record{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return Record{}, fmt.Errorf("replace record: %w", err)
	}
	return rec, nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, key string) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read record: %w", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return Record{
		Key:      key,
		Payload:  []byte(env.Payload),
		Revision: env.Revision,
		SavedAt:  env.SavedAt,
	}, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
