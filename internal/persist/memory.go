package persist

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map. It is used for tests and for sessions
// that do not need to outlive the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, key string, blob []byte) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrClosed
	}
	rec := newRecord(key, blob)
	s.records[key] = rec
	return rec, nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, key string) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}
	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
