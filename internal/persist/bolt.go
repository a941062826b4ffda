package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	payloadBucket = "snapshots"
	metaBucket    = "snapshot_meta"
)

type boltMeta struct {
	Revision string    `json:"revision"`
	SavedAt  time.Time `json:"savedAt"`
}

// BoltStore is a BoltDB-backed store.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens a BoltDB file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{payloadBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// Save implements Store.
func (s *BoltStore) Save(ctx context.Context, key string, blob []byte) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	if s == nil || s.db == nil {
		return Record{}, ErrClosed
	}

	rec := newRecord(key, blob)
	meta, err := json.Marshal(boltMeta{Revision: rec.Revision, SavedAt: rec.SavedAt})
	if err != nil {
		return Record{}, fmt.Errorf("marshal meta: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(payloadBucket)).Put([]byte(key), rec.Payload); err != nil {
			return err
		}
		return tx.Bucket([]byte(metaBucket)).Put([]byte(key), meta)
	})
	if err != nil {
		return Record{}, fmt.Errorf("put %s: %w", key, err)
	}
	return rec, nil
}

// Load implements Store.
func (s *BoltStore) Load(ctx context.Context, key string) (Record, error) {
	if err := checkKey(ctx, key); err != nil {
		return Record{}, err
	}
	if s == nil || s.db == nil {
		return Record{}, ErrClosed
	}

	rec := Record{Key: key}
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(payloadBucket)).Get([]byte(key))
		if payload == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		rec.Payload = append([]byte(nil), payload...)

		if raw := tx.Bucket([]byte(metaBucket)).Get([]byte(key)); raw != nil {
			var meta boltMeta
			if err := json.Unmarshal(raw, &meta); err != nil {
				return fmt.Errorf("%w: meta: %v", ErrCorruptSnapshot, err)
			}
			rec.Revision = meta.Revision
			rec.SavedAt = meta.SavedAt
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
