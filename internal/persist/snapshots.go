package persist

import (
	"context"
	"errors"
)

// Snapshots saves and loads editor snapshots under a single key.
type Snapshots struct {
	store Store
	key   string
}

// NewSnapshots wraps store. An empty key means DefaultKey.
func NewSnapshots(store Store, key string) *Snapshots {
	if key == "" {
		key = DefaultKey
	}
	return &Snapshots{store: store, key: key}
}

// Key returns the key snapshots are stored under.
func (s *Snapshots) Key() string {
	return s.key
}

// Save encodes and stores snap.
func (s *Snapshots) Save(ctx context.Context, snap Snapshot) (Record, error) {
	data, err := Encode(snap)
	if err != nil {
		return Record{}, err
	}
	return s.store.Save(ctx, s.key, data)
}

// Load returns the stored snapshot. found is false when nothing was saved.
func (s *Snapshots) Load(ctx context.Context) (snap Snapshot, rec Record, found bool, err error) {
	rec, err = s.store.Load(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, Record{}, false, nil
	}
	if err != nil {
		return Snapshot{}, Record{}, false, err
	}
	snap, err = Decode(rec.Payload)
	if err != nil {
		return Snapshot{}, rec, true, err
	}
	return snap, rec, true, nil
}
