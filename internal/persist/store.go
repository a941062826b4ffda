package persist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultKey is the key editor snapshots are saved under.
const DefaultKey = "canvasState"

// Record is a stored blob and its save metadata.
type Record struct {
	Key      string
	Payload  []byte
	Revision string
	SavedAt  time.Time
}

// Store is a key-value blob store.
type Store interface {
	// Save stores blob under key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) (Record, error)
	// Load returns the record stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) (Record, error)
	// Close releases the store's resources.
	Close() error
}

func newRecord(key string, blob []byte) Record {
	return Record{
		Key:      key,
		Payload:  append([]byte(nil), blob...),
		Revision: ulid.Make().String(),
		SavedAt:  time.Now().UTC(),
	}
}

func checkKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
)

// Options selects and locates a backend.
type Options struct {
	Backend string
	// Path is the database file (sqlite, bolt) or directory (file).
	Path string
}

// Open opens the backend named by opts.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return OpenFileStore(opts.Path)
	case BackendBolt, "bbolt":
		return OpenBoltStore(opts.Path)
	case BackendSQLite, "sqlite3":
		return OpenSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
