package persist

import "errors"

var (
	// ErrNotFound is returned when no blob is stored under a key.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorruptSnapshot is returned when a stored payload cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrClosed is returned when using a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrEmptyKey is returned for blank keys.
	ErrEmptyKey = errors.New("key is required")

	// ErrUnknownBackend is returned by Open for unrecognised backend names.
	ErrUnknownBackend = errors.New("unknown storage backend")
)
