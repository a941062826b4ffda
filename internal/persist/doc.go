// Package persist saves and restores editor snapshots.
//
// A Snapshot is the element sequence plus the full undo history. It is
// encoded as JSON and stored as an opaque blob in a key-value Store. Four
// backends are provided: SQLite, BoltDB, a directory of files and an
// in-memory map. Every save is stamped with a ULID revision.
//
// Decoding is tolerant of older or hand-edited payloads: a missing history
// becomes a single-state history of the elements, a missing step points at
// the last state and an out-of-range step is clamped.
package persist
