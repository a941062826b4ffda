package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrNoResolver indicates AddImage or AddVideo was called without a resolver.
	ErrNoResolver = errors.New("no resource resolver configured")

	// ErrNoStorage indicates Save or Load was called without snapshot storage.
	ErrNoStorage = errors.New("no snapshot storage configured")

	// ErrInvalidElement indicates an element with an unknown kind.
	ErrInvalidElement = errors.New("invalid element")

	// ErrEmptySource indicates a blank source reference.
	ErrEmptySource = errors.New("source is required")
)
