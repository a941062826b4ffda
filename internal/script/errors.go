package script

import (
	"errors"
	"fmt"
)

// Errors for script execution.
var (
	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrTimeout is returned when a script exceeds its time limit.
	ErrTimeout = errors.New("lua execution timeout")

	// ErrNoExporter is raised by canvas.export when no exporter is set.
	ErrNoExporter = errors.New("no exporter configured")
)

// Error wraps a failure while running a named chunk.
type Error struct {
	Chunk string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Chunk, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
