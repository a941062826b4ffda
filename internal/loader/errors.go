package loader

import (
	"errors"
	"fmt"
)

// Errors returned by source resolution.
var (
	// ErrEmptySource indicates an element has no source reference.
	ErrEmptySource = errors.New("empty source reference")

	// ErrUnsupportedSource indicates the source scheme is not understood.
	ErrUnsupportedSource = errors.New("unsupported source scheme")

	// ErrSourceTooLarge indicates a source exceeds the fetch size cap.
	ErrSourceTooLarge = errors.New("source too large")

	// ErrNoVideoTrack indicates a video container holds no sized track.
	ErrNoVideoTrack = errors.New("no video track")
)

// LoadError describes a failed resolution of one source.
type LoadError struct {
	Kind string // "image" or "video"
	Src  string
	Err  error
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("load %s %s: %v", e.Kind, shortSource(e.Src), e.Err)
}

func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// shortSource keeps data URLs from flooding error messages.
func shortSource(src string) string {
	const max = 48
	if len(src) <= max {
		return src
	}
	return src[:max] + "..."
}
