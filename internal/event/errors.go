package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrBusNotRunning is returned when async publishing on a stopped bus.
	ErrBusNotRunning = errors.New("event bus is not running")

	// ErrBusAlreadyRunning is returned when Start is called twice.
	ErrBusAlreadyRunning = errors.New("event bus is already running")

	// ErrQueueFull is returned when the async queue cannot accept an event.
	ErrQueueFull = errors.New("event queue is full")

	// ErrInvalidEvent is returned for events without a routable topic.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidTopic is returned for empty or malformed patterns.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrSubscriptionNotFound is returned when unsubscribing twice.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// PanicError wraps a recovered handler panic.
type PanicError struct {
	Topic Topic
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for %s panicked: %v", e.Topic, e.Value)
}
