package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a typed notification. Events are immutable once created.
type Event[T any] struct {
	Type     Topic
	Payload  T
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	ID        string
	Timestamp time.Time
	// Source identifies the component that published the event.
	Source string
}

// New creates an event with fresh metadata.
func New[T any](eventType Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() Topic {
	return e.Type
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by anything the bus can route.
type TopicProvider interface {
	EventTopic() Topic
}

// Payload extracts the typed payload from a type-erased event.
func Payload[T any](ev any) (T, bool) {
	e, ok := ev.(Event[T])
	if !ok {
		var zero T
		return zero, false
	}
	return e.Payload, true
}
