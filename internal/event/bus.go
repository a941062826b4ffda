package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, ev any) error

// ErrorHandler observes handler failures and recovered panics.
type ErrorHandler func(topic Topic, err error)

// Subscription is a registered handler.
type Subscription struct {
	id      string
	pattern Topic
	handler HandlerFunc
	active  atomic.Bool
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic { return s.pattern }

// Stats is a snapshot of bus counters.
type Stats struct {
	Published     uint64
	Delivered     uint64
	Dropped       uint64
	HandlerErrors uint64
	HandlerPanics uint64
	Subscribers   int
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the async queue capacity.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithErrorHandler sets the observer for handler failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) {
		b.onError = h
	}
}

type queued struct {
	ctx context.Context
	ev  any
}

// Bus routes events to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription

	queueSize int
	queue     chan queued
	done      chan struct{}
	wg        sync.WaitGroup
	running   atomic.Bool

	onError ErrorHandler

	published     atomic.Uint64
	delivered     atomic.Uint64
	dropped       atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
}

// NewBus creates a bus. Call Start before PublishAsync.
func NewBus(opts ...Option) *Bus {
	b := &Bus{queueSize: 1024}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the async delivery worker.
func (b *Bus) Start() error {
	if b.running.Swap(true) {
		return ErrBusAlreadyRunning
	}
	b.queue = make(chan queued, b.queueSize)
	b.done = make(chan struct{})
	b.wg.Add(1)
	go b.worker(b.queue, b.done)
	return nil
}

// Stop drains queued events and stops the worker, or gives up when ctx ends.
func (b *Bus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return ErrBusNotRunning
	}
	close(b.done)

	finished := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the async worker is running.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

func (b *Bus) worker(queue chan queued, done chan struct{}) {
	defer b.wg.Done()
	for {
		select {
		case q := <-queue:
			b.deliver(q.ctx, q.ev)
		case <-done:
			for {
				select {
				case q := <-queue:
					b.deliver(q.ctx, q.ev)
				default:
					return
				}
			}
		}
	}
}

// SubscribeFunc registers fn for topics matching pattern.
func (b *Bus) SubscribeFunc(pattern Topic, fn HandlerFunc) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	if !pattern.Valid() {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{id: uuid.NewString(), pattern: pattern, handler: fn}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes sub.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			s.active.Store(false)
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers ev synchronously to every matching subscriber.
// Handler errors are reported to the error handler, not returned.
func (b *Bus) Publish(ctx context.Context, ev any) error {
	if _, err := topicOf(ev); err != nil {
		return err
	}
	b.published.Add(1)
	b.deliver(ctx, ev)
	return nil
}

// PublishAsync queues ev for the delivery worker.
func (b *Bus) PublishAsync(ctx context.Context, ev any) error {
	if _, err := topicOf(ev); err != nil {
		return err
	}
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	b.published.Add(1)

	select {
	case b.queue <- queued{ctx: context.WithoutCancel(ctx), ev: ev}:
		return nil
	default:
		b.dropped.Add(1)
		return ErrQueueFull
	}
}

func (b *Bus) deliver(ctx context.Context, ev any) {
	t, _ := topicOf(ev)

	b.mu.RLock()
	matched := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if t.Matches(s.pattern) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range matched {
		if !s.active.Load() {
			continue
		}
		if err := b.invoke(ctx, t, s, ev); err != nil {
			b.handlerErrors.Add(1)
			if b.onError != nil {
				b.onError(t, err)
			}
			continue
		}
		b.delivered.Add(1)
	}
}

func (b *Bus) invoke(ctx context.Context, t Topic, s *Subscription, ev any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &PanicError{Topic: t, Value: r}
		}
	}()
	return s.handler(ctx, ev)
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		HandlerErrors: b.handlerErrors.Load(),
		HandlerPanics: b.handlerPanics.Load(),
		Subscribers:   n,
	}
}

func topicOf(ev any) (Topic, error) {
	tp, ok := ev.(TopicProvider)
	if !ok || !tp.EventTopic().Valid() {
		return "", ErrInvalidEvent
	}
	return tp.EventTopic(), nil
}
