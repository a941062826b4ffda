package hydrate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/loader"
)

// Logger is the logging surface the pipeline needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Subscriber receives published views in generation order.
type Subscriber func(Publication)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Passes    uint64
	Published uint64
	Discarded uint64
	Latest    uint64
}

// Pipeline resolves element sequences into renderable views.
type Pipeline struct {
	resolver    loader.Resolver
	bus         *event.Bus
	logger      Logger
	concurrency int

	mu          sync.Mutex
	generation  uint64
	cancel      context.CancelFunc
	current     Publication
	published   uint64
	changed     chan struct{}
	subscribers []Subscriber
	closed      bool

	// deliverMu orders subscriber delivery across passes.
	deliverMu sync.Mutex
	delivered uint64

	wg        sync.WaitGroup
	passes    atomic.Uint64
	publishes atomic.Uint64
	discarded atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds the number of concurrent loads per pass.
// Zero or negative means unbounded.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		p.concurrency = n
	}
}

// WithBus publishes hydration events on bus.
func WithBus(bus *event.Bus) Option {
	return func(p *Pipeline) {
		p.bus = bus
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline that resolves sources through resolver.
func New(resolver loader.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:    resolver,
		logger:      nopLogger{},
		concurrency: 8,
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers fn to receive every published view.
func (p *Pipeline) Subscribe(fn Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// SetConcurrency changes the per-pass load bound for subsequent passes.
func (p *Pipeline) SetConcurrency(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.concurrency = n
}

// Update starts a pass over elements and returns its generation.
// Any pass still in flight is cancelled and will not publish.
func (p *Pipeline) Update(elements []scene.Element) uint64 {
	p.mu.Lock()
	if p.closed {
		gen := p.generation
		p.mu.Unlock()
		return gen
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	gen := p.generation
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	limit := p.concurrency
	p.mu.Unlock()

	p.passes.Add(1)
	snapshot := scene.Clone(elements)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		renderables := p.resolve(ctx, snapshot, limit)
		p.publish(gen, renderables)
	}()
	return gen
}

func (p *Pipeline) resolve(ctx context.Context, elements []scene.Element, limit int) []Renderable {
	out := make([]Renderable, len(elements))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, e := range elements {
		out[i] = Renderable{Index: i, Element: e}
		if e.Kind == scene.KindText {
			continue
		}
		i, e := i, e
		g.Go(func() error {
			out[i] = p.resolveOne(ctx, i, e)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Pipeline) resolveOne(ctx context.Context, index int, e scene.Element) Renderable {
	r := Renderable{Index: index, Element: e}
	switch e.Kind {
	case scene.KindImage:
		r.Image, r.Err = p.resolver.LoadImage(ctx, e.Src)
	case scene.KindVideo:
		r.Video, r.Err = p.resolver.LoadVideo(ctx, e.Src)
	default:
		r.Err = &UnknownKindError{Kind: e.Kind}
	}
	if r.Err != nil && ctx.Err() == nil {
		p.logger.Warn("hydrate element %d (%s): %v", index, e.Kind, r.Err)
	}
	return r
}

func (p *Pipeline) publish(gen uint64, renderables []Renderable) {
	p.mu.Lock()
	if gen != p.generation || p.closed {
		latest := p.generation
		p.mu.Unlock()
		p.discarded.Add(1)
		p.logger.Debug("discard hydration pass %d (latest %d)", gen, latest)
		p.emit(event.New(events.TopicHydrationDiscarded, events.HydrationDiscarded{
			Generation: gen,
			Latest:     latest,
		}, "hydrate"))
		return
	}
	pub := Publication{Generation: gen, Renderables: renderables}
	p.current = pub
	subs := append([]Subscriber(nil), p.subscribers...)
	p.mu.Unlock()

	p.deliverMu.Lock()
	if gen > p.delivered {
		p.delivered = gen
		for _, fn := range subs {
			fn(pub)
		}
	}
	p.deliverMu.Unlock()

	// Waiters are released only once subscribers have seen the view.
	p.mu.Lock()
	if gen > p.published {
		p.published = gen
		p.publishes.Add(1)
		close(p.changed)
		p.changed = make(chan struct{})
	}
	p.mu.Unlock()

	p.emit(event.New(events.TopicHydrationPublished, events.HydrationPublished{
		Generation: gen,
		Count:      len(renderables),
		Failed:     pub.Failed(),
	}, "hydrate"))
}

func (p *Pipeline) emit(ev any) {
	if p.bus != nil {
		_ = p.bus.Publish(context.Background(), ev)
	}
}

// Current returns the latest published view.
func (p *Pipeline) Current() Publication {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Generation returns the generation of the most recent Update.
func (p *Pipeline) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Wait blocks until the most recent Update has published or ctx ends.
func (p *Pipeline) Wait(ctx context.Context) (Publication, error) {
	for {
		p.mu.Lock()
		if p.published == p.generation || p.closed {
			pub := p.current
			p.mu.Unlock()
			return pub, nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return Publication{}, ctx.Err()
		}
	}
}

// Close cancels any pass in flight and waits for pass goroutines to exit.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Passes:    p.passes.Load(),
		Published: p.publishes.Load(),
		Discarded: p.discarded.Load(),
		Latest:    p.Generation(),
	}
}
