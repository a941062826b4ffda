package engine

import (
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/persist"
)

// DefaultMaxUndoEntries is the default history bound. Zero means unlimited.
const DefaultMaxUndoEntries = 0

// Layout holds the positions and sizes new elements are created with.
type Layout struct {
	ImageX, ImageY float64
	TextX, TextY   float64
	TextWidth      float64
	FontSize       float64
	VideoX, VideoY float64
}

// DefaultLayout returns the built-in placement of new elements.
func DefaultLayout() Layout {
	return Layout{
		ImageX:    50,
		ImageY:    50,
		TextX:     50,
		TextY:     150,
		TextWidth: 100,
		FontSize:  24,
		VideoX:    50,
		VideoY:    200,
	}
}

// Option configures an Engine during creation.
type Option func(*Engine)

// WithResolver sets the resolver AddImage and AddVideo use for natural sizes.
func WithResolver(r loader.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithPipeline hands every committed snapshot to p.
func WithPipeline(p *hydrate.Pipeline) Option {
	return func(e *Engine) {
		e.pipeline = p
	}
}

// WithSnapshots enables Save and Load.
func WithSnapshots(s *persist.Snapshots) Option {
	return func(e *Engine) {
		e.snapshots = s
	}
}

// WithBus publishes scene and history events on bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLayout sets the placement of new elements.
func WithLayout(l Layout) Option {
	return func(e *Engine) {
		e.layout = l
	}
}

// WithMaxUndoEntries bounds the history. Zero means unlimited.
func WithMaxUndoEntries(max int) Option {
	return func(e *Engine) {
		if max >= 0 {
			e.maxUndoEntries = max
		}
	}
}
