package playback

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
)

// DefaultFPS is the redraw rate used when none is configured.
const DefaultFPS = 30

// Redrawer is the render surface's redraw trigger.
type Redrawer interface {
	Redraw()
}

// RedrawFunc adapts a function to Redrawer.
type RedrawFunc func()

// Redraw calls f.
func (f RedrawFunc) Redraw() { f() }

// Logger is the logging surface the controller needs.
type Logger interface {
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

type driver struct {
	index  int
	handle *loader.VideoHandle
	stop   chan struct{}
	done   chan struct{}
}

// Controller owns the redraw drivers, keyed by element index.
type Controller struct {
	mu      sync.Mutex
	drivers map[int]*driver
	fps     int
	closed  bool

	surface Redrawer
	bus     *event.Bus
	logger  Logger

	ticks atomic.Uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithFPS sets the driver tick rate.
func WithFPS(fps int) Option {
	return func(c *Controller) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithBus publishes playback events on bus.
func WithBus(bus *event.Bus) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

// WithLogger sets the controller logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller that drives surface.
func New(surface Redrawer, opts ...Option) *Controller {
	c := &Controller{
		drivers: make(map[int]*driver),
		fps:     DefaultFPS,
		surface: surface,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reconcile makes the running drivers match renderables: exactly one driver
// per playing video with a loaded handle, none for anything else. It is a
// no-op once the controller is closed.
func (c *Controller) Reconcile(renderables []hydrate.Renderable) {
	var stopped, started []*driver

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	for i, r := range renderables {
		d := c.drivers[i]
		playing := r.Element.IsVideo() && r.Element.Playing && r.Video != nil

		if !playing {
			if r.Video != nil {
				r.Video.Pause()
			}
			if d != nil {
				stopped = append(stopped, d)
				delete(c.drivers, i)
			}
			continue
		}

		if d != nil && d.handle == r.Video {
			continue
		}
		if d != nil {
			stopped = append(stopped, d)
		}
		r.Video.Play()
		nd := c.startLocked(i, r.Video)
		started = append(started, nd)
	}
	for i, d := range c.drivers {
		if i >= len(renderables) {
			stopped = append(stopped, d)
			delete(c.drivers, i)
		}
	}
	c.mu.Unlock()

	for _, d := range stopped {
		c.halt(d)
	}
	for _, d := range started {
		c.emit(events.TopicPlaybackStarted, d)
	}
}

func (c *Controller) startLocked(index int, handle *loader.VideoHandle) *driver {
	d := &driver{
		index:  index,
		handle: handle,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.drivers[index] = d

	interval := time.Second / time.Duration(c.fps)
	go c.run(d, interval)
	c.logger.Debug("start playback driver %d at %d fps", index, c.fps)
	return d
}

func (c *Controller) run(d *driver, interval time.Duration) {
	defer close(d.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			c.ticks.Add(1)
			if c.surface != nil {
				c.surface.Redraw()
			}
		}
	}
}

// halt stops d's goroutine and pauses its media unless a newer driver owns it.
func (c *Controller) halt(d *driver) {
	close(d.stop)
	<-d.done

	c.mu.Lock()
	shared := false
	for _, other := range c.drivers {
		if other.handle == d.handle {
			shared = true
			break
		}
	}
	c.mu.Unlock()
	if !shared {
		d.handle.Pause()
	}

	c.logger.Debug("stop playback driver %d", d.index)
	c.emit(events.TopicPlaybackStopped, d)
}

// StopAll stops every driver and pauses its media.
func (c *Controller) StopAll() {
	c.mu.Lock()
	drivers := make([]*driver, 0, len(c.drivers))
	for i, d := range c.drivers {
		drivers = append(drivers, d)
		delete(c.drivers, i)
	}
	c.mu.Unlock()

	for _, d := range drivers {
		c.halt(d)
	}
}

// Close stops every driver and rejects later reconciles, so a publication
// arriving during shutdown cannot start a new driver.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.StopAll()
}

// Active returns the indices with a running driver, ascending.
func (c *Controller) Active() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int, 0, len(c.drivers))
	for i := range c.drivers {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Handle returns the media handle bound to the driver at index.
func (c *Controller) Handle(index int) (*loader.VideoHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drivers[index]
	if !ok {
		return nil, false
	}
	return d.handle, true
}

// SetFPS changes the tick rate. Running drivers are restarted at the new rate.
func (c *Controller) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	if fps == c.fps || c.closed {
		c.mu.Unlock()
		return
	}
	c.fps = fps
	var old []*driver
	for i, d := range c.drivers {
		old = append(old, d)
		c.startLocked(i, d.handle)
	}
	c.mu.Unlock()

	for _, d := range old {
		close(d.stop)
		<-d.done
	}
}

// FPS returns the configured tick rate.
func (c *Controller) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Ticks returns the total number of redraw ticks across all drivers.
func (c *Controller) Ticks() uint64 {
	return c.ticks.Load()
}

func (c *Controller) emit(topic event.Topic, d *driver) {
	if c.bus == nil {
		return
	}
	_ = c.bus.Publish(context.Background(), event.New(topic, events.PlaybackChanged{
		Index: d.index,
		Src:   d.handle.Src,
	}, "playback"))
}
