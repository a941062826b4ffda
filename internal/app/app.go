package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dshills/stagecraft/internal/config"
	"github.com/dshills/stagecraft/internal/engine"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/persist"
	"github.com/dshills/stagecraft/internal/playback"
	"github.com/dshills/stagecraft/internal/surface"
)

// Application is the central coordinator for all editor components.
type Application struct {
	opts Options
	cfg  atomic.Pointer[config.Config]

	logger  *Logger
	metrics *Metrics

	// Core infrastructure
	bus     *event.Bus
	watcher *config.Watcher
	subs    []*event.Subscription

	// Scene components
	loader    *loader.Loader
	pipeline  *hydrate.Pipeline
	playback  *playback.Controller
	store     persist.Store
	snapshots *persist.Snapshots
	engine    *engine.Engine

	surfaceMu sync.RWMutex
	surfaces  []engine.Surface
	terminal  *surface.Terminal

	// Cleanup, run in reverse order by Shutdown
	closers []closer

	running   atomic.Bool
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type closer struct {
	name string
	fn   func() error
}

// Options configures the application. Non-zero fields override the
// configuration file and environment.
type Options struct {
	// ConfigPath is the TOML or YAML configuration file.
	ConfigPath string
	// Watch reloads ConfigPath when it changes.
	Watch bool

	// LogLevel overrides logging.level.
	LogLevel string
	// LogOutput overrides logging.file.
	LogOutput io.Writer
	// Interactive logs to DefaultLogFile when logging.file is unset, since
	// the terminal surface owns stderr.
	Interactive bool

	// StoreBackend and StorePath override store.backend and store.path.
	StoreBackend string
	StorePath    string

	// Restore loads the saved canvas during startup.
	Restore bool

	// Environment replaces the process environment when non-nil.
	Environment map[string]string
}

// New creates an Application and bootstraps all components.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:    opts,
		metrics: NewMetrics(),
		done:    make(chan struct{}),
	}

	if err := app.bootstrap(); err != nil {
		app.cleanup()
		return nil, err
	}

	if opts.Restore {
		app.restore()
	}
	return app, nil
}

// Config returns the configuration in effect.
func (app *Application) Config() *config.Config {
	return app.cfg.Load()
}

// Logger returns the application logger.
func (app *Application) Logger() *Logger {
	return app.logger
}

// Metrics returns the runtime metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// Engine returns the editing engine.
func (app *Application) Engine() *engine.Engine {
	return app.engine
}

// EventBus returns the event bus.
func (app *Application) EventBus() *event.Bus {
	return app.bus
}

// Playback returns the playback controller.
func (app *Application) Playback() *playback.Controller {
	return app.playback
}

// Attach adds a render surface. It receives every published view and the
// playback redraw ticks.
func (app *Application) Attach(s engine.Surface) {
	app.surfaceMu.Lock()
	app.surfaces = append(app.surfaces, s)
	app.surfaceMu.Unlock()

	app.engine.Attach(s)
}

// redraw fans a playback tick out to the attached surfaces.
func (app *Application) redraw() {
	app.surfaceMu.RLock()
	defer app.surfaceMu.RUnlock()

	for _, s := range app.surfaces {
		s.Redraw()
	}
}

// IsRunning reports whether an interactive session is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Shutdown releases all components in reverse initialization order.
// It is safe to call more than once.
func (app *Application) Shutdown() error {
	app.closeOnce.Do(func() {
		app.closed.Store(true)
		close(app.done)
		app.closeErr = app.cleanup()
	})
	return app.closeErr
}

func (app *Application) cleanup() error {
	var errs ErrorList
	for i := len(app.closers) - 1; i >= 0; i-- {
		c := app.closers[i]
		if err := c.fn(); err != nil {
			errs.Add(NewComponentError(c.name, "close", err))
		}
	}
	app.closers = nil
	return errs.AsError()
}

func (app *Application) onClose(name string, fn func() error) {
	app.closers = append(app.closers, closer{name: name, fn: fn})
}

// restore loads the saved canvas. Failures leave an empty canvas.
func (app *Application) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	found, err := app.engine.Load(ctx)
	switch {
	case err != nil:
		app.logger.Warn("restore canvas: %v", err)
	case found:
		app.logger.Info("restored %d elements", app.engine.Len())
	default:
		app.logger.Debug("no saved canvas")
	}
}
