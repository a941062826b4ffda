package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/stagecraft/internal/config"
	"github.com/dshills/stagecraft/internal/engine"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/persist"
	"github.com/dshills/stagecraft/internal/playback"
)

const (
	restoreTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// bootstrap initializes all components in dependency order. On failure the
// caller runs cleanup to release what was already built.
func (app *Application) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", app.initConfig},
		{"logging", app.initLogging},
		{"event bus", app.initEventBus},
		{"loader", app.initLoader},
		{"hydrate", app.initPipeline},
		{"playback", app.initPlayback},
		{"store", app.initStore},
		{"engine", app.initEngine},
		{"watcher", app.initWatcher},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return NewComponentError(s.name, "init", err)
		}
	}
	app.logger.Debug("bootstrap complete")
	return nil
}

func (app *Application) configLoader() *config.Loader {
	var opts []config.LoaderOption
	if app.opts.Environment != nil {
		opts = append(opts, config.WithEnvironment(app.opts.Environment))
	}
	return config.NewLoader(opts...)
}

func (app *Application) initConfig() error {
	cfg, err := app.configLoader().Load(app.opts.ConfigPath)
	if err != nil {
		return err
	}
	app.overrideConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.cfg.Store(cfg)
	return nil
}

// overrideConfig applies command-line settings, the last configuration layer.
func (app *Application) overrideConfig(cfg *config.Config) {
	if app.opts.LogLevel != "" {
		cfg.Logging.Level = app.opts.LogLevel
	}
	if app.opts.StoreBackend != "" {
		cfg.Store.Backend = app.opts.StoreBackend
	}
	if app.opts.StorePath != "" {
		cfg.Store.Path = app.opts.StorePath
	}
}

func (app *Application) initLogging() error {
	cfg := app.Config()

	var out io.Writer = os.Stderr
	switch {
	case app.opts.LogOutput != nil:
		out = app.opts.LogOutput
	case cfg.Logging.File != "" || app.opts.Interactive:
		path := cfg.Logging.File
		if path == "" {
			path = DefaultLogFile()
		}
		f, err := OpenLogFile(path)
		if err != nil {
			return err
		}
		app.onClose("log file", f.Close)
		out = f
	}

	app.logger = NewLogger(LoggerConfig{
		Level:  ParseLogLevel(cfg.Logging.Level),
		Output: out,
		Prefix: "stagecraft",
	})
	return nil
}

// DefaultLogFile is where interactive sessions log without logging.file.
func DefaultLogFile() string {
	return filepath.Join(os.TempDir(), "stagecraft.log")
}

func (app *Application) initEventBus() error {
	log := app.logger.WithComponent("event")
	app.bus = event.NewBus(event.WithErrorHandler(func(t event.Topic, err error) {
		log.Warn("handler for %s: %v", t, err)
	}))
	if err := app.bus.Start(); err != nil {
		return err
	}
	app.onClose("event bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.bus.Stop(ctx)
	})
	return app.subscribe()
}

func (app *Application) initLoader() error {
	cfg := app.Config()
	app.loader = loader.New(
		loader.WithTimeout(cfg.Loader.FetchTimeout.Std()),
		loader.WithFetcher(&loader.DefaultFetcher{
			Timeout: cfg.Loader.FetchTimeout.Std(),
			BaseDir: cfg.Loader.BaseDir,
		}),
	)
	return nil
}

func (app *Application) initPipeline() error {
	cfg := app.Config()
	app.pipeline = hydrate.New(app.loader,
		hydrate.WithConcurrency(cfg.Hydrate.Concurrency),
		hydrate.WithBus(app.bus),
		hydrate.WithLogger(app.logger.WithComponent("hydrate")),
	)
	app.onClose("hydrate", func() error {
		app.pipeline.Close()
		return nil
	})
	return nil
}

func (app *Application) initPlayback() error {
	cfg := app.Config()
	app.playback = playback.New(playback.RedrawFunc(app.redraw),
		playback.WithFPS(cfg.Playback.FPS),
		playback.WithBus(app.bus),
		playback.WithLogger(app.logger.WithComponent("playback")),
	)
	// The pipeline is closed first so no pass can publish into a stopped
	// controller.
	app.onClose("playback", func() error {
		app.pipeline.Close()
		app.playback.Close()
		return nil
	})

	// Drivers are reconciled against every published view.
	app.pipeline.Subscribe(func(pub hydrate.Publication) {
		app.playback.Reconcile(pub.Renderables)
		app.metrics.RecordPublication(pub.Failed())
	})
	return nil
}

func (app *Application) initStore() error {
	cfg := app.Config()
	store, err := persist.Open(persist.Options{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
	})
	if err != nil {
		return err
	}
	app.store = store
	app.snapshots = persist.NewSnapshots(store, cfg.Store.Key)
	app.onClose("store", store.Close)
	app.logger.Debug("store %s at %q key %q", cfg.Store.Backend, cfg.Store.Path, app.snapshots.Key())
	return nil
}

func (app *Application) initEngine() error {
	cfg := app.Config()
	app.engine = engine.New(
		engine.WithResolver(app.loader),
		engine.WithPipeline(app.pipeline),
		engine.WithSnapshots(app.snapshots),
		engine.WithBus(app.bus),
		engine.WithLogger(app.logger.WithComponent("engine")),
		engine.WithLayout(layoutFrom(cfg.Defaults)),
		engine.WithMaxUndoEntries(cfg.History.MaxEntries),
	)
	return nil
}

func (app *Application) initWatcher() error {
	if !app.opts.Watch || app.opts.ConfigPath == "" {
		return nil
	}
	log := app.logger.WithComponent("config")
	w, err := config.NewWatcher(app.configLoader(), app.opts.ConfigPath, app.Config(),
		config.WithErrorHandler(func(err error) {
			log.Warn("reload %s: %v", app.opts.ConfigPath, err)
		}),
	)
	if err != nil {
		return err
	}
	w.OnChange(app.applyConfig)
	app.watcher = w
	app.onClose("watcher", w.Close)
	return nil
}

func layoutFrom(d config.DefaultsConfig) engine.Layout {
	return engine.Layout{
		ImageX:    d.ImageX,
		ImageY:    d.ImageY,
		TextX:     d.TextX,
		TextY:     d.TextY,
		TextWidth: d.TextWidth,
		FontSize:  d.FontSize,
		VideoX:    d.VideoX,
		VideoY:    d.VideoY,
	}
}
