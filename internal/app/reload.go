package app

import (
	"context"

	"github.com/dshills/stagecraft/internal/config"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
)

// applyConfig applies the live-reloadable settings of a reloaded
// configuration. Store, loader and surface settings take effect on restart.
func (app *Application) applyConfig(cfg *config.Config) {
	if app.closed.Load() {
		return
	}
	app.overrideConfig(cfg)
	if err := cfg.Validate(); err != nil {
		app.logger.Warn("ignoring reloaded config: %v", err)
		return
	}
	prev := app.cfg.Swap(cfg)

	if prev.Logging.Level != cfg.Logging.Level {
		app.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))
	}
	if prev.Playback.FPS != cfg.Playback.FPS {
		app.playback.SetFPS(cfg.Playback.FPS)
	}
	if prev.Hydrate.Concurrency != cfg.Hydrate.Concurrency {
		app.pipeline.SetConcurrency(cfg.Hydrate.Concurrency)
	}
	if prev.Defaults != cfg.Defaults {
		app.engine.SetLayout(layoutFrom(cfg.Defaults))
	}
	if prev.Store != cfg.Store {
		app.logger.Warn("store settings change on restart")
	}

	app.metrics.RecordReload()
	app.logger.Info("configuration reloaded from %s", app.opts.ConfigPath)

	ev := event.New(events.TopicConfigReloaded, events.ConfigReloaded{Path: app.opts.ConfigPath}, "app")
	if err := app.bus.Publish(context.Background(), ev); err != nil {
		app.logger.Debug("publish reload: %v", err)
	}
}
