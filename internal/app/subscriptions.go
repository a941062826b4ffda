package app

import (
	"context"
	"fmt"

	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
)

// subscribe registers the application's own bus handlers.
func (app *Application) subscribe() error {
	log := app.logger.WithComponent("event")

	handlers := []struct {
		pattern event.Topic
		fn      event.HandlerFunc
	}{
		{"**", func(_ context.Context, ev any) error {
			if tp, ok := ev.(event.TopicProvider); ok {
				log.Debug("%s", tp.EventTopic())
			}
			return nil
		}},
		{events.TopicHydrationPublished, func(_ context.Context, ev any) error {
			if p, ok := event.Payload[events.HydrationPublished](ev); ok && p.Failed > 0 {
				app.logger.Warn("%d of %d elements failed to load", p.Failed, p.Count)
			}
			app.refreshStatus()
			return nil
		}},
		{"scene.*", app.statusHandler},
		{"history.*", app.statusHandler},
		{"snapshot.*", app.statusHandler},
		{"playback.*", app.statusHandler},
	}

	for _, h := range handlers {
		sub, err := app.bus.SubscribeFunc(h.pattern, h.fn)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", h.pattern, err)
		}
		app.subs = append(app.subs, sub)
	}
	return nil
}

func (app *Application) statusHandler(context.Context, any) error {
	app.refreshStatus()
	return nil
}

// refreshStatus rewrites the terminal status line from engine state.
func (app *Application) refreshStatus() {
	app.surfaceMu.RLock()
	term := app.terminal
	app.surfaceMu.RUnlock()
	if term == nil || app.engine == nil {
		return
	}
	term.SetStatus(" %s", app.statusLine())
}

func (app *Application) statusLine() string {
	e := app.engine
	sel := "none"
	if i, ok := e.Selected(); ok {
		if el, ok := e.At(i); ok {
			sel = fmt.Sprintf("%d %s", i+1, el.Kind)
		}
	}
	line := fmt.Sprintf("%d elements | selected %s | history %d/%d | playing %d",
		e.Len(), sel, e.HistoryStep()+1, e.HistoryLen(), len(app.playback.Active()))
	if failed := app.pipeline.Current().Failed(); failed > 0 {
		line += fmt.Sprintf(" | %d failed", failed)
	}
	return line
}
