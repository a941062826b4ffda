package app

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/stagecraft/internal/engine"
	"github.com/dshills/stagecraft/internal/surface"
)

// Run drives an interactive session on term until quit, ctx ends or
// Shutdown is called. A quit request returns nil.
func (app *Application) Run(ctx context.Context, term *surface.Terminal) error {
	if term == nil {
		return ErrNoSurface
	}
	if app.closed.Load() {
		return ErrClosed
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := term.Init(); err != nil {
		return NewComponentError("surface", "init", err)
	}
	defer term.Shutdown()

	app.surfaceMu.Lock()
	app.terminal = term
	app.surfaceMu.Unlock()
	defer func() {
		app.surfaceMu.Lock()
		app.terminal = nil
		app.surfaceMu.Unlock()
	}()

	app.Attach(term)
	term.Render(app.engine.Renderables(), app.selectedIndex())
	app.refreshStatus()

	return app.eventLoop(ctx, term)
}

// eventLoop paints at the configured frame rate and applies input as it
// arrives. Input is read on its own goroutine since PollEvent blocks.
func (app *Application) eventLoop(ctx context.Context, term *surface.Terminal) error {
	events := make(chan tcell.Event, 64)
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		for {
			ev := term.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-app.done:
				return
			}
		}
	}()

	rate := app.Config().Surface.FrameRate
	if rate <= 0 {
		rate = 60
	}
	frameTicker := time.NewTicker(time.Second / time.Duration(rate))
	defer frameTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-app.done:
			return nil

		case <-pollDone:
			return nil

		case <-frameTicker.C:
			start := time.Now()
			if term.Flush() {
				app.metrics.RecordFrame(time.Since(start))
			} else {
				app.metrics.RecordIdleFrame()
			}

		case ev := <-events:
			_, err := app.Apply(ctx, term.Translate(ev))
			if errors.Is(err, ErrQuit) {
				return nil
			}
		}
	}
}

func (app *Application) selectedIndex() int {
	if i, ok := app.engine.Selected(); ok {
		return i
	}
	return engine.NoSelection
}
