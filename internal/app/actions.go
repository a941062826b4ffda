package app

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/stagecraft/internal/engine"
	"github.com/dshills/stagecraft/internal/surface"
)

// Apply performs one edit request against the engine. It reports whether
// the request changed anything and returns ErrQuit for a quit request.
func (app *Application) Apply(ctx context.Context, a surface.Action) (bool, error) {
	start := time.Now()
	ok, err := app.apply(ctx, a)
	if a.Kind != surface.ActionNone && a.Kind != surface.ActionRepaint {
		app.metrics.RecordAction(time.Since(start), ok && err == nil)
	}
	if err != nil && !errors.Is(err, ErrQuit) {
		app.logger.Warn("%s: %v", a.Kind, err)
	}
	return ok, err
}

func (app *Application) apply(ctx context.Context, a surface.Action) (bool, error) {
	e := app.engine

	switch a.Kind {
	case surface.ActionQuit:
		return true, ErrQuit
	case surface.ActionMove:
		return e.MoveSelected(a.DX, a.DY), nil
	case surface.ActionForward:
		return e.BringForward(), nil
	case surface.ActionBackward:
		return e.SendBackward(), nil
	case surface.ActionResize:
		return app.resizeSelected(a.DX, a.DY), nil
	case surface.ActionToggle:
		i, ok := e.Selected()
		return ok && e.ToggleVideoPlaying(i), nil
	case surface.ActionUndo:
		return e.Undo(), nil
	case surface.ActionRedo:
		return e.Redo(), nil
	case surface.ActionSave:
		rec, err := e.Save(ctx)
		if err != nil {
			return false, err
		}
		app.flash("saved revision %s", rec.Revision)
		return true, nil
	case surface.ActionLoad:
		found, err := e.Load(ctx)
		if err != nil {
			return false, err
		}
		if !found {
			app.flash("nothing saved")
		}
		return found, nil
	case surface.ActionSelect:
		return e.SelectByID(a.ID), nil
	case surface.ActionClearSelection:
		return e.ClearSelection(), nil
	case surface.ActionRepaint:
		app.redraw()
		return true, nil
	}
	return false, nil
}

// resizeSelected grows or shrinks the selected element through the same
// commit path as a finished resize gesture.
func (app *Application) resizeSelected(dw, dh float64) bool {
	e := app.engine
	i, ok := e.Selected()
	if !ok {
		return false
	}
	el, ok := e.At(i)
	if !ok {
		return false
	}
	_, ok = e.TransformElement(i, engine.Transform{
		X:      el.X,
		Y:      el.Y,
		Width:  el.Width + dw,
		Height: el.Height + dh,
		ScaleX: 1,
		ScaleY: 1,
	})
	return ok
}

// flash shows a transient message on the terminal status line.
func (app *Application) flash(format string, args ...any) {
	app.surfaceMu.RLock()
	term := app.terminal
	app.surfaceMu.RUnlock()
	if term == nil {
		app.logger.Info(format, args...)
		return
	}
	term.SetStatus(" "+format, args...)
}
