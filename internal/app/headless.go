package app

import (
	"context"
	"io"
	"os"

	"github.com/dshills/stagecraft/internal/script"
	"github.com/dshills/stagecraft/internal/surface"
)

// RunScript runs a Lua script against the engine. print output goes to out,
// or stdout when out is nil. canvas.export writes PNGs through Export.
func (app *Application) RunScript(ctx context.Context, path string, out io.Writer) error {
	if app.closed.Load() {
		return ErrClosed
	}
	if out == nil {
		out = os.Stdout
	}

	st := script.New(app.engine,
		script.WithOutput(out),
		script.WithExporter(script.ExportFunc(app.Export)),
		script.WithLogger(app.logger.WithComponent("script")),
	)
	defer st.Close()

	if err := st.DoFile(ctx, path); err != nil {
		return NewComponentError("script", "run", err)
	}
	return nil
}

// Export waits for the current scene to finish loading and writes it to
// path as a PNG sized by surface.export_width and surface.export_height.
func (app *Application) Export(ctx context.Context, path string) error {
	if err := app.engine.Wait(ctx); err != nil {
		return NewComponentError("export", "wait for hydration", err)
	}

	cfg := app.Config().Surface
	r, err := surface.NewRaster(
		surface.WithSize(cfg.ExportWidth, cfg.ExportHeight),
		surface.WithBackground(cfg.Background),
	)
	if err != nil {
		return NewComponentError("export", "create raster", err)
	}

	r.Render(app.engine.Renderables(), app.selectedIndex())
	if err := r.SavePNG(path); err != nil {
		return NewComponentError("export", "write", err)
	}
	app.logger.Info("exported %d elements to %s", app.engine.Len(), path)
	return nil
}
