package surface

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/hydrate"
)

// Default raster dimensions and colours.
const (
	DefaultRasterWidth  = 1280
	DefaultRasterHeight = 720
	DefaultBackground   = "#ffffff"
)

// Raster paints the scene into an in-memory image for export.
type Raster struct {
	mu         sync.Mutex
	width      int
	height     int
	background string

	renderables []hydrate.Renderable
	selected    int
	dc          *gg.Context

	font  *opentype.Font
	faces map[float64]font.Face
}

// RasterOption configures a Raster.
type RasterOption func(*Raster)

// WithSize sets the output dimensions in pixels.
func WithSize(width, height int) RasterOption {
	return func(r *Raster) {
		if width > 0 && height > 0 {
			r.width = width
			r.height = height
		}
	}
}

// WithBackground sets the canvas fill as a hex colour.
func WithBackground(hex string) RasterOption {
	return func(r *Raster) {
		if hex != "" {
			r.background = hex
		}
	}
}

// NewRaster creates a blank raster surface.
func NewRaster(opts ...RasterOption) (*Raster, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	r := &Raster{
		width:      DefaultRasterWidth,
		height:     DefaultRasterHeight,
		background: DefaultBackground,
		selected:   scene.NoSelection,
		font:       f,
		faces:      make(map[float64]font.Face),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.paint()
	return r, nil
}

// Render implements engine.Surface and paints immediately.
func (r *Raster) Render(renderables []hydrate.Renderable, selected int) {
	r.mu.Lock()
	r.renderables = renderables
	r.selected = selected
	r.mu.Unlock()

	r.paint()
}

// Redraw implements engine.Surface.
func (r *Raster) Redraw() {
	r.paint()
}

// Image returns the most recent paint.
func (r *Raster) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dc.Image()
}

// WritePNG encodes the most recent paint as PNG.
func (r *Raster) WritePNG(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dc.EncodePNG(w)
}

// SavePNG writes the most recent paint to path.
func (r *Raster) SavePNG(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.dc.SavePNG(path); err != nil {
		return fmt.Errorf("save png %s: %w", path, err)
	}
	return nil
}

func (r *Raster) paint() {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(r.width, r.height)
	dc.SetHexColor(r.background)
	dc.Clear()

	for _, rd := range r.renderables {
		x, y, w, h := rd.Element.Bounds()
		switch {
		case rd.Err != nil:
			r.drawFailed(dc, x, y, w, h)
		case !rd.Ready():
		case rd.Element.Kind == scene.KindImage:
			r.drawImage(dc, rd.Image.Image, x, y, w, h)
		case rd.Element.Kind == scene.KindVideo:
			r.drawVideo(dc, x, y, w, h, rd.Element.Playing)
		case rd.Element.Kind == scene.KindText:
			r.drawText(dc, rd.Element)
		}

		if rd.Index == r.selected {
			dc.SetRGB255(0, 161, 255)
			dc.SetLineWidth(2)
			dc.DrawRectangle(x-1, y-1, w+2, h+2)
			dc.Stroke()
		}
	}

	r.dc = dc
}

func (r *Raster) drawImage(dc *gg.Context, img image.Image, x, y, w, h float64) {
	pw, ph := int(math.Round(w)), int(math.Round(h))
	if img == nil || pw <= 0 || ph <= 0 {
		return
	}
	dc.DrawImage(imaging.Resize(img, pw, ph, imaging.Lanczos), int(math.Round(x)), int(math.Round(y)))
}

func (r *Raster) drawVideo(dc *gg.Context, x, y, w, h float64, playing bool) {
	dc.SetRGB255(20, 24, 40)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	cx, cy := x+w/2, y+h/2
	size := math.Min(w, h) / 4
	dc.SetColor(color.White)
	if playing {
		dc.DrawRectangle(cx-size, cy-size, size*0.7, size*2)
		dc.DrawRectangle(cx+size*0.3, cy-size, size*0.7, size*2)
	} else {
		dc.MoveTo(cx-size, cy-size)
		dc.LineTo(cx+size, cy)
		dc.LineTo(cx-size, cy+size)
		dc.ClosePath()
	}
	dc.Fill()
}

func (r *Raster) drawText(dc *gg.Context, el scene.Element) {
	face, err := r.face(el.FontSize)
	if err != nil {
		return
	}
	dc.SetFontFace(face)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringWrapped(el.Text, el.X, el.Y, 0, 0, el.Width, 1.2, gg.AlignLeft)
}

func (r *Raster) drawFailed(dc *gg.Context, x, y, w, h float64) {
	dc.SetRGB255(200, 40, 40)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, w, h)
	dc.DrawLine(x, y, x+w, y+h)
	dc.DrawLine(x+w, y, x, y+h)
	dc.Stroke()
}

// face returns a cached Go Regular face at size. Callers hold r.mu.
func (r *Raster) face(size float64) (font.Face, error) {
	if size <= 0 {
		size = scene.MinSize
	}
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = f
	return f, nil
}
