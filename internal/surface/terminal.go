package surface

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
)

// Styles used by the terminal surface.
var (
	styleText      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleFrame     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleSelected  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleVideo     = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleFailed    = tcell.StyleDefault.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite).Bold(true)
	styleLoading   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleStatusBar = tcell.StyleDefault.Reverse(true)
)

// Terminal is a tcell render surface.
type Terminal struct {
	mu     sync.Mutex
	screen tcell.Screen

	viewport Viewport
	mouse    bool
	status   string

	renderables []hydrate.Renderable
	selected    int
	hits        []hit
	lastButtons tcell.ButtonMask

	// Downscaled images from the last paint, keyed by handle and cell size.
	thumbs  map[thumbKey]*image.NRGBA
	resizes atomic.Uint64

	dirty  atomic.Bool
	frames atomic.Uint64
}

type hit struct {
	id   string
	rect Rect
}

type thumbKey struct {
	handle        *loader.ImageHandle
	width, height int
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithViewport sets the canvas-to-cell mapping.
func WithViewport(v Viewport) TerminalOption {
	return func(t *Terminal) {
		if v.CellWidth > 0 && v.CellHeight > 0 {
			t.viewport = v
		}
	}
}

// WithMouse enables mouse reporting.
func WithMouse(enabled bool) TerminalOption {
	return func(t *Terminal) {
		t.mouse = enabled
	}
}

// NewTerminal wraps screen. Init must be called before drawing.
func NewTerminal(screen tcell.Screen, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		screen:   screen,
		viewport: DefaultViewport(),
		mouse:    true,
		selected: scene.NoSelection,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTerminalScreen creates a Terminal on the process's terminal.
func NewTerminalScreen(opts ...TerminalOption) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	return NewTerminal(screen, opts...), nil
}

// Init initialises the screen.
func (t *Terminal) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.screen.Init(); err != nil {
		return err
	}
	if t.mouse {
		t.screen.EnableMouse()
	}
	t.screen.HideCursor()
	return nil
}

// Shutdown restores the terminal.
func (t *Terminal) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Fini()
}

// Render implements engine.Surface.
func (t *Terminal) Render(renderables []hydrate.Renderable, selected int) {
	t.mu.Lock()
	t.renderables = renderables
	t.selected = selected
	t.mu.Unlock()

	t.Redraw()
}

// Redraw implements engine.Surface. The repaint happens on the next Flush.
func (t *Terminal) Redraw() {
	t.dirty.Store(true)
}

// SetStatus sets the bottom status line.
func (t *Terminal) SetStatus(format string, args ...any) {
	t.mu.Lock()
	t.status = fmt.Sprintf(format, args...)
	t.mu.Unlock()

	t.Redraw()
}

// Flush repaints if a redraw was requested since the last paint.
func (t *Terminal) Flush() bool {
	if !t.dirty.Swap(false) {
		return false
	}
	t.Draw()
	return true
}

// Frames returns the number of repaints.
func (t *Terminal) Frames() uint64 {
	return t.frames.Load()
}

// Draw repaints the current view now.
func (t *Terminal) Draw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Clear()
	t.hits = t.hits[:0]

	// Only thumbnails drawn in this paint are kept for the next one.
	prev := t.thumbs
	t.thumbs = make(map[thumbKey]*image.NRGBA, len(prev))

	for _, r := range t.renderables {
		x, y, w, h := r.Element.Bounds()
		rect := t.viewport.ToCells(x, y, w, h)
		t.hits = append(t.hits, hit{id: r.Element.ID, rect: rect})

		switch {
		case r.Err != nil:
			t.drawFailed(rect)
		case !r.Ready():
			t.drawFrame(rect, styleLoading)
		case r.Element.Kind == scene.KindImage:
			t.drawImage(rect, t.thumbnail(prev, r.Image, rect))
		case r.Element.Kind == scene.KindVideo:
			t.drawVideo(rect, r)
		case r.Element.Kind == scene.KindText:
			t.drawText(rect, r.Element.Text, styleText)
		}

		if r.Index == t.selected {
			t.drawFrame(rect, styleSelected)
		}
	}

	t.drawStatus()
	t.screen.Show()
	t.frames.Add(1)
}

// HitTest returns the ID of the topmost element covering the cell.
// It reflects the most recent paint.
func (t *Terminal) HitTest(col, row int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.hits) - 1; i >= 0; i-- {
		if t.hits[i].rect.Contains(col, row) {
			return t.hits[i].id, true
		}
	}
	return "", false
}

// PollEvent blocks for the next screen event.
func (t *Terminal) PollEvent() tcell.Event {
	return t.screen.PollEvent()
}

func (t *Terminal) set(col, row int, r rune, style tcell.Style) {
	w, h := t.screen.Size()
	if col < 0 || row < 0 || col >= w || row >= h-1 {
		return
	}
	t.screen.SetContent(col, row, r, nil, style)
}

func (t *Terminal) drawText(rect Rect, text string, style tcell.Style) {
	col := rect.Left
	for _, r := range text {
		if col >= rect.Right {
			break
		}
		t.set(col, rect.Top, r, style)
		col++
	}
}

// thumbnail returns handle's image scaled to rect, reusing the previous
// paint's copy when the handle and size are unchanged.
func (t *Terminal) thumbnail(prev map[thumbKey]*image.NRGBA, handle *loader.ImageHandle, rect Rect) *image.NRGBA {
	if handle.Image == nil || rect.Width() <= 0 || rect.Height() <= 0 {
		return nil
	}
	key := thumbKey{handle: handle, width: rect.Width(), height: rect.Height()}
	small, ok := prev[key]
	if !ok {
		small, ok = t.thumbs[key]
	}
	if !ok {
		small = imaging.Resize(handle.Image, key.width, key.height, imaging.Box)
		t.resizes.Add(1)
	}
	t.thumbs[key] = small
	return small
}

func (t *Terminal) drawImage(rect Rect, small *image.NRGBA) {
	if small == nil {
		return
	}
	for row := 0; row < rect.Height(); row++ {
		for col := 0; col < rect.Width(); col++ {
			c := small.NRGBAAt(col, row)
			style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
			t.set(rect.Left+col, rect.Top+row, ' ', style)
		}
	}
}

func (t *Terminal) drawVideo(rect Rect, r hydrate.Renderable) {
	for row := rect.Top; row < rect.Bottom; row++ {
		for col := rect.Left; col < rect.Right; col++ {
			t.set(col, row, ' ', styleVideo)
		}
	}
	glyph := "▶"
	if r.Element.Playing {
		glyph = "⏸"
	}
	label := fmt.Sprintf("%s %.1fs", glyph, r.Video.Position().Seconds())
	t.drawText(rect, label, styleVideo)
}

func (t *Terminal) drawFailed(rect Rect) {
	for row := rect.Top; row < rect.Bottom; row++ {
		for col := rect.Left; col < rect.Right; col++ {
			t.set(col, row, ' ', styleFailed)
		}
	}
	t.set(rect.Left, rect.Top, '!', styleFailed)
}

func (t *Terminal) drawFrame(rect Rect, style tcell.Style) {
	if rect.Width() < 2 || rect.Height() < 2 {
		t.set(rect.Left, rect.Top, '▪', style)
		return
	}
	for col := rect.Left + 1; col < rect.Right-1; col++ {
		t.set(col, rect.Top, '─', style)
		t.set(col, rect.Bottom-1, '─', style)
	}
	for row := rect.Top + 1; row < rect.Bottom-1; row++ {
		t.set(rect.Left, row, '│', style)
		t.set(rect.Right-1, row, '│', style)
	}
	t.set(rect.Left, rect.Top, '┌', style)
	t.set(rect.Right-1, rect.Top, '┐', style)
	t.set(rect.Left, rect.Bottom-1, '└', style)
	t.set(rect.Right-1, rect.Bottom-1, '┘', style)
}

func (t *Terminal) drawStatus() {
	w, h := t.screen.Size()
	if h == 0 {
		return
	}
	row := h - 1
	col := 0
	for _, r := range t.status {
		if col >= w {
			break
		}
		t.screen.SetContent(col, row, r, nil, styleStatusBar)
		col++
	}
	for ; col < w; col++ {
		t.screen.SetContent(col, row, ' ', nil, styleStatusBar)
	}
}
