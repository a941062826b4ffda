package surface

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sampleScene() []hydrate.Renderable {
	red := solid(16, 16, color.NRGBA{R: 255, A: 255})
	video := scene.NewVideo(0, 0, 80, 64, "clip.mp4")
	img := scene.NewImage(200, 0, 16, 16, "red.png")
	text := scene.NewText(16, 32, 80, "Hello", 24)
	broken := scene.NewImage(200, 160, 32, 32, "missing.png")

	return []hydrate.Renderable{
		{Index: 0, Element: video, Video: loader.NewVideoHandle("clip.mp4", loader.VideoMeta{Width: 80, Height: 64})},
		{Index: 1, Element: img, Image: &loader.ImageHandle{Src: "red.png", Image: red, Width: 16, Height: 16}},
		{Index: 2, Element: text},
		{Index: 3, Element: broken, Err: errors.New("not found")},
	}
}

func newSimTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	term := NewTerminal(screen)
	if err := term.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	screen.SetSize(60, 20)
	t.Cleanup(term.Shutdown)
	return term, screen
}

func TestViewportToCells(t *testing.T) {
	v := DefaultViewport()
	tests := []struct {
		name             string
		x, y, w, h       float64
		want             Rect
		wantCols, wantRs int
	}{
		{"aligned", 16, 32, 80, 32, Rect{2, 2, 12, 4}, 10, 2},
		{"unaligned", 4, 8, 8, 8, Rect{0, 0, 2, 1}, 2, 1},
		{"empty", 16, 16, 0, 0, Rect{2, 1, 3, 2}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ToCells(tt.x, tt.y, tt.w, tt.h)
			if got != tt.want {
				t.Errorf("ToCells = %+v, want %+v", got, tt.want)
			}
			if got.Width() != tt.wantCols || got.Height() != tt.wantRs {
				t.Errorf("size = %dx%d, want %dx%d", got.Width(), got.Height(), tt.wantCols, tt.wantRs)
			}
		})
	}

	dx, dy := v.Delta(2, -1)
	if dx != 16 || dy != -16 {
		t.Errorf("Delta(2,-1) = (%g,%g), want (16,-16)", dx, dy)
	}
}

func TestTerminalDrawAndHitTest(t *testing.T) {
	term, screen := newSimTerminal(t)
	rs := sampleScene()

	term.Render(rs, 2)
	if !term.Flush() {
		t.Fatal("Flush after Render should paint")
	}
	if term.Flush() {
		t.Error("second Flush should be a no-op")
	}
	if term.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", term.Frames())
	}

	// Text is inset by the selection frame on its first row.
	mainc, _, _, _ := screen.GetContent(3, 2) //nolint:staticcheck // GetContent is the correct API
	if mainc != '─' {
		t.Errorf("selection frame at (3,2) = %q, want '─'", mainc)
	}

	// Broken image gets the failure marker.
	mainc, _, _, _ = screen.GetContent(25, 10) //nolint:staticcheck // GetContent is the correct API
	if mainc != '!' {
		t.Errorf("failed element at (25,10) = %q, want '!'", mainc)
	}

	tests := []struct {
		name     string
		col, row int
		wantID   string
		wantOK   bool
	}{
		{"text above video", 3, 2, rs[2].Element.ID, true},
		{"video only", 0, 0, rs[0].Element.ID, true},
		{"image", 25, 0, rs[1].Element.ID, true},
		{"empty", 40, 15, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := term.HitTest(tt.col, tt.row)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("HitTest(%d,%d) = (%q,%v), want (%q,%v)", tt.col, tt.row, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestTerminalReusesImageThumbnails(t *testing.T) {
	term, screen := newSimTerminal(t)
	rs := sampleScene()
	img := rs[1]

	wider := img
	wider.Element.Width = 48

	fresh := img
	fresh.Image = &loader.ImageHandle{Src: "red.png", Image: img.Image.Image, Width: 16, Height: 16}

	steps := []struct {
		name        string
		renderables []hydrate.Renderable
		wantResizes uint64
	}{
		{"first paint", rs, 1},
		{"repaint", rs, 1},
		{"repaint again", rs, 1},
		{"resized element", []hydrate.Renderable{rs[0], wider}, 2},
		{"new handle", []hydrate.Renderable{rs[0], fresh}, 3},
		{"image removed", rs[:1], 3},
		{"image back", []hydrate.Renderable{rs[0], fresh}, 4},
	}
	for _, step := range steps {
		term.Render(step.renderables, scene.NoSelection)
		term.Draw()
		if got := term.resizes.Load(); got != step.wantResizes {
			t.Fatalf("%s: resizes = %d, want %d", step.name, got, step.wantResizes)
		}
	}

	_, _, style, _ := screen.GetContent(25, 0) //nolint:staticcheck // GetContent is the correct API
	_, bg, _ := style.Decompose()
	if bg != tcell.NewRGBColor(255, 0, 0) {
		t.Errorf("image cell background = %v, want red", bg)
	}
}

func TestTerminalTextUnselected(t *testing.T) {
	term, screen := newSimTerminal(t)
	term.Render(sampleScene(), scene.NoSelection)
	term.Draw()

	for i, want := range "Hello" {
		mainc, _, _, _ := screen.GetContent(2+i, 2) //nolint:staticcheck // GetContent is the correct API
		if mainc != want {
			t.Errorf("cell (%d,2) = %q, want %q", 2+i, mainc, want)
		}
	}
}

func TestTerminalStatus(t *testing.T) {
	term, screen := newSimTerminal(t)
	term.SetStatus("%d elements", 4)
	if !term.Flush() {
		t.Fatal("SetStatus should request a repaint")
	}

	_, h := screen.Size()
	var got []rune
	for col := 0; col < 10; col++ {
		mainc, _, _, _ := screen.GetContent(col, h-1) //nolint:staticcheck // GetContent is the correct API
		got = append(got, mainc)
	}
	if string(got) != "4 elements" {
		t.Errorf("status = %q, want %q", string(got), "4 elements")
	}
}

func TestTranslateKeys(t *testing.T) {
	term, _ := newSimTerminal(t)

	tests := []struct {
		name string
		ev   tcell.Event
		want Action
	}{
		{"right", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), Action{Kind: ActionMove, DX: 8}},
		{"up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), Action{Kind: ActionMove, DY: -16}},
		{"shift left", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModShift), Action{Kind: ActionMove, DX: -32}},
		{"forward", tcell.NewEventKey(tcell.KeyRune, 'f', tcell.ModNone), Action{Kind: ActionForward}},
		{"backward", tcell.NewEventKey(tcell.KeyRune, 'b', tcell.ModNone), Action{Kind: ActionBackward}},
		{"grow", tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone), Action{Kind: ActionResize, DX: ResizeStep, DY: ResizeStep}},
		{"shrink", tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone), Action{Kind: ActionResize, DX: -ResizeStep, DY: -ResizeStep}},
		{"toggle", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), Action{Kind: ActionToggle}},
		{"undo", tcell.NewEventKey(tcell.KeyRune, 'u', tcell.ModNone), Action{Kind: ActionUndo}},
		{"redo", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), Action{Kind: ActionRedo}},
		{"save", tcell.NewEventKey(tcell.KeyRune, 's', tcell.ModNone), Action{Kind: ActionSave}},
		{"load", tcell.NewEventKey(tcell.KeyRune, 'l', tcell.ModNone), Action{Kind: ActionLoad}},
		{"quit", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), Action{Kind: ActionQuit}},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), Action{Kind: ActionQuit}},
		{"unbound", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), Action{}},
		{"resize", tcell.NewEventResize(80, 24), Action{Kind: ActionRepaint}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := term.Translate(tt.ev); got != tt.want {
				t.Errorf("Translate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTranslateMouse(t *testing.T) {
	term, _ := newSimTerminal(t)
	rs := sampleScene()
	term.Render(rs, scene.NoSelection)
	term.Draw()

	steps := []struct {
		name    string
		col     int
		row     int
		buttons tcell.ButtonMask
		want    Action
	}{
		{"press on text", 3, 2, tcell.Button1, Action{Kind: ActionSelect, ID: rs[2].Element.ID}},
		{"held", 4, 2, tcell.Button1, Action{}},
		{"release", 4, 2, tcell.ButtonNone, Action{}},
		{"press on empty", 40, 15, tcell.Button1, Action{Kind: ActionClearSelection}},
	}
	for _, s := range steps {
		ev := tcell.NewEventMouse(s.col, s.row, s.buttons, tcell.ModNone)
		if got := term.Translate(ev); got != s.want {
			t.Errorf("%s: Translate = %+v, want %+v", s.name, got, s.want)
		}
	}
}

func TestActionKindString(t *testing.T) {
	if ActionClearSelection.String() != "clear-selection" {
		t.Errorf("String() = %q", ActionClearSelection.String())
	}
	if ActionKind(99).String() != "none" {
		t.Errorf("unknown kind String() = %q, want none", ActionKind(99).String())
	}
}

func TestRasterRender(t *testing.T) {
	r, err := NewRaster(WithSize(320, 200), WithBackground("#000000"))
	if err != nil {
		t.Fatalf("NewRaster: %v", err)
	}
	r.Render(sampleScene(), scene.NoSelection)

	img := r.Image()
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Fatalf("bounds = %v, want 320x200", b)
	}

	cr, cg, cb, _ := img.At(208, 8).RGBA()
	if cr>>8 < 200 || cg>>8 > 40 || cb>>8 > 40 {
		t.Errorf("image pixel = (%d,%d,%d), want red", cr>>8, cg>>8, cb>>8)
	}

	cr, cg, cb, _ = img.At(300, 190).RGBA()
	if cr != 0 || cg != 0 || cb != 0 {
		t.Errorf("background pixel = (%d,%d,%d), want black", cr, cg, cb)
	}
}

func TestRasterPNG(t *testing.T) {
	r, err := NewRaster(WithSize(64, 48))
	if err != nil {
		t.Fatalf("NewRaster: %v", err)
	}
	r.Render(sampleScene(), 2)

	var buf bytes.Buffer
	if err := r.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("png = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := r.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
}
