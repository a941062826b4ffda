package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/persist"
)

type fakeResolver struct{}

func (fakeResolver) LoadImage(ctx context.Context, src string) (*loader.ImageHandle, error) {
	if src == "missing.png" {
		return nil, &loader.LoadError{Kind: "image", Src: src, Err: loader.ErrEmptySource}
	}
	return &loader.ImageHandle{Src: src, Width: 320, Height: 200}, nil
}

func (fakeResolver) LoadVideo(ctx context.Context, src string) (*loader.VideoHandle, error) {
	return loader.NewVideoHandle(src, loader.VideoMeta{Width: 640, Height: 360, Duration: time.Second}), nil
}

type recordingSurface struct {
	mu       sync.Mutex
	renders  int
	last     []hydrate.Renderable
	selected int
}

func (s *recordingSurface) Render(rs []hydrate.Renderable, selected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
	s.last = rs
	s.selected = selected
}

func (s *recordingSurface) Redraw() {}

func (s *recordingSurface) snapshot() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders, len(s.last), s.selected
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ============================================================================
// Scenarios
// ============================================================================

func TestScenarioAddMoveUndo(t *testing.T) {
	e := New()

	if _, ok := e.AddText("Hi"); !ok {
		t.Fatal("AddText failed")
	}
	if e.HistoryLen() != 2 || e.HistoryStep() != 1 {
		t.Fatalf("history = %d/%d, want 2/1", e.HistoryLen(), e.HistoryStep())
	}

	if e.MoveSelected(0, -20) {
		t.Error("MoveSelected without a selection should be a no-op")
	}
	if _, ok := e.Selected(); ok {
		t.Error("selection should be null")
	}

	if !e.Select(0) {
		t.Fatal("Select(0) failed")
	}
	before, _ := e.At(0)
	if !e.MoveSelected(0, -20) {
		t.Fatal("MoveSelected failed")
	}
	after, _ := e.At(0)
	if after.Y != before.Y-20 {
		t.Errorf("y = %v, want %v", after.Y, before.Y-20)
	}
	if e.HistoryLen() != 3 {
		t.Errorf("history length = %d, want 3", e.HistoryLen())
	}

	e.Undo()
	e.Undo()
	if e.Len() != 0 || e.HistoryStep() != 0 {
		t.Errorf("after two undos: len %d step %d, want 0/0", e.Len(), e.HistoryStep())
	}
	if _, ok := e.Selected(); ok {
		t.Error("selection should be cleared when its element is undone away")
	}
}

func TestScenarioReorderSelectionFollows(t *testing.T) {
	e := New(WithResolver(fakeResolver{}))

	if _, err := e.AddImage(context.Background(), "a.png"); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	e.AddText("caption")
	e.Select(0)

	if !e.BringForward() {
		t.Fatal("BringForward failed")
	}
	els := e.Elements()
	if els[0].Kind != scene.KindText || els[1].Kind != scene.KindImage {
		t.Errorf("order = %s,%s; want text,image", els[0].Kind, els[1].Kind)
	}
	if sel, _ := e.Selected(); sel != 1 {
		t.Errorf("selected = %d, want 1", sel)
	}

	if e.BringForward() {
		t.Error("BringForward at the top should be a no-op")
	}
	if !e.SendBackward() {
		t.Error("SendBackward failed")
	}
	if e.SendBackward() {
		t.Error("SendBackward at the bottom should be a no-op")
	}
	if sel, _ := e.Selected(); sel != 0 {
		t.Errorf("selected = %d, want 0", sel)
	}
}

func TestToggleNotRecorded(t *testing.T) {
	e := New(WithResolver(fakeResolver{}))
	index, err := e.AddVideo(context.Background(), "v.mp4")
	if err != nil {
		t.Fatalf("AddVideo: %v", err)
	}

	before := e.HistoryLen()
	if !e.ToggleVideoPlaying(index) {
		t.Fatal("ToggleVideoPlaying failed")
	}
	if e.HistoryLen() != before {
		t.Errorf("history length = %d, want %d", e.HistoryLen(), before)
	}
	el, _ := e.At(index)
	if !el.Playing {
		t.Error("video should be playing")
	}
}

func TestToggleIgnoresNonVideo(t *testing.T) {
	e := New()
	e.AddText("t")
	if e.ToggleVideoPlaying(0) {
		t.Error("toggling a text element should be a no-op")
	}
	if e.ToggleVideoPlaying(5) {
		t.Error("toggling out of range should be a no-op")
	}
}

// ============================================================================
// Add Operations
// ============================================================================

func TestAddDefaults(t *testing.T) {
	e := New(WithResolver(fakeResolver{}))
	ctx := context.Background()

	img, _ := e.AddImage(ctx, "a.png")
	txt, _ := e.AddText("  Hello  ")
	vid, _ := e.AddVideo(ctx, "v.mp4")

	tests := []struct {
		index int
		want  Element
	}{
		{img, Element{Kind: scene.KindImage, X: 50, Y: 50, Width: 320, Height: 200, Src: "a.png"}},
		{txt, Element{Kind: scene.KindText, X: 50, Y: 150, Width: 100, Text: "Hello", FontSize: 24}},
		{vid, Element{Kind: scene.KindVideo, X: 50, Y: 200, Width: 640, Height: 360, Src: "v.mp4"}},
	}
	for _, tt := range tests {
		got, ok := e.At(tt.index)
		if !ok {
			t.Fatalf("At(%d) missing", tt.index)
		}
		if got.ID == "" {
			t.Errorf("element %d has no id", tt.index)
		}
		got.ID = ""
		if got != tt.want {
			t.Errorf("element %d = %+v, want %+v", tt.index, got, tt.want)
		}
	}
}

func TestAddTextBlankIgnored(t *testing.T) {
	e := New()
	if _, ok := e.AddText("   "); ok {
		t.Error("blank text should be ignored")
	}
	if e.HistoryLen() != 1 {
		t.Errorf("history length = %d, want 1", e.HistoryLen())
	}
}

func TestAddErrors(t *testing.T) {
	ctx := context.Background()

	if _, err := New().AddImage(ctx, "a.png"); !errors.Is(err, ErrNoResolver) {
		t.Errorf("AddImage without resolver err = %v", err)
	}
	e := New(WithResolver(fakeResolver{}))
	if _, err := e.AddImage(ctx, ""); !errors.Is(err, ErrEmptySource) {
		t.Errorf("AddImage empty err = %v", err)
	}
	var le *loader.LoadError
	if _, err := e.AddImage(ctx, "missing.png"); !errors.As(err, &le) {
		t.Errorf("AddImage missing err = %v, want LoadError", err)
	}
	if _, err := e.AddElement(Element{Kind: "shape"}); !errors.Is(err, ErrInvalidElement) {
		t.Errorf("AddElement invalid err = %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("failed adds should not change the store, len %d", e.Len())
	}
}

func TestCustomLayout(t *testing.T) {
	l := DefaultLayout()
	l.TextX, l.TextY, l.FontSize = 10, 20, 32
	e := New(WithLayout(l))
	e.AddText("x")

	got, _ := e.At(0)
	if got.X != 10 || got.Y != 20 || got.FontSize != 32 {
		t.Errorf("text = %+v", got)
	}
}

// ============================================================================
// Edit Operations
// ============================================================================

func TestTransformElement(t *testing.T) {
	e := New(WithResolver(fakeResolver{}))
	e.AddImage(context.Background(), "a.png")
	e.AddText("t")

	committed, ok := e.TransformElement(0, Transform{X: 1, Y: 2, Width: 100, Height: 100, ScaleX: 0.01, ScaleY: 2})
	if !ok {
		t.Fatal("TransformElement failed")
	}
	if committed.ScaleX != 1 || committed.ScaleY != 1 {
		t.Errorf("scale = %v,%v; want identity", committed.ScaleX, committed.ScaleY)
	}
	img, _ := e.At(0)
	if img.Width != scene.MinSize || img.Height != 200 || img.X != 1 || img.Y != 2 {
		t.Errorf("image = %+v", img)
	}

	if _, ok := e.TransformElement(1, Transform{X: 0, Y: 0, Width: 300, Height: 999, ScaleX: 1, ScaleY: 1}); !ok {
		t.Fatal("TransformElement text failed")
	}
	txt, _ := e.At(1)
	if txt.Width != 300 || txt.HasHeight() {
		t.Errorf("text = %+v, want width 300 and no height", txt)
	}

	if _, ok := e.TransformElement(9, Transform{Width: 10, Height: 10}); ok {
		t.Error("out-of-range transform should be a no-op")
	}
	if e.HistoryLen() != 5 {
		t.Errorf("history length = %d, want 5", e.HistoryLen())
	}
}

func TestDragElement(t *testing.T) {
	e := New()
	e.AddText("t")
	if !e.DragElement(0, 300, 400) {
		t.Fatal("DragElement failed")
	}
	got, _ := e.At(0)
	if got.X != 300 || got.Y != 400 {
		t.Errorf("position = %v,%v", got.X, got.Y)
	}
	if e.DragElement(3, 0, 0) {
		t.Error("out-of-range drag should be a no-op")
	}
	if e.HistoryLen() != 3 {
		t.Errorf("history length = %d, want 3", e.HistoryLen())
	}
}

func TestSelectNotRecorded(t *testing.T) {
	e := New()
	e.AddText("a")
	e.AddText("b")
	before := e.HistoryLen()

	if !e.Select(1) {
		t.Fatal("Select failed")
	}
	if e.Select(1) {
		t.Error("reselecting should report no change")
	}
	if e.Select(7) {
		t.Error("out-of-range select should be a no-op")
	}
	if sel, _ := e.Selected(); sel != 1 {
		t.Errorf("selected = %d, want 1", sel)
	}
	if !e.ClearSelection() {
		t.Error("ClearSelection should report a change")
	}
	if e.HistoryLen() != before {
		t.Errorf("selection changed history length: %d -> %d", before, e.HistoryLen())
	}
}

func TestSelectByID(t *testing.T) {
	e := New()
	e.AddText("a")
	e.AddText("b")
	el, _ := e.At(1)

	if !e.SelectByID(el.ID) {
		t.Fatal("SelectByID failed")
	}
	if sel, _ := e.Selected(); sel != 1 {
		t.Errorf("selected = %d, want 1", sel)
	}
	if e.SelectByID("nope") {
		t.Error("unknown id should not select")
	}
}

func TestUndoRedo(t *testing.T) {
	e := New()
	e.AddText("a")
	e.AddText("b")

	if !e.CanUndo() || e.CanRedo() {
		t.Fatal("expected CanUndo and not CanRedo")
	}
	e.Undo()
	if e.Len() != 1 || !e.CanRedo() {
		t.Errorf("after undo len = %d", e.Len())
	}
	e.Redo()
	if e.Len() != 2 || e.CanRedo() {
		t.Errorf("after redo len = %d", e.Len())
	}

	e.Undo()
	e.AddText("c")
	if e.CanRedo() {
		t.Error("recording after undo should discard redo states")
	}
	els := e.Elements()
	if len(els) != 2 || els[1].Text != "c" {
		t.Errorf("elements = %v", els)
	}

	for e.Undo() {
	}
	if e.Undo() || e.HistoryStep() != 0 {
		t.Error("undo at the start should be a no-op")
	}
}

func TestMaxUndoEntries(t *testing.T) {
	e := New(WithMaxUndoEntries(3))
	for _, s := range []string{"a", "b", "c", "d"} {
		e.AddText(s)
	}
	if e.HistoryLen() != 3 {
		t.Errorf("history length = %d, want 3", e.HistoryLen())
	}
	e.Undo()
	e.Undo()
	if e.Undo() {
		t.Error("undo past the oldest kept state should fail")
	}
	if e.Len() != 2 {
		t.Errorf("len = %d, want 2", e.Len())
	}
}

// ============================================================================
// Persistence
// ============================================================================

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	snaps := persist.NewSnapshots(persist.NewMemoryStore(), "")

	e := New(WithResolver(fakeResolver{}), WithSnapshots(snaps))
	e.AddImage(ctx, "a.png")
	e.AddText("Hi")
	vid, _ := e.AddVideo(ctx, "v.mp4")
	e.ToggleVideoPlaying(vid)
	e.Select(1)

	want := e.Elements()
	wantLen, wantStep := e.HistoryLen(), e.HistoryStep()

	if _, err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New(WithSnapshots(snaps))
	found, err := loaded.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load = %v, %v", found, err)
	}

	got := loaded.Elements()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		w := want[i]
		w.Playing = false
		if got[i] != w {
			t.Errorf("element %d = %+v, want %+v", i, got[i], w)
		}
	}
	if loaded.HistoryLen() != wantLen || loaded.HistoryStep() != wantStep {
		t.Errorf("history = %d/%d, want %d/%d", loaded.HistoryLen(), loaded.HistoryStep(), wantLen, wantStep)
	}
	if _, ok := loaded.Selected(); ok {
		t.Error("load should clear the selection")
	}
	if !loaded.Undo() || loaded.Len() != 2 {
		t.Errorf("undo after load: len %d, want 2", loaded.Len())
	}
}

func TestLoadNothingSaved(t *testing.T) {
	e := New(WithSnapshots(persist.NewSnapshots(persist.NewMemoryStore(), "")))
	e.AddText("keep")

	found, err := e.Load(context.Background())
	if err != nil || found {
		t.Fatalf("Load = %v, %v; want not found", found, err)
	}
	if e.Len() != 1 {
		t.Error("state should be untouched")
	}
}

func TestSaveWithoutStorage(t *testing.T) {
	if _, err := New().Save(context.Background()); !errors.Is(err, ErrNoStorage) {
		t.Errorf("Save err = %v", err)
	}
	if _, err := New().Load(context.Background()); !errors.Is(err, ErrNoStorage) {
		t.Errorf("Load err = %v", err)
	}
}

// ============================================================================
// Pipeline, surfaces and events
// ============================================================================

func TestEditsHydrateAndRender(t *testing.T) {
	p := hydrate.New(fakeResolver{})
	defer p.Close()

	e := New(WithResolver(fakeResolver{}), WithPipeline(p))
	surface := &recordingSurface{}
	e.Attach(surface)

	e.AddImage(context.Background(), "a.png")
	e.AddText("t")
	if err := e.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	e.Select(1)

	rs := e.Renderables()
	if len(rs) != 2 || rs[0].Image == nil {
		t.Fatalf("renderables = %+v", rs)
	}
	renders, n, sel := surface.snapshot()
	if renders == 0 || n != 2 || sel != 1 {
		t.Errorf("surface renders=%d n=%d selected=%d", renders, n, sel)
	}
}

func TestEngineEvents(t *testing.T) {
	bus := event.NewBus()
	var mu sync.Mutex
	counts := map[event.Topic]int{}
	_, _ = bus.SubscribeFunc("**", func(ctx context.Context, ev any) error {
		tp := ev.(event.TopicProvider)
		mu.Lock()
		counts[tp.EventTopic()]++
		mu.Unlock()
		return nil
	})

	e := New(WithBus(bus))
	e.AddText("a")
	e.Select(0)
	e.MoveSelected(1, 1)
	e.Undo()
	e.Redo()

	mu.Lock()
	defer mu.Unlock()
	want := map[event.Topic]int{
		events.TopicSceneChanged:     4,
		events.TopicHistoryRecorded:  2,
		events.TopicHistoryUndo:      1,
		events.TopicHistoryRedo:      1,
		events.TopicSelectionChanged: 1,
	}
	for topic, n := range want {
		if counts[topic] != n {
			t.Errorf("%s = %d, want %d", topic, counts[topic], n)
		}
	}
}

func TestSelectionEventsWhenCleared(t *testing.T) {
	bus := event.NewBus()
	var mu sync.Mutex
	var got []int
	_, _ = bus.SubscribeFunc(events.TopicSelectionChanged, func(ctx context.Context, ev any) error {
		sel, ok := event.Payload[events.SelectionChanged](ev)
		if !ok {
			t.Errorf("unexpected event %T", ev)
			return nil
		}
		mu.Lock()
		got = append(got, sel.Index)
		mu.Unlock()
		return nil
	})

	ctx := context.Background()
	e := New(WithBus(bus), WithSnapshots(persist.NewSnapshots(persist.NewMemoryStore(), "")))
	e.AddText("a")
	if _, err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e.Select(0)
	if _, err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Nothing selected, so a second load announces nothing.
	if _, err := e.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	e.AddText("b")
	e.Select(1)
	e.Undo()
	// The selection survives an undo that keeps its element.
	e.Select(0)
	e.Redo()

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, NoSelection, 1, NoSelection, 0}
	if len(got) != len(want) {
		t.Fatalf("selection events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("selection events = %v, want %v", got, want)
			break
		}
	}
}

func TestConcurrentEdits(t *testing.T) {
	e := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				e.AddText("x")
				e.Select(0)
				e.MoveSelected(1, 0)
				e.Undo()
			}
		}()
	}
	wg.Wait()

	if step, n := e.HistoryStep(), e.HistoryLen(); step < 0 || step >= n {
		t.Errorf("step %d out of range for %d states", step, n)
	}
}
