package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
)

type countingSurface struct {
	redraws atomic.Int64
}

func (s *countingSurface) Redraw() { s.redraws.Add(1) }

func videoHandle(src string) *loader.VideoHandle {
	return loader.NewVideoHandle(src, loader.VideoMeta{Width: 64, Height: 36, Duration: time.Second})
}

func videoRenderable(index int, playing bool, h *loader.VideoHandle) hydrate.Renderable {
	e := scene.NewVideo(0, 0, 64, 36, h.Src)
	e.Playing = playing
	return hydrate.Renderable{Index: index, Element: e, Video: h}
}

func textRenderable(index int) hydrate.Renderable {
	return hydrate.Renderable{Index: index, Element: scene.NewText(0, 0, 100, "t", 24)}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestReconcileStartsDriverForPlayingVideo(t *testing.T) {
	surface := &countingSurface{}
	c := New(surface, WithFPS(500))
	defer c.StopAll()

	h := videoHandle("a.mp4")
	c.Reconcile([]hydrate.Renderable{textRenderable(0), videoRenderable(1, true, h)})

	if got := c.Active(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("Active = %v, want [1]", got)
	}
	if !h.Playing() {
		t.Error("media should be playing")
	}
	eventually(t, func() bool { return surface.redraws.Load() >= 3 })
}

func TestReconcileIsIdempotent(t *testing.T) {
	c := New(&countingSurface{}, WithFPS(500))
	defer c.StopAll()

	h := videoHandle("a.mp4")
	rs := []hydrate.Renderable{videoRenderable(0, true, h)}
	c.Reconcile(rs)
	first, _ := c.Handle(0)
	c.Reconcile(rs)
	second, _ := c.Handle(0)

	if len(c.Active()) != 1 || first != second {
		t.Errorf("reconcile twice should keep a single driver bound to the same handle")
	}
}

func TestReconcileStopsWhenPaused(t *testing.T) {
	surface := &countingSurface{}
	c := New(surface, WithFPS(500))

	h := videoHandle("a.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, h)})
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, false, h)})

	if len(c.Active()) != 0 {
		t.Errorf("Active = %v, want none", c.Active())
	}
	if h.Playing() {
		t.Error("media should be paused")
	}

	// No driver is left ticking.
	before := surface.redraws.Load()
	time.Sleep(20 * time.Millisecond)
	if after := surface.redraws.Load(); after != before {
		t.Errorf("redraws continued after stop: %d -> %d", before, after)
	}
}

func TestReconcileRebindsOnHandleChange(t *testing.T) {
	c := New(&countingSurface{}, WithFPS(500))
	defer c.StopAll()

	oldHandle := videoHandle("a.mp4")
	newHandle := videoHandle("a.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, oldHandle)})
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, newHandle)})

	got, ok := c.Handle(0)
	if !ok || got != newHandle {
		t.Fatal("driver should be bound to the new handle")
	}
	if oldHandle.Playing() {
		t.Error("old media should be paused")
	}
	if !newHandle.Playing() {
		t.Error("new media should be playing")
	}
	if len(c.Active()) != 1 {
		t.Errorf("Active = %v, want one driver", c.Active())
	}
}

func TestReconcileDropsIndicesBeyondLength(t *testing.T) {
	c := New(&countingSurface{}, WithFPS(500))
	defer c.StopAll()

	a, b := videoHandle("a.mp4"), videoHandle("b.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, a), videoRenderable(1, true, b)})
	if len(c.Active()) != 2 {
		t.Fatalf("Active = %v, want two drivers", c.Active())
	}

	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, a)})
	if got := c.Active(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Active = %v, want [0]", got)
	}
	if b.Playing() {
		t.Error("dropped media should be paused")
	}
}

func TestReconcileSkipsUnloadedVideo(t *testing.T) {
	c := New(&countingSurface{})
	defer c.StopAll()

	e := scene.NewVideo(0, 0, 64, 36, "broken.mp4")
	e.Playing = true
	c.Reconcile([]hydrate.Renderable{{Index: 0, Element: e}})

	if len(c.Active()) != 0 {
		t.Errorf("Active = %v, want none", c.Active())
	}
}

func TestStopAll(t *testing.T) {
	c := New(&countingSurface{}, WithFPS(500))
	a, b := videoHandle("a.mp4"), videoHandle("b.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, a), videoRenderable(1, true, b)})

	c.StopAll()
	if len(c.Active()) != 0 {
		t.Errorf("Active = %v, want none", c.Active())
	}
	if a.Playing() || b.Playing() {
		t.Error("all media should be paused")
	}
}

func TestSetFPSRestartsDrivers(t *testing.T) {
	c := New(&countingSurface{}, WithFPS(10))
	defer c.StopAll()

	h := videoHandle("a.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, h)})
	c.SetFPS(500)

	if c.FPS() != 500 {
		t.Errorf("FPS = %d, want 500", c.FPS())
	}
	got, ok := c.Handle(0)
	if !ok || got != h {
		t.Error("driver should stay bound to the same handle")
	}
	eventually(t, func() bool { return c.Ticks() >= 3 })
}

func TestPlaybackEvents(t *testing.T) {
	bus := event.NewBus()
	var started, stopped atomic.Int32
	_, _ = bus.SubscribeFunc("playback.*", func(ctx context.Context, ev any) error {
		switch ev.(event.Event[events.PlaybackChanged]).Type {
		case events.TopicPlaybackStarted:
			started.Add(1)
		case events.TopicPlaybackStopped:
			stopped.Add(1)
		}
		return nil
	})

	c := New(&countingSurface{}, WithBus(bus))
	h := videoHandle("a.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, h)})
	c.StopAll()

	if started.Load() != 1 || stopped.Load() != 1 {
		t.Errorf("started=%d stopped=%d, want 1 and 1", started.Load(), stopped.Load())
	}
}

func TestRedrawFunc(t *testing.T) {
	var n int
	RedrawFunc(func() { n++ }).Redraw()
	if n != 1 {
		t.Errorf("n = %d", n)
	}
}

// gatedResolver holds every video load until release is closed.
type gatedResolver struct {
	release chan struct{}
}

func (r *gatedResolver) LoadImage(ctx context.Context, src string) (*loader.ImageHandle, error) {
	return nil, errors.New("no images")
}

func (r *gatedResolver) LoadVideo(ctx context.Context, src string) (*loader.VideoHandle, error) {
	select {
	case <-r.release:
		return videoHandle(src), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCloseRejectsLatePublication(t *testing.T) {
	res := &gatedResolver{release: make(chan struct{})}
	p := hydrate.New(res)
	defer p.Close()

	surface := &countingSurface{}
	c := New(surface, WithFPS(500))
	p.Subscribe(func(pub hydrate.Publication) {
		c.Reconcile(pub.Renderables)
	})

	e := scene.NewVideo(0, 0, 64, 36, "late.mp4")
	e.Playing = true
	p.Update([]scene.Element{e})

	c.Close()
	close(res.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pub, err := p.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(pub.Renderables) != 1 || pub.Renderables[0].Video == nil {
		t.Fatalf("publication = %+v, want one loaded video", pub.Renderables)
	}

	if got := c.Active(); len(got) != 0 {
		t.Fatalf("Active after Close = %v, want none", got)
	}
	if pub.Renderables[0].Video.Playing() {
		t.Error("media should not start after Close")
	}
	before := surface.redraws.Load()
	time.Sleep(20 * time.Millisecond)
	if after := surface.redraws.Load(); after != before {
		t.Errorf("redraws after Close: %d -> %d", before, after)
	}
}

func TestCloseStopsRunningDrivers(t *testing.T) {
	c := New(&countingSurface{}, WithFPS(500))
	h := videoHandle("a.mp4")
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, h)})

	c.Close()
	if len(c.Active()) != 0 || h.Playing() {
		t.Fatal("Close should stop drivers and pause media")
	}
	c.Reconcile([]hydrate.Renderable{videoRenderable(0, true, h)})
	if len(c.Active()) != 0 {
		t.Error("Reconcile after Close should be a no-op")
	}
	c.SetFPS(60)
	if c.FPS() != 500 {
		t.Errorf("FPS = %d, want unchanged after Close", c.FPS())
	}
}
