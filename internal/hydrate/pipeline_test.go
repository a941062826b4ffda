package hydrate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/loader"
)

// fakeResolver resolves instantly unless a gate is registered for the source.
type fakeResolver struct {
	mu     sync.Mutex
	gates  map[string]chan struct{}
	fail   map[string]error
	active atomic.Int32
	peak   atomic.Int32
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		gates: make(map[string]chan struct{}),
		fail:  make(map[string]error),
	}
}

func (f *fakeResolver) gate(src string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[src] = ch
	return ch
}

func (f *fakeResolver) wait(src string) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	ch := f.gates[src]
	err := f.fail[src]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return err
}

func (f *fakeResolver) LoadImage(ctx context.Context, src string) (*loader.ImageHandle, error) {
	if err := f.wait(src); err != nil {
		return nil, err
	}
	return &loader.ImageHandle{Src: src, Width: 10, Height: 20}, nil
}

func (f *fakeResolver) LoadVideo(ctx context.Context, src string) (*loader.VideoHandle, error) {
	if err := f.wait(src); err != nil {
		return nil, err
	}
	return loader.NewVideoHandle(src, loader.VideoMeta{Width: 64, Height: 36, Duration: time.Second}), nil
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUpdatePublishesRenderables(t *testing.T) {
	p := New(newFakeResolver())
	defer p.Close()

	var got []Publication
	var mu sync.Mutex
	p.Subscribe(func(pub Publication) {
		mu.Lock()
		got = append(got, pub)
		mu.Unlock()
	})

	elements := []scene.Element{
		scene.NewImage(0, 0, 10, 20, "a.png"),
		scene.NewText(0, 0, 100, "hi", 24),
		scene.NewVideo(0, 0, 64, 36, "v.mp4"),
	}
	gen := p.Update(elements)

	pub, err := p.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if pub.Generation != gen {
		t.Errorf("Generation = %d, want %d", pub.Generation, gen)
	}
	if len(pub.Renderables) != 3 {
		t.Fatalf("len = %d, want 3", len(pub.Renderables))
	}
	for i, r := range pub.Renderables {
		if r.Index != i || !r.Ready() || r.Err != nil {
			t.Errorf("renderable %d = %+v", i, r)
		}
	}
	if pub.Renderables[0].Image == nil || pub.Renderables[2].Video == nil {
		t.Error("handles should be resolved")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Generation != gen {
		t.Errorf("subscriber got %d publications", len(got))
	}
}

func TestStalePassIsDiscarded(t *testing.T) {
	res := newFakeResolver()
	slow := res.gate("slow.png")

	bus := event.NewBus()
	var discarded atomic.Int32
	_, _ = bus.SubscribeFunc(events.TopicHydrationDiscarded, func(context.Context, any) error {
		discarded.Add(1)
		return nil
	})

	p := New(res, WithBus(bus))

	var gens []uint64
	var mu sync.Mutex
	p.Subscribe(func(pub Publication) {
		mu.Lock()
		gens = append(gens, pub.Generation)
		mu.Unlock()
	})

	first := p.Update([]scene.Element{scene.NewImage(0, 0, 10, 10, "slow.png")})
	second := p.Update([]scene.Element{scene.NewImage(0, 0, 10, 10, "fast.png")})

	pub, err := p.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if pub.Generation != second {
		t.Fatalf("published generation %d, want %d", pub.Generation, second)
	}

	// The first pass completes after the second has published.
	close(slow)
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(gens) != 1 || gens[0] != second {
		t.Errorf("published generations = %v, want [%d]", gens, second)
	}
	if cur := p.Current(); cur.Generation != second || cur.Renderables[0].Element.Src != "fast.png" {
		t.Errorf("Current = gen %d, src %q", cur.Generation, cur.Renderables[0].Element.Src)
	}
	s := p.Stats()
	if s.Passes != 2 || s.Published != 1 || s.Discarded != 1 {
		t.Errorf("Stats = %+v", s)
	}
	if discarded.Load() != 1 {
		t.Errorf("discarded events = %d, want 1", discarded.Load())
	}
	if first >= second {
		t.Errorf("generations not increasing: %d, %d", first, second)
	}
}

func TestFailedLoadDoesNotFailPass(t *testing.T) {
	res := newFakeResolver()
	res.fail["missing.png"] = errors.New("not found")

	p := New(res)
	defer p.Close()

	p.Update([]scene.Element{
		scene.NewImage(0, 0, 10, 10, "missing.png"),
		scene.NewImage(0, 0, 10, 10, "ok.png"),
	})
	pub, err := p.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if pub.Renderables[0].Err == nil || pub.Renderables[0].Ready() {
		t.Error("missing image should carry an error")
	}
	if pub.Renderables[1].Err != nil || !pub.Renderables[1].Ready() {
		t.Error("ok image should resolve")
	}
	if pub.Failed() != 1 {
		t.Errorf("Failed = %d, want 1", pub.Failed())
	}
}

func TestUnknownKind(t *testing.T) {
	p := New(newFakeResolver())
	defer p.Close()

	p.Update([]scene.Element{{Kind: "shape", Width: 10}})
	pub, _ := p.Wait(waitCtx(t))

	var uk *UnknownKindError
	if !errors.As(pub.Renderables[0].Err, &uk) || uk.Kind != "shape" {
		t.Errorf("Err = %v, want UnknownKindError", pub.Renderables[0].Err)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	res := newFakeResolver()
	gate := make(chan struct{})
	var elements []scene.Element
	for _, src := range []string{"a", "b", "c", "d", "e", "f"} {
		res.gates[src] = gate
		elements = append(elements, scene.NewImage(0, 0, 10, 10, src))
	}

	p := New(res, WithConcurrency(2))
	defer p.Close()
	p.Update(elements)

	deadline := time.Now().Add(time.Second)
	for res.active.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(gate)

	if _, err := p.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if peak := res.peak.Load(); peak > 2 {
		t.Errorf("peak concurrent loads = %d, want <= 2", peak)
	}
}

func TestWaitWithoutUpdate(t *testing.T) {
	p := New(newFakeResolver())
	defer p.Close()

	pub, err := p.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if pub.Generation != 0 || len(pub.Renderables) != 0 {
		t.Errorf("pub = %+v, want empty", pub)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	res := newFakeResolver()
	gate := res.gate("slow.png")
	p := New(res)
	defer func() {
		close(gate)
		p.Close()
	}()

	p.Update([]scene.Element{scene.NewImage(0, 0, 10, 10, "slow.png")})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait err = %v, want deadline exceeded", err)
	}
}

func TestUpdateDoesNotAliasInput(t *testing.T) {
	p := New(newFakeResolver())
	defer p.Close()

	elements := []scene.Element{scene.NewText(1, 2, 100, "a", 24)}
	p.Update(elements)
	elements[0].Text = "changed"

	pub, _ := p.Wait(waitCtx(t))
	if pub.Renderables[0].Element.Text != "a" {
		t.Errorf("Text = %q, want a", pub.Renderables[0].Element.Text)
	}
}
