package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/stagecraft/internal/engine/history"
	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/hydrate"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/persist"
)

// Re-export commonly used types for convenience.
type (
	// Element is one placed visual object.
	Element = scene.Element

	// Transform is the geometry reported at the end of a resize gesture.
	Transform = scene.Transform

	// Direction is a z-order reorder direction.
	Direction = scene.Direction
)

// Re-export constants.
const (
	Forward  = scene.Forward
	Backward = scene.Backward

	NoSelection = scene.NoSelection
)

// Logger is the logging surface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// Surface is a render surface fed by the engine.
type Surface interface {
	// Render draws a published view with the given selection index.
	Render(renderables []hydrate.Renderable, selected int)
	// Redraw repaints the last rendered view.
	Redraw()
}

// Engine is the edit-operations facade over the element store and history.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Engine struct {
	mu sync.RWMutex

	// Core components
	store   scene.Store
	history *history.History

	// Collaborators
	resolver  loader.Resolver
	pipeline  *hydrate.Pipeline
	snapshots *persist.Snapshots
	bus       *event.Bus
	logger    Logger

	surfaceMu sync.RWMutex
	surfaces  []Surface

	// Configuration
	layout         Layout
	maxUndoEntries int
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:         nopLogger{},
		layout:         DefaultLayout(),
		maxUndoEntries: DefaultMaxUndoEntries,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.history = history.New(e.maxUndoEntries)
	if e.pipeline != nil {
		e.pipeline.Subscribe(e.onPublish)
	}
	return e
}

// ============================================================================
// Read Operations
// ============================================================================

// Elements returns a copy of the current element sequence.
func (e *Engine) Elements() []Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Elements()
}

// Len returns the number of elements.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Len()
}

// At returns the element at index.
func (e *Engine) At(index int) (Element, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.At(index)
}

// Store returns the current store value.
func (e *Engine) Store() scene.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// Selected returns the selected index and whether a selection exists.
func (e *Engine) Selected() (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Selected()
}

// Layout returns the placement used for new elements.
func (e *Engine) Layout() Layout {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layout
}

// SetLayout changes the placement used for new elements.
func (e *Engine) SetLayout(l Layout) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layout = l
}

// ============================================================================
// Add Operations
// ============================================================================

// AddElement appends el on top of the z-order and records it.
// Elements without an ID are assigned one. Returns the new index.
func (e *Engine) AddElement(el Element) (int, error) {
	if !el.Kind.Valid() {
		return NoSelection, fmt.Errorf("%w: kind %q", ErrInvalidElement, string(el.Kind))
	}
	if el.ID == "" {
		el.ID = scene.NewID()
	}

	e.mu.Lock()
	next := e.store.Add(el)
	index := next.Len() - 1
	n := e.commitLocked(next, "Add "+string(el.Kind), true)
	e.mu.Unlock()

	e.notify(n)
	return index, nil
}

// AddText adds a text element at the default text position.
// Blank text is ignored and reported as false.
func (e *Engine) AddText(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoSelection, false
	}
	l := e.Layout()
	index, err := e.AddElement(scene.NewText(l.TextX, l.TextY, l.TextWidth, text, l.FontSize))
	return index, err == nil
}

// AddImage resolves src to learn its natural size and adds an image element
// of that size at the default image position.
func (e *Engine) AddImage(ctx context.Context, src string) (int, error) {
	if strings.TrimSpace(src) == "" {
		return NoSelection, ErrEmptySource
	}
	if e.resolver == nil {
		return NoSelection, ErrNoResolver
	}
	img, err := e.resolver.LoadImage(ctx, src)
	if err != nil {
		return NoSelection, err
	}
	w, h := img.NaturalSize()
	l := e.Layout()
	return e.AddElement(scene.NewImage(l.ImageX, l.ImageY, w, h, src))
}

// AddVideo resolves src to learn its natural size and adds a paused video
// element of that size at the default video position.
func (e *Engine) AddVideo(ctx context.Context, src string) (int, error) {
	if strings.TrimSpace(src) == "" {
		return NoSelection, ErrEmptySource
	}
	if e.resolver == nil {
		return NoSelection, ErrNoResolver
	}
	vid, err := e.resolver.LoadVideo(ctx, src)
	if err != nil {
		return NoSelection, err
	}
	w, h := vid.NaturalSize()
	l := e.Layout()
	return e.AddElement(scene.NewVideo(l.VideoX, l.VideoY, w, h, src))
}

// ============================================================================
// Edit Operations
// ============================================================================

// MoveSelected translates the selected element. No-op without a selection.
func (e *Engine) MoveSelected(dx, dy float64) bool {
	e.mu.Lock()
	next, ok := e.store.MoveSelected(dx, dy)
	if !ok {
		e.mu.Unlock()
		return false
	}
	n := e.commitLocked(next, "Move", true)
	e.mu.Unlock()

	e.notify(n)
	return true
}

// DragElement commits the drag-end position of the element at index.
func (e *Engine) DragElement(index int, x, y float64) bool {
	e.mu.Lock()
	next, ok := e.store.MoveTo(index, x, y)
	if !ok {
		e.mu.Unlock()
		return false
	}
	n := e.commitLocked(next, "Drag", true)
	e.mu.Unlock()

	e.notify(n)
	return true
}

// Reorder swaps the selected element with its neighbour in dir.
// The selection follows the moved element. No-op at the boundary.
func (e *Engine) Reorder(dir Direction) bool {
	e.mu.Lock()
	next, ok := e.store.Reorder(dir)
	if !ok {
		e.mu.Unlock()
		return false
	}
	n := e.commitLocked(next, "Reorder "+dir.String(), true)
	e.mu.Unlock()

	e.notify(n)
	return true
}

// BringForward moves the selected element one step up the z-order.
func (e *Engine) BringForward() bool {
	return e.Reorder(Forward)
}

// SendBackward moves the selected element one step down the z-order.
func (e *Engine) SendBackward() bool {
	return e.Reorder(Backward)
}

// TransformElement commits the end of a resize gesture on the element at
// index and returns the committed geometry, whose scale is always identity.
func (e *Engine) TransformElement(index int, t Transform) (Transform, bool) {
	e.mu.Lock()
	next, committed, ok := e.store.Transform(index, t)
	if !ok {
		e.mu.Unlock()
		return t, false
	}
	n := e.commitLocked(next, "Transform", true)
	e.mu.Unlock()

	e.notify(n)
	return committed, true
}

// ToggleVideoPlaying flips the playing flag of the video at index.
// The toggle is not recorded in history.
func (e *Engine) ToggleVideoPlaying(index int) bool {
	e.mu.Lock()
	next, ok := e.store.TogglePlaying(index)
	if !ok {
		e.mu.Unlock()
		return false
	}
	n := e.commitLocked(next, "Toggle playback", false)
	e.mu.Unlock()

	e.notify(n)
	return true
}

// ============================================================================
// Selection
// ============================================================================

// Select selects the element at index. Out-of-range indices are ignored.
func (e *Engine) Select(index int) bool {
	e.mu.Lock()
	next, ok := e.store.Select(index)
	if ok {
		e.store = next
	}
	sel := e.store.SelectedIndex()
	el, _ := e.store.At(sel)
	e.mu.Unlock()

	if ok {
		e.selectionChanged(sel, el.ID)
	}
	return ok
}

// SelectByID selects the element with the given ID.
func (e *Engine) SelectByID(id string) bool {
	e.mu.RLock()
	index, ok := e.store.IndexOf(id)
	e.mu.RUnlock()
	if !ok {
		return false
	}
	return e.Select(index)
}

// ClearSelection removes the selection.
func (e *Engine) ClearSelection() bool {
	e.mu.Lock()
	next, ok := e.store.ClearSelection()
	e.store = next
	e.mu.Unlock()

	if ok {
		e.selectionChanged(NoSelection, "")
	}
	return ok
}

// ============================================================================
// Undo/Redo
// ============================================================================

// Undo restores the previous snapshot. A selection that no longer indexes
// an element is cleared.
func (e *Engine) Undo() bool {
	return e.step(e.history.Undo, events.TopicHistoryUndo, "Undo")
}

// Redo restores the next snapshot.
func (e *Engine) Redo() bool {
	return e.step(e.history.Redo, events.TopicHistoryRedo, "Redo")
}

func (e *Engine) step(move func() ([]Element, bool), topic event.Topic, desc string) bool {
	e.mu.Lock()
	state, ok := move()
	if !ok {
		e.mu.Unlock()
		return false
	}
	prev := e.store.SelectedIndex()
	n := e.commitLocked(e.store.WithElements(state), desc, false)
	n.historyTopic = topic
	e.mu.Unlock()

	e.notify(n)
	if prev != NoSelection && n.selected == NoSelection {
		e.selectionChanged(NoSelection, "")
	}
	return true
}

// CanUndo returns true if there are operations to undo.
func (e *Engine) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo returns true if there are operations to redo.
func (e *Engine) CanRedo() bool {
	return e.history.CanRedo()
}

// HistoryLen returns the number of recorded snapshots.
func (e *Engine) HistoryLen() int {
	return e.history.Len()
}

// HistoryStep returns the history cursor.
func (e *Engine) HistoryStep() int {
	return e.history.Step()
}

// History returns the underlying history for inspection.
func (e *Engine) History() *history.History {
	return e.history
}

// ============================================================================
// Persistence
// ============================================================================

// Snapshot captures the elements and the full history.
func (e *Engine) Snapshot() persist.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return persist.Snapshot{
		Elements:    e.store.Elements(),
		History:     e.history.States(),
		HistoryStep: e.history.Step(),
	}
}

// Restore replaces the elements and history with snap and clears the
// selection.
func (e *Engine) Restore(snap persist.Snapshot) {
	e.mu.Lock()
	prev := e.store.SelectedIndex()
	e.history.Restore(snap.History, snap.HistoryStep)
	n := e.commitLocked(scene.NewStore(snap.Elements), "Restore", false)
	e.mu.Unlock()

	e.notify(n)
	if prev != NoSelection {
		e.selectionChanged(NoSelection, "")
	}
}

// Save stores the current snapshot.
func (e *Engine) Save(ctx context.Context) (persist.Record, error) {
	if e.snapshots == nil {
		return persist.Record{}, ErrNoStorage
	}
	rec, err := e.snapshots.Save(ctx, e.Snapshot())
	if err != nil {
		return persist.Record{}, fmt.Errorf("save snapshot: %w", err)
	}
	e.logger.Info("saved %s revision %s", rec.Key, rec.Revision)
	e.publish(event.New(events.TopicSnapshotSaved, events.SnapshotStored{
		Key:      rec.Key,
		Elements: e.Len(),
		Revision: rec.Revision,
	}, "engine"))
	return rec, nil
}

// Load restores the stored snapshot. It reports false when nothing has been
// saved; the current state is left untouched in that case.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	if e.snapshots == nil {
		return false, ErrNoStorage
	}
	snap, rec, found, err := e.snapshots.Load(ctx)
	if err != nil {
		return found, fmt.Errorf("load snapshot: %w", err)
	}
	if !found {
		return false, nil
	}

	e.Restore(snap)
	e.logger.Info("loaded %s revision %s", rec.Key, rec.Revision)
	e.publish(event.New(events.TopicSnapshotLoaded, events.SnapshotStored{
		Key:      rec.Key,
		Elements: len(snap.Elements),
		Revision: rec.Revision,
	}, "engine"))
	return true, nil
}
