package history

import (
	"sync"
	"time"

	"github.com/dshills/stagecraft/internal/engine/scene"
)

// Entry is one recorded state with its metadata.
type Entry struct {
	State       []scene.Element
	Description string
	Timestamp   time.Time
}

// Info describes an entry without its state.
type Info struct {
	Description string
	Timestamp   time.Time
}

// History manages the snapshot log and cursor.
type History struct {
	mu sync.Mutex

	entries []Entry
	step    int

	// maxEntries bounds the log length; 0 means unlimited.
	maxEntries int
}

// New creates a history holding the single empty initial state.
// maxEntries <= 0 disables the length bound.
func New(maxEntries int) *History {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &History{
		entries:    []Entry{{State: []scene.Element{}, Description: "Initial", Timestamp: time.Now()}},
		maxEntries: maxEntries,
	}
}

// Record truncates any redoable states, appends state and moves the cursor
// to it.
func (h *History) Record(state []scene.Element, description string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.step+1:h.step+1], Entry{
		State:       scene.Clone(state),
		Description: description,
		Timestamp:   time.Now(),
	})
	h.step = len(h.entries) - 1
	h.enforceLimitLocked()
}

// enforceLimitLocked drops the oldest states beyond maxEntries.
func (h *History) enforceLimitLocked() {
	if h.maxEntries <= 0 || len(h.entries) <= h.maxEntries {
		return
	}
	excess := len(h.entries) - h.maxEntries
	h.entries = append([]Entry(nil), h.entries[excess:]...)
	h.step -= excess
	if h.step < 0 {
		h.step = 0
	}
}

// Undo moves the cursor back one state and returns that state.
// It reports false, leaving the cursor unchanged, when already at the oldest
// state.
func (h *History) Undo() ([]scene.Element, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.step == 0 {
		return nil, false
	}
	h.step--
	return scene.Clone(h.entries[h.step].State), true
}

// Redo moves the cursor forward one state and returns that state.
// It reports false when no redoable state exists.
func (h *History) Redo() ([]scene.Element, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.step >= len(h.entries)-1 {
		return nil, false
	}
	h.step++
	return scene.Clone(h.entries[h.step].State), true
}

// Current returns the state at the cursor.
func (h *History) Current() []scene.Element {
	h.mu.Lock()
	defer h.mu.Unlock()
	return scene.Clone(h.entries[h.step].State)
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.step > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.step < len(h.entries)-1
}

// Len returns the number of stored states.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Step returns the cursor position.
func (h *History) Step() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.step
}

// States returns copies of every stored state, oldest first.
func (h *History) States() [][]scene.Element {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([][]scene.Element, len(h.entries))
	for i, e := range h.entries {
		out[i] = scene.Clone(e.State)
	}
	return out
}

// Restore replaces the log with states and moves the cursor to step.
// An empty states slice resets to the single empty state; an out-of-range
// step is clamped into range.
func (h *History) Restore(states [][]scene.Element, step int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if len(states) == 0 {
		states = [][]scene.Element{{}}
	}
	h.entries = make([]Entry, len(states))
	for i, s := range states {
		h.entries[i] = Entry{State: scene.Clone(s), Description: "Restored", Timestamp: now}
	}
	h.step = clampStep(step, len(h.entries))
	h.enforceLimitLocked()
}

// Clear resets to the single empty initial state.
func (h *History) Clear() {
	h.Restore(nil, 0)
}

// UndoInfo describes the states reachable by undo, oldest first.
func (h *History) UndoInfo() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.entries[1 : h.step+1])
}

// RedoInfo describes the states reachable by redo, nearest first.
func (h *History) RedoInfo() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.entries[h.step+1:])
}

// PeekUndo describes the edit the next undo would revert.
func (h *History) PeekUndo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.step == 0 {
		return Info{}, false
	}
	e := h.entries[h.step]
	return Info{Description: e.Description, Timestamp: e.Timestamp}, true
}

// PeekRedo describes the edit the next redo would reapply.
func (h *History) PeekRedo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.step >= len(h.entries)-1 {
		return Info{}, false
	}
	e := h.entries[h.step+1]
	return Info{Description: e.Description, Timestamp: e.Timestamp}, true
}

// SetMaxEntries changes the length bound, dropping the oldest states if the
// log is already longer.
func (h *History) SetMaxEntries(max int) {
	if max < 0 {
		max = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxEntries = max
	h.enforceLimitLocked()
}

// MaxEntries returns the length bound (0 = unlimited).
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}

func infos(entries []Entry) []Info {
	out := make([]Info, len(entries))
	for i, e := range entries {
		out[i] = Info{Description: e.Description, Timestamp: e.Timestamp}
	}
	return out
}

func clampStep(step, length int) int {
	if step < 0 {
		return 0
	}
	if step >= length {
		return length - 1
	}
	return step
}
