package persist

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/stagecraft/internal/engine/scene"
)

// Snapshot is a saved editor state.
type Snapshot struct {
	Elements    []scene.Element   `json:"elements"`
	History     [][]scene.Element `json:"history"`
	HistoryStep int               `json:"historyStep"`
}

// Encode serialises s.
func Encode(s Snapshot) ([]byte, error) {
	if s.Elements == nil {
		s.Elements = []scene.Element{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a stored payload and normalises it for loading:
// videos are paused, elements without an id get one, a missing history is
// synthesised from the elements and the step is kept within the history.
func Decode(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return Snapshot{}, fmt.Errorf("%w: invalid json", ErrCorruptSnapshot)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Snapshot{}, fmt.Errorf("%w: payload is not an object", ErrCorruptSnapshot)
	}

	var s Snapshot
	if raw := root.Get("elements"); present(raw) {
		if err := json.Unmarshal([]byte(raw.Raw), &s.Elements); err != nil {
			return Snapshot{}, fmt.Errorf("%w: elements: %v", ErrCorruptSnapshot, err)
		}
	}
	if s.Elements == nil {
		s.Elements = []scene.Element{}
	}
	for i := range s.Elements {
		if s.Elements[i].Kind == scene.KindVideo {
			s.Elements[i].Playing = false
		}
	}
	assignIDs(s.Elements)

	hist := root.Get("history")
	hasHistory := present(hist)
	if hasHistory {
		if err := json.Unmarshal([]byte(hist.Raw), &s.History); err != nil {
			return Snapshot{}, fmt.Errorf("%w: history: %v", ErrCorruptSnapshot, err)
		}
		for _, state := range s.History {
			inheritIDs(state, s.Elements)
		}
	}
	if len(s.History) == 0 {
		hasHistory = false
		s.History = [][]scene.Element{scene.Clone(s.Elements)}
	}

	step := root.Get("historyStep")
	switch {
	case present(step) && step.Type == gjson.Number:
		s.HistoryStep = int(step.Int())
	case present(step):
		return Snapshot{}, fmt.Errorf("%w: historyStep is %s", ErrCorruptSnapshot, step.Type)
	case hasHistory:
		s.HistoryStep = len(s.History) - 1
	default:
		s.HistoryStep = 0
	}
	s.HistoryStep = min(max(s.HistoryStep, 0), len(s.History)-1)

	return s, nil
}

// present treats explicit nulls the same as absent fields.
func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func assignIDs(elements []scene.Element) {
	for i := range elements {
		if elements[i].ID == "" {
			elements[i].ID = scene.NewID()
		}
	}
}

// inheritIDs gives id-less history elements the id of the loaded element at
// the same index when the kinds agree, so hit-testing survives undo.
func inheritIDs(state, elements []scene.Element) {
	for i := range state {
		if state[i].ID != "" {
			continue
		}
		if i < len(elements) && elements[i].Kind == state[i].Kind {
			state[i].ID = elements[i].ID
			continue
		}
		state[i].ID = scene.NewID()
	}
}
