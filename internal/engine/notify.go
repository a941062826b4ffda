package engine

import (
	"context"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/event"
	"github.com/dshills/stagecraft/internal/event/events"
	"github.com/dshills/stagecraft/internal/hydrate"
)

// notice carries what changed out of the critical section.
type notice struct {
	op           string
	count        int
	selected     int
	recorded     bool
	historyTopic event.Topic
	step         int
	length       int
}

// commitLocked installs next, records it when asked and starts hydration.
// Caller must hold e.mu.
func (e *Engine) commitLocked(next scene.Store, desc string, record bool) notice {
	e.store = next
	elements := next.Elements()

	n := notice{
		op:       desc,
		count:    len(elements),
		selected: next.SelectedIndex(),
		recorded: record,
	}
	if record {
		e.history.Record(elements, desc)
		n.historyTopic = events.TopicHistoryRecorded
	}
	n.step = e.history.Step()
	n.length = e.history.Len()

	if e.pipeline != nil {
		e.pipeline.Update(elements)
	}
	return n
}

func (e *Engine) notify(n notice) {
	e.logger.Debug("%s: %d elements, history %d/%d", n.op, n.count, n.step, n.length)

	e.publish(event.New(events.TopicSceneChanged, events.SceneChanged{
		Operation: n.op,
		Count:     n.count,
		Selected:  n.selected,
		Recorded:  n.recorded,
	}, "engine"))

	if n.historyTopic != "" {
		e.publish(event.New(n.historyTopic, events.HistoryChanged{
			Description: n.op,
			Step:        n.step,
			Len:         n.length,
		}, "engine"))
	}
}

func (e *Engine) publish(ev any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(context.Background(), ev); err != nil {
		e.logger.Warn("publish event: %v", err)
	}
}

func (e *Engine) selectionChanged(index int, id string) {
	e.publish(event.New(events.TopicSelectionChanged, events.SelectionChanged{
		Index: index,
		ID:    id,
	}, "engine"))

	if e.pipeline != nil {
		e.render(e.pipeline.Current().Renderables, index)
	}
}

// ============================================================================
// Render surfaces
// ============================================================================

// Attach registers s to receive every published view. If a view has already
// been published it is rendered immediately.
func (e *Engine) Attach(s Surface) {
	e.surfaceMu.Lock()
	e.surfaces = append(e.surfaces, s)
	e.surfaceMu.Unlock()

	if e.pipeline != nil {
		if pub := e.pipeline.Current(); pub.Generation > 0 {
			sel, _ := e.Selected()
			s.Render(pub.Renderables, sel)
		}
	}
}

// Renderables returns the latest published view.
func (e *Engine) Renderables() []hydrate.Renderable {
	if e.pipeline == nil {
		return nil
	}
	return e.pipeline.Current().Renderables
}

// Wait blocks until the view for the latest edit has been published.
func (e *Engine) Wait(ctx context.Context) error {
	if e.pipeline == nil {
		return nil
	}
	_, err := e.pipeline.Wait(ctx)
	return err
}

func (e *Engine) onPublish(pub hydrate.Publication) {
	sel, _ := e.Selected()
	e.render(pub.Renderables, sel)
}

func (e *Engine) render(renderables []hydrate.Renderable, selected int) {
	e.surfaceMu.RLock()
	surfaces := append([]Surface(nil), e.surfaces...)
	e.surfaceMu.RUnlock()

	for _, s := range surfaces {
		s.Render(renderables, selected)
	}
}
