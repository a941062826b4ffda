package surface

import "github.com/gdamore/tcell/v2"

// ResizeStep is the canvas-unit size change for one +/- key press.
const ResizeStep = 10.0

// Translate converts a screen event into an edit request.
// Mouse selection fires on the press edge only.
func (t *Terminal) Translate(ev tcell.Event) Action {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return t.translateKey(e)
	case *tcell.EventMouse:
		return t.translateMouse(e)
	case *tcell.EventResize:
		t.mu.Lock()
		t.screen.Sync()
		t.mu.Unlock()
		t.Redraw()
		return Action{Kind: ActionRepaint}
	}
	return Action{}
}

func (t *Terminal) translateKey(e *tcell.EventKey) Action {
	step := 1
	if e.Modifiers()&tcell.ModShift != 0 {
		step = 4
	}

	switch e.Key() {
	case tcell.KeyUp:
		return t.move(0, -step)
	case tcell.KeyDown:
		return t.move(0, step)
	case tcell.KeyLeft:
		return t.move(-step, 0)
	case tcell.KeyRight:
		return t.move(step, 0)
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Action{Kind: ActionQuit}
	case tcell.KeyCtrlL:
		t.Redraw()
		return Action{Kind: ActionRepaint}
	case tcell.KeyRune:
	default:
		return Action{}
	}

	switch e.Rune() {
	case 'q':
		return Action{Kind: ActionQuit}
	case 'f':
		return Action{Kind: ActionForward}
	case 'b':
		return Action{Kind: ActionBackward}
	case '+', '=':
		return Action{Kind: ActionResize, DX: ResizeStep, DY: ResizeStep}
	case '-', '_':
		return Action{Kind: ActionResize, DX: -ResizeStep, DY: -ResizeStep}
	case ' ':
		return Action{Kind: ActionToggle}
	case 'u':
		return Action{Kind: ActionUndo}
	case 'r':
		return Action{Kind: ActionRedo}
	case 's':
		return Action{Kind: ActionSave}
	case 'l':
		return Action{Kind: ActionLoad}
	}
	return Action{}
}

func (t *Terminal) move(cols, rows int) Action {
	t.mu.Lock()
	dx, dy := t.viewport.Delta(cols, rows)
	t.mu.Unlock()
	return Action{Kind: ActionMove, DX: dx, DY: dy}
}

func (t *Terminal) translateMouse(e *tcell.EventMouse) Action {
	buttons := e.Buttons()

	t.mu.Lock()
	pressed := buttons&tcell.Button1 != 0 && t.lastButtons&tcell.Button1 == 0
	t.lastButtons = buttons
	t.mu.Unlock()

	if !pressed {
		return Action{}
	}
	col, row := e.Position()
	if id, ok := t.HitTest(col, row); ok {
		return Action{Kind: ActionSelect, ID: id}
	}
	return Action{Kind: ActionClearSelection}
}
