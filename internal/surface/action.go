package surface

// ActionKind identifies an edit request produced by user input.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionQuit
	ActionMove
	ActionForward
	ActionBackward
	ActionResize
	ActionToggle
	ActionUndo
	ActionRedo
	ActionSave
	ActionLoad
	ActionSelect
	ActionClearSelection
	ActionRepaint
)

// String returns the action name.
func (k ActionKind) String() string {
	switch k {
	case ActionQuit:
		return "quit"
	case ActionMove:
		return "move"
	case ActionForward:
		return "forward"
	case ActionBackward:
		return "backward"
	case ActionResize:
		return "resize"
	case ActionToggle:
		return "toggle"
	case ActionUndo:
		return "undo"
	case ActionRedo:
		return "redo"
	case ActionSave:
		return "save"
	case ActionLoad:
		return "load"
	case ActionSelect:
		return "select"
	case ActionClearSelection:
		return "clear-selection"
	case ActionRepaint:
		return "repaint"
	default:
		return "none"
	}
}

// Action is an edit request. DX and DY are canvas units for ActionMove and a
// size delta for ActionResize. ID names the element for ActionSelect.
type Action struct {
	Kind ActionKind
	DX   float64
	DY   float64
	ID   string
}
