package script

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stagecraft/internal/engine"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/persist"
)

// Editor is the edit surface scripts drive. *engine.Engine implements it.
type Editor interface {
	Len() int
	At(index int) (engine.Element, bool)
	Selected() (int, bool)

	AddText(text string) (int, bool)
	AddImage(ctx context.Context, src string) (int, error)
	AddVideo(ctx context.Context, src string) (int, error)

	Select(index int) bool
	SelectByID(id string) bool
	ClearSelection() bool
	MoveSelected(dx, dy float64) bool
	DragElement(index int, x, y float64) bool
	BringForward() bool
	SendBackward() bool
	TransformElement(index int, t engine.Transform) (engine.Transform, bool)
	ToggleVideoPlaying(index int) bool

	Undo() bool
	Redo() bool
	HistoryLen() int
	HistoryStep() int

	Save(ctx context.Context) (persist.Record, error)
	Load(ctx context.Context) (bool, error)
	Wait(ctx context.Context) error
}

// Exporter writes the current view to an image file.
type Exporter interface {
	Export(ctx context.Context, path string) error
}

// ExportFunc adapts a function to Exporter.
type ExportFunc func(ctx context.Context, path string) error

// Export calls f.
func (f ExportFunc) Export(ctx context.Context, path string) error {
	return f(ctx, path)
}

func (s *State) canvasFuncs() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"add_text":        s.addText,
		"add_image":       s.addMedia(s.editor.AddImage),
		"add_video":       s.addMedia(s.editor.AddVideo),
		"select":          s.selectIndex,
		"select_id":       s.selectID,
		"clear_selection": s.clearSelection,
		"selected":        s.selected,
		"move":            s.move,
		"drag":            s.drag,
		"forward":         s.boolCall(s.editor.BringForward),
		"backward":        s.boolCall(s.editor.SendBackward),
		"transform":       s.transform,
		"toggle":          s.toggle,
		"undo":            s.boolCall(s.editor.Undo),
		"redo":            s.boolCall(s.editor.Redo),
		"count":           s.count,
		"history":         s.history,
		"element":         s.element,
		"elements":        s.elements,
		"save":            s.save,
		"load":            s.load,
		"wait":            s.wait,
		"export":          s.export,
	}
}

// ctx returns the context of the running chunk.
func ctx(L *lua.LState) context.Context {
	if c := L.Context(); c != nil {
		return c
	}
	return context.Background()
}

// index reads a 1-based Lua index and returns the 0-based store index.
func index(L *lua.LState, n int) int {
	return L.CheckInt(n) - 1
}

func fail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func (s *State) boolCall(fn func() bool) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LBool(fn()))
		return 1
	}
}

func (s *State) addText(L *lua.LState) int {
	i, ok := s.editor.AddText(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(i + 1))
	return 1
}

func (s *State) addMedia(add func(context.Context, string) (int, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		src, err := loader.Durable(L.CheckString(1))
		if err != nil {
			return fail(L, err)
		}
		i, err := add(ctx(L), src)
		if err != nil {
			return fail(L, err)
		}
		L.Push(lua.LNumber(i + 1))
		return 1
	}
}

func (s *State) selectIndex(L *lua.LState) int {
	L.Push(lua.LBool(s.editor.Select(index(L, 1))))
	return 1
}

func (s *State) selectID(L *lua.LState) int {
	L.Push(lua.LBool(s.editor.SelectByID(L.CheckString(1))))
	return 1
}

func (s *State) clearSelection(L *lua.LState) int {
	L.Push(lua.LBool(s.editor.ClearSelection()))
	return 1
}

func (s *State) selected(L *lua.LState) int {
	i, ok := s.editor.Selected()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(i + 1))
	return 1
}

func (s *State) move(L *lua.LState) int {
	dx := float64(L.CheckNumber(1))
	dy := float64(L.CheckNumber(2))
	L.Push(lua.LBool(s.editor.MoveSelected(dx, dy)))
	return 1
}

func (s *State) drag(L *lua.LState) int {
	i := index(L, 1)
	x := float64(L.CheckNumber(2))
	y := float64(L.CheckNumber(3))
	L.Push(lua.LBool(s.editor.DragElement(i, x, y)))
	return 1
}

func (s *State) transform(L *lua.LState) int {
	i := index(L, 1)
	tbl := L.CheckTable(2)

	current, ok := s.editor.At(i)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	t := engine.Transform{
		X:      number(tbl, "x", current.X),
		Y:      number(tbl, "y", current.Y),
		Width:  number(tbl, "width", current.Width),
		Height: number(tbl, "height", current.Height),
		ScaleX: number(tbl, "scale_x", 1),
		ScaleY: number(tbl, "scale_y", 1),
	}
	committed, ok := s.editor.TransformElement(i, t)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	out := L.NewTable()
	out.RawSetString("x", lua.LNumber(committed.X))
	out.RawSetString("y", lua.LNumber(committed.Y))
	out.RawSetString("width", lua.LNumber(committed.Width))
	out.RawSetString("height", lua.LNumber(committed.Height))
	L.Push(out)
	return 1
}

func number(tbl *lua.LTable, key string, def float64) float64 {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func (s *State) toggle(L *lua.LState) int {
	L.Push(lua.LBool(s.editor.ToggleVideoPlaying(index(L, 1))))
	return 1
}

func (s *State) count(L *lua.LState) int {
	L.Push(lua.LNumber(s.editor.Len()))
	return 1
}

func (s *State) history(L *lua.LState) int {
	L.Push(lua.LNumber(s.editor.HistoryStep() + 1))
	L.Push(lua.LNumber(s.editor.HistoryLen()))
	return 2
}

func (s *State) element(L *lua.LState) int {
	el, ok := s.editor.At(index(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(elementTable(L, el))
	return 1
}

func (s *State) elements(L *lua.LState) int {
	out := L.NewTable()
	for i := 0; i < s.editor.Len(); i++ {
		if el, ok := s.editor.At(i); ok {
			out.Append(elementTable(L, el))
		}
	}
	L.Push(out)
	return 1
}

func elementTable(L *lua.LState, el engine.Element) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(el.ID))
	t.RawSetString("type", lua.LString(string(el.Kind)))
	t.RawSetString("x", lua.LNumber(el.X))
	t.RawSetString("y", lua.LNumber(el.Y))
	t.RawSetString("width", lua.LNumber(el.Width))
	if el.HasHeight() {
		t.RawSetString("height", lua.LNumber(el.Height))
	}
	if el.HasSource() {
		t.RawSetString("src", lua.LString(el.Src))
	}
	if el.Text != "" {
		t.RawSetString("text", lua.LString(el.Text))
		t.RawSetString("font_size", lua.LNumber(el.FontSize))
	}
	if el.IsVideo() {
		t.RawSetString("playing", lua.LBool(el.Playing))
	}
	return t
}

func (s *State) save(L *lua.LState) int {
	rec, err := s.editor.Save(ctx(L))
	if err != nil {
		return fail(L, err)
	}
	s.logger.Info("script saved revision %s", rec.Revision)
	L.Push(lua.LString(rec.Revision))
	return 1
}

func (s *State) load(L *lua.LState) int {
	found, err := s.editor.Load(ctx(L))
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LBool(found))
	return 1
}

func (s *State) wait(L *lua.LState) int {
	if err := s.editor.Wait(ctx(L)); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (s *State) export(L *lua.LState) int {
	path := L.CheckString(1)
	if s.exporter == nil {
		return fail(L, ErrNoExporter)
	}
	if err := s.exporter.Export(ctx(L), path); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}
