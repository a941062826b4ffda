package scene

// NoSelection is the selection index of a store with nothing selected.
const NoSelection = -1

// Direction is a z-order reorder direction.
type Direction int

const (
	// Forward moves an element one step toward the top of the stack.
	Forward Direction = 1
	// Backward moves an element one step toward the bottom of the stack.
	Backward Direction = -1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// Store is the ordered element sequence plus the selection index.
// The zero value is an empty store with nothing selected.
//
// Store is a value type: every edit returns a new Store and never mutates
// the receiver's backing array.
type Store struct {
	elements []Element
	// selected holds index+1 so the zero value means no selection.
	selected int
}

// NewStore creates a store holding a copy of elements with nothing selected.
func NewStore(elements []Element) Store {
	return Store{elements: Clone(elements)}
}

// Len returns the number of elements.
func (s Store) Len() int {
	return len(s.elements)
}

// Elements returns a copy of the element sequence.
func (s Store) Elements() []Element {
	return Clone(s.elements)
}

// At returns the element at index.
func (s Store) At(index int) (Element, bool) {
	if !s.valid(index) {
		return Element{}, false
	}
	return s.elements[index], true
}

// IndexOf returns the index of the element with the given ID.
func (s Store) IndexOf(id string) (int, bool) {
	if id == "" {
		return NoSelection, false
	}
	for i, e := range s.elements {
		if e.ID == id {
			return i, true
		}
	}
	return NoSelection, false
}

// Selected returns the selected index and whether a selection exists.
func (s Store) Selected() (int, bool) {
	if s.selected == 0 {
		return NoSelection, false
	}
	return s.selected - 1, true
}

// SelectedIndex returns the selected index or NoSelection.
func (s Store) SelectedIndex() int {
	idx, _ := s.Selected()
	return idx
}

// SelectedElement returns the selected element, if any.
func (s Store) SelectedElement() (Element, bool) {
	idx, ok := s.Selected()
	if !ok {
		return Element{}, false
	}
	return s.At(idx)
}

// WithElements replaces the element sequence, keeping the selection only if
// it still indexes an element.
func (s Store) WithElements(elements []Element) Store {
	next := Store{elements: Clone(elements), selected: s.selected}
	if idx, ok := next.Selected(); ok && !next.valid(idx) {
		next.selected = 0
	}
	return next
}

// Select selects the element at index. Out-of-range indices are ignored.
func (s Store) Select(index int) (Store, bool) {
	if !s.valid(index) {
		return s, false
	}
	if s.selected == index+1 {
		return s, false
	}
	s.selected = index + 1
	return s, true
}

// ClearSelection removes the selection.
func (s Store) ClearSelection() (Store, bool) {
	if s.selected == 0 {
		return s, false
	}
	s.selected = 0
	return s, true
}

func (s Store) valid(index int) bool {
	return index >= 0 && index < len(s.elements)
}

// Clone returns a copy of the element slice. A nil slice clones to an empty
// non-nil slice so snapshots always serialize as arrays.
func Clone(elements []Element) []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

// Equal reports whether two element sequences are identical.
func Equal(a, b []Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
