package scene

// Add appends e on top of the stack.
func (s Store) Add(e Element) Store {
	next := make([]Element, len(s.elements), len(s.elements)+1)
	copy(next, s.elements)
	s.elements = append(next, e)
	return s
}

// MoveSelected translates the selected element by (dx, dy).
func (s Store) MoveSelected(dx, dy float64) (Store, bool) {
	idx, ok := s.Selected()
	if !ok {
		return s, false
	}
	return s.update(idx, func(e *Element) {
		e.X += dx
		e.Y += dy
	}), true
}

// MoveTo sets the absolute position of the element at index, as reported by
// the end of a drag gesture.
func (s Store) MoveTo(index int, x, y float64) (Store, bool) {
	if !s.valid(index) {
		return s, false
	}
	return s.update(index, func(e *Element) {
		e.X = x
		e.Y = y
	}), true
}

// Reorder swaps the selected element with its neighbour in direction dir.
// The selection follows the moved element.
func (s Store) Reorder(dir Direction) (Store, bool) {
	idx, ok := s.Selected()
	if !ok {
		return s, false
	}
	if dir != Forward && dir != Backward {
		return s, false
	}
	target := idx + int(dir)
	if !s.valid(target) {
		return s, false
	}

	next := Clone(s.elements)
	next[idx], next[target] = next[target], next[idx]
	return Store{elements: next, selected: target + 1}, true
}

// Transform commits the end geometry of a resize gesture to the element at
// index. Width and height are clamped to MinSize; text elements only take
// position and width. The returned Transform is the committed geometry with
// scale reset to identity, ready to be applied back to the surface node.
func (s Store) Transform(index int, t Transform) (Store, Transform, bool) {
	if !s.valid(index) {
		return s, t, false
	}
	width, height := t.effective()
	committed := Transform{X: t.X, Y: t.Y, Width: width, Height: height}.Identity()

	next := s.update(index, func(e *Element) {
		e.X = t.X
		e.Y = t.Y
		e.Width = width
		if e.HasHeight() {
			e.Height = height
		}
	})
	if el := next.elements[index]; !el.HasHeight() {
		committed.Height = 0
	}
	return next, committed, true
}

// TogglePlaying flips the playing flag of the video at index.
// Non-video elements are left unchanged.
func (s Store) TogglePlaying(index int) (Store, bool) {
	if !s.valid(index) || !s.elements[index].IsVideo() {
		return s, false
	}
	return s.update(index, func(e *Element) {
		e.Playing = !e.Playing
	}), true
}

// update returns a store whose element at index has been modified by fn.
func (s Store) update(index int, fn func(*Element)) Store {
	next := Clone(s.elements)
	fn(&next[index])
	s.elements = next
	return s
}
