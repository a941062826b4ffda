package surface

import "math"

// Viewport maps canvas units to terminal cells.
type Viewport struct {
	CellWidth  float64
	CellHeight float64
}

// DefaultViewport is eight canvas units per column and sixteen per row.
func DefaultViewport() Viewport {
	return Viewport{CellWidth: 8, CellHeight: 16}
}

// Rect is a cell rectangle. Right and Bottom are exclusive.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the rectangle width in cells.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height in cells.
func (r Rect) Height() int { return r.Bottom - r.Top }

// Contains reports whether the cell is inside r.
func (r Rect) Contains(col, row int) bool {
	return col >= r.Left && col < r.Right && row >= r.Top && row < r.Bottom
}

// ToCells converts a canvas rectangle to cells. Every non-empty element
// covers at least one cell.
func (v Viewport) ToCells(x, y, width, height float64) Rect {
	left := int(math.Floor(x / v.CellWidth))
	top := int(math.Floor(y / v.CellHeight))
	right := int(math.Ceil((x + width) / v.CellWidth))
	bottom := int(math.Ceil((y + height) / v.CellHeight))
	if right <= left {
		right = left + 1
	}
	if bottom <= top {
		bottom = top + 1
	}
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Delta converts a cell offset to canvas units.
func (v Viewport) Delta(cols, rows int) (dx, dy float64) {
	return float64(cols) * v.CellWidth, float64(rows) * v.CellHeight
}
