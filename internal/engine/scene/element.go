package scene

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// MinSize is the smallest width or height a resize may produce.
const MinSize = 5.0

// Kind identifies the element variant.
type Kind string

const (
	// KindImage is a raster image element.
	KindImage Kind = "image"
	// KindText is a text element.
	KindText Kind = "text"
	// KindVideo is a video element.
	KindVideo Kind = "video"
)

// Valid reports whether k is a known element kind.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindText, KindVideo:
		return true
	default:
		return false
	}
}

// Element is one placed visual object.
// Fields that do not apply to the element's Kind are left zero.
type Element struct {
	ID       string  `json:"id,omitempty"`
	Kind     Kind    `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height,omitempty"`
	Src      string  `json:"src,omitempty"`
	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
	Playing  bool    `json:"playing,omitempty"`
}

// NewImage creates an image element with a fresh ID.
func NewImage(x, y, width, height float64, src string) Element {
	return Element{
		ID:     NewID(),
		Kind:   KindImage,
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
		Src:    src,
	}
}

// NewText creates a text element with a fresh ID.
func NewText(x, y, width float64, text string, fontSize float64) Element {
	return Element{
		ID:       NewID(),
		Kind:     KindText,
		X:        x,
		Y:        y,
		Width:    width,
		Text:     text,
		FontSize: fontSize,
	}
}

// NewVideo creates a stopped video element with a fresh ID.
func NewVideo(x, y, width, height float64, src string) Element {
	return Element{
		ID:     NewID(),
		Kind:   KindVideo,
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
		Src:    src,
	}
}

// NewID returns a new stable element identifier.
func NewID() string {
	return uuid.NewString()
}

// HasHeight reports whether the element stores an explicit height.
func (e Element) HasHeight() bool {
	return e.Kind != KindText
}

// HasSource reports whether the element references an external resource.
func (e Element) HasSource() bool {
	return e.Kind == KindImage || e.Kind == KindVideo
}

// IsVideo reports whether the element is a video.
func (e Element) IsVideo() bool {
	return e.Kind == KindVideo
}

// Bounds returns the element rectangle. Text elements report a height
// derived from the font size since their height is implicit.
func (e Element) Bounds() (x, y, width, height float64) {
	if e.Kind == KindText {
		h := e.FontSize
		if h < MinSize {
			h = MinSize
		}
		return e.X, e.Y, e.Width, h
	}
	return e.X, e.Y, e.Width, e.Height
}

// Contains reports whether the point lies inside the element bounds.
func (e Element) Contains(px, py float64) bool {
	x, y, w, h := e.Bounds()
	return px >= x && px < x+w && py >= y && py < y+h
}

// String returns a short human-readable description.
func (e Element) String() string {
	switch e.Kind {
	case KindText:
		return fmt.Sprintf("text %q @(%g,%g) w=%g", e.Text, e.X, e.Y, e.Width)
	case KindVideo:
		return fmt.Sprintf("video @(%g,%g) %gx%g playing=%t", e.X, e.Y, e.Width, e.Height, e.Playing)
	default:
		return fmt.Sprintf("%s @(%g,%g) %gx%g", e.Kind, e.X, e.Y, e.Width, e.Height)
	}
}

// Transform is the geometry reported by the render surface at the end of a
// resize gesture. Scale factors multiply the base size; zero scale is treated
// as identity.
type Transform struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	ScaleX float64
	ScaleY float64
}

// Identity returns a copy of t with scale reset to 1.
func (t Transform) Identity() Transform {
	t.ScaleX = 1
	t.ScaleY = 1
	return t
}

// effective returns the absolute size after applying scale and the minimum.
func (t Transform) effective() (width, height float64) {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return clampSize(t.Width * sx), clampSize(t.Height * sy)
}

func clampSize(v float64) float64 {
	if math.IsNaN(v) {
		return MinSize
	}
	return math.Max(MinSize, v)
}
