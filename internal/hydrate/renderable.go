package hydrate

import (
	"fmt"

	"github.com/dshills/stagecraft/internal/engine/scene"
	"github.com/dshills/stagecraft/internal/loader"
)

// Renderable is an element paired with its resolved handle.
type Renderable struct {
	Index   int
	Element scene.Element

	// Image is set for image elements that loaded.
	Image *loader.ImageHandle
	// Video is set for video elements that loaded.
	Video *loader.VideoHandle
	// Err is set when the element's source failed to resolve.
	Err error
}

// Ready reports whether the renderable can be drawn as its element kind.
func (r Renderable) Ready() bool {
	switch r.Element.Kind {
	case scene.KindText:
		return true
	case scene.KindImage:
		return r.Image != nil
	case scene.KindVideo:
		return r.Video != nil
	default:
		return false
	}
}

// Publication is one published renderable view.
type Publication struct {
	Generation  uint64
	Renderables []Renderable
}

// Failed returns the number of renderables with a load error.
func (p Publication) Failed() int {
	n := 0
	for _, r := range p.Renderables {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// UnknownKindError is set on renderables whose element kind is not drawable.
type UnknownKindError struct {
	Kind scene.Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown element kind %q", string(e.Kind))
}
