package loader

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Register decoders beyond the standard PNG/JPEG/GIF set.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageHandle is a decoded raster ready to draw.
type ImageHandle struct {
	Src    string
	Image  image.Image
	Width  int
	Height int
}

// NaturalSize returns the decoded pixel dimensions.
func (h *ImageHandle) NaturalSize() (float64, float64) {
	return float64(h.Width), float64(h.Height)
}

// decodeImage decodes data, applying EXIF orientation.
func decodeImage(src string, data []byte) (*ImageHandle, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	return &ImageHandle{
		Src:    src,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
