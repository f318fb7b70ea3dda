// Package images normalizes uploaded photos before storage.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding for uploads

	"golang.org/x/image/draw"

	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
)

// Spec fixes the output dimensions for one image slot.
type Spec struct {
	Width  int
	Height int
}

// Output dimensions per slot. Every stored image is re-encoded as JPEG
// at these sizes regardless of what the client uploaded.
var (
	// UserPhoto is a square avatar.
	UserPhoto = Spec{Width: 500, Height: 500}
	// TourImage is the 3:2 cover and gallery format.
	TourImage = Spec{Width: 2000, Height: 1333}
)

const jpegQuality = 90

// Processor decodes, crops, scales and re-encodes uploaded images.
type Processor struct{}

// NewProcessor creates a Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process converts an uploaded JPEG or PNG into a JPEG of the spec's exact
// dimensions. The source is center-cropped to the target aspect ratio first
// so it scales without distortion. Undecodable input is a validation error.
func (p *Processor) Process(data []byte, spec Spec) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domainerrors.Validation("unsupported or corrupt image").WithCause(err)
	}

	cropped := centerCrop(src, spec.Width, spec.Height)

	dst := image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// centerCrop returns the largest centered sub-rectangle of src matching the
// target aspect ratio.
func centerCrop(src image.Image, targetW, targetH int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	// Compare aspect ratios without floating point: wider than target when
	// srcW/srcH > targetW/targetH.
	var cropW, cropH int
	if srcW*targetH > targetW*srcH {
		cropH = srcH
		cropW = targetW * srcH / targetH
	} else {
		cropW = srcW
		cropH = targetH * srcW / targetW
	}

	x0 := bounds.Min.X + (srcW-cropW)/2
	y0 := bounds.Min.Y + (srcH-cropH)/2
	rect := image.Rect(x0, y0, x0+cropW, y0+cropH)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := src.(subImager); ok {
		return s.SubImage(rect)
	}

	// Fallback for exotic image types without SubImage.
	out := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
	draw.Copy(out, image.Point{}, src, rect, draw.Src, nil)
	return out
}
