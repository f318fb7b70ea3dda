package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
)

func encodeTestImage(t *testing.T, w, h int, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	default:
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

func TestProcess_SquareAvatar(t *testing.T) {
	p := NewProcessor()

	out, err := p.Process(encodeTestImage(t, 1200, 800, "jpeg"), UserPhoto)
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 500, w)
	assert.Equal(t, 500, h)
}

func TestProcess_TourCover(t *testing.T) {
	p := NewProcessor()

	out, err := p.Process(encodeTestImage(t, 800, 800, "jpeg"), TourImage)
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 2000, w)
	assert.Equal(t, 1333, h)
}

func TestProcess_PNGInput(t *testing.T) {
	p := NewProcessor()

	out, err := p.Process(encodeTestImage(t, 600, 400, "png"), UserPhoto)
	require.NoError(t, err)

	// Output is always JPEG.
	w, h := decodeDims(t, out)
	assert.Equal(t, 500, w)
	assert.Equal(t, 500, h)
}

func TestProcess_Upscales(t *testing.T) {
	p := NewProcessor()

	out, err := p.Process(encodeTestImage(t, 100, 60, "jpeg"), UserPhoto)
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 500, w)
	assert.Equal(t, 500, h)
}

func TestProcess_GarbageInput(t *testing.T) {
	p := NewProcessor()

	_, err := p.Process([]byte("definitely not an image"), UserPhoto)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCenterCrop_AspectRatio(t *testing.T) {
	// A wide source cropped for a square target keeps full height.
	src := image.NewRGBA(image.Rect(0, 0, 300, 100))
	cropped := centerCrop(src, 100, 100)
	assert.Equal(t, 100, cropped.Bounds().Dx())
	assert.Equal(t, 100, cropped.Bounds().Dy())

	// A tall source cropped for a square target keeps full width.
	src = image.NewRGBA(image.Rect(0, 0, 100, 300))
	cropped = centerCrop(src, 100, 100)
	assert.Equal(t, 100, cropped.Bounds().Dx())
	assert.Equal(t, 100, cropped.Bounds().Dy())
}
