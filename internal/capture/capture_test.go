package capture

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	frame []byte
	err   error
	calls int
}

func (s *staticSource) Frame() ([]byte, error) {
	s.calls++
	return s.frame, s.err
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 200, A: 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestGrab_NativeResolution(t *testing.T) {
	src := &staticSource{frame: jpegBytes(t, gradient(64, 48))}

	img, err := Grab(src, 0)
	require.NoError(t, err)

	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 48, img.Height)
	assert.Equal(t, "image/jpeg", img.MIME)
	assert.False(t, img.CapturedAt.IsZero())

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), decoded.Bounds())
}

func TestGrab_AcceptsPNGFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(10, 20)))

	img, err := Grab(&staticSource{frame: buf.Bytes()}, 90)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Width)
	assert.Equal(t, 20, img.Height)
}

func TestGrab_NoActiveFrame(t *testing.T) {
	_, err := Grab(&staticSource{err: kerrors.ErrNoActiveFrame}, 80)
	assert.ErrorIs(t, err, kerrors.ErrNoActiveFrame)
}

func TestGrab_CorruptFrame(t *testing.T) {
	_, err := Grab(&staticSource{frame: []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}}, 80)
	assert.Error(t, err)
}

func TestGrab_QualityAffectsSize(t *testing.T) {
	src := &staticSource{frame: jpegBytes(t, gradient(64, 64))}

	low, err := Grab(src, 10)
	require.NoError(t, err)
	high, err := Grab(src, 150)
	require.NoError(t, err)

	assert.Less(t, len(low.Data), len(high.Data))
}

func TestImage_DataURL(t *testing.T) {
	img := &Image{Data: []byte{1, 2, 3}, MIME: "image/jpeg"}

	url := img.DataURL()
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name          string
		w, h, maxSize int
		wantW, wantH  int
	}{
		{"landscape", 64, 32, 16, 16, 8},
		{"portrait", 20, 40, 10, 5, 10},
		{"small enough", 8, 8, 16, 8, 8},
		{"no limit", 12, 6, 0, 12, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &staticSource{frame: jpegBytes(t, gradient(tt.w, tt.h))}
			data, err := Preview(src, tt.maxSize)
			require.NoError(t, err)

			decoded, err := jpeg.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, decoded.Bounds().Dx())
			assert.Equal(t, tt.wantH, decoded.Bounds().Dy())
		})
	}
}
