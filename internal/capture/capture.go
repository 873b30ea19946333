// Package capture turns a live camera frame into the encoded still that is sent to
// the backend.
package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const mimeJPEG = "image/jpeg"

// FrameSource provides the newest frame of a live feed. camera.Session implements it.
type FrameSource interface {
	Frame() ([]byte, error)
}

// Image is an encoded still. It is never modified after Grab returns it.
type Image struct {
	Data       []byte
	Width      int
	Height     int
	MIME       string
	CapturedAt time.Time
}

// Base64 returns the image bytes in standard base64.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL, the form the face matcher accepts.
func (i *Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + i.Base64()
}

// Grab copies the current frame of src at its native resolution and encodes it as
// JPEG. quality <= 0 selects the default. src is left running.
func Grab(src FrameSource, quality int) (*Image, error) {
	frame, err := src.Frame()
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Copy(canvas, image.Point{}, img, bounds, draw.Src, nil)

	data, err := encode(canvas, quality)
	if err != nil {
		return nil, err
	}

	return &Image{
		Data:       data,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		MIME:       mimeJPEG,
		CapturedAt: time.Now(),
	}, nil
}

// Preview returns the current frame of src scaled to fit within maxSize, for
// showing the live feed. Frames already small enough are re-encoded unchanged.
func Preview(src FrameSource, maxSize int) ([]byte, error) {
	frame, err := src.Frame()
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return encode(img, constants.DefaultJPEGQuality)
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	return encode(scaled, constants.DefaultJPEGQuality)
}

func encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = constants.DefaultJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
