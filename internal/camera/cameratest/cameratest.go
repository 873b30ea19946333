// Package cameratest provides a scripted camera for tests of code built on
// camera.Manager.
package cameratest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/camera"
)

// Frame returns a JPEG test pattern of the given size.
func Frame(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Mode selects how opened feeds behave.
type Mode int

const (
	// Streaming feeds deliver the frame as soon as they open.
	Streaming Mode = iota
	// Held feeds deliver nothing until Deliver is called.
	Held
	// Denied feeds exit immediately reporting a permission error.
	Denied
	// Missing feeds exit immediately reporting a missing device.
	Missing
)

// Opener is a camera.Opener whose feeds follow Mode.
type Opener struct {
	Frame []byte

	mu    sync.Mutex
	mode  Mode
	feeds []*Feed
}

func NewOpener(mode Mode) *Opener {
	return &Opener{Frame: Frame(32, 24), mode: mode}
}

func (o *Opener) SetMode(m Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = m
}

// Opened returns the number of feeds opened so far.
func (o *Opener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.feeds)
}

// Last returns the most recently opened feed.
func (o *Opener) Last() *Feed {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.feeds) == 0 {
		return nil
	}
	return o.feeds[len(o.feeds)-1]
}

func (o *Opener) Open(ctx context.Context) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, w := io.Pipe()
	f := &Feed{r: r, w: w, frame: o.Frame}

	o.mu.Lock()
	mode := o.mode
	o.feeds = append(o.feeds, f)
	o.mu.Unlock()

	switch mode {
	case Streaming:
		f.Deliver()
	case Denied:
		f.diag = "Cannot open video device /dev/video0: Permission denied"
		go w.Close()
	case Missing:
		f.diag = "/dev/video0: No such file or directory"
		go w.Close()
	case Held:
	}
	return f, nil
}

// Feed is one opened test stream.
type Feed struct {
	r     *io.PipeReader
	w     *io.PipeWriter
	frame []byte
	diag  string

	mu      sync.Mutex
	stopped bool
}

func (f *Feed) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *Feed) Stop() error {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return f.r.CloseWithError(io.ErrClosedPipe)
}

func (f *Feed) Diagnostics() string { return f.diag }

// Stopped reports whether the feed was stopped.
func (f *Feed) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Deliver writes one frame to the feed in the background.
func (f *Feed) Deliver() {
	go func() {
		_, _ = f.w.Write(f.frame)
	}()
}

// NewManager returns a manager over o with a short start timeout.
func NewManager(o *Opener) *camera.Manager {
	return camera.NewManager(o, 2*time.Second, nil)
}
