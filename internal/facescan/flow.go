// Package facescan runs the face scan dialog: start the camera, show the live
// feed, capture a still, let the visitor retake it, and hand the accepted still to
// whoever opened the dialog.
package facescan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/vms-kiosk/internal/camera"
	"github.com/kozaktomas/vms-kiosk/internal/capture"
	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/metrics"
	"go.uber.org/zap"
)

// State is the dialog state.
type State string

const (
	StateIdle       State = "idle"
	StateAcquiring  State = "acquiring"
	StatePreviewing State = "previewing"
	StateCaptured   State = "captured"
	StateSubmitting State = "submitting"
)

var (
	ErrBusy         = errors.New("face scan already open")
	ErrInvalidState = errors.New("action not allowed in current scan state")
	ErrClosed       = errors.New("face scan closed")
	ErrCancelled    = errors.New("face scan cancelled")
)

// Status is a snapshot of the flow.
type Status struct {
	ID       string `json:"id"`
	State    State  `json:"state"`
	HasImage bool   `json:"has_image"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Flow is one face scan dialog. It holds at most one camera session and at most one
// captured image, and every way out of the dialog releases the camera.
type Flow struct {
	ID uuid.UUID

	cam     *camera.Manager
	quality int
	metrics *metrics.Metrics
	logger  *zap.Logger
	events  Broadcaster

	mu      sync.Mutex
	state   State
	gen     uint64 // bumped whenever an in-flight acquisition becomes stale
	session *camera.Session
	image   *capture.Image
	result  chan *capture.Image
	abort   context.CancelFunc
	settled chan struct{} // closed when the current acquisition finishes
	lastErr error
	closed  bool
}

func New(cam *camera.Manager, quality int, m *metrics.Metrics, logger *zap.Logger) *Flow {
	if quality <= 0 {
		quality = constants.DefaultJPEGQuality
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	return &Flow{
		ID:      id,
		cam:     cam,
		quality: quality,
		metrics: m,
		logger:  logger.With(zap.String("flow", id.String())),
		state:   StateIdle,
	}
}

// Events returns the flow's broadcaster.
func (f *Flow) Events() *Broadcaster {
	return &f.events
}

// Open shows the dialog and starts the camera in the background. The returned
// channel receives the accepted still on Submit, or is closed without a value when
// the dialog is cancelled, closed or the camera fails.
func (f *Flow) Open(ctx context.Context) (<-chan *capture.Image, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.result = make(chan *capture.Image, 1)
	f.lastErr = nil
	ch := f.result
	f.startAcquireLocked(ctx)
	f.emitLocked(EventOpened, "", nil)
	f.mu.Unlock()

	f.metrics.IncScanOpened()
	f.logger.Debug("face scan opened")
	return ch, nil
}

func (f *Flow) startAcquireLocked(ctx context.Context) {
	f.gen++
	f.state = StateAcquiring

	acqCtx, abort := context.WithCancel(ctx)
	settled := make(chan struct{})
	f.abort = abort
	f.settled = settled

	go f.acquire(acqCtx, abort, f.gen, settled)
}

func (f *Flow) acquire(ctx context.Context, abort context.CancelFunc, gen uint64, settled chan struct{}) {
	defer close(settled)
	defer abort()

	sess, err := f.cam.Acquire(ctx)

	f.mu.Lock()
	if gen != f.gen {
		// the dialog moved on while the camera was starting
		if sess != nil {
			sess.Release()
		}
		f.mu.Unlock()
		return
	}
	f.abort = nil

	if err != nil {
		f.state = StateIdle
		f.lastErr = err
		f.finishLocked()
		f.emitLocked(EventError, kerrors.Notice(err), nil)
		f.mu.Unlock()

		f.metrics.IncCameraFailure(failureReason(err))
		f.logger.Warn("camera acquisition failed", zap.Error(err))
		return
	}

	f.session = sess
	f.state = StatePreviewing
	f.emitLocked(EventPreviewing, "", nil)
	f.mu.Unlock()
}

// Ready waits until the camera start in progress has finished. It returns nil when
// the live feed is showing and the camera error otherwise.
func (f *Flow) Ready(ctx context.Context) error {
	for {
		f.mu.Lock()
		state, settled, lastErr := f.state, f.settled, f.lastErr
		f.mu.Unlock()

		switch state {
		case StateAcquiring:
			select {
			case <-settled:
			case <-ctx.Done():
				return ctx.Err()
			}
		case StatePreviewing, StateCaptured, StateSubmitting:
			return nil
		default:
			if lastErr != nil {
				return lastErr
			}
			return ErrCancelled
		}
	}
}

// Capture takes a still from the live feed and stops the camera.
func (f *Flow) Capture() (*capture.Image, error) {
	f.mu.Lock()
	if f.state != StatePreviewing {
		state := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: capture while %s", ErrInvalidState, state)
	}

	img, err := capture.Grab(f.session, f.quality)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}

	f.session.Release()
	f.session = nil
	f.image = img
	f.state = StateCaptured
	f.emitLocked(EventCaptured, "", map[string]int{"width": img.Width, "height": img.Height})
	f.mu.Unlock()

	f.metrics.IncCapture()
	return img, nil
}

// Retake drops the captured still and restarts the camera.
func (f *Flow) Retake(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateCaptured {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: retake while %s", ErrInvalidState, state)
	}
	f.image = nil
	f.startAcquireLocked(ctx)
	f.emitLocked(EventRetake, "", nil)
	f.mu.Unlock()
	return nil
}

// Submit hands the captured still to the opener's channel and closes the dialog.
func (f *Flow) Submit() error {
	f.mu.Lock()
	if f.state != StateCaptured || f.image == nil {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: submit while %s", ErrInvalidState, state)
	}

	f.state = StateSubmitting
	f.emitLocked(EventSubmitting, "", nil)
	img := f.image
	f.image = nil
	if f.result != nil {
		f.result <- img
	}
	f.finishLocked()
	f.state = StateIdle
	f.emitLocked(EventSubmitted, "", nil)
	f.mu.Unlock()
	return nil
}

// Cancel closes the dialog from any state. Cancelling an idle flow does nothing.
func (f *Flow) Cancel() {
	f.stop(false)
}

// Close cancels the dialog for good and disconnects all event listeners. Used when
// the owning screen is torn down.
func (f *Flow) Close() {
	f.stop(true)
}

func (f *Flow) stop(closing bool) {
	f.mu.Lock()
	if closing && f.closed {
		f.mu.Unlock()
		return
	}
	if closing {
		f.closed = true
	}
	wasIdle := f.state == StateIdle

	f.gen++
	abort, settled := f.abort, f.settled
	f.abort = nil
	if f.session != nil {
		f.session.Release()
		f.session = nil
	}
	f.image = nil
	f.state = StateIdle
	f.finishLocked()
	if !wasIdle {
		f.emitLocked(EventCancelled, "", nil)
	}
	if closing {
		f.emitLocked(EventClosed, "", nil)
	}
	f.mu.Unlock()

	if abort != nil {
		abort()
	}
	if settled != nil {
		<-settled
	}

	if !wasIdle {
		f.logger.Debug("face scan cancelled")
	}
	if closing {
		f.events.Close()
	}
}

// finishLocked closes the result channel, if any.
func (f *Flow) finishLocked() {
	if f.result != nil {
		close(f.result)
		f.result = nil
	}
}

// Preview returns the current live frame scaled for display.
func (f *Flow) Preview() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StatePreviewing {
		return nil, fmt.Errorf("%w: preview while %s", ErrInvalidState, f.state)
	}
	return capture.Preview(f.session, constants.PreviewMaxSize)
}

// Image returns the captured still awaiting review.
func (f *Flow) Image() (*capture.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateCaptured || f.image == nil {
		return nil, fmt.Errorf("%w: no captured image while %s", ErrInvalidState, f.state)
	}
	return f.image, nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := Status{ID: f.ID.String(), State: f.state, HasImage: f.image != nil}
	if f.image != nil {
		st.Width, st.Height = f.image.Width, f.image.Height
	}
	if f.lastErr != nil && f.state == StateIdle {
		st.Error = kerrors.Notice(f.lastErr)
	}
	return st
}

// emitLocked broadcasts a transition. Send never blocks, so it is safe under mu and
// keeps events in transition order.
func (f *Flow) emitLocked(t EventType, message string, data any) {
	f.events.Send(Event{Type: t, State: f.state, Message: message, Data: data})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, kerrors.ErrDeviceUnavailable):
		return "device_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
