package facescan

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/camera"
	"github.com/kozaktomas/vms-kiosk/internal/camera/cameratest"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlow(t *testing.T, mode cameratest.Mode) (*Flow, *camera.Manager, *cameratest.Opener) {
	t.Helper()
	opener := cameratest.NewOpener(mode)
	cam := cameratest.NewManager(opener)
	f := New(cam, 0, nil, nil)
	t.Cleanup(f.Close)
	return f, cam, opener
}

func TestFlow_HappyPath(t *testing.T) {
	f, cam, _ := newFlow(t, cameratest.Streaming)
	events := f.Events().AddListener()

	result, err := f.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.Ready(context.Background()))
	assert.Equal(t, StatePreviewing, f.State())
	assert.Equal(t, 1, cam.Active())

	preview, err := f.Preview()
	require.NoError(t, err)
	assert.NotEmpty(t, preview)

	img, err := f.Capture()
	require.NoError(t, err)
	assert.Equal(t, StateCaptured, f.State())
	assert.Equal(t, 32, img.Width)
	assert.Equal(t, 24, img.Height)
	assert.Equal(t, 0, cam.Active(), "capture releases the camera")

	held, err := f.Image()
	require.NoError(t, err)
	assert.Same(t, img, held)

	require.NoError(t, f.Submit())
	assert.Equal(t, StateIdle, f.State())

	got, ok := <-result
	require.True(t, ok)
	assert.Same(t, img, got)
	_, ok = <-result
	assert.False(t, ok, "result channel is one-shot")

	var types []EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Equal(t, []EventType{EventOpened, EventPreviewing, EventCaptured, EventSubmitting, EventSubmitted}, types)
}

func TestFlow_Retake(t *testing.T) {
	f, cam, opener := newFlow(t, cameratest.Streaming)

	result, err := f.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.Ready(context.Background()))
	first, err := f.Capture()
	require.NoError(t, err)

	require.NoError(t, f.Retake(context.Background()))
	require.NoError(t, f.Ready(context.Background()))
	assert.Equal(t, StatePreviewing, f.State())
	assert.Equal(t, 1, cam.Active())
	assert.Equal(t, 2, opener.Opened())

	_, err = f.Image()
	assert.ErrorIs(t, err, ErrInvalidState, "retake drops the first still")

	second, err := f.Capture()
	require.NoError(t, err)
	require.NoError(t, f.Submit())

	got := <-result
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
	assert.Equal(t, 0, cam.Active())
}

func TestFlow_CancelFromEveryState(t *testing.T) {
	tests := []struct {
		name  string
		mode  cameratest.Mode
		setup func(t *testing.T, f *Flow)
	}{
		{"acquiring", cameratest.Held, func(*testing.T, *Flow) {}},
		{"previewing", cameratest.Streaming, func(t *testing.T, f *Flow) {
			require.NoError(t, f.Ready(context.Background()))
		}},
		{"captured", cameratest.Streaming, func(t *testing.T, f *Flow) {
			require.NoError(t, f.Ready(context.Background()))
			_, err := f.Capture()
			require.NoError(t, err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cam, _ := newFlow(t, tt.mode)

			result, err := f.Open(context.Background())
			require.NoError(t, err)
			tt.setup(t, f)

			f.Cancel()

			assert.Equal(t, StateIdle, f.State())
			assert.Equal(t, 0, cam.Active())
			_, ok := <-result
			assert.False(t, ok, "cancel closes the result channel without a value")
			assert.ErrorIs(t, f.Ready(context.Background()), ErrCancelled)

			// the flow can be opened again after a cancel
			_, err = f.Open(context.Background())
			assert.NoError(t, err)
		})
	}
}

func TestFlow_CloseWhileAcquiringReleasesLateSession(t *testing.T) {
	f, cam, opener := newFlow(t, cameratest.Held)

	result, err := f.Open(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return opener.Opened() == 1 }, time.Second, time.Millisecond)

	f.Close()

	assert.Equal(t, 0, cam.Active())
	assert.True(t, opener.Last().Stopped())
	_, ok := <-result
	assert.False(t, ok)

	_, err = f.Open(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFlow_StaleAcquisitionIsDiscarded(t *testing.T) {
	f, cam, opener := newFlow(t, cameratest.Held)

	_, err := f.Open(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return opener.Opened() == 1 }, time.Second, time.Millisecond)
	stale := opener.Last()

	f.Cancel()
	// a frame arriving after the cancel must not revive the dialog
	stale.Deliver()

	assert.Equal(t, StateIdle, f.State())
	assert.Equal(t, 0, cam.Active())
}

func TestFlow_CameraFailure(t *testing.T) {
	tests := []struct {
		name   string
		mode   cameratest.Mode
		wantIs error
	}{
		{"permission denied", cameratest.Denied, kerrors.ErrPermissionDenied},
		{"no device", cameratest.Missing, kerrors.ErrDeviceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, cam, _ := newFlow(t, tt.mode)
			events := f.Events().AddListener()

			result, err := f.Open(context.Background())
			require.NoError(t, err)

			err = f.Ready(context.Background())
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, StateIdle, f.State())
			assert.Equal(t, 0, cam.Active())
			assert.Equal(t, "Unable to access camera. Please check permissions.", f.Status().Error)

			_, ok := <-result
			assert.False(t, ok)

			var last Event
			for len(events) > 0 {
				last = <-events
			}
			assert.Equal(t, EventError, last.Type)
			assert.Equal(t, "Unable to access camera. Please check permissions.", last.Message)
		})
	}
}

func TestFlow_InvalidTransitions(t *testing.T) {
	f, _, _ := newFlow(t, cameratest.Streaming)

	_, err := f.Capture()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, f.Submit(), ErrInvalidState)
	assert.ErrorIs(t, f.Retake(context.Background()), ErrInvalidState)
	_, err = f.Preview()
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.Open(context.Background())
	require.NoError(t, err)
	_, err = f.Open(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, f.Ready(context.Background()))
	assert.ErrorIs(t, f.Submit(), ErrInvalidState, "nothing captured yet")
}

func TestFlow_ReadyHonoursContext(t *testing.T) {
	f, _, _ := newFlow(t, cameratest.Held)
	_, err := f.Open(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Ready(ctx), context.DeadlineExceeded)
}

func TestBroadcaster(t *testing.T) {
	var b Broadcaster
	a := b.AddListener()
	c := b.AddListener()

	b.Send(Event{Type: EventOpened})
	assert.Equal(t, EventOpened, (<-a).Type)
	assert.Equal(t, EventOpened, (<-c).Type)

	b.RemoveListener(a)
	_, ok := <-a
	assert.False(t, ok)

	b.Close()
	_, ok = <-c
	assert.False(t, ok)

	late := b.AddListener()
	_, ok = <-late
	assert.False(t, ok)
	b.Send(Event{Type: EventClosed})
}
