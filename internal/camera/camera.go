// Package camera owns the kiosk camera. A Manager acquires a live stream from an
// Opener, and the Session it returns keeps the newest decoded-ready frame until it
// is released.
package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"go.uber.org/zap"
)

// Stream is a running camera feed producing an MJPEG byte stream.
type Stream interface {
	io.Reader
	// Stop ends the feed and frees the device. It must be safe to call more than once.
	Stop() error
}

// Opener starts camera feeds.
type Opener interface {
	Open(ctx context.Context) (Stream, error)
}

// Observer is notified when sessions open and close.
type Observer interface {
	SessionOpened()
	SessionClosed()
}

type diagnoser interface {
	Diagnostics() string
}

// Manager hands out camera sessions and tracks how many are live.
type Manager struct {
	opener       Opener
	startTimeout time.Duration
	logger       *zap.Logger
	observer     Observer

	active atomic.Int64
}

func NewManager(opener Opener, startTimeout time.Duration, logger *zap.Logger) *Manager {
	if startTimeout <= 0 {
		startTimeout = constants.DefaultCameraStartTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{opener: opener, startTimeout: startTimeout, logger: logger}
}

// SetObserver registers o for session open/close notifications. Call before Acquire.
func (m *Manager) SetObserver(o Observer) {
	m.observer = o
}

// Active returns the number of sessions that have not been released.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Acquire starts a camera feed and returns once the first frame has arrived.
// It fails with kerrors.ErrPermissionDenied or kerrors.ErrDeviceUnavailable, or with
// the context error if ctx ends first. On failure nothing is left running.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	stream, err := m.opener.Open(ctx)
	if err != nil {
		if errors.Is(err, kerrors.ErrPermissionDenied) || errors.Is(err, kerrors.ErrDeviceUnavailable) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", kerrors.ErrDeviceUnavailable, err)
	}

	s := m.start(stream)

	timer := time.NewTimer(m.startTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		m.logger.Info("camera session started", zap.String("session", s.ID.String()))
		return s, nil
	case <-s.done:
		// a feed that delivered a frame and then ended still counts as started
		select {
		case <-s.ready:
			return s, nil
		default:
		}
		s.Release()
		return nil, m.failure(s)
	case <-ctx.Done():
		s.Release()
		return nil, ctx.Err()
	case <-timer.C:
		s.Release()
		return nil, fmt.Errorf("%w: no frame within %s", kerrors.ErrDeviceUnavailable, m.startTimeout)
	}
}

func (m *Manager) start(stream Stream) *Session {
	s := &Session{
		ID:      uuid.New(),
		stream:  stream,
		manager: m,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	m.active.Add(1)
	if m.observer != nil {
		m.observer.SessionOpened()
	}
	go s.readLoop()
	return s
}

// failure explains why a feed ended before its first frame. Only valid after Release.
func (m *Manager) failure(s *Session) error {
	var diag string
	if d, ok := s.stream.(diagnoser); ok {
		diag = strings.TrimSpace(d.Diagnostics())
	}
	m.logger.Warn("camera feed ended before first frame",
		zap.String("session", s.ID.String()),
		zap.String("diagnostics", diag),
		zap.Error(s.readErr),
	)

	cause := classifyDiagnostics(diag)
	if diag != "" {
		return fmt.Errorf("%w: %s", cause, diag)
	}
	if s.readErr != nil {
		return fmt.Errorf("%w: %w", cause, s.readErr)
	}
	return cause
}

func (m *Manager) closed(s *Session) {
	m.active.Add(-1)
	if m.observer != nil {
		m.observer.SessionClosed()
	}
	m.logger.Debug("camera session released", zap.String("session", s.ID.String()))
}

// Session is one live camera feed.
type Session struct {
	ID uuid.UUID

	stream  Stream
	manager *Manager

	mu       sync.RWMutex
	frame    []byte
	released bool

	ready     chan struct{} // closed on the first frame
	readyOnce sync.Once
	done      chan struct{} // closed when the reader exits
	readErr   error

	releaseOnce sync.Once
}

func (s *Session) readLoop() {
	defer close(s.done)

	scanner := bufio.NewScanner(s.stream)
	scanner.Buffer(make([]byte, constants.InitialFrameBuffer), constants.MaxFrameSize)
	scanner.Split(SplitJPEG)

	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())

		s.mu.Lock()
		s.frame = frame
		s.mu.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })
	}
	s.readErr = scanner.Err()
}

// Frame returns the newest frame as JPEG bytes. The returned slice must not be modified.
func (s *Session) Frame() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released || s.frame == nil {
		return nil, kerrors.ErrNoActiveFrame
	}
	return s.frame, nil
}

// Release stops the feed and waits for the reader to exit. Safe to call repeatedly.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.released = true
		s.frame = nil
		s.mu.Unlock()

		if err := s.stream.Stop(); err != nil {
			s.manager.logger.Warn("failed to stop camera feed", zap.Error(err))
		}
		<-s.done
		s.manager.closed(s)
	})
}
