// Package kiosk drives the kiosk screens that use the camera: returning-visitor
// verification, new-visitor registration and the pre-filled returning-visitor form.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/vms-kiosk/internal/camera"
	"github.com/kozaktomas/vms-kiosk/internal/capture"
	"github.com/kozaktomas/vms-kiosk/internal/facescan"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/matcher"
	"github.com/kozaktomas/vms-kiosk/internal/metrics"
	"github.com/kozaktomas/vms-kiosk/internal/registration"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"go.uber.org/zap"
)

// Screen identifies the active kiosk screen.
type Screen string

const (
	ScreenNone          Screen = ""
	ScreenVerification  Screen = "verification"
	ScreenRegistration  Screen = "registration"
	ScreenReturningForm Screen = "returning-visitor-form"
)

var (
	ErrNoScreen      = errors.New("no kiosk screen active")
	ErrWrongScreen   = errors.New("action not available on this screen")
	ErrNoPrefill     = errors.New("no matched visitor to continue with")
	ErrMatchRunning  = errors.New("a face match is already running")
	ErrSubmitRunning = errors.New("a registration is already being submitted")
	ErrUnknownScreen = errors.New("unknown screen")
)

// ParseScreen maps a screen name or path to a Screen.
func ParseScreen(s string) (Screen, error) {
	switch s {
	case "verification", "/pre-registered", "pre-registered":
		return ScreenVerification, nil
	case "registration", "/new-visitor", "new-visitor":
		return ScreenRegistration, nil
	case "returning-visitor-form", matcher.ScreenReturningForm:
		return ScreenReturningForm, nil
	default:
		return ScreenNone, fmt.Errorf("%w: %q", ErrUnknownScreen, s)
	}
}

// Deps are the collaborators of a Kiosk.
type Deps struct {
	Camera    *camera.Manager
	Quality   int
	Matcher   *matcher.Matcher
	Submitter *registration.Submitter
	Session   *session.Context
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Kiosk holds the state of the active screen. Leaving a screen tears down its face
// scan and discards results of work the screen started.
type Kiosk struct {
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	screen   Screen
	epoch    uint64 // bumped on every screen change
	ctx      context.Context
	cancel   context.CancelFunc
	flow     *facescan.Flow
	result   <-chan *capture.Image
	draft    *visitor.Draft
	att      registration.Attachment
	match    *visitor.MatchResult
	matching bool
	// set while a registration request is in flight
	submitting bool
}

func New(deps Deps) *Kiosk {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Kiosk{deps: deps, logger: deps.Logger}
}

// Enter switches to screen, tearing down the current one. The returning-visitor
// form takes the matched visitor out of the session; without one it fails with
// ErrNoPrefill and the kiosk is left without a screen.
func (k *Kiosk) Enter(screen Screen) (View, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enterLocked(screen)
}

func (k *Kiosk) enterLocked(screen Screen) (View, error) {
	k.teardownLocked()

	var draft *visitor.Draft
	switch screen {
	case ScreenVerification:
	case ScreenRegistration:
		draft = visitor.NewDraft()
	case ScreenReturningForm:
		rec, ok := k.deps.Session.TakePrefill()
		if !ok {
			return k.viewLocked(), ErrNoPrefill
		}
		draft = visitor.DraftFromRecord(rec)
	default:
		return k.viewLocked(), fmt.Errorf("%w: %q", ErrUnknownScreen, screen)
	}

	k.screen = screen
	k.ctx, k.cancel = context.WithCancel(context.Background())
	k.draft = draft
	if screen != ScreenReturningForm {
		k.flow = facescan.New(k.deps.Camera, k.deps.Quality, k.deps.Metrics, k.logger)
	}

	k.logger.Info("entered screen", zap.String("screen", string(screen)))
	return k.viewLocked(), nil
}

// Leave tears down the current screen.
func (k *Kiosk) Leave() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.teardownLocked()
}

func (k *Kiosk) teardownLocked() {
	k.epoch++
	if k.cancel != nil {
		k.cancel()
	}
	if k.flow != nil {
		k.flow.Close()
	}
	k.screen = ScreenNone
	k.ctx, k.cancel = nil, nil
	k.flow = nil
	k.result = nil
	k.draft = nil
	k.att = registration.Attachment{}
	k.match = nil
	k.matching = false
	k.submitting = false
}

// Flow returns the face scan of the current screen, or nil.
func (k *Kiosk) Flow() *facescan.Flow {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.flow
}

// Scan is like Flow but reports why there is no face scan.
func (k *Kiosk) Scan() (*facescan.Flow, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.flow == nil {
		return nil, k.screenErrLocked()
	}
	return k.flow, nil
}

// OpenScan opens the face scan dialog of the current screen.
func (k *Kiosk) OpenScan() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.flow == nil {
		return k.screenErrLocked()
	}
	if k.matching {
		return ErrMatchRunning
	}
	if k.submitting {
		return ErrSubmitRunning
	}
	ch, err := k.flow.Open(k.ctx)
	if err != nil {
		return err
	}
	k.result = ch
	return nil
}

// RetakeScan discards the captured still and restarts the camera for the screen.
func (k *Kiosk) RetakeScan() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.flow == nil {
		return k.screenErrLocked()
	}
	return k.flow.Retake(k.ctx)
}

// CancelScan closes the face scan dialog without a result.
func (k *Kiosk) CancelScan() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.flow == nil {
		return k.screenErrLocked()
	}
	k.flow.Cancel()
	k.result = nil
	return nil
}

// ScanOutcome is what submitting the scan led to.
type ScanOutcome struct {
	Match *visitor.MatchResult `json:"match,omitempty"`
	View  View                 `json:"view"`
}

// SubmitScan accepts the captured still. On the verification screen it is matched
// against returning visitors and a match moves the kiosk to the returning-visitor
// form. On the registration screen it is held for the registration. ctx bounds
// the match request in addition to the screen's own lifetime.
func (k *Kiosk) SubmitScan(ctx context.Context) (ScanOutcome, error) {
	k.mu.Lock()
	if k.flow == nil {
		err := k.screenErrLocked()
		k.mu.Unlock()
		return ScanOutcome{}, err
	}
	if k.result == nil {
		k.mu.Unlock()
		return ScanOutcome{}, fmt.Errorf("%w: scan not opened", facescan.ErrInvalidState)
	}
	if k.submitting {
		k.mu.Unlock()
		return ScanOutcome{}, ErrSubmitRunning
	}
	if err := k.flow.Submit(); err != nil {
		k.mu.Unlock()
		return ScanOutcome{}, err
	}
	img, ok := <-k.result
	k.result = nil
	if !ok || img == nil {
		k.mu.Unlock()
		return ScanOutcome{}, facescan.ErrCancelled
	}

	if k.screen == ScreenRegistration {
		k.att.Image = img
		view := k.viewLocked()
		k.mu.Unlock()
		return ScanOutcome{View: view}, nil
	}

	epoch := k.epoch
	screenCtx := k.ctx
	k.matching = true
	k.match = nil
	k.mu.Unlock()

	matchCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(screenCtx, cancel)
	result := k.deps.Matcher.Match(matchCtx, img)
	stop()
	cancel()

	k.mu.Lock()
	defer k.mu.Unlock()
	if epoch != k.epoch {
		// the screen was left while matching; its result has no screen to show on
		k.logger.Debug("discarding match result of a left screen", zap.String("outcome", string(result.Outcome)))
		if result.Matched() {
			k.deps.Session.ClearPrefill()
		}
		return ScanOutcome{Match: &visitor.MatchResult{Outcome: visitor.OutcomeCancelled}, View: k.viewLocked()}, nil
	}
	k.matching = false

	if result.Matched() {
		if _, err := k.enterLocked(ScreenReturningForm); err != nil {
			return ScanOutcome{Match: &result, View: k.viewLocked()}, err
		}
	}
	k.match = &result
	return ScanOutcome{Match: &result, View: k.viewLocked()}, nil
}

// SetFields edits several draft fields at once. A rejected field leaves the draft
// unchanged.
func (k *Kiosk) SetFields(fields map[string]string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.draft == nil {
		return k.screenErrLocked()
	}
	if k.submitting {
		return ErrSubmitRunning
	}
	return k.draft.Update(fields)
}

// ResetDraft clears the draft of the registration screen.
func (k *Kiosk) ResetDraft() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.screen != ScreenRegistration {
		return k.screenErrLocked()
	}
	if k.submitting {
		return ErrSubmitRunning
	}
	k.draft.Reset()
	k.att = registration.Attachment{}
	return nil
}

// Submit registers the visitor of the current draft. The request works on a copy
// of the draft and does not hold the kiosk lock. Leaving the screen cancels it.
// A registered returning visitor sends the kiosk back to verification.
func (k *Kiosk) Submit(ctx context.Context) (registration.Ack, error) {
	k.mu.Lock()
	if k.draft == nil {
		err := k.screenErrLocked()
		k.mu.Unlock()
		return registration.Ack{}, err
	}
	if k.submitting {
		k.mu.Unlock()
		return registration.Ack{}, ErrSubmitRunning
	}
	draft := k.draft.Clone()
	att := k.att
	epoch := k.epoch
	screen := k.screen
	screenCtx := k.ctx
	k.submitting = true
	k.mu.Unlock()

	submitCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(screenCtx, cancel)
	ack, err := k.deps.Submitter.Submit(submitCtx, draft, &att)
	stop()
	cancel()

	k.mu.Lock()
	defer k.mu.Unlock()
	if epoch != k.epoch {
		k.logger.Debug("discarding registration outcome of a left screen", zap.Bool("success", ack.Success))
		return ack, err
	}
	k.submitting = false
	if err != nil || !ack.Success {
		return ack, err
	}

	if screen == ScreenReturningForm {
		_, err := k.enterLocked(ScreenVerification)
		return ack, err
	}
	k.draft.Reset()
	k.att = registration.Attachment{}
	return ack, nil
}

// View returns a snapshot of the current screen.
func (k *Kiosk) View() View {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.viewLocked()
}

func (k *Kiosk) screenErrLocked() error {
	if k.screen == ScreenNone {
		return ErrNoScreen
	}
	return fmt.Errorf("%w: %s", ErrWrongScreen, k.screen)
}

// View is the state a kiosk UI renders.
type View struct {
	Screen     Screen               `json:"screen"`
	Scan       *facescan.Status     `json:"scan,omitempty"`
	Mode       visitor.Mode         `json:"mode,omitempty"`
	Fields     []visitor.Field      `json:"fields,omitempty"`
	HasFace    bool                 `json:"has_face"`
	Matching   bool                 `json:"matching"`
	Submitting bool                 `json:"submitting"`
	Match      *visitor.MatchResult `json:"match,omitempty"`
	Confidence string               `json:"confidence,omitempty"`
	Greeting   string               `json:"greeting,omitempty"`
}

func (k *Kiosk) viewLocked() View {
	v := View{Screen: k.screen, HasFace: k.att.Image != nil, Matching: k.matching, Submitting: k.submitting, Match: k.match}
	if k.flow != nil {
		st := k.flow.Status()
		v.Scan = &st
	}
	if k.draft != nil {
		v.Mode = k.draft.Mode()
		v.Fields = k.draft.Fields()
		if k.draft.Mode() == visitor.ModeReturning {
			v.Greeting = "Welcome back, " + visitor.DisplayName(&visitor.Record{FullName: k.draft.Get(visitor.FieldFullName)})
		}
	}
	if k.match != nil {
		v.Confidence = k.match.Confidence()
	}
	return v
}

// Notice renders err for the kiosk screen.
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrNoPrefill):
		return "Please scan your face to continue"
	case errors.Is(err, facescan.ErrBusy), errors.Is(err, ErrMatchRunning):
		return "Please wait while we verify your identity"
	case errors.Is(err, ErrSubmitRunning):
		return "Please wait while we register the visitor"
	default:
		return kerrors.Notice(err)
	}
}
