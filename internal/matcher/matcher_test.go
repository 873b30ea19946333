package matcher

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/capture"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/session/sessiontest"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	resp    *vmsone.Response
	err     error
	calls   int
	token   string
	dataURL string
	before  func(ctx context.Context)
}

func (f *fakeAPI) MatchFace(ctx context.Context, token, dataURL string) (*vmsone.Response, error) {
	f.calls++
	f.token = token
	f.dataURL = dataURL
	if f.before != nil {
		f.before(ctx)
	}
	return f.resp, f.err
}

func testImage() *capture.Image {
	return &capture.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Width: 2, Height: 2, MIME: "image/jpeg", CapturedAt: time.Now()}
}

func ptr(f float64) *float64 { return &f }

func TestMatch_Matched(t *testing.T) {
	sess := sessiontest.LoggedIn(t, "security")
	rec := &visitor.Record{ID: "17", FullName: "Jane Doe"}
	api := &fakeAPI{resp: &vmsone.Response{Visitor: rec, Distance: ptr(0.12)}}

	res := New(api, sess, nil, nil).Match(context.Background(), testImage())

	assert.Equal(t, visitor.OutcomeMatched, res.Outcome)
	assert.True(t, res.Matched())
	assert.Equal(t, "88.0%", res.Confidence())
	assert.Equal(t, ScreenReturningForm, res.Next)
	assert.Equal(t, sess.Token(), api.token)
	assert.Equal(t, testImage().DataURL(), api.dataURL)

	prefill, ok := sess.TakePrefill()
	require.True(t, ok)
	assert.Same(t, rec, prefill)
}

func TestMatch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		resp    *vmsone.Response
		err     error
		outcome visitor.Outcome
		message string
		next    string
	}{
		{"no visitor, server message", &vmsone.Response{Message: "No match"}, nil, visitor.OutcomeNoMatch, "No match", ""},
		{"no visitor, fallback", &vmsone.Response{}, nil, visitor.OutcomeNoMatch, "Face not recognized. Please try again.", ""},
		{"server error with message", nil, &kerrors.ServerError{Status: 422, Message: "Face not clear"}, visitor.OutcomeServerError, "Face not clear", ""},
		{"server error fallback", nil, &kerrors.ServerError{Status: 500}, visitor.OutcomeServerError, "Face not recognized. Please try again.", ""},
		{"rejected token", nil, &kerrors.ServerError{Status: http.StatusUnauthorized}, visitor.OutcomeUnauthenticated, "Your session has expired. Please log in again.", "/login"},
		{"transport", nil, kerrors.Transport(errors.New("connection refused")), visitor.OutcomeTransportError, "Error validating face.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := sessiontest.LoggedIn(t, "security")
			api := &fakeAPI{resp: tt.resp, err: tt.err}

			res := New(api, sess, nil, nil).Match(context.Background(), testImage())

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.next, res.Next)
			assert.Nil(t, res.Visitor)
			assert.Equal(t, 1, api.calls, "no retry")

			_, ok := sess.PeekPrefill()
			assert.False(t, ok)
		})
	}
}

func TestMatch_NoTokenSendsNothing(t *testing.T) {
	api := &fakeAPI{resp: &vmsone.Response{}}

	res := New(api, sessiontest.LoggedOut(), nil, nil).Match(context.Background(), testImage())

	assert.Equal(t, visitor.OutcomeUnauthenticated, res.Outcome)
	assert.Equal(t, "/login", res.Next)
	assert.Equal(t, 0, api.calls)
}

func TestMatch_CancelledDiscardsResult(t *testing.T) {
	sess := sessiontest.LoggedIn(t, "security")
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeAPI{
		resp:   &vmsone.Response{Visitor: &visitor.Record{ID: "1"}},
		before: func(context.Context) { cancel() },
	}

	res := New(api, sess, nil, nil).Match(ctx, testImage())

	assert.Equal(t, visitor.OutcomeCancelled, res.Outcome)
	_, ok := sess.PeekPrefill()
	assert.False(t, ok, "a match after teardown must not reach the prefill slot")
}
