// Package matcher looks up returning visitors by face.
package matcher

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/capture"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/metrics"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"go.uber.org/zap"
)

// ScreenReturningForm is where a matched visitor continues.
const ScreenReturningForm = "/returning-visitor-form"

const (
	msgNotRecognized = "Face not recognized. Please try again."
	msgUnreachable   = "Error validating face."
)

// FaceAPI is the backend call the matcher needs. *vmsone.Client implements it.
type FaceAPI interface {
	MatchFace(ctx context.Context, token, dataURL string) (*vmsone.Response, error)
}

type Matcher struct {
	api     FaceAPI
	session *session.Context
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(api FaceAPI, sess *session.Context, m *metrics.Metrics, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{api: api, session: sess, metrics: m, logger: logger}
}

// Match submits img once. A matched visitor is placed in the session prefill slot,
// unless ctx was cancelled in the meantime, in which case the result is reported as
// cancelled and nothing is stored.
func (m *Matcher) Match(ctx context.Context, img *capture.Image) visitor.MatchResult {
	start := time.Now()
	result := m.match(ctx, img)
	m.metrics.ObserveMatch(string(result.Outcome), start)

	fields := []zap.Field{zap.String("outcome", string(result.Outcome)), zap.Duration("took", time.Since(start))}
	if result.HasDistance {
		fields = append(fields, zap.String("confidence", result.Confidence()))
	}
	m.logger.Info("face match finished", fields...)
	return result
}

func (m *Matcher) match(ctx context.Context, img *capture.Image) visitor.MatchResult {
	token, err := m.session.RequireToken()
	if err != nil {
		return visitor.MatchResult{
			Outcome: visitor.OutcomeUnauthenticated,
			Message: kerrors.Notice(err),
			Next:    session.ScreenLogin,
		}
	}

	resp, err := m.api.MatchFace(ctx, token, img.DataURL())
	if ctx.Err() != nil {
		return visitor.MatchResult{Outcome: visitor.OutcomeCancelled}
	}
	if err != nil {
		return failure(err)
	}

	if resp.Visitor == nil {
		return visitor.MatchResult{Outcome: visitor.OutcomeNoMatch, Message: messageOr(string(resp.Message), msgNotRecognized)}
	}

	result := visitor.MatchResult{
		Outcome: visitor.OutcomeMatched,
		Visitor: resp.Visitor,
		Message: string(resp.Message),
		Next:    ScreenReturningForm,
	}
	if resp.Distance != nil {
		result.Distance = *resp.Distance
		result.HasDistance = true
	}
	m.session.PutPrefill(resp.Visitor)
	return result
}

func failure(err error) visitor.MatchResult {
	var se *kerrors.ServerError
	if errors.As(err, &se) {
		if se.Status == http.StatusUnauthorized {
			return visitor.MatchResult{
				Outcome: visitor.OutcomeUnauthenticated,
				Message: messageOr(se.Message, kerrors.Notice(kerrors.ErrAuth)),
				Next:    session.ScreenLogin,
			}
		}
		return visitor.MatchResult{Outcome: visitor.OutcomeServerError, Message: messageOr(se.Message, msgNotRecognized)}
	}
	return visitor.MatchResult{Outcome: visitor.OutcomeTransportError, Message: msgUnreachable}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
