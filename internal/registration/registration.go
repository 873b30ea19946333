// Package registration submits visitor registrations.
package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/vms-kiosk/internal/capture"
	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/metrics"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"go.uber.org/zap"
)

const (
	msgRegistered    = "Visitor registered successfully!"
	msgFailed        = "Error registering visitor."
	msgUnreachable   = "Error submitting visitor details"
	msgFaceRequired  = "Please capture the visitor's face before submitting"
	msgMatchRequired = "Returning visitor is missing the matched visitor id"
)

// VisitorAPI is the backend surface the submitter needs. *vmsone.Client implements it.
type VisitorAPI interface {
	RegisterVisitor(ctx context.Context, token string, fields []vmsone.FormField, face *vmsone.FilePart) (*vmsone.Response, error)
	RegisterReturning(ctx context.Context, token string, fields []vmsone.FormField) (*vmsone.Response, error)
}

// Attachment is what travels with a draft: the captured face for a new visitor.
// A returning draft carries its visitor id itself.
type Attachment struct {
	Image *capture.Image
}

// Ack is shown to the operator after a submission attempt.
type Ack struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Visitor *visitor.Record `json:"visitor,omitempty"`
}

type Submitter struct {
	api     VisitorAPI
	session *session.Context
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func New(api VisitorAPI, sess *session.Context, m *metrics.Metrics, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{api: api, session: sess, metrics: m, logger: logger}
}

// Submit sends draft to the backend. Precondition failures (no token, invalid
// draft, missing face or visitor id) return an error and send nothing. Once a
// request was made the outcome is in the Ack: on success the draft is reset and the
// attachment's image dropped, on failure both are left as they were.
func (s *Submitter) Submit(ctx context.Context, draft *visitor.Draft, att *Attachment) (Ack, error) {
	kind := string(draft.Mode())
	who := Describe(draft)

	token, err := s.session.RequireToken()
	if err != nil {
		return Ack{Message: kerrors.Notice(err)}, err
	}
	if err := draft.Validate(); err != nil {
		return Ack{Message: kerrors.Notice(err)}, err
	}

	fields := formFields(draft)

	var resp *vmsone.Response
	switch draft.Mode() {
	case visitor.ModeReturning:
		if draft.VisitorID() == "" {
			err := kerrors.Invalid(visitor.FieldVisitorID, msgMatchRequired)
			return Ack{Message: msgMatchRequired}, err
		}
		fields = append(fields, vmsone.FormField{Name: visitor.FieldVisitorID, Value: draft.VisitorID().String()})
		resp, err = s.api.RegisterReturning(ctx, token, fields)
	default:
		if att == nil || att.Image == nil {
			err := kerrors.Invalid(constants.FaceImageField, msgFaceRequired)
			return Ack{Message: msgFaceRequired}, err
		}
		resp, err = s.api.RegisterVisitor(ctx, token, fields, &vmsone.FilePart{
			Field:       constants.FaceImageField,
			Filename:    constants.FaceImageFilename,
			ContentType: att.Image.MIME,
			Data:        att.Image.Data,
		})
	}

	if err != nil {
		s.metrics.IncSubmission(kind, "failure")
		s.logger.Warn("visitor registration failed", zap.String("visitor", who), zap.Error(err))
		return failureAck(err), nil
	}

	s.metrics.IncSubmission(kind, "success")
	s.logger.Info("visitor registered", zap.String("visitor", who))

	draft.Reset()
	if att != nil {
		att.Image = nil
	}

	msg := string(resp.Message)
	if msg == "" {
		msg = msgRegistered
	}
	return Ack{Success: true, Message: msg, Visitor: resp.Visitor}, nil
}

func failureAck(err error) Ack {
	var se *kerrors.ServerError
	if errors.As(err, &se) && se.Message != "" {
		return Ack{Message: se.Message}
	}
	if errors.Is(err, kerrors.ErrTransport) {
		return Ack{Message: msgUnreachable}
	}
	return Ack{Message: msgFailed}
}

// formFields lists every draft field in form order, empty ones included.
func formFields(d *visitor.Draft) []vmsone.FormField {
	fields := make([]vmsone.FormField, 0, len(visitor.FieldOrder)+1)
	for _, f := range d.Fields() {
		fields = append(fields, vmsone.FormField{Name: f.Name, Value: f.Value})
	}
	return fields
}

// Describe summarizes a draft for logs and the CLI.
func Describe(d *visitor.Draft) string {
	name := d.Get(visitor.FieldFullName)
	if name == "" {
		name = "unnamed visitor"
	}
	return fmt.Sprintf("%s (%s)", name, d.Mode())
}
