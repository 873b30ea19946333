// Package kerrors defines the kiosk error taxonomy and the notices shown to visitors.
// Every failure a user action can hit wraps one of the sentinels below, so callers
// branch with errors.Is and the UI layer renders Notice(err).
package kerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrPermissionDenied  = errors.New("camera permission denied")
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	ErrNoActiveFrame     = errors.New("no active video frame")
	ErrTransport         = errors.New("backend unreachable")
	ErrServer            = errors.New("backend request failed")
	ErrValidation        = errors.New("validation failed")
	ErrAuth              = errors.New("not authenticated")
)

// ServerError is a non-2xx response from the VMSONE backend.
type ServerError struct {
	Status  int
	Message string // message field of the response body, if any
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

func (e *ServerError) Unwrap() error { return ErrServer }

// ValidationError is a client-side check that blocked an action before any request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Transport wraps a network failure.
func Transport(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// Notice returns the text shown to the kiosk user for err.
func Notice(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}

	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrDeviceUnavailable):
		return "Unable to access camera. Please check permissions."
	case errors.Is(err, ErrNoActiveFrame):
		return "Camera is not ready yet. Please try again."
	case errors.Is(err, ErrAuth):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrTransport):
		return "Something went wrong. Please try again."
	case errors.Is(err, ErrServer):
		return "The server could not process the request."
	default:
		return "Something went wrong. Please try again."
	}
}
