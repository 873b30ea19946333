package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/vms-kiosk/internal/facescan"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/kozaktomas/vms-kiosk/internal/otp"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure sends the kiosk notice for err with a matching status code.
func respondFailure(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), kiosk.Notice(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, kerrors.ErrValidation), errors.Is(err, kiosk.ErrUnknownScreen):
		return http.StatusBadRequest
	case errors.Is(err, kerrors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, otp.ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, kiosk.ErrNoScreen),
		errors.Is(err, kiosk.ErrWrongScreen),
		errors.Is(err, kiosk.ErrNoPrefill),
		errors.Is(err, kiosk.ErrMatchRunning),
		errors.Is(err, kiosk.ErrSubmitRunning),
		errors.Is(err, facescan.ErrInvalidState),
		errors.Is(err, facescan.ErrBusy),
		errors.Is(err, facescan.ErrClosed),
		errors.Is(err, facescan.ErrCancelled),
		errors.Is(err, kerrors.ErrNoActiveFrame):
		return http.StatusConflict
	case errors.Is(err, kerrors.ErrPermissionDenied), errors.Is(err, kerrors.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, kerrors.ErrTransport), errors.Is(err, kerrors.ErrServer):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
