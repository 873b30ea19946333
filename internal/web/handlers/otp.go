package handlers

import (
	"net/http"

	"github.com/kozaktomas/vms-kiosk/internal/otp"
)

// OTPHandler handles the mobile verification screen.
type OTPHandler struct {
	service *otp.Service
}

func NewOTPHandler(service *otp.Service) *OTPHandler {
	return &OTPHandler{service: service}
}

type otpRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type otpResponse struct {
	otp.Result
	Remaining int `json:"remaining"`
}

func (h *OTPHandler) respond(w http.ResponseWriter, res otp.Result, err error) {
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	respondJSON(w, status, otpResponse{Result: res, Remaining: h.service.Remaining()})
}

// Send requests a code for the mobile number.
func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.Send(r.Context(), req.Mobile)
	h.respond(w, res, err)
}

// Resend requests a new code once the countdown is over.
func (h *OTPHandler) Resend(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Resend(r.Context())
	h.respond(w, res, err)
}

// Verify checks the code the visitor typed.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.Verify(r.Context(), req.Mobile, req.OTP)
	h.respond(w, res, err)
}

// Status returns the resend countdown.
func (h *OTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"remaining": h.service.Remaining()})
}
