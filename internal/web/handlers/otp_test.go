package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kozaktomas/vms-kiosk/internal/otp"
	"github.com/kozaktomas/vms-kiosk/internal/ticker/tickertest"
)

func newOTPHandler(t *testing.T, verifyStatus int) (*OTPHandler, *clockwork.FakeClock) {
	t.Helper()
	client := setupMockBackend(t, map[string]http.HandlerFunc{
		"POST /api/send-otp":   jsonHandler(http.StatusOK, `{"message": "sent"}`),
		"POST /api/verify-otp": jsonHandler(verifyStatus, `{}`),
	})
	sched, clock := tickertest.New(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	service := otp.New(client, sched, time.Minute, nil)
	t.Cleanup(service.Close)
	return NewOTPHandler(service), clock
}

func waitCooldown(t *testing.T, h *OTPHandler, clock *clockwork.FakeClock, seconds int) {
	t.Helper()
	start := h.service.Remaining()
	tickertest.Step(t, clock, time.Second, seconds, func(i int) bool { return h.service.Remaining() == start-i })
}

func TestOTPHandler_SendAndResend(t *testing.T) {
	handler, clock := newOTPHandler(t, http.StatusOK)

	recorder := httptest.NewRecorder()
	handler.Send(recorder, httptest.NewRequest("POST", "/api/v1/otp/send", bytes.NewBufferString(`{"mobile": "9876543210"}`)))
	assertStatusCode(t, recorder, http.StatusOK)
	var sent otpResponse
	parseJSONResponse(t, recorder, &sent)
	if !sent.OK || sent.Message != "OTP sent successfully!" || sent.Remaining != 60 {
		t.Errorf("unexpected send response %+v", sent)
	}

	waitCooldown(t, handler, clock, 15)
	recorder = httptest.NewRecorder()
	handler.Resend(recorder, httptest.NewRequest("POST", "/api/v1/otp/resend", nil))
	assertStatusCode(t, recorder, http.StatusTooManyRequests)
	var cooling otpResponse
	parseJSONResponse(t, recorder, &cooling)
	if cooling.Message != "Resend OTP in 45s" {
		t.Errorf("unexpected cooldown message %q", cooling.Message)
	}

	waitCooldown(t, handler, clock, 45)
	recorder = httptest.NewRecorder()
	handler.Resend(recorder, httptest.NewRequest("POST", "/api/v1/otp/resend", nil))
	assertStatusCode(t, recorder, http.StatusOK)
}

func TestOTPHandler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		call    func(h *OTPHandler, w http.ResponseWriter, r *http.Request)
		body    string
		message string
	}{
		{"short mobile", (*OTPHandler).Send, `{"mobile": "12345"}`, "Please enter a valid mobile number"},
		{"short code", (*OTPHandler).Verify, `{"mobile": "9876543210", "otp": "123"}`, "Please enter a valid 6-digit OTP"},
		{"letters in code", (*OTPHandler).Verify, `{"mobile": "9876543210", "otp": "12a456"}`, "Please enter a valid 6-digit OTP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newOTPHandler(t, http.StatusOK)

			recorder := httptest.NewRecorder()
			tt.call(handler, recorder, httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body)))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			var res otpResponse
			parseJSONResponse(t, recorder, &res)
			if res.OK || res.Message != tt.message {
				t.Errorf("unexpected response %+v", res)
			}
		})
	}
}

func TestOTPHandler_Verify(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		ok      bool
		message string
	}{
		{"accepted", http.StatusOK, true, "OTP verified successfully!"},
		{"rejected", http.StatusBadRequest, false, "Invalid OTP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newOTPHandler(t, tt.status)

			recorder := httptest.NewRecorder()
			handler.Verify(recorder, httptest.NewRequest("POST", "/api/v1/otp/verify",
				bytes.NewBufferString(`{"mobile": "9876543210", "otp": "123456"}`)))

			assertStatusCode(t, recorder, http.StatusOK)
			var res otpResponse
			parseJSONResponse(t, recorder, &res)
			if res.OK != tt.ok || res.Message != tt.message {
				t.Errorf("unexpected response %+v", res)
			}
		})
	}
}
