package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/vms-kiosk/internal/camera/cameratest"
	"github.com/kozaktomas/vms-kiosk/internal/config"
	"github.com/kozaktomas/vms-kiosk/internal/kiosk"
	"github.com/kozaktomas/vms-kiosk/internal/matcher"
	"github.com/kozaktomas/vms-kiosk/internal/registration"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
)

var testEndpoints = config.Endpoints{
	Login:             "auth/login",
	Signup:            "auth/signup",
	MatchFace:         "returning-visitor/match-face",
	Visitors:          "visitors",
	ReturningVisitors: "visitors/returning",
	SendOTP:           "send-otp",
	VerifyOTP:         "verify-otp",
}

// setupMockBackend creates a mock VMSONE server. Patterns are relative to /api.
func setupMockBackend(t *testing.T, handlers map[string]http.HandlerFunc) *vmsone.Client {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := vmsone.New(server.URL+"/api", testEndpoints, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

// jsonHandler answers with status and body.
func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// newTestKiosk wires a kiosk over a streaming fake camera.
func newTestKiosk(t *testing.T, client *vmsone.Client, sess *session.Context) *kiosk.Kiosk {
	t.Helper()
	k := kiosk.New(kiosk.Deps{
		Camera:    cameratest.NewManager(cameratest.NewOpener(cameratest.Streaming)),
		Matcher:   matcher.New(client, sess, nil, nil),
		Submitter: registration.New(client, sess, nil, nil),
		Session:   sess,
	})
	t.Cleanup(k.Leave)
	return k
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
