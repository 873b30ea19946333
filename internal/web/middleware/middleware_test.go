package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/session/sessiontest"
	"go.uber.org/zap"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name         string
		role         string
		loggedIn     bool
		expectStatus int
		expectTarget string
	}{
		{"no token", "", false, http.StatusUnauthorized, "/login"},
		{"wrong role", "admin", true, http.StatusForbidden, "/"},
		{"allowed", "security", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := sessiontest.LoggedOut()
			if tt.loggedIn {
				sess = sessiontest.LoggedIn(t, tt.role)
			}

			var sawClaims bool
			handler := RequireRole(sess, "security")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawClaims = GetClaimsFromContext(r.Context()) != nil
				w.WriteHeader(http.StatusOK)
			}))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/screen", nil))

			if recorder.Code != tt.expectStatus {
				t.Fatalf("expected status %d, got %d", tt.expectStatus, recorder.Code)
			}
			if tt.expectStatus == http.StatusOK {
				if !sawClaims {
					t.Error("expected claims in context")
				}
				return
			}

			var body map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse body: %v", err)
			}
			if body["redirect"] != tt.expectTarget {
				t.Errorf("expected redirect %q, got %q", tt.expectTarget, body["redirect"])
			}
		})
	}
}

func TestRequireRole_ExpiredTokenIsDiscarded(t *testing.T) {
	sess := sessiontest.LoggedOut()
	if err := sess.SetToken(sessiontest.Token(t, "security", time.Now().Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	recorder := httptest.NewRecorder()
	RequireRole(sess)(http.HandlerFunc(okHandler)).ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", recorder.Code)
	}
	if sess.Token() != "" {
		t.Error("expected expired token to be removed")
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://kiosk.example.com"})(http.HandlerFunc(okHandler))

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://kiosk.example.com", true},
		{"http://localhost:5173", true},
		{"https://evil.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		got := recorder.Header().Get("Access-Control-Allow-Origin")
		if tt.allowed && got != tt.origin {
			t.Errorf("origin %q: expected allow header, got %q", tt.origin, got)
		}
		if !tt.allowed && got != "" {
			t.Errorf("origin %q: expected no allow header, got %q", tt.origin, got)
		}
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodOptions, "/api/v1/scan", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
}

func TestLogger_KeepsStatus(t *testing.T) {
	handler := Logger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	if recorder.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", recorder.Code)
	}
}
