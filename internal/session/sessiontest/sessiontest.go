// Package sessiontest mints access tokens and session contexts for tests.
package sessiontest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kozaktomas/vms-kiosk/internal/session"
)

// Token returns a signed token for role expiring at exp. A zero exp omits the claim.
func Token(t testing.TB, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   42,
		"email": role + "@example.com",
		"role":  role,
		"iat":   time.Now().Add(-time.Minute).Unix(),
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// LoggedIn returns a session context holding a valid token for role.
func LoggedIn(t testing.TB, role string) *session.Context {
	t.Helper()
	ctx := session.New(&session.MemoryStore{}, 0, nil)
	if err := ctx.SetToken(Token(t, role, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("failed to store token: %v", err)
	}
	return ctx
}

// LoggedOut returns a session context without a token.
func LoggedOut() *session.Context {
	return session.New(&session.MemoryStore{}, 0, nil)
}
