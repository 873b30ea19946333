package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/vms-kiosk/internal/session"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// RequireRole lets a request through only while the kiosk holds a valid token for
// one of roles. No roles means any signed-in user. Rejections carry the screen the
// UI should navigate to.
func RequireRole(sess *session.Context, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, claims := sess.Guard(roles...)
			switch decision {
			case session.Allowed:
				ctx := context.WithValue(r.Context(), claimsContextKey, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
			case session.RedirectLogin:
				reject(w, http.StatusUnauthorized, "unauthorized", decision.Target())
			default:
				reject(w, http.StatusForbidden, "forbidden", decision.Target())
			}
		})
	}
}

func reject(w http.ResponseWriter, status int, message, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "redirect": redirect})
}

// GetClaimsFromContext retrieves the token claims stored by RequireRole.
func GetClaimsFromContext(ctx context.Context) *session.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*session.Claims)
	if !ok {
		return nil
	}
	return claims
}

// SetClaimsInContext adds claims to the context.
// This is primarily for testing - use RequireRole middleware in production.
func SetClaimsInContext(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
