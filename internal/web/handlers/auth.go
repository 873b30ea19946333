package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/vmsone"
	"go.uber.org/zap"
)

// AuthAPI is the backend surface for operator accounts. *vmsone.Client implements it.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, r vmsone.SignupRequest) (*vmsone.Response, error)
}

// Leaver tears down the active kiosk screen.
type Leaver interface {
	Leave()
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	api     AuthAPI
	session *session.Context
	screens Leaver
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(api AuthAPI, sess *session.Context, screens Leaver, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{api: api, session: sess, screens: screens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // forwarded to the backend, never stored
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role,omitempty"`
	Next    string `json:"next,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Login exchanges operator credentials for a token and stores it on the kiosk.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := h.api.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login failed", zap.String("email", sanitizeForLog(req.Email)), zap.Error(err))
		if errors.Is(err, kerrors.ErrTransport) {
			respondJSON(w, http.StatusBadGateway, LoginResponse{Error: "Something went wrong. Please try again."})
			return
		}
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: "Invalid credentials"})
		return
	}

	claims, err := session.DecodeClaims(token)
	if err != nil {
		h.logger.Warn("login returned an unreadable token", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, LoginResponse{Error: "Invalid credentials"})
		return
	}
	if err := h.session.SetToken(token); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store session")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Role:    claims.Role,
		Next:    session.NextScreenForRole(claims.Role),
	})
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // forwarded to the backend, never stored
	Role     string `json:"role"`
}

// Signup creates an operator account. The operator logs in afterwards.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "full_name, email and password are required")
		return
	}

	resp, err := h.api.Signup(r.Context(), vmsone.SignupRequest{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		var se *kerrors.ServerError
		switch {
		case errors.As(err, &se) && se.Message != "":
			respondJSON(w, se.Status, map[string]any{"success": false, "message": se.Message})
		case errors.As(err, &se):
			respondJSON(w, se.Status, map[string]any{"success": false, "message": "Error creating account"})
		default:
			respondJSON(w, http.StatusBadGateway, map[string]any{"success": false, "message": "Something went wrong. Please try again."})
		}
		return
	}

	message := string(resp.Message)
	if message == "" {
		message = "Account created successfully!"
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": message, "next": session.ScreenLogin})
}

// Logout forgets the token and the screen state.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.screens.Leave()
	if err := h.session.Logout(); err != nil {
		h.logger.Warn("failed to clear stored token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "next": session.ScreenLogin})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	Next          string `json:"next,omitempty"`
}

// Status reports whether the kiosk holds a valid token.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, err := h.session.Claims()
	if err != nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false, Next: session.ScreenLogin})
		return
	}
	resp := StatusResponse{
		Authenticated: true,
		Email:         claims.Email,
		Role:          claims.Role,
		Next:          session.NextScreenForRole(claims.Role),
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Format("2006-01-02T15:04:05Z")
	}
	respondJSON(w, http.StatusOK, resp)
}
