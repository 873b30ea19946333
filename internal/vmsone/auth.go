package vmsone

import (
	"context"
	"fmt"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
)

// SignupRequest creates an operator account.
type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // credentials sent to the backend, never stored
	Role     string `json:"role"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := doPostJSON(ctx, c, "", c.endpoints.Login, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in login response", kerrors.ErrAuth)
	}
	return resp.AccessToken, nil
}

// Signup registers an operator. The role defaults to security.
func (c *Client) Signup(ctx context.Context, r SignupRequest) (*Response, error) {
	if r.Role == "" {
		r.Role = "security"
	}
	return doPostJSON(ctx, c, "", c.endpoints.Signup, r)
}
