package session

import (
	"errors"
	"slices"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
)

// Decision is the outcome of a route guard check.
type Decision int

const (
	Allowed Decision = iota
	RedirectLogin
	RedirectHome
)

// Screen paths used for redirects.
const (
	ScreenHome      = "/"
	ScreenLogin     = "/login"
	ScreenDashboard = "/dashboard"
	ScreenCheckIn   = "/check-in"
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Target returns where a denied user is sent, or "" when allowed.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return ScreenLogin
	case RedirectHome:
		return ScreenHome
	default:
		return ""
	}
}

// Guard checks the stored token against the roles allowed on a screen. Missing,
// undecodable and expired tokens send the user to login; a role outside roles sends
// them home. Without roles any signed-in user is allowed.
func (c *Context) Guard(roles ...string) (Decision, *Claims) {
	claims, err := c.Claims()
	if err != nil {
		if !errors.Is(err, kerrors.ErrAuth) {
			c.logger.Sugar().Warnf("guard: %v", err)
		}
		return RedirectLogin, nil
	}
	if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
		return RedirectHome, claims
	}
	return Allowed, claims
}

// NextScreenForRole returns the landing screen after login.
func NextScreenForRole(role string) string {
	switch role {
	case "admin":
		return ScreenDashboard
	case "security":
		return ScreenCheckIn
	default:
		return ScreenHome
	}
}
