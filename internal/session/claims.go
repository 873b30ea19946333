package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Subject is the token subject. The backend issues numeric user ids.
type Subject string

func (s *Subject) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Subject(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("sub: %w", err)
	}
	*s = Subject(n.String())
	return nil
}

// Claims is the payload of a VMSONE access token.
type Claims struct {
	Sub       Subject          `json:"sub"`
	Email     string           `json:"email"`
	Role      string           `json:"role"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error) { return "", nil }
func (c *Claims) GetSubject() (string, error) { return string(c.Sub), nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// Expired reports whether the token expired before now. A token without exp never expires.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// DecodeClaims reads the claims of token without verifying its signature. The kiosk
// does not hold the signing key; the backend verifies every request.
func DecodeClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return claims, nil
}
