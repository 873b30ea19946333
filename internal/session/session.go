// Package session is the kiosk's shared context: the access token of the logged-in
// operator and the one-shot slot that carries a matched visitor from the
// verification screen to the returning-visitor form.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/constants"
	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const prefillKey = "prefillVisitor"

// Context holds the token and prefill slot. Safe for concurrent use.
type Context struct {
	tokens TokenStore
	logger *zap.Logger

	mu      sync.Mutex // serializes take-and-delete on the prefill slot
	prefill *cache.Cache
	ttl     time.Duration
	now     func() time.Time
}

func New(tokens TokenStore, prefillTTL time.Duration, logger *zap.Logger) *Context {
	if prefillTTL <= 0 {
		prefillTTL = constants.DefaultPrefillTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		tokens:  tokens,
		logger:  logger,
		prefill: cache.New(prefillTTL, 2*prefillTTL),
		ttl:     prefillTTL,
		now:     time.Now,
	}
}

// SetClock replaces the clock used for token expiry checks.
func (c *Context) SetClock(now func() time.Time) {
	c.now = now
}

// Token returns the stored token, or "" when nobody is logged in.
func (c *Context) Token() string {
	token, err := c.tokens.Load()
	if err != nil {
		c.logger.Warn("failed to load token", zap.Error(err))
		return ""
	}
	return token
}

func (c *Context) SetToken(token string) error {
	return c.tokens.Save(token)
}

func (c *Context) ClearToken() error {
	return c.tokens.Clear()
}

// Claims returns the decoded claims of the stored token. A token that cannot be
// decoded or has expired is deleted and reported as kerrors.ErrAuth.
func (c *Context) Claims() (*Claims, error) {
	return c.check(c.Token())
}

// RequireToken returns a usable token or kerrors.ErrAuth.
func (c *Context) RequireToken() (string, error) {
	token := c.Token()
	if _, err := c.check(token); err != nil {
		return "", err
	}
	return token, nil
}

func (c *Context) check(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no token", kerrors.ErrAuth)
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		c.discard("undecodable")
		return nil, fmt.Errorf("%w: %w", kerrors.ErrAuth, err)
	}
	if claims.Expired(c.now()) {
		c.discard("expired")
		return nil, fmt.Errorf("%w: token expired", kerrors.ErrAuth)
	}
	return claims, nil
}

func (c *Context) discard(reason string) {
	c.logger.Info("discarding stored token", zap.String("reason", reason))
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("failed to clear token", zap.Error(err))
	}
}

// PutPrefill stores the matched visitor for the returning-visitor form.
func (c *Context) PutPrefill(r *visitor.Record) {
	c.prefill.Set(prefillKey, r, c.ttl)
}

// TakePrefill returns the matched visitor and empties the slot.
func (c *Context) TakePrefill() (*visitor.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.prefill.Get(prefillKey)
	if !ok {
		return nil, false
	}
	c.prefill.Delete(prefillKey)
	return v.(*visitor.Record), true
}

// PeekPrefill returns the matched visitor without consuming it.
func (c *Context) PeekPrefill() (*visitor.Record, bool) {
	v, ok := c.prefill.Get(prefillKey)
	if !ok {
		return nil, false
	}
	return v.(*visitor.Record), true
}

func (c *Context) ClearPrefill() {
	c.prefill.Delete(prefillKey)
}

// Logout forgets the token and any pending prefill.
func (c *Context) Logout() error {
	c.ClearPrefill()
	return c.tokens.Clear()
}
