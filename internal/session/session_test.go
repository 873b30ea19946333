package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
	"github.com/kozaktomas/vms-kiosk/internal/session"
	"github.com/kozaktomas/vms-kiosk/internal/session/sessiontest"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store, err := session.OpenFileStore(dir)
	require.NoError(t, err)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("abc"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a second store over the same dir sees the token
	reopened, err := session.OpenFileStore(dir)
	require.NoError(t, err)
	token, err = reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0o600))

	store, err := session.OpenFileStore(dir)
	require.NoError(t, err)
	_, err = store.Load()
	assert.Error(t, err)
}

func TestRequireToken(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		token    string
		wantErr  bool
		wantKept bool
	}{
		{"valid", sessiontest.Token(t, "security", now.Add(time.Hour)), false, true},
		{"no exp", sessiontest.Token(t, "security", time.Time{}), false, true},
		{"expired", sessiontest.Token(t, "security", now.Add(-time.Minute)), true, false},
		{"garbage", "not-a-token", true, false},
		{"empty", "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &session.MemoryStore{}
			require.NoError(t, store.Save(tt.token))
			ctx := session.New(store, 0, nil)

			token, err := ctx.RequireToken()
			if tt.wantErr {
				assert.ErrorIs(t, err, kerrors.ErrAuth)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.token, token)
			}

			stored, _ := store.Load()
			if tt.wantKept {
				assert.Equal(t, tt.token, stored)
			} else {
				assert.Empty(t, stored)
			}
		})
	}
}

func TestClaims_NumericSubject(t *testing.T) {
	claims, err := session.DecodeClaims(sessiontest.Token(t, "admin", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, session.Subject("42"), claims.Sub)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "admin@example.com", claims.Email)
	require.NotNil(t, claims.IssuedAt)
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		roles  []string
		want   session.Decision
		target string
	}{
		{"allowed", sessiontest.Token(t, "security", time.Now().Add(time.Hour)), []string{"security", "admin"}, session.Allowed, ""},
		{"wrong role", sessiontest.Token(t, "visitor", time.Now().Add(time.Hour)), []string{"security"}, session.RedirectHome, "/"},
		{"expired", sessiontest.Token(t, "security", time.Now().Add(-time.Hour)), []string{"security"}, session.RedirectLogin, "/login"},
		{"missing", "", []string{"security"}, session.RedirectLogin, "/login"},
		{"any role", sessiontest.Token(t, "visitor", time.Now().Add(time.Hour)), nil, session.Allowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &session.MemoryStore{}
			require.NoError(t, store.Save(tt.token))
			ctx := session.New(store, 0, nil)

			got, _ := ctx.Guard(tt.roles...)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.target, got.Target())
		})
	}
}

func TestGuard_UsesClock(t *testing.T) {
	exp := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	ctx := session.New(&session.MemoryStore{}, 0, nil)
	require.NoError(t, ctx.SetToken(sessiontest.Token(t, "admin", exp)))

	ctx.SetClock(func() time.Time { return exp.Add(-time.Second) })
	got, claims := ctx.Guard("admin")
	assert.Equal(t, session.Allowed, got)
	require.NotNil(t, claims)

	ctx.SetClock(func() time.Time { return exp.Add(time.Second) })
	got, _ = ctx.Guard("admin")
	assert.Equal(t, session.RedirectLogin, got)
	assert.Empty(t, ctx.Token())
}

func TestNextScreenForRole(t *testing.T) {
	assert.Equal(t, "/dashboard", session.NextScreenForRole("admin"))
	assert.Equal(t, "/check-in", session.NextScreenForRole("security"))
	assert.Equal(t, "/", session.NextScreenForRole("receptionist"))
}

func TestPrefill_ReadOnce(t *testing.T) {
	ctx := sessiontest.LoggedIn(t, "security")
	rec := &visitor.Record{ID: "9", FullName: "Jane Doe"}

	_, ok := ctx.TakePrefill()
	assert.False(t, ok)

	ctx.PutPrefill(rec)
	peeked, ok := ctx.PeekPrefill()
	require.True(t, ok)
	assert.Same(t, rec, peeked)

	taken, ok := ctx.TakePrefill()
	require.True(t, ok)
	assert.Same(t, rec, taken)

	_, ok = ctx.TakePrefill()
	assert.False(t, ok)
}

func TestPrefill_Expires(t *testing.T) {
	ctx := session.New(&session.MemoryStore{}, 20*time.Millisecond, nil)
	ctx.PutPrefill(&visitor.Record{FullName: "Jane"})

	assert.Eventually(t, func() bool {
		_, ok := ctx.PeekPrefill()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestLogout(t *testing.T) {
	ctx := sessiontest.LoggedIn(t, "security")
	ctx.PutPrefill(&visitor.Record{FullName: "Jane"})

	require.NoError(t, ctx.Logout())

	assert.Empty(t, ctx.Token())
	_, ok := ctx.PeekPrefill()
	assert.False(t, ok)
	_, err := ctx.RequireToken()
	assert.ErrorIs(t, err, kerrors.ErrAuth)
}
