package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nawinsharma/kandid/internal/db"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestGate(t *testing.T, allowSignup bool) *Gate {
	t.Helper()
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	g := NewGate(
		repository.NewUserRepository(d.DB),
		repository.NewSessionRepository(d.DB),
		NewTokenIssuer(testSecret, time.Hour),
		GateConfig{SessionTTL: time.Hour, AllowSignup: allowSignup},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	g.cost = bcrypt.MinCost
	return g
}

func cookieHeader(sessionID string) http.Header {
	h := http.Header{}
	h.Set("Cookie", (&http.Cookie{Name: SessionCookie, Value: sessionID}).String())
	return h
}

func TestGate_RegisterAndLogin(t *testing.T) {
	g := newTestGate(t, true)
	ctx := context.Background()

	user, session, err := g.Register(ctx, " Ada@Example.com ", "Ada", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, user.ID, session.UserID)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	got, s2, err := g.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEqual(t, session.ID, s2.ID)

	_, _, err = g.Login(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = g.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGate_RegisterValidation(t *testing.T) {
	g := newTestGate(t, true)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{"empty email", "", "long enough", "email"},
		{"bad email", "not-an-address", "long enough", "email"},
		{"short password", "bob@example.com", "short", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := g.Register(ctx, tt.email, "", tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrValidation)
			var ve *service.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	_, _, err := g.Register(ctx, "dup@example.com", "", "long enough")
	require.NoError(t, err)
	_, _, err = g.Register(ctx, "DUP@example.com", "", "long enough")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestGate_RegisterDisabled(t *testing.T) {
	g := newTestGate(t, false)

	_, _, err := g.Register(context.Background(), "ada@example.com", "", "correct horse")
	assert.ErrorIs(t, err, ErrSignupDisabled)

	// operators can still create users
	_, err = g.CreateUser(context.Background(), "ada@example.com", "", "correct horse")
	assert.NoError(t, err)
}

func TestGate_GetSession(t *testing.T) {
	g := newTestGate(t, true)
	ctx := context.Background()

	user, session, err := g.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)

	t.Run("no credentials", func(t *testing.T) {
		got, err := g.GetSession(ctx, http.Header{})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("session cookie", func(t *testing.T) {
		got, err := g.GetSession(ctx, cookieHeader(session.ID))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("unknown cookie", func(t *testing.T) {
		got, err := g.GetSession(ctx, cookieHeader("bogus"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("bearer token", func(t *testing.T) {
		token, _, err := g.IssueToken(user)
		require.NoError(t, err)
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)

		got, err := g.GetSession(ctx, h)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("tampered bearer token", func(t *testing.T) {
		h := http.Header{}
		h.Set("Authorization", "Bearer not.a.token")
		got, err := g.GetSession(ctx, h)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestGate_Logout(t *testing.T) {
	g := newTestGate(t, true)
	ctx := context.Background()

	_, session, err := g.Register(ctx, "ada@example.com", "", "correct horse")
	require.NoError(t, err)

	require.NoError(t, g.Logout(ctx, cookieHeader(session.ID)))

	got, err := g.GetSession(ctx, cookieHeader(session.ID))
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, g.Logout(ctx, http.Header{}))
}

func TestGate_LoginOIDC(t *testing.T) {
	g := newTestGate(t, false)
	ctx := context.Background()

	first, _, err := g.LoginOIDC(ctx, &UserInfo{Email: "Sso@Example.com", Name: "SSO User"})
	require.NoError(t, err)
	assert.Equal(t, "sso@example.com", first.Email)
	assert.Empty(t, first.PasswordHash)

	second, _, err := g.LoginOIDC(ctx, &UserInfo{Email: "sso@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// SSO-only users cannot log in with a password
	_, _, err = g.Login(ctx, "sso@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGate_SetPassword(t *testing.T) {
	g := newTestGate(t, true)
	ctx := context.Background()

	_, err := g.CreateUser(ctx, "ada@example.com", "", "correct horse")
	require.NoError(t, err)

	assert.ErrorIs(t, g.SetPassword(ctx, "ada@example.com", "short"), service.ErrValidation)
	require.NoError(t, g.SetPassword(ctx, "ADA@example.com", "battery staple"))

	_, _, err = g.Login(ctx, "ada@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = g.Login(ctx, "ada@example.com", "battery staple")
	assert.NoError(t, err)

	assert.ErrorIs(t, g.SetPassword(ctx, "nobody@example.com", "battery staple"), repository.ErrNotFound)
}
