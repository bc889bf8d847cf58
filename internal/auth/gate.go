// Package auth resolves the caller of every API request. A caller is
// identified either by the session cookie, backed by a sessions row, or by
// a signed bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/service"
)

// SessionCookie is the name of the session cookie
const SessionCookie = "kandid_session"

// MinPasswordLength applies to local accounts
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSignupDisabled     = errors.New("signup is disabled")
)

// Gate authenticates callers and manages their sessions
type Gate struct {
	users       *repository.UserRepository
	sessions    *repository.SessionRepository
	tokens      *TokenIssuer
	sessionTTL  time.Duration
	allowSignup bool
	cost        int
	logger      *slog.Logger
}

// GateConfig carries the auth settings the gate needs
type GateConfig struct {
	SessionTTL  time.Duration
	AllowSignup bool
}

func NewGate(users *repository.UserRepository, sessions *repository.SessionRepository, tokens *TokenIssuer, cfg GateConfig, logger *slog.Logger) *Gate {
	return &Gate{
		users:       users,
		sessions:    sessions,
		tokens:      tokens,
		sessionTTL:  cfg.SessionTTL,
		allowSignup: cfg.AllowSignup,
		cost:        bcrypt.DefaultCost,
		logger:      logger.With("component", "auth"),
	}
}

// SessionTTL is the lifetime of sessions created by the gate
func (g *Gate) SessionTTL() time.Duration {
	return g.sessionTTL
}

// GetSession resolves the caller from request headers. It returns nil, nil
// when the headers carry no valid credentials.
func (g *Gate) GetSession(ctx context.Context, header http.Header) (*models.User, error) {
	if token, ok := bearerToken(header); ok {
		claims, err := g.tokens.Verify(token)
		if err != nil {
			g.logger.Debug("rejected bearer token", "error", err)
			return nil, nil
		}
		return g.users.GetByID(ctx, claims.Subject)
	}

	sessionID := SessionID(header)
	if sessionID == "" {
		return nil, nil
	}
	return g.sessions.GetUser(ctx, sessionID)
}

// SessionID returns the session cookie value, or "" when absent
func SessionID(header http.Header) string {
	r := http.Request{Header: header}
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func bearerToken(header http.Header) (string, bool) {
	scheme, token, ok := strings.Cut(header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Login checks a local password and starts a session
func (g *Gate) Login(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	email = NormalizeEmail(email)

	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		metrics.IncLogins("password", "failure")
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.IncLogins("password", "failure")
		return nil, nil, ErrInvalidCredentials
	}

	session, err := g.sessions.Create(ctx, user.ID, g.sessionTTL)
	if err != nil {
		return nil, nil, err
	}
	metrics.IncLogins("password", "success")
	g.logger.Info("user logged in", "email", user.Email)
	return user, session, nil
}

// Register creates a local user and starts a session
func (g *Gate) Register(ctx context.Context, email, name, password string) (*models.User, *models.Session, error) {
	if !g.allowSignup {
		return nil, nil, ErrSignupDisabled
	}

	user, err := g.CreateUser(ctx, email, name, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := g.sessions.Create(ctx, user.ID, g.sessionTTL)
	if err != nil {
		return nil, nil, err
	}
	g.logger.Info("user registered", "email", user.Email)
	return user, session, nil
}

// CreateUser validates and stores a local user with a bcrypt password hash
func (g *Gate) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, &service.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	if len(password) < MinPasswordLength {
		return nil, &service.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		}
	}

	existing, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, &service.ValidationError{Field: "email", Message: "is already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Name: strings.TrimSpace(name), PasswordHash: string(hash)}
	if err := g.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPassword validates and stores a new password for the user with email
func (g *Gate) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLength {
		return &service.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return g.users.UpdatePassword(ctx, NormalizeEmail(email), string(hash))
}

// LoginOIDC finds or creates the user behind a verified identity and starts a session
func (g *Gate) LoginOIDC(ctx context.Context, info *UserInfo) (*models.User, *models.Session, error) {
	email := NormalizeEmail(info.Email)

	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		user = &models.User{Email: email, Name: info.Name}
		if err := g.users.Create(ctx, user); err != nil {
			return nil, nil, err
		}
		g.logger.Info("created OIDC user", "email", email)
	}

	session, err := g.sessions.Create(ctx, user.ID, g.sessionTTL)
	if err != nil {
		return nil, nil, err
	}
	metrics.IncLogins("oidc", "success")
	return user, session, nil
}

// Logout ends the session named by the cookie, if any
func (g *Gate) Logout(ctx context.Context, header http.Header) error {
	sessionID := SessionID(header)
	if sessionID == "" {
		return nil
	}
	return g.sessions.Delete(ctx, sessionID)
}

// IssueToken returns a bearer token for API clients
func (g *Gate) IssueToken(user *models.User) (string, time.Time, error) {
	return g.tokens.Issue(user)
}

// NormalizeEmail is the canonical form emails are stored and looked up in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
