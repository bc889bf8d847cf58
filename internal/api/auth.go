package api

import (
	"net/http"
	"time"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/ipfilter"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/ratelimit"
)

const oidcStateCookie = "kandid_oidc_state"

// LoginRequest is the request body for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the request body for POST /api/auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register. Token is a bearer token
// for API clients that do not keep cookies.
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// SessionResponse is the response for GET /api/auth/session. User is null
// when the caller is anonymous.
type SessionResponse struct {
	User *models.User `json:"user"`
}

// handleLogin handles POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.sendServiceError(w, r, "login", err)
		return
	}

	user, session, err := s.gate.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.sendServiceError(w, r, "login", err)
		return
	}

	s.resetLoginLimit(r)
	s.startSession(w, r, user, session)
}

// handleRegister handles POST /api/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.sendServiceError(w, r, "register", err)
		return
	}

	user, session, err := s.gate.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.sendServiceError(w, r, "register", err)
		return
	}

	s.startSession(w, r, user, session)
}

// handleLogout handles POST /api/auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Logout(r.Context(), r.Header); err != nil {
		s.logger.Error("failed to delete session", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
	s.sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleSession handles GET /api/auth/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := s.gate.GetSession(r.Context(), r.Header)
	if err != nil {
		s.sendServiceError(w, r, "get session", err)
		return
	}
	s.sendJSON(w, http.StatusOK, SessionResponse{User: user})
}

// handleToken handles POST /api/auth/token
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	token, expires, err := s.gate.IssueToken(user)
	if err != nil {
		s.sendServiceError(w, r, "issue token", err)
		return
	}
	s.sendJSON(w, http.StatusOK, AuthResponse{User: user, Token: token, ExpiresAt: expires})
}

// handleOIDCLogin handles GET /api/auth/oidc/login
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		s.sendError(w, http.StatusNotFound, codeNotFound, "OIDC is not configured")
		return
	}

	url, state, err := s.oidc.AuthCodeURL()
	if err != nil {
		s.sendServiceError(w, r, "oidc login", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/api/auth/oidc",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   s.config.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleOIDCCallback handles GET /api/auth/oidc/callback
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		s.sendError(w, http.StatusNotFound, codeNotFound, "OIDC is not configured")
		return
	}

	stateCookie, err := r.Cookie(oidcStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     oidcStateCookie,
		Value:    "",
		Path:     "/api/auth/oidc",
		MaxAge:   -1,
		HttpOnly: true,
	})

	state := r.URL.Query().Get("state")
	if err != nil || state == "" || state != stateCookie.Value {
		s.sendError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		desc := r.URL.Query().Get("error_description")
		if desc == "" {
			desc = r.URL.Query().Get("error")
		}
		if desc == "" {
			desc = "Authorization failed"
		}
		s.sendError(w, http.StatusUnauthorized, codeUnauthorized, desc)
		return
	}

	info, err := s.oidc.Exchange(r.Context(), state, code)
	if err != nil {
		s.logger.Warn("OIDC exchange failed", "error", err)
		s.sendError(w, http.StatusUnauthorized, codeUnauthorized, "Authentication failed")
		return
	}

	_, session, err := s.gate.LoginOIDC(r.Context(), info)
	if err != nil {
		s.sendServiceError(w, r, "oidc callback", err)
		return
	}

	s.setSessionCookie(w, session)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession sets the session cookie and answers with the user and a bearer token
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *models.User, session *models.Session) {
	token, expires, err := s.gate.IssueToken(user)
	if err != nil {
		s.sendServiceError(w, r, "issue token", err)
		return
	}

	s.setSessionCookie(w, session)
	s.sendJSON(w, http.StatusOK, AuthResponse{User: user, Token: token, ExpiresAt: expires})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.config.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}

// resetLoginLimit clears the attempt counter of a client after a successful login
func (s *Server) resetLoginLimit(r *http.Request) {
	if s.limiter == nil {
		return
	}
	addr, ok := ipfilter.ClientAddr(r)
	if !ok {
		return
	}
	if err := s.limiter.Reset(ratelimit.LevelLoginIP, addr.String()); err != nil {
		s.logger.Warn("failed to reset login rate limit", "error", err)
	}
}
