package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/service"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

const (
	codeUnauthorized     = "UNAUTHORIZED"
	codeForbidden        = "FORBIDDEN"
	codeNotFound         = "NOT_FOUND"
	codeValidation       = "VALIDATION_ERROR"
	codeRateLimited      = "RATE_LIMITED"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
}

// SuccessResponse is returned by deletes and logout
type SuccessResponse struct {
	Success bool `json:"success"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Database: "ok",
	}

	status := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("database ping failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	s.sendJSON(w, status, resp)
}

// currentUser returns the user stored by requireSession
func currentUser(r *http.Request) *models.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

// decodeBody decodes a JSON request body into v. A failure is reported as a
// validation error on the body.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &service.ValidationError{Field: "body", Message: "request body is required"}
		}
		return &service.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// sendServiceError maps errors from the service layer to HTTP responses.
// Anything unexpected is logged and hidden behind a generic 500.
func (s *Server) sendServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		s.sendJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: ve.Error(),
			Code:  codeValidation,
			Field: ve.Field,
		})
	case errors.Is(err, service.ErrNotFound):
		s.sendError(w, http.StatusNotFound, codeNotFound, "Not found")
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		s.sendError(w, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
	case errors.Is(err, auth.ErrSignupDisabled):
		s.sendError(w, http.StatusForbidden, codeForbidden, "Signup is disabled")
	default:
		s.logger.Error("request failed",
			"op", op,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		s.sendError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
	}
}
