package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/ipfilter"
	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/ratelimit"
)

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// requireSession resolves the caller and stores it in the request context
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.gate.GetSession(r.Context(), r.Header)
		if err != nil {
			s.logger.Error("failed to resolve session", "error", err)
			s.sendError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
			return
		}
		if user == nil {
			s.sendError(w, http.StatusUnauthorized, codeUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

// loginRateLimit counts login and registration attempts per client IP
func (s *Server) loginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if addr, ok := ipfilter.ClientAddr(r); ok {
			if !s.allow(w, r.Context(), ratelimit.LevelLoginIP, addr.String()) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// writeRateLimit counts mutating calls per user. It must run after requireSession.
func (s *Server) writeRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		user, ok := auth.UserFromContext(r.Context())
		if ok && !s.allow(w, r.Context(), ratelimit.LevelUserWrite, user.ID) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow checks the limiter and writes a 429 response when the request is
// over its limit. Limiter failures let the request through.
func (s *Server) allow(w http.ResponseWriter, ctx context.Context, level ratelimit.Level, key string) bool {
	if s.limiter == nil || !s.limiter.Enabled(level) {
		return true
	}

	result, err := s.limiter.Allow(ctx, level, key)
	if err != nil {
		s.logger.Warn("rate limit check failed", "level", level, "error", err)
		return true
	}
	if result.Allowed {
		return true
	}

	metrics.IncRateLimitExceeded(string(level))
	s.logger.Warn("rate limit exceeded", "level", level, "key", key)

	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	s.sendError(w, http.StatusTooManyRequests, codeRateLimited, "Rate limit exceeded")
	return false
}
