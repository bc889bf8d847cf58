package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/config"
	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/ratelimit"
	"github.com/nawinsharma/kandid/internal/service"
	kandidtls "github.com/nawinsharma/kandid/internal/tls"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	db         *sql.DB
	services   *service.Services
	gate       *auth.Gate
	oidc       *auth.OIDCProvider
	limiter    *ratelimit.Limiter
	tls        *kandidtls.Provider
	config     *config.ServerConfig
	version    string
	logger     *slog.Logger
	startTime  time.Time
}

// Deps contains everything the API server is built from.
// OIDC, Limiter and TLS are optional. Without TLS the server speaks plain HTTP.
type Deps struct {
	Config   *config.ServerConfig
	DB       *sql.DB
	Services *service.Services
	Gate     *auth.Gate
	OIDC     *auth.OIDCProvider
	Limiter  *ratelimit.Limiter
	TLS      *kandidtls.Provider
	Version  string
	Logger   *slog.Logger
}

// NewServer creates a new API server
func NewServer(d Deps) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		db:        d.DB,
		services:  d.Services,
		gate:      d.Gate,
		oidc:      d.OIDC,
		limiter:   d.Limiter,
		tls:       d.TLS,
		config:    d.Config,
		version:   d.Version,
		logger:    d.Logger.With("component", "api"),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusNotFound, codeNotFound, "Route not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method not allowed")
	})

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(s.loginRateLimit).Post("/login", s.handleLogin)
			r.With(s.loginRateLimit).Post("/register", s.handleRegister)
			r.Post("/logout", s.handleLogout)
			r.Get("/session", s.handleSession)
			r.With(s.requireSession).Post("/token", s.handleToken)
			r.Get("/oidc/login", s.handleOIDCLogin)
			r.Get("/oidc/callback", s.handleOIDCCallback)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Use(s.writeRateLimit)

			r.Get("/dashboard", s.handleDashboard)

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", s.handleListCampaigns)
				r.Post("/", s.handleCreateCampaign)
				r.Get("/{id}", s.handleGetCampaign)
				r.Get("/{id}/statistics", s.handleCampaignStatistics)
				r.Get("/{id}/preview", s.handleCampaignPreview)
				r.Patch("/{id}", s.handleUpdateCampaign)
				r.Put("/{id}", s.handleUpdateCampaign)
				r.Delete("/{id}", s.handleDeleteCampaign)
			})

			r.Route("/leads", func(r chi.Router) {
				r.Get("/", s.handleListLeads)
				r.Post("/", s.handleCreateLead)
				r.Get("/{id}", s.handleGetLead)
				r.Patch("/{id}", s.handleUpdateLead)
				r.Put("/{id}", s.handleUpdateLead)
				r.Delete("/{id}", s.handleDeleteLead)
				r.Post("/{id}/interactions", s.handleAppendInteraction)
			})

			r.Route("/linkedin-accounts", func(r chi.Router) {
				r.Get("/", s.handleListAccounts)
				r.Post("/", s.handleCreateAccount)
				r.Get("/{id}", s.handleGetAccount)
				r.Delete("/{id}", s.handleDeleteAccount)
			})
		})
	})
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var challenge *http.Server
	errCh := make(chan error, 2)

	if s.tls != nil {
		s.httpServer.TLSConfig = s.tls.TLSConfig()
		if challenge = s.tls.ChallengeServer(); challenge != nil {
			go func() {
				s.logger.Info("starting ACME challenge server", "addr", challenge.Addr)
				errCh <- challenge.ListenAndServe()
			}()
		}
	}

	go func() {
		s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr, "tls", s.tls != nil)
		if s.tls != nil {
			errCh <- s.httpServer.ListenAndServeTLS("", "")
		} else {
			errCh <- s.httpServer.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.shutdown(challenge)
		return err
	case <-ctx.Done():
		return s.shutdown(challenge)
	}
}

func (s *Server) shutdown(challenge *http.Server) error {
	s.logger.Info("shutting down HTTP API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if challenge != nil {
		errs = append(errs, challenge.Shutdown(shutdownCtx))
	}
	errs = append(errs, s.httpServer.Shutdown(shutdownCtx))
	return errors.Join(errs...)
}
