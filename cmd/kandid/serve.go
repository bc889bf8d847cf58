package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nawinsharma/kandid/internal/api"
	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/config"
	"github.com/nawinsharma/kandid/internal/db"
	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/ratelimit"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/service"
	kandidtls "github.com/nawinsharma/kandid/internal/tls"
	"github.com/nawinsharma/kandid/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var oidcProvider *auth.OIDCProvider
	if cfg.Auth.OIDC.Enabled {
		oidcProvider, err = auth.NewOIDCProvider(ctx, &cfg.Auth.OIDC)
		if err != nil {
			return fmt.Errorf("failed to initialize OIDC provider: %w", err)
		}
		logger.Info("OIDC provider initialized", "issuer", cfg.Auth.OIDC.IssuerURL)
	}

	limiter, closeLimiter, err := newLimiter(cfg.RateLimit)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLimiter(); err != nil {
			logger.Error("failed to persist rate limit counters", "error", err)
		}
	}()

	var tlsProvider *kandidtls.Provider
	if cfg.Server.TLS.Enabled {
		tlsProvider, err = kandidtls.New(&cfg.Server.TLS)
		if err != nil {
			return err
		}
		for _, c := range tlsProvider.CachedCertificates(ctx) {
			logger.Info("cached ACME certificate", "domains", c.DNSNames, "days_left", c.DaysLeft)
		}
	}

	gate := auth.NewGate(
		repository.NewUserRepository(database.DB),
		repository.NewSessionRepository(database.DB),
		auth.NewTokenIssuer(cfg.Auth.SessionSecret, cfg.Auth.TokenTTL),
		auth.GateConfig{SessionTTL: cfg.Auth.SessionTTL, AllowSignup: cfg.Auth.AllowSignup},
		logger,
	)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, cfg.Metrics.AllowedIPs, logger)
	}

	housekeeping, err := worker.New(database.DB, limiter, cfg.Housekeeping.Schedule, logger)
	if err != nil {
		return err
	}
	if err := housekeeping.Start(); err != nil {
		return err
	}
	defer housekeeping.Stop()

	srv := api.NewServer(api.Deps{
		Config:   &cfg.Server,
		DB:       database.DB,
		Services: service.New(database.DB),
		Gate:     gate,
		OIDC:     oidcProvider,
		Limiter:  limiter,
		TLS:      tlsProvider,
		Version:  version,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if metricsServer != nil {
		g.Go(func() error {
			return metricsServer.ListenAndServe()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("shutting down...")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newLimiter returns a nil limiter when every limit is disabled. The
// returned close func persists counters and releases the bbolt file.
func newLimiter(cfg config.RateLimitConfig) (*ratelimit.Limiter, func() error, error) {
	noop := func() error { return nil }

	rlCfg := &ratelimit.Config{FlushInterval: cfg.FlushInterval}
	if cfg.LoginPerHour > 0 {
		rlCfg.Login = &ratelimit.LimitConfig{PerHour: cfg.LoginPerHour}
	}
	if cfg.WritesPerHour > 0 || cfg.WritesPerDay > 0 {
		rlCfg.Writes = &ratelimit.LimitConfig{PerHour: cfg.WritesPerHour, PerDay: cfg.WritesPerDay}
	}
	if rlCfg.Login == nil && rlCfg.Writes == nil {
		return nil, noop, nil
	}

	bdb, err := ratelimit.Open(cfg.Path)
	if err != nil {
		return nil, noop, err
	}
	limiter, err := ratelimit.NewLimiter(bdb, rlCfg)
	if err != nil {
		bdb.Close()
		return nil, noop, err
	}
	return limiter, func() error {
		return errors.Join(limiter.Stop(), bdb.Close())
	}, nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
