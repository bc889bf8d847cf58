// Package worker runs periodic housekeeping that never touches tenant rows:
// expired sessions, stale rate limit counters and process gauges.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/ratelimit"
	"github.com/nawinsharma/kandid/internal/repository"
)

// DefaultSchedule runs housekeeping every 15 minutes
const DefaultSchedule = "@every 15m"

// Worker runs housekeeping on a cron schedule
type Worker struct {
	sessions  *repository.SessionRepository
	stats     *repository.StatsRepository
	limiter   *ratelimit.Limiter
	cron      *cron.Cron
	schedule  string
	logger    *slog.Logger
	startTime time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Report summarizes one housekeeping run
type Report struct {
	SessionsPurged int64
	CountersPruned int
	LeadsByStatus  map[string]int
}

// New creates a worker. limiter may be nil.
func New(db *sql.DB, limiter *ratelimit.Limiter, schedule string, logger *slog.Logger) (*Worker, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid housekeeping schedule %q: %w", schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		sessions:  repository.NewSessionRepository(db),
		stats:     repository.NewStatsRepository(db),
		limiter:   limiter,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule:  schedule,
		logger:    logger.With("component", "worker"),
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start runs housekeeping once and then on the configured schedule
func (w *Worker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.tick); err != nil {
		return fmt.Errorf("failed to schedule housekeeping: %w", err)
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.tick()
	}()
	w.cron.Start()
	w.logger.Info("worker started", "schedule", w.schedule)
	return nil
}

// Stop cancels a running pass and waits for scheduled jobs to finish
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")
	w.cancel()
	<-w.cron.Stop().Done()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) tick() {
	report, err := w.RunOnce(w.ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("housekeeping failed", "error", err)
		}
		return
	}
	w.logger.Debug("housekeeping done",
		"sessions_purged", report.SessionsPurged,
		"counters_pruned", report.CountersPruned,
	)
}

// RunOnce performs one housekeeping pass. Every step runs even if an
// earlier one fails; the errors are joined.
func (w *Worker) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{}
	var errs []error

	purged, err := w.sessions.DeleteExpired(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		report.SessionsPurged = purged
		metrics.AddSessionsPurged(purged)
	}

	counts, err := w.stats.CountByStatus(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to count leads: %w", err))
	} else {
		report.LeadsByStatus = make(map[string]int, len(counts))
		for status, n := range counts {
			report.LeadsByStatus[string(status)] = n
		}
		metrics.SetLeadsByStatus(report.LeadsByStatus)
	}

	if w.limiter != nil {
		pruned, err := w.limiter.Prune()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to prune rate limit counters: %w", err))
		}
		report.CountersPruned = pruned
	}

	metrics.SetRuntime(time.Since(w.startTime), runtime.NumGoroutine())

	return report, errors.Join(errs...)
}
