package worker

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nawinsharma/kandid/internal/db"
	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/ratelimit"
	"github.com/nawinsharma/kandid/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seed(t *testing.T, d *db.DB) string {
	t.Helper()
	ctx := context.Background()

	u := &models.User{Email: "owner@example.com"}
	if err := repository.NewUserRepository(d.DB).Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	c := &models.Campaign{UserID: u.ID, Name: "Campaign", Status: models.CampaignStatusActive}
	if err := repository.NewCampaignRepository(d.DB).Create(ctx, c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	leads := repository.NewLeadRepository(d.DB)
	for _, status := range []models.LeadStatus{models.LeadPending, models.LeadPending, models.LeadConverted} {
		l := &models.Lead{UserID: u.ID, CampaignID: c.ID, Name: "Lead", Status: status}
		if err := leads.Create(ctx, l); err != nil {
			t.Fatalf("create lead: %v", err)
		}
	}
	return u.ID
}

func TestNewRejectsBadSchedule(t *testing.T) {
	d := setupTestDB(t)

	if _, err := New(d.DB, nil, "whenever you like", testLogger()); err == nil {
		t.Error("New() should reject an unparseable schedule")
	}

	w, err := New(d.DB, nil, "", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.schedule != DefaultSchedule {
		t.Errorf("schedule = %q, want %q", w.schedule, DefaultSchedule)
	}
}

func TestRunOnce(t *testing.T) {
	m := metrics.New()
	metrics.SetGlobal(m)
	t.Cleanup(func() { metrics.SetGlobal(nil) })

	d := setupTestDB(t)
	userID := seed(t, d)
	ctx := context.Background()

	sessions := repository.NewSessionRepository(d.DB)
	if _, err := sessions.Create(ctx, userID, -time.Minute); err != nil {
		t.Fatalf("create expired session: %v", err)
	}
	live, err := sessions.Create(ctx, userID, time.Hour)
	if err != nil {
		t.Fatalf("create live session: %v", err)
	}

	w, err := New(d.DB, nil, "@every 1h", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if report.SessionsPurged != 1 {
		t.Errorf("SessionsPurged = %d, want 1", report.SessionsPurged)
	}
	if got := report.LeadsByStatus["pending"]; got != 2 {
		t.Errorf("LeadsByStatus[pending] = %d, want 2", got)
	}
	if got := report.LeadsByStatus["blocked"]; got != 0 {
		t.Errorf("LeadsByStatus[blocked] = %d, want 0", got)
	}

	if got := testutil.ToFloat64(m.SessionsPurgedTotal); got != 1 {
		t.Errorf("sessions purged metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LeadsByStatus.WithLabelValues("converted")); got != 1 {
		t.Errorf("converted gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Goroutines); got < 1 {
		t.Errorf("goroutines gauge = %v, want > 0", got)
	}

	user, err := sessions.GetUser(ctx, live.ID)
	if err != nil || user == nil {
		t.Errorf("live session should survive housekeeping, got %v, %v", user, err)
	}
}

func TestRunOncePrunesLimiter(t *testing.T) {
	d := setupTestDB(t)

	bdb, err := ratelimit.Open(filepath.Join(t.TempDir(), "ratelimit.db"))
	if err != nil {
		t.Fatalf("ratelimit.Open() error = %v", err)
	}
	limiter, err := ratelimit.NewLimiter(bdb, &ratelimit.Config{Login: &ratelimit.LimitConfig{PerHour: 5}})
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	t.Cleanup(func() {
		limiter.Stop()
		bdb.Close()
	})

	if _, err := limiter.Allow(context.Background(), ratelimit.LevelLoginIP, "192.0.2.1"); err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	w, err := New(d.DB, limiter, "@every 1h", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	// the counter is fresh, nothing to prune yet
	if report.CountersPruned != 0 {
		t.Errorf("CountersPruned = %d, want 0", report.CountersPruned)
	}
}

func TestRunOnceCanceled(t *testing.T) {
	d := setupTestDB(t)
	w, err := New(d.DB, nil, "@every 1h", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.RunOnce(ctx); err == nil {
		t.Error("RunOnce() with canceled context should fail")
	}
}

func TestStartStop(t *testing.T) {
	d := setupTestDB(t)
	w, err := New(d.DB, nil, "@every 1h", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
