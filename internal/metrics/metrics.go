package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Kandid
type Metrics struct {
	// HTTP
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// Leads and campaigns
	LeadsCreatedTotal      prometheus.Counter
	LeadStatusChangesTotal *prometheus.CounterVec
	InteractionsTotal      *prometheus.CounterVec
	CampaignsCreatedTotal  prometheus.Counter
	CampaignsDeletedTotal  prometheus.Counter
	LeadsByStatus          *prometheus.GaugeVec

	// Auth
	LoginsTotal            *prometheus.CounterVec
	SessionsPurgedTotal    prometheus.Counter
	RateLimitExceededTotal *prometheus.CounterVec

	// System
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kandid_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kandid_http_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kandid_http_errors_total",
				Help: "Total number of API error responses",
			},
			[]string{"error_type"},
		),

		LeadsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kandid_leads_created_total",
				Help: "Total number of leads created",
			},
		),
		LeadStatusChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kandid_lead_status_changes_total",
				Help: "Total number of lead status transitions",
			},
			[]string{"from", "to"},
		),
		InteractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kandid_lead_interactions_total",
				Help: "Total number of interactions appended to lead histories",
			},
			[]string{"type"},
		),
		CampaignsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kandid_campaigns_created_total",
				Help: "Total number of campaigns created",
			},
		),
		CampaignsDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kandid_campaigns_deleted_total",
				Help: "Total number of campaigns deleted",
			},
		),
		LeadsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kandid_leads",
				Help: "Number of stored leads by status, refreshed by housekeeping",
			},
			[]string{"status"},
		),

		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kandid_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"method", "result"},
		),
		SessionsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kandid_sessions_purged_total",
				Help: "Total number of expired sessions removed",
			},
		),
		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kandid_ratelimit_exceeded_total",
				Help: "Total number of rate limit exceeded events",
			},
			[]string{"level"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kandid_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kandid_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.LeadsCreatedTotal,
		m.LeadStatusChangesTotal,
		m.InteractionsTotal,
		m.CampaignsCreatedTotal,
		m.CampaignsDeletedTotal,
		m.LeadsByStatus,
		m.LoginsTotal,
		m.SessionsPurgedTotal,
		m.RateLimitExceededTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

func IncLeadsCreated() {
	if m := Global(); m != nil {
		m.LeadsCreatedTotal.Inc()
	}
}

// IncLeadStatusChange records a status transition. Unchanged statuses are ignored.
func IncLeadStatusChange(from, to string) {
	if from == to {
		return
	}
	if m := Global(); m != nil {
		m.LeadStatusChangesTotal.WithLabelValues(from, to).Inc()
	}
}

func IncInteractions(interactionType string) {
	if m := Global(); m != nil {
		m.InteractionsTotal.WithLabelValues(interactionType).Inc()
	}
}

func IncCampaignsCreated() {
	if m := Global(); m != nil {
		m.CampaignsCreatedTotal.Inc()
	}
}

func IncCampaignsDeleted() {
	if m := Global(); m != nil {
		m.CampaignsDeletedTotal.Inc()
	}
}

// SetLeadsByStatus replaces the per-status lead gauge values
func SetLeadsByStatus(counts map[string]int) {
	m := Global()
	if m == nil {
		return
	}
	for status, n := range counts {
		m.LeadsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// IncLogins counts a login attempt; method is "password" or "oidc",
// result is "success" or "failure".
func IncLogins(method, result string) {
	if m := Global(); m != nil {
		m.LoginsTotal.WithLabelValues(method, result).Inc()
	}
}

func AddSessionsPurged(n int64) {
	if m := Global(); m != nil && n > 0 {
		m.SessionsPurgedTotal.Add(float64(n))
	}
}

// IncRateLimitExceeded increments rate limit exceeded counter
func IncRateLimitExceeded(level string) {
	if m := Global(); m != nil {
		m.RateLimitExceededTotal.WithLabelValues(level).Inc()
	}
}

// SetRuntime updates the process uptime and goroutine gauges
func SetRuntime(uptime time.Duration, goroutines int) {
	if m := Global(); m != nil {
		m.UptimeSeconds.Set(uptime.Seconds())
		m.Goroutines.Set(float64(goroutines))
	}
}
