package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	m.LeadStatusChangesTotal.WithLabelValues("pending", "contacted").Inc()
	m.LeadsByStatus.WithLabelValues("pending").Set(1)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"kandid_leads_created_total", "kandid_lead_status_changes_total", "kandid_leads"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncLeadsCreated()
	IncLeadsCreated()
	IncCampaignsCreated()
	IncCampaignsDeleted()
	IncInteractions("message")
	IncLeadStatusChange("pending", "contacted")
	IncLeadStatusChange("contacted", "contacted")

	if got := testutil.ToFloat64(m.LeadsCreatedTotal); got != 2 {
		t.Errorf("leads created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CampaignsCreatedTotal); got != 1 {
		t.Errorf("campaigns created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CampaignsDeletedTotal); got != 1 {
		t.Errorf("campaigns deleted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.InteractionsTotal.WithLabelValues("message")); got != 1 {
		t.Errorf("interactions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LeadStatusChangesTotal.WithLabelValues("pending", "contacted")); got != 1 {
		t.Errorf("pending->contacted = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.LeadStatusChangesTotal); got != 1 {
		t.Errorf("status change series = %d, want 1 (no-op transitions are skipped)", got)
	}
}

func TestSetLeadsByStatus(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	SetLeadsByStatus(map[string]int{"pending": 4, "converted": 1})
	SetLeadsByStatus(map[string]int{"pending": 3})

	if got := testutil.ToFloat64(m.LeadsByStatus.WithLabelValues("pending")); got != 3 {
		t.Errorf("pending gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.LeadsByStatus.WithLabelValues("converted")); got != 1 {
		t.Errorf("converted gauge = %v, want 1", got)
	}
}

func TestAuthCounters(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncLogins("password", "failure")
	IncRateLimitExceeded("login_ip")
	AddSessionsPurged(3)
	AddSessionsPurged(0)

	if got := testutil.ToFloat64(m.LoginsTotal.WithLabelValues("password", "failure")); got != 1 {
		t.Errorf("failed logins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimitExceededTotal.WithLabelValues("login_ip")); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsPurgedTotal); got != 3 {
		t.Errorf("sessions purged = %v, want 3", got)
	}
}

func TestHelpersWithoutGlobal(t *testing.T) {
	SetGlobal(nil)

	// must not panic
	IncLeadsCreated()
	IncLeadStatusChange("pending", "blocked")
	SetLeadsByStatus(map[string]int{"pending": 1})
	IncLogins("oidc", "success")
}
