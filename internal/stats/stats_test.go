package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nawinsharma/kandid/internal/models"
)

func leadsWith(statuses ...models.LeadStatus) []models.Lead {
	leads := make([]models.Lead, 0, len(statuses))
	for _, s := range statuses {
		leads = append(leads, models.Lead{Status: s})
	}
	return leads
}

func TestCampaignNoLeads(t *testing.T) {
	got := Campaign(Tally{})

	assert.Equal(t, 0, got.TotalLeads)
	assert.Equal(t, "0.0", got.ResponseRate)
	assert.Equal(t, "0.0", got.ConversionRate)
	assert.Equal(t, "0.0", got.ContactRate)
}

func TestCampaignMixedStatuses(t *testing.T) {
	tally := FromLeads(leadsWith(models.LeadPending, models.LeadContacted, models.LeadResponded, models.LeadConverted))

	want := models.CampaignStatistics{
		TotalLeads:     4,
		ContactedLeads: 3,
		RespondedLeads: 2,
		ConvertedLeads: 1,
		ResponseRate:   "50.0",
		ConversionRate: "25.0",
		ContactRate:    "75.0",
	}
	assert.Equal(t, want, Campaign(tally))
}

func TestCampaignCountsAreNested(t *testing.T) {
	cases := [][]models.LeadStatus{
		{},
		{models.LeadBlocked},
		{models.LeadConverted, models.LeadConverted},
		{models.LeadResponded, models.LeadBlocked, models.LeadPending},
		{models.LeadContacted, models.LeadResponded, models.LeadConverted, models.LeadBlocked, models.LeadPending},
	}

	for _, statuses := range cases {
		got := Campaign(FromLeads(leadsWith(statuses...)))
		assert.GreaterOrEqual(t, got.TotalLeads, got.ContactedLeads)
		assert.GreaterOrEqual(t, got.ContactedLeads, got.RespondedLeads)
		assert.GreaterOrEqual(t, got.RespondedLeads, got.ConvertedLeads)
	}
}

func TestBlockedCountsOnlyTowardTotal(t *testing.T) {
	got := Campaign(FromLeads(leadsWith(models.LeadBlocked, models.LeadResponded)))

	assert.Equal(t, 2, got.TotalLeads)
	assert.Equal(t, 1, got.ContactedLeads)
	assert.Equal(t, "50.0", got.ResponseRate)
}

func TestFormatRate(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "0.0"},
		{100, "100.0"},
		{Rate(1, 3), "33.3"},
		{Rate(2, 3), "66.7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRate(tt.rate))
	}
}

func TestRateZeroTotal(t *testing.T) {
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 0.0, Rate(5, 0))
}

func TestWithStats(t *testing.T) {
	var tally Tally
	tally.Add(models.LeadResponded, 1)
	tally.Add(models.LeadConverted, 1)
	tally.Add(models.LeadPending, 2)

	got := WithStats(models.Campaign{ID: "c1", Name: "C1"}, tally)

	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, 4, got.TotalLeads)
	assert.Equal(t, 2, got.SuccessfulLeads)
	assert.Equal(t, "50.0", got.ResponseRate)
}

func TestDashboard(t *testing.T) {
	campaigns := []models.Campaign{
		{ID: "a", Status: models.CampaignStatusActive},
		{ID: "b", Status: models.CampaignStatusDraft},
		{ID: "c", Status: models.CampaignStatusActive},
	}
	byCampaign := map[string]Tally{
		"a": {Pending: 3, Responded: 1},
		"b": {Converted: 1},
	}

	got := Dashboard(campaigns, byCampaign)

	assert.Equal(t, 3, got.TotalCampaigns)
	assert.Equal(t, 2, got.ActiveCampaigns)
	assert.Equal(t, 5, got.TotalLeads)
	assert.Equal(t, 2, got.SuccessfulLeads)
	assert.Equal(t, "40.0", got.ResponseRate)
}

func TestDashboardEmpty(t *testing.T) {
	got := Dashboard(nil, nil)
	assert.Equal(t, models.DashboardStatistics{ResponseRate: "0.0"}, got)
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name        string
		sent, limit int
		want        float64
	}{
		{"zero limit", 10, 0, 0},
		{"nothing sent", 0, 100, 0},
		{"half", 15, 30, 50},
		{"over quota is capped", 150, 100, 100},
		{"rounded", 1, 3, 33.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Progress(tt.sent, tt.limit))
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(25, 20))
	assert.Equal(t, 0, TotalPages(25, 0))
}
