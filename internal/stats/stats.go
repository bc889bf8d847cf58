// Package stats derives campaign, dashboard and account figures from lead
// statuses. Nothing here touches storage: callers feed it rows or grouped
// counts and always get fresh numbers back.
package stats

import (
	"math"
	"strconv"

	"github.com/nawinsharma/kandid/internal/models"
)

// Tally counts leads per status.
type Tally struct {
	Pending   int
	Contacted int
	Responded int
	Converted int
	Blocked   int
}

// Add records n leads with the given status. Unknown statuses are ignored.
func (t *Tally) Add(status models.LeadStatus, n int) {
	switch status {
	case models.LeadPending:
		t.Pending += n
	case models.LeadContacted:
		t.Contacted += n
	case models.LeadResponded:
		t.Responded += n
	case models.LeadConverted:
		t.Converted += n
	case models.LeadBlocked:
		t.Blocked += n
	}
}

// Merge adds every counter of o to t.
func (t *Tally) Merge(o Tally) {
	t.Pending += o.Pending
	t.Contacted += o.Contacted
	t.Responded += o.Responded
	t.Converted += o.Converted
	t.Blocked += o.Blocked
}

func (t Tally) Total() int {
	return t.Pending + t.Contacted + t.Responded + t.Converted + t.Blocked
}

// Reached counts leads that were contacted at least once:
// contacted, responded or converted.
func (t Tally) Reached() int {
	return t.Contacted + t.Responded + t.Converted
}

// Successful counts leads that answered: responded or converted.
func (t Tally) Successful() int {
	return t.Responded + t.Converted
}

// FromLeads tallies a slice of leads.
func FromLeads(leads []models.Lead) Tally {
	var t Tally
	for _, l := range leads {
		t.Add(l.Status, 1)
	}
	return t
}

// Rate returns part/total as a percentage, or 0 when total is 0.
func Rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// FormatRate renders a percentage with one decimal, e.g. "50.0".
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64)
}

// Campaign builds the statistics block shown on a campaign page.
func Campaign(t Tally) models.CampaignStatistics {
	total := t.Total()
	return models.CampaignStatistics{
		TotalLeads:     total,
		ContactedLeads: t.Reached(),
		RespondedLeads: t.Successful(),
		ConvertedLeads: t.Converted,
		ResponseRate:   FormatRate(Rate(t.Successful(), total)),
		ConversionRate: FormatRate(Rate(t.Converted, total)),
		ContactRate:    FormatRate(Rate(t.Reached(), total)),
	}
}

// WithStats attaches live counters to a campaign list entry.
func WithStats(c models.Campaign, t Tally) models.CampaignWithStats {
	return models.CampaignWithStats{
		Campaign:        c,
		TotalLeads:      t.Total(),
		SuccessfulLeads: t.Successful(),
		ResponseRate:    FormatRate(Rate(t.Successful(), t.Total())),
	}
}

// Dashboard aggregates over all of a user's campaigns and every lead tally,
// keyed by campaign id. Tallies for campaigns missing from the list still
// count toward the lead totals.
func Dashboard(campaigns []models.Campaign, byCampaign map[string]Tally) models.DashboardStatistics {
	var all Tally
	for _, t := range byCampaign {
		all.Merge(t)
	}

	active := 0
	for _, c := range campaigns {
		if c.Status == models.CampaignStatusActive {
			active++
		}
	}

	return models.DashboardStatistics{
		TotalCampaigns:  len(campaigns),
		TotalLeads:      all.Total(),
		ActiveCampaigns: active,
		SuccessfulLeads: all.Successful(),
		ResponseRate:    FormatRate(Rate(all.Successful(), all.Total())),
	}
}

// Progress is the share of an account's request quota already used, capped
// at 100 and rounded to one decimal. A zero limit yields 0.
func Progress(sent, limit int) float64 {
	if limit <= 0 || sent <= 0 {
		return 0
	}
	p := math.Min(100, float64(sent)/float64(limit)*100)
	return math.Round(p*10) / 10
}

// TotalPages is ceil(total/limit); a non-positive limit yields 0.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
