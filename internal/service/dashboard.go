package service

import (
	"context"

	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/stats"
)

// RecentActivityLimit is the size of the dashboard activity feed
const RecentActivityLimit = 8

type DashboardService struct {
	campaigns *repository.CampaignRepository
	leads     *repository.LeadRepository
	accounts  *repository.AccountRepository
	stats     *repository.StatsRepository
}

// Summary builds the dashboard for owner. Any failing query fails the
// whole summary.
func (s *DashboardService) Summary(ctx context.Context, owner string) (*models.DashboardSummary, error) {
	campaigns, err := s.campaigns.List(ctx, owner)
	if err != nil {
		return nil, storeError("dashboard campaigns", err)
	}
	tallies, err := s.stats.TallyByCampaign(ctx, owner)
	if err != nil {
		return nil, storeError("dashboard tallies", err)
	}
	accounts, err := s.accounts.List(ctx, owner)
	if err != nil {
		return nil, storeError("dashboard accounts", err)
	}
	recent, err := s.leads.Recent(ctx, owner, RecentActivityLimit)
	if err != nil {
		return nil, storeError("dashboard activity", err)
	}

	withStats := make([]models.CampaignWithStats, 0, len(campaigns))
	for _, c := range campaigns {
		withStats = append(withStats, stats.WithStats(c, tallies[c.ID]))
	}

	return &models.DashboardSummary{
		Statistics:       stats.Dashboard(campaigns, tallies),
		Campaigns:        withStats,
		LinkedinAccounts: accounts,
		RecentActivity:   recent,
	}, nil
}
