// Package service holds the ownership-scoped operations behind the API.
// Every method takes the owner id resolved by the session gate and never
// trusts an owner supplied by the client.
package service

import (
	"database/sql"

	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/template"
)

// Services bundles every gate over one database
type Services struct {
	Leads     *LeadService
	Campaigns *CampaignService
	Accounts  *AccountService
	Dashboard *DashboardService
}

func New(db *sql.DB) *Services {
	leads := repository.NewLeadRepository(db)
	campaigns := repository.NewCampaignRepository(db)
	accounts := repository.NewAccountRepository(db)
	stats := repository.NewStatsRepository(db)

	return &Services{
		Leads:     &LeadService{leads: leads, campaigns: campaigns},
		Campaigns: &CampaignService{campaigns: campaigns, leads: leads, stats: stats, messages: template.NewEngine()},
		Accounts:  &AccountService{accounts: accounts},
		Dashboard: &DashboardService{campaigns: campaigns, leads: leads, accounts: accounts, stats: stats},
	}
}
