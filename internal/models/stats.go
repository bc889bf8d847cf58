package models

// CampaignStatistics is the live roll-up of a campaign's lead statuses.
// Rates are percentages rendered with one decimal.
type CampaignStatistics struct {
	TotalLeads     int    `json:"totalLeads"`
	ContactedLeads int    `json:"contactedLeads"`
	RespondedLeads int    `json:"respondedLeads"`
	ConvertedLeads int    `json:"convertedLeads"`
	ResponseRate   string `json:"responseRate"`
	ConversionRate string `json:"conversionRate"`
	ContactRate    string `json:"contactRate"`
}

// DashboardStatistics aggregates across all of a user's data
type DashboardStatistics struct {
	TotalCampaigns  int    `json:"totalCampaigns"`
	TotalLeads      int    `json:"totalLeads"`
	ActiveCampaigns int    `json:"activeCampaigns"`
	SuccessfulLeads int    `json:"successfulLeads"`
	ResponseRate    string `json:"responseRate"`
}

// DashboardSummary is everything the dashboard home page shows
type DashboardSummary struct {
	Statistics       DashboardStatistics `json:"statistics"`
	Campaigns        []CampaignWithStats `json:"campaigns"`
	LinkedinAccounts []LinkedinAccount   `json:"linkedinAccounts"`
	RecentActivity   []LeadWithCampaign  `json:"recentActivity"`
}
