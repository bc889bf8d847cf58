package models

import "time"

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	}
	return false
}

// MaxCampaignNameLength bounds Campaign.Name in characters
const MaxCampaignNameLength = 255

// Campaign represents a LinkedIn outreach campaign
type Campaign struct {
	ID                string           `json:"id"`
	UserID            string           `json:"userId"`
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	Status            CampaignStatus   `json:"status"`
	RequestMessage    string           `json:"requestMessage"`
	ConnectionMessage string           `json:"connectionMessage"`
	FollowupMessages  []string         `json:"followupMessages"`
	Settings          CampaignSettings `json:"settings"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// CampaignSettings is stored as JSON on the campaign row
type CampaignSettings struct {
	Autopilot        bool     `json:"autopilot"`
	Personalization  bool     `json:"personalization"`
	SelectedAccounts []string `json:"selectedAccounts"` // linkedin account ids, not enforced
}

// CampaignWithStats is a campaign with its live lead counters
type CampaignWithStats struct {
	Campaign
	TotalLeads      int    `json:"totalLeads"`
	SuccessfulLeads int    `json:"successfulLeads"`
	ResponseRate    string `json:"responseRate"`
}

// CampaignDetail is a single campaign with all its leads and statistics
type CampaignDetail struct {
	Campaign
	Leads      []Lead             `json:"leads"`
	Statistics CampaignStatistics `json:"statistics"`
}

// CampaignDraft carries the client fields accepted when creating a campaign
type CampaignDraft struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Status            CampaignStatus   `json:"status"`
	RequestMessage    string           `json:"requestMessage"`
	ConnectionMessage string           `json:"connectionMessage"`
	FollowupMessages  []string         `json:"followupMessages"`
	Settings          CampaignSettings `json:"settings"`
}

// CampaignPatch is a merge-patch: nil fields are left untouched
type CampaignPatch struct {
	Name              *string         `json:"name"`
	Description       *string         `json:"description"`
	Status            *CampaignStatus `json:"status"`
	RequestMessage    *string         `json:"requestMessage"`
	ConnectionMessage *string         `json:"connectionMessage"`
	FollowupMessages  *[]string       `json:"followupMessages"`
	Settings          *SettingsPatch  `json:"settings"`
}

// SettingsPatch merges into CampaignSettings field by field
type SettingsPatch struct {
	Autopilot        *bool     `json:"autopilot"`
	Personalization  *bool     `json:"personalization"`
	SelectedAccounts *[]string `json:"selectedAccounts"`
}
