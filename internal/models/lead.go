package models

import (
	"encoding/json"
	"time"
)

// LeadStatus is the persisted lifecycle state of a lead.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadContacted LeadStatus = "contacted"
	LeadResponded LeadStatus = "responded"
	LeadConverted LeadStatus = "converted"
	LeadBlocked   LeadStatus = "blocked"
)

// LeadStatuses lists every valid lead status in lifecycle order.
var LeadStatuses = []LeadStatus{LeadPending, LeadContacted, LeadResponded, LeadConverted, LeadBlocked}

// Valid reports whether s is one of the persisted statuses. Display labels
// such as "pending_approval" are not.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadPending, LeadContacted, LeadResponded, LeadConverted, LeadBlocked:
		return true
	}
	return false
}

const (
	MinActivity = 0
	MaxActivity = 5
)

// Lead represents an outreach target inside a campaign
type Lead struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"userId"`
	CampaignID         string        `json:"campaignId"`
	Name               string        `json:"name"`
	Email              string        `json:"email,omitempty"`
	Title              string        `json:"title,omitempty"`
	Company            string        `json:"company,omitempty"`
	ProfileURL         string        `json:"profileUrl,omitempty"`
	ProfileImage       string        `json:"profileImage,omitempty"`
	Status             LeadStatus    `json:"status"`
	Activity           int           `json:"activity"`
	InteractionHistory []Interaction `json:"interactionHistory"`
	LastContactDate    *time.Time    `json:"lastContactDate,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Interaction is one entry of a lead's append-only history
type Interaction struct {
	Type      string    `json:"type"` // request, connection, message, followup, note
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// LeadWithCampaign is a lead joined with its campaign name for activity feeds
type LeadWithCampaign struct {
	Lead
	CampaignName string `json:"campaignName"`
}

// LeadDraft carries the client fields accepted when creating a lead.
// Ownership never comes from here.
type LeadDraft struct {
	CampaignID      string     `json:"campaignId"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Title           string     `json:"title"`
	Company         string     `json:"company"`
	ProfileURL      string     `json:"profileUrl"`
	ProfileImage    string     `json:"profileImage"`
	Status          LeadStatus `json:"status"`
	Activity        int        `json:"activity"`
	LastContactDate *time.Time `json:"lastContactDate"`
}

// LeadPatch is a merge-patch: nil fields are left untouched
type LeadPatch struct {
	CampaignID      *string      `json:"campaignId"`
	Name            *string      `json:"name"`
	Email           *string      `json:"email"`
	Title           *string      `json:"title"`
	Company         *string      `json:"company"`
	ProfileURL      *string      `json:"profileUrl"`
	ProfileImage    *string      `json:"profileImage"`
	Status          *LeadStatus  `json:"status"`
	Activity        *int         `json:"activity"`
	LastContactDate OptionalTime `json:"lastContactDate"`
}

// OptionalTime tells an absent JSON field from an explicit null. Set is
// true whenever the field was present; Time is nil for null.
type OptionalTime struct {
	Set  bool
	Time *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Time = &t
	return nil
}

// LeadListFilter for filtering a user's leads
type LeadListFilter struct {
	UserID     string
	CampaignID string
	Status     LeadStatus
	Search     string
	Limit      int
	Offset     int
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// LeadPage is a page of leads with its pagination block
type LeadPage struct {
	Items      []Lead     `json:"items"`
	Pagination Pagination `json:"pagination"`
}
