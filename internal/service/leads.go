package service

import (
	"context"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/stats"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// InteractionTypes lists the accepted Interaction.Type values
var InteractionTypes = []string{"request", "connection", "message", "followup", "note"}

// LeadQuery is the client-facing lead listing request
type LeadQuery struct {
	Page       int
	Limit      int
	Search     string
	Status     models.LeadStatus
	CampaignID string
}

// LeadService is the lead lifecycle gate
type LeadService struct {
	leads     *repository.LeadRepository
	campaigns *repository.CampaignRepository
}

// Create validates a draft and stores it as a new lead of owner
func (s *LeadService) Create(ctx context.Context, owner string, draft models.LeadDraft) (*models.Lead, error) {
	lead := &models.Lead{
		UserID:          owner,
		CampaignID:      strings.TrimSpace(draft.CampaignID),
		Name:            strings.TrimSpace(draft.Name),
		Email:           strings.TrimSpace(draft.Email),
		Title:           draft.Title,
		Company:         draft.Company,
		ProfileURL:      draft.ProfileURL,
		ProfileImage:    draft.ProfileImage,
		Status:          draft.Status,
		Activity:        draft.Activity,
		LastContactDate: draft.LastContactDate,
	}
	if lead.Status == "" {
		lead.Status = models.LeadPending
	}

	if err := validateLead(lead); err != nil {
		return nil, err
	}
	if err := s.checkCampaign(ctx, lead.CampaignID, owner); err != nil {
		return nil, err
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, storeError("create lead", err)
	}
	metrics.IncLeadsCreated()
	return lead, nil
}

// Get returns one lead of owner
func (s *LeadService) Get(ctx context.Context, owner, id string) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id, owner)
	if err != nil {
		return nil, storeError("get lead", err)
	}
	if lead == nil {
		return nil, ErrNotFound
	}
	return lead, nil
}

// Update applies a merge-patch. An empty patch only bumps updatedAt.
func (s *LeadService) Update(ctx context.Context, owner, id string, patch models.LeadPatch) (*models.Lead, error) {
	lead, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	previous := lead.Status
	previousCampaign := lead.CampaignID

	applyLeadPatch(lead, patch)

	if err := validateLead(lead); err != nil {
		return nil, err
	}
	if lead.CampaignID != previousCampaign {
		if err := s.checkCampaign(ctx, lead.CampaignID, owner); err != nil {
			return nil, err
		}
	}

	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, storeError("update lead", err)
	}
	metrics.IncLeadStatusChange(string(previous), string(lead.Status))
	return lead, nil
}

// Delete removes one lead of owner
func (s *LeadService) Delete(ctx context.Context, owner, id string) error {
	if err := s.leads.Delete(ctx, id, owner); err != nil {
		return storeError("delete lead", err)
	}
	return nil
}

// List returns one page of owner's leads, newest first
func (s *LeadService) List(ctx context.Context, owner string, q LeadQuery) (*models.LeadPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, invalid("status", "unknown lead status %q", q.Status)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	items, total, err := s.leads.List(ctx, models.LeadListFilter{
		UserID:     owner,
		CampaignID: q.CampaignID,
		Status:     q.Status,
		Search:     strings.TrimSpace(q.Search),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, storeError("list leads", err)
	}

	return &models.LeadPage{
		Items: items,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: stats.TotalPages(total, limit),
		},
	}, nil
}

// AppendInteraction adds an entry to the lead's history and returns the
// updated lead. The timestamp defaults to now.
func (s *LeadService) AppendInteraction(ctx context.Context, owner, id string, in models.Interaction) (*models.Lead, error) {
	in.Type = strings.TrimSpace(in.Type)
	if !slices.Contains(InteractionTypes, in.Type) {
		return nil, invalid("type", "must be one of %s", strings.Join(InteractionTypes, ", "))
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	if err := s.leads.AppendInteraction(ctx, id, owner, in); err != nil {
		return nil, storeError("append interaction", err)
	}
	metrics.IncInteractions(in.Type)
	return s.Get(ctx, owner, id)
}

func (s *LeadService) checkCampaign(ctx context.Context, campaignID, owner string) error {
	ok, err := s.campaigns.Exists(ctx, campaignID, owner)
	if err != nil {
		return storeError("check campaign", err)
	}
	if !ok {
		return invalid("campaignId", "campaign not found")
	}
	return nil
}

func applyLeadPatch(lead *models.Lead, p models.LeadPatch) {
	if p.CampaignID != nil {
		lead.CampaignID = strings.TrimSpace(*p.CampaignID)
	}
	if p.Name != nil {
		lead.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		lead.Email = strings.TrimSpace(*p.Email)
	}
	if p.Title != nil {
		lead.Title = *p.Title
	}
	if p.Company != nil {
		lead.Company = *p.Company
	}
	if p.ProfileURL != nil {
		lead.ProfileURL = *p.ProfileURL
	}
	if p.ProfileImage != nil {
		lead.ProfileImage = *p.ProfileImage
	}
	if p.Status != nil {
		lead.Status = *p.Status
	}
	if p.Activity != nil {
		lead.Activity = *p.Activity
	}
	if p.LastContactDate.Set {
		lead.LastContactDate = p.LastContactDate.Time
	}
}

func validateLead(lead *models.Lead) error {
	if lead.Name == "" {
		return invalid("name", "is required")
	}
	if lead.CampaignID == "" {
		return invalid("campaignId", "is required")
	}
	if !lead.Status.Valid() {
		return invalid("status", "unknown lead status %q", lead.Status)
	}
	if lead.Activity < models.MinActivity || lead.Activity > models.MaxActivity {
		return invalid("activity", "must be between %d and %d", models.MinActivity, models.MaxActivity)
	}
	if lead.Email != "" {
		if _, err := mail.ParseAddress(lead.Email); err != nil {
			return invalid("email", "is not a valid address")
		}
	}
	return nil
}
