package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/nawinsharma/kandid/internal/metrics"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/stats"
	"github.com/nawinsharma/kandid/internal/template"
)

// CampaignService is the campaign gate
type CampaignService struct {
	campaigns *repository.CampaignRepository
	leads     *repository.LeadRepository
	stats     *repository.StatsRepository
	messages  *template.Engine
}

// Create validates a draft and stores it as a new campaign of owner
func (s *CampaignService) Create(ctx context.Context, owner string, draft models.CampaignDraft) (*models.Campaign, error) {
	c := &models.Campaign{
		UserID:            owner,
		Name:              strings.TrimSpace(draft.Name),
		Description:       draft.Description,
		Status:            draft.Status,
		RequestMessage:    draft.RequestMessage,
		ConnectionMessage: draft.ConnectionMessage,
		FollowupMessages:  draft.FollowupMessages,
		Settings:          draft.Settings,
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusDraft
	}
	normalizeCampaign(c)

	if err := s.validate(c); err != nil {
		return nil, err
	}

	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, storeError("create campaign", err)
	}
	metrics.IncCampaignsCreated()
	return c, nil
}

// Get returns a campaign with all of its leads and live statistics
func (s *CampaignService) Get(ctx context.Context, owner, id string) (*models.CampaignDetail, error) {
	c, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	leads, err := s.leads.ListByCampaign(ctx, c.ID, owner)
	if err != nil {
		return nil, storeError("list campaign leads", err)
	}

	return &models.CampaignDetail{
		Campaign:   *c,
		Leads:      leads,
		Statistics: stats.Campaign(stats.FromLeads(leads)),
	}, nil
}

// Statistics computes the statistics block of one campaign without loading its leads
func (s *CampaignService) Statistics(ctx context.Context, owner, id string) (*models.CampaignStatistics, error) {
	if _, err := s.get(ctx, owner, id); err != nil {
		return nil, err
	}
	t, err := s.stats.TallyCampaign(ctx, id, owner)
	if err != nil {
		return nil, storeError("campaign statistics", err)
	}
	st := stats.Campaign(t)
	return &st, nil
}

// List returns owner's campaigns, newest first, each with live counters.
// Lead counts come from one grouped query.
func (s *CampaignService) List(ctx context.Context, owner string) ([]models.CampaignWithStats, error) {
	campaigns, err := s.campaigns.List(ctx, owner)
	if err != nil {
		return nil, storeError("list campaigns", err)
	}
	tallies, err := s.stats.TallyByCampaign(ctx, owner)
	if err != nil {
		return nil, storeError("tally leads", err)
	}

	out := make([]models.CampaignWithStats, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, stats.WithStats(c, tallies[c.ID]))
	}
	return out, nil
}

// Update applies a merge-patch. An empty patch only bumps updatedAt.
func (s *CampaignService) Update(ctx context.Context, owner, id string, patch models.CampaignPatch) (*models.Campaign, error) {
	c, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	applyCampaignPatch(c, patch)
	normalizeCampaign(c)

	if err := s.validate(c); err != nil {
		return nil, err
	}

	if err := s.campaigns.Update(ctx, c); err != nil {
		return nil, storeError("update campaign", err)
	}
	return c, nil
}

// Delete removes a campaign and all of its leads
func (s *CampaignService) Delete(ctx context.Context, owner, id string) error {
	if err := s.campaigns.Delete(ctx, id, owner); err != nil {
		return storeError("delete campaign", err)
	}
	metrics.IncCampaignsDeleted()
	return nil
}

// Preview renders the campaign messages for one of its leads. Without a
// lead id the placeholder examples are used.
func (s *CampaignService) Preview(ctx context.Context, owner, id, leadID string) (*template.Messages, error) {
	c, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if leadID == "" {
		return s.render(s.messages.Sample(c))
	}

	lead, err := s.leads.GetByID(ctx, leadID, owner)
	if err != nil {
		return nil, storeError("get lead", err)
	}
	if lead == nil {
		return nil, ErrNotFound
	}
	if lead.CampaignID != c.ID {
		return nil, invalid("leadId", "lead does not belong to this campaign")
	}
	return s.render(s.messages.Render(c, lead))
}

func (s *CampaignService) render(m *template.Messages, err error) (*template.Messages, error) {
	if err != nil {
		return nil, messageError(err)
	}
	return m, nil
}

func (s *CampaignService) validate(c *models.Campaign) error {
	if err := validateCampaign(c); err != nil {
		return err
	}
	err := s.messages.Validate(template.Messages{
		Request:    c.RequestMessage,
		Connection: c.ConnectionMessage,
		Followups:  c.FollowupMessages,
	})
	if err != nil {
		return messageError(err)
	}
	return nil
}

func messageError(err error) error {
	var fe *template.FieldError
	if errors.As(err, &fe) {
		return invalid(fe.Field, "%v", fe.Err)
	}
	return err
}

func (s *CampaignService) get(ctx context.Context, owner, id string) (*models.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id, owner)
	if err != nil {
		return nil, storeError("get campaign", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func applyCampaignPatch(c *models.Campaign, p models.CampaignPatch) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.RequestMessage != nil {
		c.RequestMessage = *p.RequestMessage
	}
	if p.ConnectionMessage != nil {
		c.ConnectionMessage = *p.ConnectionMessage
	}
	if p.FollowupMessages != nil {
		c.FollowupMessages = *p.FollowupMessages
	}
	if sp := p.Settings; sp != nil {
		if sp.Autopilot != nil {
			c.Settings.Autopilot = *sp.Autopilot
		}
		if sp.Personalization != nil {
			c.Settings.Personalization = *sp.Personalization
		}
		if sp.SelectedAccounts != nil {
			c.Settings.SelectedAccounts = *sp.SelectedAccounts
		}
	}
}

// normalizeCampaign replaces nil lists and de-duplicates selected accounts,
// keeping the first occurrence of each id.
func normalizeCampaign(c *models.Campaign) {
	if c.FollowupMessages == nil {
		c.FollowupMessages = []string{}
	}

	seen := make(map[string]bool, len(c.Settings.SelectedAccounts))
	accounts := make([]string, 0, len(c.Settings.SelectedAccounts))
	for _, id := range c.Settings.SelectedAccounts {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		accounts = append(accounts, id)
	}
	c.Settings.SelectedAccounts = accounts
}

func validateCampaign(c *models.Campaign) error {
	if c.Name == "" {
		return invalid("name", "is required")
	}
	if utf8.RuneCountInString(c.Name) > models.MaxCampaignNameLength {
		return invalid("name", "must be at most %d characters", models.MaxCampaignNameLength)
	}
	if !c.Status.Valid() {
		return invalid("status", "unknown campaign status %q", c.Status)
	}
	return nil
}
