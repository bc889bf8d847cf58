package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nawinsharma/kandid/internal/models"
)

// handleListCampaigns handles GET /api/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.services.Campaigns.List(r.Context(), currentUser(r).ID)
	if err != nil {
		s.sendServiceError(w, r, "list campaigns", err)
		return
	}
	s.sendJSON(w, http.StatusOK, campaigns)
}

// handleGetCampaign handles GET /api/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	detail, err := s.services.Campaigns.Get(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, "get campaign", err)
		return
	}
	s.sendJSON(w, http.StatusOK, detail)
}

// handleCampaignPreview handles GET /api/campaigns/{id}/preview?leadId=
func (s *Server) handleCampaignPreview(w http.ResponseWriter, r *http.Request) {
	m, err := s.services.Campaigns.Preview(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), r.URL.Query().Get("leadId"))
	if err != nil {
		s.sendServiceError(w, r, "preview campaign", err)
		return
	}
	s.sendJSON(w, http.StatusOK, m)
}

// handleCampaignStatistics handles GET /api/campaigns/{id}/statistics
func (s *Server) handleCampaignStatistics(w http.ResponseWriter, r *http.Request) {
	st, err := s.services.Campaigns.Statistics(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, "campaign statistics", err)
		return
	}
	s.sendJSON(w, http.StatusOK, st)
}

// handleCreateCampaign handles POST /api/campaigns
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var draft models.CampaignDraft
	if err := decodeBody(w, r, &draft); err != nil {
		s.sendServiceError(w, r, "create campaign", err)
		return
	}

	c, err := s.services.Campaigns.Create(r.Context(), currentUser(r).ID, draft)
	if err != nil {
		s.sendServiceError(w, r, "create campaign", err)
		return
	}

	s.logger.Info("campaign created", "id", c.ID, "user_id", c.UserID)
	s.sendJSON(w, http.StatusCreated, c)
}

// handleUpdateCampaign handles PATCH and PUT /api/campaigns/{id}
func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var patch models.CampaignPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.sendServiceError(w, r, "update campaign", err)
		return
	}

	c, err := s.services.Campaigns.Update(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		s.sendServiceError(w, r, "update campaign", err)
		return
	}
	s.sendJSON(w, http.StatusOK, c)
}

// handleDeleteCampaign handles DELETE /api/campaigns/{id}
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := currentUser(r)

	if err := s.services.Campaigns.Delete(r.Context(), user.ID, id); err != nil {
		s.sendServiceError(w, r, "delete campaign", err)
		return
	}

	s.logger.Info("campaign deleted", "id", id, "user_id", user.ID)
	s.sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
