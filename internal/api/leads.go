package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/service"
)

// handleListLeads handles GET /api/leads?page&limit&search&status&campaignId
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		s.sendServiceError(w, r, "list leads", err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		s.sendServiceError(w, r, "list leads", err)
		return
	}

	result, err := s.services.Leads.List(r.Context(), currentUser(r).ID, service.LeadQuery{
		Page:       page,
		Limit:      limit,
		Search:     q.Get("search"),
		Status:     models.LeadStatus(q.Get("status")),
		CampaignID: q.Get("campaignId"),
	})
	if err != nil {
		s.sendServiceError(w, r, "list leads", err)
		return
	}
	s.sendJSON(w, http.StatusOK, result)
}

// intParam parses an optional positive query parameter; "" yields 0
func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &service.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return n, nil
}

// handleGetLead handles GET /api/leads/{id}
func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.services.Leads.Get(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, "get lead", err)
		return
	}
	s.sendJSON(w, http.StatusOK, lead)
}

// handleCreateLead handles POST /api/leads
func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var draft models.LeadDraft
	if err := decodeBody(w, r, &draft); err != nil {
		s.sendServiceError(w, r, "create lead", err)
		return
	}

	lead, err := s.services.Leads.Create(r.Context(), currentUser(r).ID, draft)
	if err != nil {
		s.sendServiceError(w, r, "create lead", err)
		return
	}
	s.sendJSON(w, http.StatusCreated, lead)
}

// handleUpdateLead handles PATCH and PUT /api/leads/{id}
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var patch models.LeadPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.sendServiceError(w, r, "update lead", err)
		return
	}

	lead, err := s.services.Leads.Update(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		s.sendServiceError(w, r, "update lead", err)
		return
	}
	s.sendJSON(w, http.StatusOK, lead)
}

// handleDeleteLead handles DELETE /api/leads/{id}
func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Leads.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.sendServiceError(w, r, "delete lead", err)
		return
	}
	s.sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleAppendInteraction handles POST /api/leads/{id}/interactions
func (s *Server) handleAppendInteraction(w http.ResponseWriter, r *http.Request) {
	var in models.Interaction
	if err := decodeBody(w, r, &in); err != nil {
		s.sendServiceError(w, r, "append interaction", err)
		return
	}

	lead, err := s.services.Leads.AppendInteraction(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), in)
	if err != nil {
		s.sendServiceError(w, r, "append interaction", err)
		return
	}
	s.sendJSON(w, http.StatusCreated, lead)
}
