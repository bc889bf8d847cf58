package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nawinsharma/kandid/internal/models"
)

// handleListAccounts handles GET /api/linkedin-accounts
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.services.Accounts.List(r.Context(), currentUser(r).ID)
	if err != nil {
		s.sendServiceError(w, r, "list accounts", err)
		return
	}
	s.sendJSON(w, http.StatusOK, accounts)
}

// handleGetAccount handles GET /api/linkedin-accounts/{id}
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.services.Accounts.Get(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		s.sendServiceError(w, r, "get account", err)
		return
	}
	s.sendJSON(w, http.StatusOK, account)
}

// handleCreateAccount handles POST /api/linkedin-accounts
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var draft models.AccountDraft
	if err := decodeBody(w, r, &draft); err != nil {
		s.sendServiceError(w, r, "create account", err)
		return
	}

	account, err := s.services.Accounts.Create(r.Context(), currentUser(r).ID, draft)
	if err != nil {
		s.sendServiceError(w, r, "create account", err)
		return
	}
	s.sendJSON(w, http.StatusCreated, account)
}

// handleDeleteAccount handles DELETE /api/linkedin-accounts/{id}
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Accounts.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.sendServiceError(w, r, "delete account", err)
		return
	}
	s.sendJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleDashboard handles GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.services.Dashboard.Summary(r.Context(), currentUser(r).ID)
	if err != nil {
		s.sendServiceError(w, r, "dashboard summary", err)
		return
	}
	s.sendJSON(w, http.StatusOK, summary)
}
