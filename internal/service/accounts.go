package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/repository"
)

// AccountService tracks LinkedIn sender accounts and their request quota
type AccountService struct {
	accounts *repository.AccountRepository
}

// List returns owner's accounts with progress recomputed
func (s *AccountService) List(ctx context.Context, owner string) ([]models.LinkedinAccount, error) {
	accounts, err := s.accounts.List(ctx, owner)
	if err != nil {
		return nil, storeError("list accounts", err)
	}
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, owner, id string) (*models.LinkedinAccount, error) {
	a, err := s.accounts.GetByID(ctx, id, owner)
	if err != nil {
		return nil, storeError("get account", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *AccountService) Create(ctx context.Context, owner string, draft models.AccountDraft) (*models.LinkedinAccount, error) {
	a := &models.LinkedinAccount{
		UserID:        owner,
		Name:          strings.TrimSpace(draft.Name),
		Email:         strings.TrimSpace(draft.Email),
		Status:        draft.Status,
		RequestsSent:  draft.RequestsSent,
		RequestsLimit: draft.RequestsLimit,
	}
	if a.Status == "" {
		a.Status = models.AccountDisconnected
	}

	switch {
	case a.Name == "":
		return nil, invalid("name", "is required")
	case !a.Status.Valid():
		return nil, invalid("status", "unknown account status %q", a.Status)
	case a.RequestsSent < 0:
		return nil, invalid("requestsSent", "must not be negative")
	case a.RequestsLimit < 0:
		return nil, invalid("requestsLimit", "must not be negative")
	}
	if a.Email != "" {
		if _, err := mail.ParseAddress(a.Email); err != nil {
			return nil, invalid("email", "is not a valid address")
		}
	}

	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, storeError("create account", err)
	}
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, owner, id string) error {
	if err := s.accounts.Delete(ctx, id, owner); err != nil {
		return storeError("delete account", err)
	}
	return nil
}
