package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/stats"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = "id, user_id, name, email, status, requests_sent, requests_limit, created_at, updated_at"

// Create creates a new LinkedIn account
func (r *AccountRepository) Create(ctx context.Context, a *models.LinkedinAccount) error {
	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO linkedin_accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Email, a.Status, a.RequestsSent, a.RequestsLimit, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create linkedin account: %w", err)
	}
	a.Progress = stats.Progress(a.RequestsSent, a.RequestsLimit)
	return nil
}

// GetByID returns an account owned by userID
func (r *AccountRepository) GetByID(ctx context.Context, id, userID string) (*models.LinkedinAccount, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM linkedin_accounts WHERE id = ? AND user_id = ?", id, userID)

	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns all accounts of a user, newest first
func (r *AccountRepository) List(ctx context.Context, userID string) ([]models.LinkedinAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM linkedin_accounts
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.LinkedinAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// Delete deletes an account owned by userID
func (r *AccountRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM linkedin_accounts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete linkedin account: %w", err)
	}
	return expectAffected(result)
}

func scanAccount(s scanner) (*models.LinkedinAccount, error) {
	a := &models.LinkedinAccount{}
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Email, &a.Status, &a.RequestsSent, &a.RequestsLimit, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Progress = stats.Progress(a.RequestsSent, a.RequestsLimit)
	return a, nil
}
