package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nawinsharma/kandid/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, user_id, name, description, status, request_message, connection_message,
	followup_messages, settings, created_at, updated_at`

// Create creates a new campaign
func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	if c.FollowupMessages == nil {
		c.FollowupMessages = []string{}
	}
	if c.Settings.SelectedAccounts == nil {
		c.Settings.SelectedAccounts = []string{}
	}

	followups, settings, err := encodeCampaignJSON(c)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Description, c.Status, c.RequestMessage, c.ConnectionMessage,
		followups, settings, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// GetByID returns a campaign owned by userID
func (r *CampaignRepository) GetByID(ctx context.Context, id, userID string) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ? AND user_id = ?`, id, userID)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Exists reports whether userID owns a campaign with this id
func (r *CampaignRepository) Exists(ctx context.Context, id, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM campaigns WHERE id = ? AND user_id = ?", id, userID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns all campaigns of a user, newest first
func (r *CampaignRepository) List(ctx context.Context, userID string) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// Update writes every mutable column of c. The owner must match.
func (r *CampaignRepository) Update(ctx context.Context, c *models.Campaign) error {
	c.UpdatedAt = time.Now().UTC()

	followups, settings, err := encodeCampaignJSON(c)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET name = ?, description = ?, status = ?, request_message = ?, connection_message = ?,
			followup_messages = ?, settings = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Description, c.Status, c.RequestMessage, c.ConnectionMessage,
		followups, settings, c.UpdatedAt, c.ID, c.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return expectAffected(result)
}

// Delete removes a campaign together with its leads in one transaction
func (r *CampaignRepository) Delete(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM leads WHERE campaign_id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("failed to delete campaign leads: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM campaigns WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

func scanCampaign(s scanner) (*models.Campaign, error) {
	c := &models.Campaign{}
	var followups, settings string
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Status, &c.RequestMessage, &c.ConnectionMessage,
		&followups, &settings, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.FollowupMessages = []string{}
	if err := decodeJSON(followups, &c.FollowupMessages); err != nil {
		return nil, err
	}
	if err := decodeJSON(settings, &c.Settings); err != nil {
		return nil, err
	}
	if c.Settings.SelectedAccounts == nil {
		c.Settings.SelectedAccounts = []string{}
	}
	return c, nil
}

func encodeCampaignJSON(c *models.Campaign) (string, string, error) {
	followups, err := encodeJSON(c.FollowupMessages)
	if err != nil {
		return "", "", err
	}
	settings, err := encodeJSON(c.Settings)
	if err != nil {
		return "", "", err
	}
	return followups, settings, nil
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
