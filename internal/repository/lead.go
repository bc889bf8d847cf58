package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nawinsharma/kandid/internal/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

var leadFields = []string{
	"id", "user_id", "campaign_id", "name", "email", "title", "company", "profile_url", "profile_image",
	"status", "activity", "interaction_history", "last_contact_date", "created_at", "updated_at",
}

var leadColumns = strings.Join(leadFields, ", ")

// leadColumnsAs qualifies every lead column with a table alias for joins
func leadColumnsAs(alias string) string {
	cols := make([]string, len(leadFields))
	for i, f := range leadFields {
		cols[i] = alias + "." + f
	}
	return strings.Join(cols, ", ")
}

// Create creates a new lead
func (r *LeadRepository) Create(ctx context.Context, l *models.Lead) error {
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()
	l.UpdatedAt = l.CreatedAt
	if l.InteractionHistory == nil {
		l.InteractionHistory = []models.Interaction{}
	}

	history, err := encodeJSON(l.InteractionHistory)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.CampaignID, l.Name, l.Email, l.Title, l.Company, l.ProfileURL, l.ProfileImage,
		l.Status, l.Activity, history, nullTime(l.LastContactDate), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetByID returns a lead owned by userID
func (r *LeadRepository) GetByID(ctx context.Context, id, userID string) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ? AND user_id = ?`, id, userID)

	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// List returns one page of a user's leads and the total number of matches
func (r *LeadRepository) List(ctx context.Context, filter models.LeadListFilter) ([]models.Lead, int, error) {
	where := " WHERE user_id = ?"
	args := []any{filter.UserID}

	if filter.CampaignID != "" {
		where += " AND campaign_id = ?"
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += ` AND (kandid_lower(name) LIKE ? ESCAPE '\' OR kandid_lower(email) LIKE ? ESCAPE '\'` +
			` OR kandid_lower(company) LIKE ? ESCAPE '\')`
		p := likePattern(filter.Search)
		args = append(args, p, p, p)
	}

	// Count total
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + leadColumns + " FROM leads" + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	leads, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListByCampaign returns every lead of a campaign, newest first
func (r *LeadRepository) ListByCampaign(ctx context.Context, campaignID, userID string) ([]models.Lead, error) {
	return r.query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE campaign_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC`, campaignID, userID)
}

// Recent returns the most recently updated leads with their campaign names
func (r *LeadRepository) Recent(ctx context.Context, userID string, limit int) ([]models.LeadWithCampaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+leadColumnsAs("l")+`, c.name
		FROM leads l
		JOIN campaigns c ON c.id = l.campaign_id
		WHERE l.user_id = ?
		ORDER BY l.updated_at DESC, l.id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recent := []models.LeadWithCampaign{}
	for rows.Next() {
		var item models.LeadWithCampaign
		var history string
		var lastContact sql.NullTime
		err := rows.Scan(leadDest(&item.Lead, &history, &lastContact, &item.CampaignName)...)
		if err != nil {
			return nil, err
		}
		if err := finishLead(&item.Lead, history, lastContact); err != nil {
			return nil, err
		}
		recent = append(recent, item)
	}
	return recent, rows.Err()
}

// Update writes every mutable column of l. The owner must match.
func (r *LeadRepository) Update(ctx context.Context, l *models.Lead) error {
	l.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE leads SET campaign_id = ?, name = ?, email = ?, title = ?, company = ?, profile_url = ?,
			profile_image = ?, status = ?, activity = ?, last_contact_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		l.CampaignID, l.Name, l.Email, l.Title, l.Company, l.ProfileURL,
		l.ProfileImage, l.Status, l.Activity, nullTime(l.LastContactDate), l.UpdatedAt,
		l.ID, l.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return expectAffected(result)
}

// Delete deletes a lead owned by userID
func (r *LeadRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM leads WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return expectAffected(result)
}

// AppendInteraction appends one entry to the lead's history in a single
// statement, so concurrent appends never drop each other.
func (r *LeadRepository) AppendInteraction(ctx context.Context, id, userID string, in models.Interaction) error {
	entry, err := encodeJSON(in)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE leads SET interaction_history = json_insert(interaction_history, '$[#]', json(?)), updated_at = ?
		WHERE id = ? AND user_id = ?`,
		entry, time.Now().UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return expectAffected(result)
}

func (r *LeadRepository) query(ctx context.Context, query string, args ...any) ([]models.Lead, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func scanLead(s scanner) (*models.Lead, error) {
	l := &models.Lead{}
	var history string
	var lastContact sql.NullTime
	if err := s.Scan(leadDest(l, &history, &lastContact)...); err != nil {
		return nil, err
	}
	if err := finishLead(l, history, lastContact); err != nil {
		return nil, err
	}
	return l, nil
}

func leadDest(l *models.Lead, history *string, lastContact *sql.NullTime, extra ...any) []any {
	dest := []any{
		&l.ID, &l.UserID, &l.CampaignID, &l.Name, &l.Email, &l.Title, &l.Company, &l.ProfileURL, &l.ProfileImage,
		&l.Status, &l.Activity, history, lastContact, &l.CreatedAt, &l.UpdatedAt,
	}
	return append(dest, extra...)
}

func finishLead(l *models.Lead, history string, lastContact sql.NullTime) error {
	l.InteractionHistory = []models.Interaction{}
	if err := decodeJSON(history, &l.InteractionHistory); err != nil {
		return err
	}
	if lastContact.Valid {
		t := lastContact.Time
		l.LastContactDate = &t
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
