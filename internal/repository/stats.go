package repository

import (
	"context"
	"database/sql"

	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/stats"
)

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// TallyByCampaign counts a user's leads per campaign and status in one query
func (r *StatsRepository) TallyByCampaign(ctx context.Context, userID string) (map[string]stats.Tally, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id, status, COUNT(*)
		FROM leads WHERE user_id = ?
		GROUP BY campaign_id, status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tallies := map[string]stats.Tally{}
	for rows.Next() {
		var campaignID string
		var status models.LeadStatus
		var n int
		if err := rows.Scan(&campaignID, &status, &n); err != nil {
			return nil, err
		}
		t := tallies[campaignID]
		t.Add(status, n)
		tallies[campaignID] = t
	}
	return tallies, rows.Err()
}

// TallyCampaign counts the leads of one campaign per status
func (r *StatsRepository) TallyCampaign(ctx context.Context, campaignID, userID string) (stats.Tally, error) {
	var t stats.Tally
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM leads WHERE campaign_id = ? AND user_id = ?
		GROUP BY status`, campaignID, userID)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	for rows.Next() {
		var status models.LeadStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats.Tally{}, err
		}
		t.Add(status, n)
	}
	return t, rows.Err()
}

// CountByStatus counts all leads of all users per status
func (r *StatsRepository) CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM leads GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.LeadStatus]int{}
	for _, s := range models.LeadStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status models.LeadStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
