package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nawinsharma/kandid/internal/db"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/service"
)

func TestDemo(t *testing.T) {
	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	u := &models.User{Email: "demo@example.com"}
	require.NoError(t, repository.NewUserRepository(d.DB).Create(ctx, u))

	svc := service.New(d.DB)
	res, err := Demo(ctx, svc, u.ID)
	require.NoError(t, err)

	assert.Equal(t, len(demoCampaigns), res.Campaigns)
	assert.Equal(t, len(demoAccounts), res.Accounts)
	assert.Equal(t, 11, res.Leads)

	summary, err := svc.Dashboard.Summary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Statistics.TotalCampaigns)
	assert.Equal(t, 2, summary.Statistics.ActiveCampaigns)
	assert.Equal(t, 11, summary.Statistics.TotalLeads)
	// responded 3 + converted 2
	assert.Equal(t, 5, summary.Statistics.SuccessfulLeads)
	assert.Equal(t, "45.5", summary.Statistics.ResponseRate)
	assert.Len(t, summary.RecentActivity, service.RecentActivityLimit)

	page, err := svc.Leads.List(ctx, u.ID, service.LeadQuery{Search: "Dilbag"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Len(t, page.Items[0].InteractionHistory, 4)
	assert.Equal(t, "request", page.Items[0].InteractionHistory[0].Type)
}

func TestHistory(t *testing.T) {
	tests := []struct {
		status models.LeadStatus
		want   int
	}{
		{models.LeadPending, 0},
		{models.LeadBlocked, 0},
		{models.LeadContacted, 1},
		{models.LeadResponded, 3},
		{models.LeadConverted, 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Len(t, history(tt.status), tt.want)
		})
	}
}
