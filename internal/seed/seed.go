// Package seed inserts a canned demo data set for one user.
package seed

import (
	"context"
	"fmt"

	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/service"
)

// Result counts what Demo inserted
type Result struct {
	Campaigns    int
	Leads        int
	Interactions int
	Accounts     int
}

type demoLead struct {
	name, title, company string
	status               models.LeadStatus
	activity             int
}

type demoCampaign struct {
	name   string
	status models.CampaignStatus
	leads  []demoLead
}

var demoAccounts = []models.AccountDraft{
	{Name: "Pulkit Garg", Email: "pulkit.garg@example.com", Status: models.AccountConnected, RequestsSent: 17, RequestsLimit: 30},
	{Name: "Jivesh Lakhani", Email: "jivesh.lakhani@example.com", Status: models.AccountConnected, RequestsSent: 19, RequestsLimit: 30},
	{Name: "Indrajit Sahani", Email: "indrajit.sahani@example.com", Status: models.AccountConnected, RequestsSent: 30, RequestsLimit: 30},
	{Name: "Bhavya Arora", Email: "bhavya.arora@example.com", Status: models.AccountDisconnected, RequestsSent: 0, RequestsLimit: 100},
}

var demoCampaigns = []demoCampaign{
	{
		name:   "Just Herbs",
		status: models.CampaignStatusActive,
		leads: []demoLead{
			{"Om Satyarthy", "Regional Head", "Gynoveda", models.LeadPending, 2},
			{"Dr. Bhuvaneshwari", "Fertility & Women's Health", "Gynoveda", models.LeadContacted, 3},
			{"Surdeep Singh", "Building Product-led SEO", "Gynoveda", models.LeadResponded, 4},
			{"Dilbag Singh", "Manager Marketing & Communication", "Gynoveda", models.LeadConverted, 5},
		},
	},
	{
		name:   "Juicy chemistry",
		status: models.CampaignStatusActive,
		leads: []demoLead{
			{"Vanshy Jain", "Ayurveda, primary care", "Digital Marketing", models.LeadContacted, 1},
			{"Sunil Pal", "Helping Fashion & Lifestyle Brands", "Digi Sidekick", models.LeadPending, 0},
			{"Utkarsh K.", "Airbnb Host", "Airbnb", models.LeadBlocked, 0},
		},
	},
	{
		name:   "Hyugalife 2",
		status: models.CampaignStatusPaused,
		leads: []demoLead{
			{"Shreya Ramakrishna", "Deputy Manager - Founder's Office", "Sugar Cosmetics", models.LeadResponded, 3},
			{"Deepak Kumar", "Deputy Manager Advertising", "Hyugalife", models.LeadContacted, 2},
		},
	},
	{
		name:   "Honeyveda",
		status: models.CampaignStatusDraft,
	},
	{
		name:   "HempStreet",
		status: models.CampaignStatusCompleted,
		leads: []demoLead{
			{"Ritika Mehta", "Head of Growth", "HempStreet", models.LeadConverted, 5},
			{"Arjun Rao", "Performance Marketing Lead", "HempStreet", models.LeadResponded, 4},
		},
	},
}

const (
	requestMessage    = "Hi {{firstName}}, I came across your profile and would love to connect."
	connectionMessage = "Thanks for connecting, {{firstName}}! Happy to share what we are building."
)

var followupMessages = []string{
	"Hey {{firstName}}, just following up on my last message.",
	"{{firstName}}, would a short call next week work for you?",
}

// Demo inserts the demo campaigns, leads, interactions and accounts for owner
func Demo(ctx context.Context, svc *service.Services, owner string) (*Result, error) {
	res := &Result{}

	accountIDs := make([]string, 0, len(demoAccounts))
	for _, draft := range demoAccounts {
		a, err := svc.Accounts.Create(ctx, owner, draft)
		if err != nil {
			return res, fmt.Errorf("seed account %q: %w", draft.Name, err)
		}
		accountIDs = append(accountIDs, a.ID)
		res.Accounts++
	}

	for i, dc := range demoCampaigns {
		c, err := svc.Campaigns.Create(ctx, owner, models.CampaignDraft{
			Name:              dc.name,
			Status:            dc.status,
			RequestMessage:    requestMessage,
			ConnectionMessage: connectionMessage,
			FollowupMessages:  followupMessages,
			Settings: models.CampaignSettings{
				Autopilot:        i%2 == 0,
				Personalization:  true,
				SelectedAccounts: accountIDs[:1+i%len(accountIDs)],
			},
		})
		if err != nil {
			return res, fmt.Errorf("seed campaign %q: %w", dc.name, err)
		}
		res.Campaigns++

		for _, dl := range dc.leads {
			lead, err := svc.Leads.Create(ctx, owner, models.LeadDraft{
				CampaignID: c.ID,
				Name:       dl.name,
				Title:      dl.title,
				Company:    dl.company,
				Status:     dl.status,
				Activity:   dl.activity,
			})
			if err != nil {
				return res, fmt.Errorf("seed lead %q: %w", dl.name, err)
			}
			res.Leads++

			for _, in := range history(dl.status) {
				if _, err := svc.Leads.AppendInteraction(ctx, owner, lead.ID, in); err != nil {
					return res, fmt.Errorf("seed interaction for %q: %w", dl.name, err)
				}
				res.Interactions++
			}
		}
	}

	return res, nil
}

// history returns the interactions a lead in status has gone through
func history(status models.LeadStatus) []models.Interaction {
	var out []models.Interaction
	switch status {
	case models.LeadContacted, models.LeadResponded, models.LeadConverted:
		out = append(out, models.Interaction{Type: "request", Message: requestMessage, Status: "sent"})
	default:
		return nil
	}
	if status == models.LeadContacted {
		return out
	}
	out = append(out,
		models.Interaction{Type: "connection", Message: connectionMessage, Status: "accepted"},
		models.Interaction{Type: "message", Message: "Sounds interesting, tell me more.", Status: "replied"},
	)
	if status == models.LeadConverted {
		out = append(out, models.Interaction{Type: "note", Message: "Booked a demo.", Status: "done"})
	}
	return out
}
