package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nawinsharma/kandid/internal/auth"
	"github.com/nawinsharma/kandid/internal/config"
	"github.com/nawinsharma/kandid/internal/db"
	"github.com/nawinsharma/kandid/internal/models"
	"github.com/nawinsharma/kandid/internal/ratelimit"
	"github.com/nawinsharma/kandid/internal/repository"
	"github.com/nawinsharma/kandid/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupTestServer(t *testing.T, rl *ratelimit.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	gate := auth.NewGate(
		repository.NewUserRepository(d.DB),
		repository.NewSessionRepository(d.DB),
		auth.NewTokenIssuer(testSecret, time.Hour),
		auth.GateConfig{SessionTTL: time.Hour, AllowSignup: true},
		logger,
	)

	var limiter *ratelimit.Limiter
	if rl != nil {
		bdb, err := ratelimit.Open(filepath.Join(t.TempDir(), "ratelimit.db"))
		require.NoError(t, err)
		limiter, err = ratelimit.NewLimiter(bdb, rl)
		require.NoError(t, err)
		t.Cleanup(func() {
			limiter.Stop()
			bdb.Close()
		})
	}

	return NewServer(Deps{
		Config:   &config.ServerConfig{ListenAddr: ":0"},
		DB:       d.DB,
		Services: service.New(d.DB),
		Gate:     gate,
		Limiter:  limiter,
		Version:  "test",
		Logger:   logger,
	})
}

type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
	token  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.srv.Handler().ServeHTTP(w, req)
	return w
}

// register signs up a user and returns a client carrying its session cookie
func register(t *testing.T, srv *Server, email string) *client {
	t.Helper()
	c := &client{t: t, srv: srv}
	w := c.do("POST", "/api/auth/register", RegisterRequest{Email: email, Password: "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.SessionCookie {
			c.cookie = ck
		}
	}
	require.NotNil(t, c.cookie, "session cookie not set")
	return c
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, code, resp.Code)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)
	c := &client{t: t, srv: srv}

	w := c.do("GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "ok", resp.Database)
}

func TestRequiresSession(t *testing.T) {
	srv := setupTestServer(t, nil)
	anon := &client{t: t, srv: srv}

	for _, path := range []string{"/api/campaigns", "/api/leads", "/api/dashboard", "/api/linkedin-accounts"} {
		t.Run(path, func(t *testing.T) {
			requireError(t, anon.do("GET", path, nil), http.StatusUnauthorized, codeUnauthorized)
		})
	}

	anon.cookie = &http.Cookie{Name: auth.SessionCookie, Value: "forged"}
	requireError(t, anon.do("GET", "/api/campaigns", nil), http.StatusUnauthorized, codeUnauthorized)
}

func TestSessionEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)

	anon := &client{t: t, srv: srv}
	w := anon.do("GET", "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	c := register(t, srv, "ada@example.com")
	resp := decode[SessionResponse](t, c.do("GET", "/api/auth/session", nil))
	require.NotNil(t, resp.User)
	assert.Equal(t, "ada@example.com", resp.User.Email)

	w = c.do("POST", "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	requireError(t, c.do("GET", "/api/campaigns", nil), http.StatusUnauthorized, codeUnauthorized)
}

func TestLoginAndBearerToken(t *testing.T) {
	srv := setupTestServer(t, nil)
	register(t, srv, "ada@example.com")

	anon := &client{t: t, srv: srv}
	requireError(t, anon.do("POST", "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "nope"}),
		http.StatusUnauthorized, codeUnauthorized)

	w := anon.do("POST", "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[AuthResponse](t, w)
	require.NotEmpty(t, resp.Token)

	api := &client{t: t, srv: srv, token: resp.Token}
	w = api.do("GET", "/api/campaigns", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCampaignEndpoints(t *testing.T) {
	srv := setupTestServer(t, nil)
	c := register(t, srv, "ada@example.com")

	w := c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Test Campaign"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	campaign := decode[models.Campaign](t, w)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)

	w = c.do("GET", "/api/campaigns/"+campaign.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[models.CampaignDetail](t, w)
	assert.Empty(t, detail.Leads)
	assert.Equal(t, 0, detail.Statistics.TotalLeads)
	assert.Equal(t, "0.0", detail.Statistics.ResponseRate)

	for i, status := range []models.LeadStatus{models.LeadContacted, models.LeadResponded, models.LeadConverted, models.LeadPending} {
		w = c.do("POST", "/api/leads", map[string]any{
			"campaignId": campaign.ID,
			"name":       "Lead " + string(rune('A'+i)),
			"status":     status,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = c.do("GET", "/api/campaigns/"+campaign.ID+"/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[models.CampaignStatistics](t, w)
	assert.Equal(t, models.CampaignStatistics{
		TotalLeads:     4,
		ContactedLeads: 3,
		RespondedLeads: 2,
		ConvertedLeads: 1,
		ResponseRate:   "50.0",
		ConversionRate: "25.0",
		ContactRate:    "75.0",
	}, st)

	w = c.do("GET", "/api/campaigns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.CampaignWithStats](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].TotalLeads)
	assert.Equal(t, 2, list[0].SuccessfulLeads)

	w = c.do("PATCH", "/api/campaigns/"+campaign.ID, map[string]any{"status": "active"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.CampaignStatusActive, decode[models.Campaign](t, w).Status)

	requireError(t, c.do("PUT", "/api/campaigns/"+campaign.ID, map[string]any{"status": "archived"}),
		http.StatusBadRequest, codeValidation)

	w = c.do("DELETE", "/api/campaigns/"+campaign.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	requireError(t, c.do("GET", "/api/campaigns/"+campaign.ID, nil), http.StatusNotFound, codeNotFound)

	page := decode[models.LeadPage](t, c.do("GET", "/api/leads", nil))
	assert.Equal(t, 0, page.Pagination.Total)
}

func TestCampaignPreviewEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)
	c := register(t, srv, "ada@example.com")

	w := c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Broken", RequestMessage: "Hi {{nickname}}"})
	resp := requireError(t, w, http.StatusBadRequest, codeValidation)
	assert.Equal(t, "requestMessage", resp.Field)

	w = c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Preview", RequestMessage: "Hi {{firstName}}"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	campaign := decode[models.Campaign](t, w)

	w = c.do("POST", "/api/leads", models.LeadDraft{CampaignID: campaign.ID, Name: "Grace Hopper"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lead := decode[models.Lead](t, w)

	w = c.do("GET", "/api/campaigns/"+campaign.ID+"/preview?leadId="+lead.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[map[string]any](t, w)
	assert.Equal(t, "Hi Grace", preview["requestMessage"])
	assert.Equal(t, []any{}, preview["followupMessages"])
}

func TestLeadEndpoints(t *testing.T) {
	srv := setupTestServer(t, nil)
	c := register(t, srv, "ada@example.com")

	campaign := decode[models.Campaign](t, c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Outreach"}))

	resp := requireError(t, c.do("POST", "/api/leads", map[string]any{
		"campaignId": campaign.ID,
		"name":       "Ada",
		"activity":   9,
	}), http.StatusBadRequest, codeValidation)
	assert.Equal(t, "activity", resp.Field)

	resp = requireError(t, c.do("POST", "/api/leads", map[string]any{
		"campaignId": campaign.ID,
		"name":       "Ada",
		"status":     "pending_approval",
	}), http.StatusBadRequest, codeValidation)
	assert.Equal(t, "status", resp.Field)

	w := c.do("POST", "/api/leads", map[string]any{
		"campaignId": campaign.ID,
		"name":       "Ada Lovelace",
		"company":    "Analytical Engines",
		"userId":     "someone-else",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lead := decode[models.Lead](t, w)
	assert.Equal(t, models.LeadPending, lead.Status)
	assert.NotEqual(t, "someone-else", lead.UserID)

	w = c.do("PATCH", "/api/leads/"+lead.ID, map[string]any{"status": "contacted", "activity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Lead](t, w)
	assert.Equal(t, models.LeadContacted, updated.Status)
	assert.Equal(t, 3, updated.Activity)
	assert.Equal(t, "Analytical Engines", updated.Company)

	w = c.do("POST", "/api/leads/"+lead.ID+"/interactions", map[string]any{"type": "message", "message": "Hi Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	withHistory := decode[models.Lead](t, w)
	require.Len(t, withHistory.InteractionHistory, 1)
	assert.Equal(t, "Hi Ada", withHistory.InteractionHistory[0].Message)

	page := decode[models.LeadPage](t, c.do("GET", "/api/leads?search=analytical&limit=5", nil))
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, 5, page.Pagination.Limit)

	resp = requireError(t, c.do("GET", "/api/leads?page=zero", nil), http.StatusBadRequest, codeValidation)
	assert.Equal(t, "page", resp.Field)

	w = c.do("DELETE", "/api/leads/"+lead.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	requireError(t, c.do("DELETE", "/api/leads/"+lead.ID, nil), http.StatusNotFound, codeNotFound)
}

func TestTenantIsolation(t *testing.T) {
	srv := setupTestServer(t, nil)
	ada := register(t, srv, "ada@example.com")
	bob := register(t, srv, "bob@example.com")

	campaign := decode[models.Campaign](t, ada.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Private"}))
	lead := decode[models.Lead](t, ada.do("POST", "/api/leads", map[string]any{"campaignId": campaign.ID, "name": "Ada's lead"}))

	requireError(t, bob.do("GET", "/api/campaigns/"+campaign.ID, nil), http.StatusNotFound, codeNotFound)
	requireError(t, bob.do("GET", "/api/leads/"+lead.ID, nil), http.StatusNotFound, codeNotFound)
	requireError(t, bob.do("PATCH", "/api/leads/"+lead.ID, map[string]any{"name": "stolen"}), http.StatusNotFound, codeNotFound)
	requireError(t, bob.do("DELETE", "/api/campaigns/"+campaign.ID, nil), http.StatusNotFound, codeNotFound)

	resp := requireError(t, bob.do("POST", "/api/leads", map[string]any{"campaignId": campaign.ID, "name": "Sneaky"}),
		http.StatusBadRequest, codeValidation)
	assert.Equal(t, "campaignId", resp.Field)

	assert.Empty(t, decode[[]models.CampaignWithStats](t, bob.do("GET", "/api/campaigns", nil)))
}

func TestAccountAndDashboardEndpoints(t *testing.T) {
	srv := setupTestServer(t, nil)
	c := register(t, srv, "ada@example.com")

	w := c.do("POST", "/api/linkedin-accounts", models.AccountDraft{
		Name:          "Ada",
		Email:         "ada@linkedin.example",
		Status:        models.AccountConnected,
		RequestsSent:  15,
		RequestsLimit: 30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	account := decode[models.LinkedinAccount](t, w)
	assert.InDelta(t, 50.0, account.Progress, 0.001)

	campaign := decode[models.Campaign](t, c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Launch", Status: models.CampaignStatusActive}))
	c.do("POST", "/api/leads", map[string]any{"campaignId": campaign.ID, "name": "One", "status": "responded"})
	c.do("POST", "/api/leads", map[string]any{"campaignId": campaign.ID, "name": "Two"})

	w = c.do("GET", "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode[models.DashboardSummary](t, w)
	assert.Equal(t, models.DashboardStatistics{
		TotalCampaigns:  1,
		TotalLeads:      2,
		ActiveCampaigns: 1,
		SuccessfulLeads: 1,
		ResponseRate:    "50.0",
	}, summary.Statistics)
	assert.Len(t, summary.LinkedinAccounts, 1)
	assert.Len(t, summary.RecentActivity, 2)
	assert.Equal(t, "Launch", summary.RecentActivity[0].CampaignName)

	w = c.do("DELETE", "/api/linkedin-accounts/"+account.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	requireError(t, c.do("GET", "/api/linkedin-accounts/"+account.ID, nil), http.StatusNotFound, codeNotFound)
}

func TestLoginRateLimit(t *testing.T) {
	srv := setupTestServer(t, &ratelimit.Config{Login: &ratelimit.LimitConfig{PerHour: 2}})
	anon := &client{t: t, srv: srv}

	creds := LoginRequest{Email: "nobody@example.com", Password: "whatever1"}
	for i := 0; i < 2; i++ {
		requireError(t, anon.do("POST", "/api/auth/login", creds), http.StatusUnauthorized, codeUnauthorized)
	}

	w := anon.do("POST", "/api/auth/login", creds)
	requireError(t, w, http.StatusTooManyRequests, codeRateLimited)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestWriteRateLimit(t *testing.T) {
	srv := setupTestServer(t, &ratelimit.Config{Writes: &ratelimit.LimitConfig{PerHour: 1}})
	c := register(t, srv, "ada@example.com")

	w := c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "First"})
	require.Equal(t, http.StatusCreated, w.Code)

	requireError(t, c.do("POST", "/api/campaigns", models.CampaignDraft{Name: "Second"}),
		http.StatusTooManyRequests, codeRateLimited)

	// reads are not counted
	assert.Equal(t, http.StatusOK, c.do("GET", "/api/campaigns", nil).Code)
}

func TestMalformedBody(t *testing.T) {
	srv := setupTestServer(t, nil)
	c := register(t, srv, "ada@example.com")

	req := httptest.NewRequest("POST", "/api/campaigns", bytes.NewBufferString("{not json"))
	req.AddCookie(c.cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	resp := requireError(t, w, http.StatusBadRequest, codeValidation)
	assert.Equal(t, "body", resp.Field)
}

func TestUnknownRoute(t *testing.T) {
	srv := setupTestServer(t, nil)
	anon := &client{t: t, srv: srv}
	requireError(t, anon.do("GET", "/nope", nil), http.StatusNotFound, codeNotFound)
}
