package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cramdesk/internal/adapter/repo"
	"cramdesk/internal/domain"
	"cramdesk/internal/infra"
	"cramdesk/internal/middleware"
)

func accountsApp(exec *stubExecutor) *App {
	return &App{
		Config:   &infra.Config{TrialPages: 20},
		Logger:   zerolog.Nop(),
		SQL:      exec,
		Accounts: repo.NewAccountRepository(exec),
	}
}

func TestMe(t *testing.T) {
	exec := newStubExecutor()
	trialEnd := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	account := customerAccount("cus_123", domain.PlanTierTrial, domain.SubscriptionTrialing)
	account.TrialEndsAt = &trialEnd
	exec.byID[account.ID] = account
	app := accountsApp(exec)

	req := httptest.NewRequest("GET", "/v1/me", nil)
	req = req.WithContext(middleware.ContextWithAccountID(req.Context(), account.ID))
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var dto accountProfileDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dto.ID != account.ID || dto.Plan != "trial" || dto.PagesRemaining != 3 {
		t.Errorf("profile = %+v", dto)
	}
	if dto.TrialEndsAt != trialEnd.Format(time.RFC3339) {
		t.Errorf("trial_ends_at = %q, want %q", dto.TrialEndsAt, trialEnd.Format(time.RFC3339))
	}
}

func TestMeUnknownAccount(t *testing.T) {
	app := accountsApp(newStubExecutor())

	req := httptest.NewRequest("GET", "/v1/me", nil)
	req = req.WithContext(middleware.ContextWithAccountID(req.Context(), "ghost"))
	rec := httptest.NewRecorder()
	app.Me(rec, req)

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUsageSummary(t *testing.T) {
	exec := newStubExecutor()
	account := customerAccount("cus_123", domain.PlanTierStudent, domain.SubscriptionActive)
	exec.byID[account.ID] = account
	exec.usageRows = [][]any{
		{"quiz", 4, 1, 9},
		{"summary", 2, 0, 11},
	}
	app := accountsApp(exec)

	req := httptest.NewRequest("GET", "/v1/me/usage", nil)
	req = req.WithContext(middleware.ContextWithAccountID(req.Context(), account.ID))
	rec := httptest.NewRecorder()
	app.UsageSummary(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Since          string            `json:"since"`
		PagesRemaining int               `json:"pages_remaining"`
		Usage          []usageSummaryRow `json:"usage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PagesRemaining != account.PagesRemaining {
		t.Errorf("pages_remaining = %d, want %d", resp.PagesRemaining, account.PagesRemaining)
	}
	if len(resp.Usage) != 2 {
		t.Fatalf("usage rows = %d, want 2", len(resp.Usage))
	}
	if resp.Usage[0].Kind != "quiz" || resp.Usage[0].Granted != 4 || resp.Usage[0].Denied != 1 || resp.Usage[0].PagesCharged != 9 {
		t.Errorf("usage[0] = %+v", resp.Usage[0])
	}
}

func TestUsageSummaryRequiresAuth(t *testing.T) {
	app := accountsApp(newStubExecutor())
	rec := httptest.NewRecorder()
	app.UsageSummary(rec, httptest.NewRequest("GET", "/v1/me/usage", nil))
	if rec.Code != 401 {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
