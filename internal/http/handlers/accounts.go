package handlers

import (
	"net/http"
	"time"

	"cramdesk/internal/sqlinline"
)

// Me returns the authenticated account's profile and current balance.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	account, err := a.Accounts.GetByID(r.Context(), accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	dto := accountProfileDTO{
		ID:                 account.ID,
		Email:              account.Email,
		Name:               account.Name,
		Plan:               string(account.Plan),
		Locale:             account.Locale,
		SubscriptionStatus: string(account.SubscriptionStatus),
		PagesRemaining:     account.PagesRemaining,
	}
	if account.TrialEndsAt != nil {
		dto.TrialEndsAt = account.TrialEndsAt.UTC().Format(time.RFC3339)
	}
	a.json(w, http.StatusOK, dto)
}

type usageSummaryRow struct {
	Kind         string `json:"kind"`
	Granted      int    `json:"granted"`
	Denied       int    `json:"denied"`
	PagesCharged int    `json:"pages_charged"`
}

// UsageSummary aggregates the account's usage events since the start of the
// current billing cycle.
func (a *App) UsageSummary(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	account, err := a.Accounts.GetByID(r.Context(), accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	since := account.BillingCycleAnchor
	if since.IsZero() {
		since = account.CreatedAt
	}
	rows, err := a.SQL.Query(r.Context(), sqlinline.QUsageSummary, accountID, since)
	if err != nil {
		a.Logger.Error().Err(err).Msg("usage summary query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load usage")
		return
	}
	defer rows.Close()

	summary := make([]usageSummaryRow, 0, 8)
	for rows.Next() {
		var row usageSummaryRow
		if err := rows.Scan(&row.Kind, &row.Granted, &row.Denied, &row.PagesCharged); err != nil {
			a.Logger.Error().Err(err).Msg("usage summary scan failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load usage")
			return
		}
		summary = append(summary, row)
	}
	a.json(w, http.StatusOK, map[string]any{
		"since":           since.UTC().Format(time.RFC3339),
		"pages_remaining": account.PagesRemaining,
		"usage":           summary,
	})
}
