package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cramdesk/internal/middleware"
	"cramdesk/internal/sqlinline"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token"`
}

type googleVerifyResponse struct {
	Token   string            `json:"token"`
	Account accountProfileDTO `json:"account"`
}

type accountProfileDTO struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Plan               string `json:"plan"`
	Locale             string `json:"locale"`
	SubscriptionStatus string `json:"subscription_status"`
	TrialEndsAt        string `json:"trial_ends_at,omitempty"`
	PagesRemaining     int    `json:"pages_remaining"`
}

// AuthGoogleVerify exchanges a Google ID token for a session token, creating
// the account with its trial allotment on first sign-in.
func (a *App) AuthGoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.IDToken == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id_token required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	claims, err := a.GoogleVerifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Error().Err(err).Msg("google verify failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid google token")
		return
	}
	sub, _ := claims["sub"].(string)
	emailAddr, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	locale, _ := claims["locale"].(string)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QUpsertGoogleAccount,
		sub, emailAddr, name, locale, a.Config.TrialPages)
	var (
		accountID      string
		plan           string
		subStatus      string
		trialEndsAt    *time.Time
		pagesRemaining int
		inserted       bool
	)
	if err := row.Scan(&accountID, &plan, &subStatus, &trialEndsAt, &pagesRemaining, &inserted); err != nil {
		a.Logger.Error().Err(err).Msg("upsert account failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist account")
		return
	}

	token, err := middleware.SignJWT(a.JWTSecret, accountID, plan, locale)
	if err != nil {
		a.Logger.Error().Err(err).Msg("sign jwt failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	if inserted && a.Email != nil {
		// First sign-in. Welcome mail failures must not block the login.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := a.Email.SendWelcome(ctx, emailAddr, name, a.Config.TrialPages); err != nil {
				a.Logger.Warn().Err(err).Str("account_id", accountID).Msg("welcome email failed")
			}
		}()
	}

	resp := googleVerifyResponse{
		Token: token,
		Account: accountProfileDTO{
			ID:                 accountID,
			Email:              emailAddr,
			Name:               name,
			Plan:               plan,
			Locale:             locale,
			SubscriptionStatus: subStatus,
			PagesRemaining:     pagesRemaining,
		},
	}
	if trialEndsAt != nil {
		resp.Account.TrialEndsAt = trialEndsAt.UTC().Format(time.RFC3339)
	}
	a.json(w, http.StatusOK, resp)
}
