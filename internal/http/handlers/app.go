package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cramdesk/internal/adapter/repo"
	"cramdesk/internal/billing"
	"cramdesk/internal/domain"
	"cramdesk/internal/email"
	"cramdesk/internal/infra"
	"cramdesk/internal/middleware"
	"cramdesk/internal/providers/llm"
	"cramdesk/internal/quota"
	"cramdesk/internal/sqlinline"
	"cramdesk/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GoogleVerifier validates a Google ID token and returns its claims.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (jwt.MapClaims, error)
}

// App carries the dependencies shared by all HTTP handlers.
type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	SQL       infra.SQLExecutor
	Accounts  *repo.AccountRepositoryPG
	Documents *repo.DocumentRepositoryPG
	StudyAids *repo.StudyAidRepositoryPG
	Ledger    *quota.Ledger
	Provider  llm.Provider
	Billing   *billing.Billing
	Email     email.Sender
	Files     *storage.FileStore

	GoogleVerifier GoogleVerifier
	JWTSecret      string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}

func (a *App) currentAccountID(r *http.Request) string {
	return middleware.AccountIDFromContext(r.Context())
}

// storeError translates repository failures into HTTP responses.
func (a *App) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		a.error(w, http.StatusServiceUnavailable, "store_unavailable", "storage backend unavailable")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "unexpected failure")
	}
}

// denialError maps a denied ledger decision onto the HTTP surface. Denials
// are structured outcomes, not server failures, so they never map to 5xx.
func (a *App) denialError(w http.ResponseWriter, decision quota.Decision) {
	switch decision.Reason {
	case quota.ReasonSubscriptionExpired:
		a.error(w, http.StatusPaymentRequired, "subscription_expired", "subscription or trial has expired")
	case quota.ReasonInsufficientPages:
		a.error(w, http.StatusPaymentRequired, "insufficient_pages", "not enough pages remaining")
	default:
		a.error(w, http.StatusForbidden, "denied", "request denied")
	}
}

// recordUsage appends one row to the usage audit trail. Audit failures are
// logged and swallowed so they never undo a completed deduction.
func (a *App) recordUsage(ctx context.Context, accountID string, kind domain.StudyAidKind, decision quota.Decision, pagesCharged int) {
	// request_id is a uuid column; an incoming X-Request-ID may be any
	// string, so only well-formed ids make it into the audit trail.
	var requestID any
	if rid := middleware.RequestIDFromContext(ctx); rid != "" {
		if _, err := uuid.Parse(rid); err == nil {
			requestID = rid
		}
	}
	reason := string(decision.Reason)
	_, err := a.SQL.Exec(ctx, sqlinline.QInsertUsageEvent,
		accountID, requestID, string(kind), decision.Allowed, reason, pagesCharged, decision.PagesRemaining)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("record usage event failed")
	}
}
