package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cramdesk/internal/billing"
	"cramdesk/internal/domain"

	"github.com/stripe/stripe-go/v84"
)

type checkoutCreateRequest struct {
	Tier string `json:"tier"`
}

type checkoutCreateResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

type tierDTO struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	MonthlyPriceCents int64  `json:"monthly_price_cents"`
	MonthlyPages      int    `json:"monthly_pages"`
}

// BillingTiers lists the purchasable subscription tiers.
func (a *App) BillingTiers(w http.ResponseWriter, r *http.Request) {
	tiers := make([]tierDTO, 0, len(billing.Tiers))
	for _, plan := range []domain.PlanTier{domain.PlanTierStudent, domain.PlanTierScholar} {
		tier := billing.TierFor(plan)
		if !tier.Purchasable() {
			continue
		}
		tiers = append(tiers, tierDTO{
			ID:                string(tier.ID),
			DisplayName:       tier.DisplayName,
			MonthlyPriceCents: tier.MonthlyPriceCents,
			MonthlyPages:      tier.MonthlyPages,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"tiers": tiers})
}

// CheckoutCreate opens a Stripe checkout session for a subscription tier,
// creating the Stripe customer on first purchase.
func (a *App) CheckoutCreate(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	if a.Billing == nil {
		a.error(w, http.StatusServiceUnavailable, "billing_unavailable", "billing is not configured")
		return
	}
	var req checkoutCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	tier := billing.TierFor(domain.PlanTier(req.Tier))
	if !tier.Purchasable() {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown or non-purchasable tier")
		return
	}

	account, err := a.Accounts.GetByID(r.Context(), accountID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	customerID := account.StripeCustomerID
	if customerID == "" {
		customer, err := a.Billing.CreateCustomer(r.Context(), account.ID, account.Email)
		if err != nil {
			a.Logger.Error().Err(err).Str("account_id", accountID).Msg("create stripe customer failed")
			a.error(w, http.StatusBadGateway, "billing_failure", "failed to create billing customer")
			return
		}
		customerID = customer.ID
		if err := a.Accounts.AttachStripeCustomer(r.Context(), account.ID, customerID); err != nil {
			a.Logger.Error().Err(err).Str("account_id", accountID).Msg("attach stripe customer failed")
			a.storeError(w, err)
			return
		}
	}

	session, err := a.Billing.CreateSubscriptionCheckout(r.Context(), customerID, tier,
		a.Config.CheckoutSuccessURL, a.Config.CheckoutCancelURL)
	if err != nil {
		a.Logger.Error().Err(err).Str("account_id", accountID).Msg("create checkout session failed")
		a.error(w, http.StatusBadGateway, "billing_failure", "failed to create checkout session")
		return
	}
	a.json(w, http.StatusOK, checkoutCreateResponse{CheckoutURL: session.URL, SessionID: session.ID})
}

// StripeWebhook synchronizes local subscription state from verified Stripe
// events. Stripe retries failed deliveries, so handlers stay idempotent.
func (a *App) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Billing == nil {
		a.error(w, http.StatusServiceUnavailable, "billing_unavailable", "billing is not configured")
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read body")
		return
	}
	event, err := a.Billing.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("webhook signature verification failed")
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		return
	}

	var handleErr error
	switch event.Type {
	case "checkout.session.completed":
		handleErr = a.handleCheckoutCompleted(r.Context(), event)
	case "invoice.paid":
		handleErr = a.handleInvoicePaid(r.Context(), event)
	case "customer.subscription.deleted":
		handleErr = a.handleSubscriptionDeleted(r.Context(), event)
	}
	if handleErr != nil {
		a.Logger.Error().Err(handleErr).Str("event_type", string(event.Type)).Msg("webhook handling failed")
		a.error(w, http.StatusInternalServerError, "internal", "webhook handling failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}

type checkoutSessionEvent struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type invoicePaidEvent struct {
	Customer      string `json:"customer"`
	BillingReason string `json:"billing_reason"`
}

type subscriptionDeletedEvent struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

// handleCheckoutCompleted activates the purchased tier and grants its full
// monthly page allotment. The tier rides in session metadata, so no catalog
// round-trip is needed.
func (a *App) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := parseEventData[checkoutSessionEvent](event)
	if err != nil {
		return fmt.Errorf("parse checkout session: %w", err)
	}
	if session.Subscription == "" {
		return nil
	}
	tier := billing.TierFor(domain.PlanTier(session.Metadata["tier"]))
	if !tier.Purchasable() {
		return fmt.Errorf("unknown tier %q in checkout session %s", session.Metadata["tier"], session.ID)
	}
	account, err := a.Accounts.GetByStripeCustomerID(ctx, session.Customer)
	if err != nil {
		return fmt.Errorf("resolve account for customer %s: %w", session.Customer, err)
	}
	if err := a.Accounts.SetPlan(ctx, account.ID, tier.ID, domain.SubscriptionActive, tier.MonthlyPages); err != nil {
		return fmt.Errorf("activate plan for account %s: %w", account.ID, err)
	}
	a.Logger.Info().
		Str("account_id", account.ID).
		Str("tier", string(tier.ID)).
		Msg("subscription activated")
	return nil
}

// handleInvoicePaid resets the page balance at each renewal. The initial
// invoice is skipped; checkout completion already granted the allotment.
func (a *App) handleInvoicePaid(ctx context.Context, event *stripe.Event) error {
	invoice, err := parseEventData[invoicePaidEvent](event)
	if err != nil {
		return fmt.Errorf("parse invoice: %w", err)
	}
	if invoice.Customer == "" || invoice.BillingReason == "subscription_create" {
		return nil
	}
	account, err := a.Accounts.GetByStripeCustomerID(ctx, invoice.Customer)
	if err != nil {
		return fmt.Errorf("resolve account for customer %s: %w", invoice.Customer, err)
	}
	tier := billing.TierFor(account.Plan)
	if !tier.Purchasable() {
		return fmt.Errorf("account %s has no purchasable tier on renewal", account.ID)
	}
	if err := a.Accounts.SetPlan(ctx, account.ID, tier.ID, domain.SubscriptionActive, tier.MonthlyPages); err != nil {
		return fmt.Errorf("reset billing cycle for account %s: %w", account.ID, err)
	}
	a.Logger.Info().
		Str("account_id", account.ID).
		Str("tier", string(tier.ID)).
		Msg("billing cycle reset")
	return nil
}

// handleSubscriptionDeleted marks the account canceled. Any leftover pages
// stay on the row but HasAccess denies consumption from here on.
func (a *App) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	sub, err := parseEventData[subscriptionDeletedEvent](event)
	if err != nil {
		return fmt.Errorf("parse subscription: %w", err)
	}
	account, err := a.Accounts.GetByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		return fmt.Errorf("resolve account for customer %s: %w", sub.Customer, err)
	}
	if err := a.Accounts.SetSubscriptionStatus(ctx, account.ID, domain.SubscriptionCanceled); err != nil {
		return fmt.Errorf("cancel subscription for account %s: %w", account.ID, err)
	}
	a.Logger.Info().Str("account_id", account.ID).Msg("subscription canceled")
	return nil
}

func parseEventData[T any](event *stripe.Event) (*T, error) {
	var data T
	if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
