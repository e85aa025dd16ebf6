package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// Billing wraps the Stripe client for subscription checkout and webhook
// verification. Stripe is the source of truth for subscription state; the
// local account row is synchronized through verified webhook events only.
type Billing struct {
	sc            *stripe.Client
	webhookSecret string
}

// New constructs a Billing facade over the Stripe API.
func New(secretKey, webhookSecret string) *Billing {
	return &Billing{
		sc:            stripe.NewClient(secretKey),
		webhookSecret: webhookSecret,
	}
}

// CreateCustomer registers a Stripe customer linked back to the account.
func (b *Billing) CreateCustomer(ctx context.Context, accountID, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerCreateParams{
		Email:    stripe.String(email),
		Metadata: map[string]string{"account_id": accountID},
	}
	customer, err := b.sc.V1Customers.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("billing: create customer: %w", err)
	}
	return customer, nil
}

// CreateSubscriptionCheckout opens a subscription-mode checkout session for
// the given tier. The tier ID rides along in metadata so the webhook can
// apply the right page allotment without a catalog sync.
func (b *Billing) CreateSubscriptionCheckout(ctx context.Context, customerID string, tier *Tier, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	if !tier.Purchasable() {
		return nil, fmt.Errorf("billing: tier %q is not purchasable", tier.ID)
	}
	params := &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("Cramdesk %s", tier.DisplayName)),
						Description: stripe.String(fmt.Sprintf("%d pages per month", tier.MonthlyPages)),
					},
					UnitAmount: stripe.Int64(tier.MonthlyPriceCents),
					Recurring: &stripe.CheckoutSessionCreateLineItemPriceDataRecurringParams{
						Interval: stripe.String("month"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Metadata: map[string]string{
			"tier": string(tier.ID),
		},
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: map[string]string{"tier": string(tier.ID)},
		},
	}
	session, err := b.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("billing: create checkout session: %w", err)
	}
	return session, nil
}

// VerifyWebhookSignature validates the Stripe-Signature header against the
// configured endpoint secret and decodes the event.
func (b *Billing) VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, b.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("billing: webhook signature verification failed: %w", err)
	}
	return &event, nil
}
