package domain

import "time"

// PlanTier enumerates billing plans.
type PlanTier string

const (
	PlanTierNone    PlanTier = "none"
	PlanTierTrial   PlanTier = "trial"
	PlanTierStudent PlanTier = "student"
	PlanTierScholar PlanTier = "scholar"
)

// SubscriptionStatus enumerates the subscription lifecycle states tracked
// locally. Stripe remains the source of truth; webhooks keep this in sync.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Account represents an authenticated end user and their quota balance.
type Account struct {
	ID                 string
	GoogleSub          string
	Email              string
	Name               string
	Locale             string
	Plan               PlanTier
	SubscriptionStatus SubscriptionStatus
	TrialEndsAt        *time.Time
	PagesRemaining     int
	BillingCycleAnchor time.Time
	StripeCustomerID   string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasAccess reports whether the account may consume quota at the given
// instant: an active subscription always grants access, a trial grants access
// until its deadline. Status is re-derived on every call rather than by a
// background sweep.
func (a Account) HasAccess(now time.Time) bool {
	switch a.SubscriptionStatus {
	case SubscriptionActive:
		return true
	case SubscriptionTrialing:
		return a.TrialEndsAt != nil && a.TrialEndsAt.After(now)
	default:
		return false
	}
}

// IsTrial reports whether the account is on the time-boxed trial tier.
func (a Account) IsTrial() bool {
	return a.SubscriptionStatus == SubscriptionTrialing
}
