package billing

import "cramdesk/internal/domain"

// Tier defines a subscription plan tier and its monthly page allotment.
type Tier struct {
	ID                domain.PlanTier
	DisplayName       string
	MonthlyPriceCents int64
	MonthlyPages      int
}

// Tiers holds all purchasable subscription tiers keyed by tier ID. The trial
// tier is listed for allotment lookups but is never sold through checkout.
var Tiers = map[domain.PlanTier]*Tier{
	domain.PlanTierTrial: {
		ID:           domain.PlanTierTrial,
		DisplayName:  "Trial",
		MonthlyPages: 20,
	},
	domain.PlanTierStudent: {
		ID:                domain.PlanTierStudent,
		DisplayName:       "Student",
		MonthlyPriceCents: 900,
		MonthlyPages:      200,
	},
	domain.PlanTierScholar: {
		ID:                domain.PlanTierScholar,
		DisplayName:       "Scholar",
		MonthlyPriceCents: 1900,
		MonthlyPages:      600,
	},
}

// TierFor returns the tier for a plan, defaulting to the trial tier for
// unknown plans.
func TierFor(plan domain.PlanTier) *Tier {
	if tier, ok := Tiers[plan]; ok {
		return tier
	}
	return Tiers[domain.PlanTierTrial]
}

// Purchasable reports whether the tier can be bought through checkout.
func (t *Tier) Purchasable() bool {
	return t.MonthlyPriceCents > 0
}
