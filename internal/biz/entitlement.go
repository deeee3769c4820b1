package biz

import (
	creditErrors "credit-service/internal/errors"
)

// statusTransitions lists the allowed tierStatus moves. A canceled
// subscription cannot fall into past_due; it has nothing left to bill.
var statusTransitions = map[TierStatus]map[TierStatus]bool{
	StatusActive: {
		StatusActive: true, StatusPastDue: true, StatusCanceled: true, StatusInactive: true,
	},
	StatusPastDue: {
		StatusActive: true, StatusPastDue: true, StatusCanceled: true, StatusInactive: true,
	},
	StatusCanceled: {
		StatusActive: true, StatusCanceled: true, StatusInactive: true,
	},
	StatusInactive: {
		StatusActive: true, StatusPastDue: true, StatusCanceled: true, StatusInactive: true,
	},
}

// EntitlementResolver 等级权益解析
type EntitlementResolver struct {
	allowances map[Tier]int64
	planTiers  map[string]Tier
}

func NewEntitlementResolver(c *CreditConfig) *EntitlementResolver {
	r := &EntitlementResolver{
		allowances: make(map[Tier]int64, len(c.Allowances)),
		planTiers:  make(map[string]Tier, len(c.PlanRefs)),
	}
	for t, a := range c.Allowances {
		r.allowances[t] = a
	}
	for ref, t := range c.PlanRefs {
		r.planTiers[ref] = t
	}
	return r
}

// AllowanceFor returns the monthly credit allowance of tier.
func (r *EntitlementResolver) AllowanceFor(tier Tier) (int64, error) {
	a, ok := r.allowances[tier]
	if !ok {
		return 0, creditErrors.UnknownTier(string(tier))
	}
	return a, nil
}

// ResolveTierForBillingPlan maps a provider plan (price) reference to a tier.
// ok is false for unmapped plans; callers ignore such events.
func (r *EntitlementResolver) ResolveTierForBillingPlan(planRef string) (Tier, bool) {
	if planRef == "" {
		return "", false
	}
	t, ok := r.planTiers[planRef]
	return t, ok
}

// ParseTier validates a tier name against the allowance table.
func (r *EntitlementResolver) ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := r.allowances[t]; !ok {
		return "", creditErrors.UnknownTier(s)
	}
	return t, nil
}

// ValidateCheckoutTier rejects checkouts for the free tier or unknown tiers.
func (r *EntitlementResolver) ValidateCheckoutTier(tier Tier) error {
	if _, ok := r.allowances[tier]; !ok || !tier.IsPaid() {
		return creditErrors.UnknownTier(string(tier))
	}
	return nil
}

func (r *EntitlementResolver) ValidateStatusTransition(from, to TierStatus) error {
	if from == "" {
		from = StatusActive
	}
	if !statusTransitions[from][to] {
		return creditErrors.InvalidTransition(string(from), string(to))
	}
	return nil
}

// MapProviderStatus folds a provider subscription status into a TierStatus.
func MapProviderStatus(status string) TierStatus {
	switch status {
	case "active", "trialing":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "canceled":
		return StatusCanceled
	default:
		return StatusInactive
	}
}
