package biz

import (
	"testing"

	"credit-service/internal/conf"
	creditErrors "credit-service/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowanceFor(t *testing.T) {
	r := NewEntitlementResolver(DefaultCreditConfig())
	for tier, want := range map[Tier]int64{
		TierFree: 1000, TierStarter: 25000, TierPro: 100000, TierBusiness: 500000,
	} {
		got, err := r.AllowanceFor(tier)
		require.NoError(t, err)
		assert.Equal(t, want, got, tier)
	}
	_, err := r.AllowanceFor("enterprise")
	assert.Error(t, err)
}

func TestResolveTierFromConfig(t *testing.T) {
	cfg := NewCreditConfig(&conf.Bootstrap{Credit: &conf.Credit{
		Tiers: map[string]*conf.Tier{
			"pro":     {PlanRefs: []string{"price_pro_monthly", "price_pro_yearly"}},
			"starter": {Allowance: 30000, PlanRefs: []string{"price_starter"}},
		},
	}})
	r := NewEntitlementResolver(cfg)

	tier, ok := r.ResolveTierForBillingPlan("price_pro_yearly")
	assert.True(t, ok)
	assert.Equal(t, TierPro, tier)

	_, ok = r.ResolveTierForBillingPlan("price_unknown")
	assert.False(t, ok)
	_, ok = r.ResolveTierForBillingPlan("")
	assert.False(t, ok)

	allowance, err := r.AllowanceFor(TierStarter)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), allowance)
	// untouched tiers keep their defaults
	allowance, err = r.AllowanceFor(TierPro)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), allowance)
}

func TestValidateCheckoutTier(t *testing.T) {
	r := NewEntitlementResolver(DefaultCreditConfig())
	assert.NoError(t, r.ValidateCheckoutTier(TierStarter))
	assert.Error(t, r.ValidateCheckoutTier(TierFree))
	assert.Error(t, r.ValidateCheckoutTier(""))
}

func TestStatusTransitions(t *testing.T) {
	r := NewEntitlementResolver(DefaultCreditConfig())
	statuses := []TierStatus{StatusActive, StatusPastDue, StatusCanceled, StatusInactive}
	for _, from := range statuses {
		for _, to := range statuses {
			err := r.ValidateStatusTransition(from, to)
			if from == StatusCanceled && to == StatusPastDue {
				assert.True(t, creditErrors.IsInvalidTransition(err))
				continue
			}
			assert.NoError(t, err, "%s -> %s", from, to)
		}
	}
}

func TestMapProviderStatus(t *testing.T) {
	assert.Equal(t, StatusActive, MapProviderStatus("active"))
	assert.Equal(t, StatusActive, MapProviderStatus("trialing"))
	assert.Equal(t, StatusPastDue, MapProviderStatus("past_due"))
	assert.Equal(t, StatusCanceled, MapProviderStatus("canceled"))
	assert.Equal(t, StatusInactive, MapProviderStatus("unpaid"))
	assert.Equal(t, StatusInactive, MapProviderStatus(""))
}

func TestParseTransactionKind(t *testing.T) {
	for _, k := range TransactionKinds {
		got, err := ParseTransactionKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseTransactionKind("gift")
	assert.Error(t, err)
}
