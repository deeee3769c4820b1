package biz

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerFixture struct {
	rec      *Reconciler
	ledger   *memoryLedger
	events   *memoryEvents
	provider *stubProvider
	now      time.Time
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	cfg := DefaultCreditConfig()
	cfg.PlanRefs = map[string]Tier{
		"price_starter":  TierStarter,
		"price_pro":      TierPro,
		"price_business": TierBusiness,
	}
	ledger := newMemoryLedger()
	events := newMemoryEvents()
	provider := &stubProvider{subs: map[string]*SubscriptionSnapshot{}}
	resolver := NewEntitlementResolver(cfg)
	credit := NewCreditUseCase(ledger, resolver, testLogger)
	rec := NewReconciler(credit, ledger, events, provider, resolver, cfg, testLogger)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return now }
	return &reconcilerFixture{rec: rec, ledger: ledger, events: events, provider: provider, now: now}
}

func (f *reconcilerFixture) account(t *testing.T, id string) *Account {
	t.Helper()
	acc, err := f.ledger.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc
}

func checkoutEvent(id string) *BillingEvent {
	return &BillingEvent{
		ID:              id,
		Provider:        "stripe",
		Type:            EventCheckoutCompleted,
		AccountID:       "acc_1",
		Tier:            TierPro,
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
	}
}

func TestCheckoutCompletedIsIdempotent(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	seedAccount(f.ledger, "acc_1", 420, false)

	res, err := f.rec.Reconcile(ctx, checkoutEvent("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	once := f.account(t, "acc_1")
	assert.Equal(t, TierPro, once.Tier)
	assert.Equal(t, StatusActive, once.TierStatus)
	assert.Equal(t, int64(100000), once.Balance)
	assert.Equal(t, "cus_1", once.BillingCustomerRef)
	assert.Equal(t, "sub_1", once.SubscriptionRef)
	require.NotNil(t, once.PeriodEnd)
	assert.Equal(t, f.now.Add(30*24*time.Hour), *once.PeriodEnd)

	// redelivery of the same event
	res, err = f.rec.Reconcile(ctx, checkoutEvent("evt_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyReconciled, res.Outcome)

	// the same change under a different id lands on the same state
	res, err = f.rec.Reconcile(ctx, checkoutEvent("evt_2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	twice := f.account(t, "acc_1")
	assert.Equal(t, once.Tier, twice.Tier)
	assert.Equal(t, once.Balance, twice.Balance)
	assert.Equal(t, once.TierStatus, twice.TierStatus)
	assert.Equal(t, twice.Balance, f.ledger.sum("acc_1")+420)
}

func TestCheckoutForFreeTierIsIgnored(t *testing.T) {
	f := newReconcilerFixture(t)
	seedAccount(f.ledger, "acc_1", 5, false)
	ev := checkoutEvent("evt_free")
	ev.Tier = TierFree

	res, err := f.rec.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, int64(5), f.account(t, "acc_1").Balance)
}

func TestCheckoutKeepsExistingCustomer(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_1", Tier: TierFree, TierStatus: StatusCanceled, BillingCustomerRef: "cus_old"})

	_, err := f.rec.Reconcile(context.Background(), checkoutEvent("evt_c"))
	require.NoError(t, err)
	acc := f.account(t, "acc_1")
	assert.Equal(t, "cus_old", acc.BillingCustomerRef)
	assert.Equal(t, StatusActive, acc.TierStatus)
}

func TestRenewalResetsToAllowance(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	f.ledger.put(&Account{
		AccountID:          "acc_s",
		Balance:            5,
		Tier:               TierStarter,
		TierStatus:         StatusActive,
		BillingCustomerRef: "cus_s",
		SubscriptionRef:    "sub_s",
	})
	periodEnd := f.now.Add(31 * 24 * time.Hour)
	f.provider.subs["sub_s"] = &SubscriptionSnapshot{
		SubscriptionRef: "sub_s",
		CustomerRef:     "cus_s",
		PlanRef:         "price_starter",
		Status:          "active",
		PeriodEnd:       &periodEnd,
	}

	res, err := f.rec.Reconcile(ctx, &BillingEvent{
		ID: "evt_inv", Provider: "stripe", Type: EventRenewalPaid,
		CustomerRef: "cus_s", SubscriptionRef: "sub_s",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	acc := f.account(t, "acc_s")
	assert.Equal(t, int64(25000), acc.Balance)
	assert.Equal(t, periodEnd, *acc.PeriodEnd)
}

func TestRenewalPicksUpPlanChange(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_u", Balance: 10, Tier: TierStarter, TierStatus: StatusPastDue, SubscriptionRef: "sub_u"})
	f.provider.subs["sub_u"] = &SubscriptionSnapshot{SubscriptionRef: "sub_u", PlanRef: "price_business"}

	_, err := f.rec.Reconcile(context.Background(), &BillingEvent{ID: "evt_u", Provider: "stripe", Type: EventRenewalPaid, SubscriptionRef: "sub_u"})
	require.NoError(t, err)
	acc := f.account(t, "acc_u")
	assert.Equal(t, TierBusiness, acc.Tier)
	assert.Equal(t, StatusActive, acc.TierStatus)
	assert.Equal(t, int64(500000), acc.Balance)
	assert.Equal(t, f.now.Add(30*24*time.Hour), *acc.PeriodEnd)
}

func TestRenewalProviderFailureIsRetried(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	f.ledger.put(&Account{AccountID: "acc_f", Balance: 7, Tier: TierPro, TierStatus: StatusActive, SubscriptionRef: "sub_f"})
	f.provider.err = stderrors.New("stripe timeout")
	ev := &BillingEvent{ID: "evt_f", Provider: "stripe", Type: EventRenewalPaid, SubscriptionRef: "sub_f"}

	_, err := f.rec.Reconcile(ctx, ev)
	require.Error(t, err)
	done, _ := f.events.IsProcessed(ctx, "stripe", "evt_f")
	assert.False(t, done)
	assert.Equal(t, int64(7), f.account(t, "acc_f").Balance)

	f.provider.err = nil
	f.provider.subs["sub_f"] = &SubscriptionSnapshot{SubscriptionRef: "sub_f", PlanRef: "price_pro"}
	res, err := f.rec.Reconcile(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, int64(100000), f.account(t, "acc_f").Balance)
}

func TestRenewalWithUnmappedPlanIsIgnored(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_m", Balance: 3, Tier: TierPro, TierStatus: StatusActive, SubscriptionRef: "sub_m"})
	f.provider.subs["sub_m"] = &SubscriptionSnapshot{SubscriptionRef: "sub_m", PlanRef: "price_legacy"}

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{ID: "evt_m", Provider: "stripe", Type: EventRenewalPaid, SubscriptionRef: "sub_m"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, int64(3), f.account(t, "acc_m").Balance)
}

func TestSubscriptionUpdatedLeavesBalance(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_up", Balance: 1234, Tier: TierStarter, TierStatus: StatusActive, BillingCustomerRef: "cus_up", SubscriptionRef: "sub_up"})
	periodEnd := f.now.Add(10 * 24 * time.Hour)

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{
		ID: "evt_up", Provider: "stripe", Type: EventSubscriptionUpdated,
		CustomerRef: "cus_up", SubscriptionRef: "sub_up", PlanRef: "price_pro",
		ProviderStatus: "past_due", PeriodEnd: &periodEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	acc := f.account(t, "acc_up")
	assert.Equal(t, TierPro, acc.Tier)
	assert.Equal(t, StatusPastDue, acc.TierStatus)
	assert.Equal(t, int64(1234), acc.Balance)
	assert.Equal(t, periodEnd, *acc.PeriodEnd)
	assert.Empty(t, f.ledger.history("acc_up"))
}

func TestSubscriptionUpdatedUnmappedPlanIsIgnored(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_k", Balance: 5000, Tier: TierStarter, TierStatus: StatusActive, BillingCustomerRef: "cus_k"})

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{
		ID: "evt_k", Provider: "stripe", Type: EventSubscriptionUpdated,
		CustomerRef: "cus_k", SubscriptionRef: "sub_other", PlanRef: "price_unmapped", ProviderStatus: "canceled",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	acc := f.account(t, "acc_k")
	assert.Equal(t, TierStarter, acc.Tier)
	assert.Equal(t, StatusActive, acc.TierStatus)
	assert.Equal(t, int64(5000), acc.Balance)
	assert.Empty(t, f.ledger.history("acc_k"))
}

func TestSubscriptionDeletedDowngrades(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_d", Balance: 88000, Tier: TierPro, TierStatus: StatusActive, BillingCustomerRef: "cus_d", SubscriptionRef: "sub_d"})

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{
		ID: "evt_d", Provider: "stripe", Type: EventSubscriptionDeleted, CustomerRef: "cus_d", SubscriptionRef: "sub_d",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	acc := f.account(t, "acc_d")
	assert.Equal(t, TierFree, acc.Tier)
	assert.Equal(t, StatusCanceled, acc.TierStatus)
	assert.Empty(t, acc.SubscriptionRef)
	assert.Equal(t, int64(1000), acc.Balance)
	assert.Equal(t, "cus_d", acc.BillingCustomerRef)
}

func TestDeleteOfReplacedSubscriptionIsIgnored(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_o", Balance: 90000, Tier: TierPro, TierStatus: StatusActive, BillingCustomerRef: "cus_o", SubscriptionRef: "sub_new"})

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{
		ID: "evt_o", Provider: "stripe", Type: EventSubscriptionDeleted, CustomerRef: "cus_o", SubscriptionRef: "sub_old",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, TierPro, f.account(t, "acc_o").Tier)
}

func TestPaymentFailed(t *testing.T) {
	f := newReconcilerFixture(t)
	ctx := context.Background()
	f.ledger.put(&Account{AccountID: "acc_pf", Balance: 50, Tier: TierStarter, TierStatus: StatusActive, BillingCustomerRef: "cus_pf", SubscriptionRef: "sub_pf"})

	res, err := f.rec.Reconcile(ctx, &BillingEvent{ID: "evt_pf", Provider: "stripe", Type: EventPaymentFailed, CustomerRef: "cus_pf", SubscriptionRef: "sub_pf"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	acc := f.account(t, "acc_pf")
	assert.Equal(t, StatusPastDue, acc.TierStatus)
	assert.Equal(t, int64(50), acc.Balance)
}

func TestPaymentFailedOnCanceledIsRejected(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_x", Balance: 1000, Tier: TierFree, TierStatus: StatusCanceled, BillingCustomerRef: "cus_x"})

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{ID: "evt_x", Provider: "stripe", Type: EventPaymentFailed, CustomerRef: "cus_x"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, StatusCanceled, f.account(t, "acc_x").TierStatus)

	done, _ := f.events.IsProcessed(context.Background(), "stripe", "evt_x")
	assert.True(t, done)
}

func TestRenewalOnCanceledIsRejected(t *testing.T) {
	f := newReconcilerFixture(t)
	f.ledger.put(&Account{AccountID: "acc_rc", Balance: 1000, Tier: TierFree, TierStatus: StatusCanceled, BillingCustomerRef: "cus_rc"})
	f.provider.subs["sub_gone"] = &SubscriptionSnapshot{SubscriptionRef: "sub_gone", CustomerRef: "cus_rc", PlanRef: "price_pro"}

	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{ID: "evt_rc", Provider: "stripe", Type: EventRenewalPaid, SubscriptionRef: "sub_gone"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, int64(1000), f.account(t, "acc_rc").Balance)
}

func TestEventForUnknownCustomerIsIgnored(t *testing.T) {
	f := newReconcilerFixture(t)
	res, err := f.rec.Reconcile(context.Background(), &BillingEvent{ID: "evt_n", Provider: "stripe", Type: EventPaymentFailed, CustomerRef: "cus_nobody"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestMalformedEvents(t *testing.T) {
	f := newReconcilerFixture(t)
	_, err := f.rec.Reconcile(context.Background(), nil)
	assert.Error(t, err)
	_, err = f.rec.Reconcile(context.Background(), &BillingEvent{ID: "evt", Type: "refund_created"})
	assert.Error(t, err)
}
