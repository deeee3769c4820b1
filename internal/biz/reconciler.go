package biz

import (
	"context"
	"time"

	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ReconcileResult 事件处理结果
type ReconcileResult struct {
	EventID   string
	AccountID string
	Outcome   ReconcileOutcome
	Detail    string
}

// Reconciler drives account tier state from billing lifecycle events.
// Every handler is an idempotent overwrite, so provider retries are safe.
type Reconciler struct {
	credit   *CreditUseCase
	ledger   LedgerRepo
	events   BillingEventRepo
	provider BillingProvider
	resolver *EntitlementResolver
	period   time.Duration
	log      *log.Helper
	metrics  *metrics.CreditMetrics
	now      func() time.Time
}

func NewReconciler(
	credit *CreditUseCase,
	ledger LedgerRepo,
	events BillingEventRepo,
	provider BillingProvider,
	resolver *EntitlementResolver,
	conf *CreditConfig,
	logger log.Logger,
) *Reconciler {
	return &Reconciler{
		credit:   credit,
		ledger:   ledger,
		events:   events,
		provider: provider,
		resolver: resolver,
		period:   conf.Period,
		log:      log.NewHelper(log.With(logger, "module", "biz/reconciler")),
		metrics:  metrics.GetMetrics(),
		now:      time.Now,
	}
}

// Reconcile applies one event. Infrastructure failures come back as errors
// and the event stays unrecorded so the next delivery retries it. Ignored
// and rejected events are recorded like applied ones.
func (r *Reconciler) Reconcile(ctx context.Context, ev *BillingEvent) (*ReconcileResult, error) {
	if ev == nil || ev.Type == "" {
		return nil, creditErrors.InvalidEvent("billing event without a type")
	}
	start := time.Now()
	defer func() {
		r.metrics.BillingEventDuration.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
	}()

	if ev.ID != "" {
		done, err := r.events.IsProcessed(ctx, ev.Provider, ev.ID)
		if err != nil {
			return nil, err
		}
		if done {
			r.metrics.BillingEventTotal.WithLabelValues(string(ev.Type), string(OutcomeAlreadyReconciled)).Inc()
			r.log.WithContext(ctx).Infof("billing event %s already reconciled", ev.ID)
			return &ReconcileResult{EventID: ev.ID, Outcome: OutcomeAlreadyReconciled}, nil
		}
	}

	var (
		res *ReconcileResult
		err error
	)
	switch ev.Type {
	case EventCheckoutCompleted:
		res, err = r.checkoutCompleted(ctx, ev)
	case EventSubscriptionUpdated:
		res, err = r.subscriptionUpdated(ctx, ev)
	case EventSubscriptionDeleted:
		res, err = r.subscriptionDeleted(ctx, ev)
	case EventRenewalPaid:
		res, err = r.renewalPaid(ctx, ev)
	case EventPaymentFailed:
		res, err = r.paymentFailed(ctx, ev)
	default:
		return nil, creditErrors.InvalidEvent("unsupported billing event type %q", ev.Type)
	}
	if err != nil {
		r.metrics.BillingEventTotal.WithLabelValues(string(ev.Type), "error").Inc()
		r.log.WithContext(ctx).Errorf("reconcile %s %s failed: %v", ev.Type, ev.ID, err)
		return nil, err
	}
	res.EventID = ev.ID

	if ev.ID != "" {
		err := r.events.MarkProcessed(ctx, &BillingEventRecord{
			Provider:  ev.Provider,
			EventID:   ev.ID,
			EventType: ev.Type,
			AccountID: res.AccountID,
			Outcome:   res.Outcome,
			Detail:    res.Detail,
		})
		if creditErrors.IsAlreadyReconciled(err) {
			res.Outcome = OutcomeAlreadyReconciled
		} else if err != nil {
			// the state change is committed and idempotent; a redelivery re-applies it
			r.log.WithContext(ctx).Warnf("record billing event %s: %v", ev.ID, err)
		}
	}

	r.metrics.BillingEventTotal.WithLabelValues(string(ev.Type), string(res.Outcome)).Inc()
	if res.Outcome == OutcomeRejected {
		r.log.WithContext(ctx).Warnf("billing event %s %s rejected for account %s: %s", ev.Type, ev.ID, res.AccountID, res.Detail)
	} else {
		r.log.WithContext(ctx).Infof("billing event %s %s: %s account=%s %s", ev.Type, ev.ID, res.Outcome, res.AccountID, res.Detail)
	}
	return res, nil
}

// findAccount prefers explicit metadata, then the subscription, then the
// customer. A nil account means there is nothing to reconcile.
func (r *Reconciler) findAccount(ctx context.Context, ev *BillingEvent) (*Account, error) {
	if ev.AccountID != "" {
		acc, err := r.ledger.GetAccount(ctx, ev.AccountID)
		if err == nil {
			return acc, nil
		}
		if !creditErrors.IsUnknownAccount(err) {
			return nil, err
		}
	}
	if ev.SubscriptionRef != "" {
		acc, err := r.ledger.FindAccountBySubscriptionRef(ctx, ev.SubscriptionRef)
		if err != nil || acc != nil {
			return acc, err
		}
	}
	if ev.CustomerRef != "" {
		return r.ledger.FindAccountByCustomerRef(ctx, ev.CustomerRef)
	}
	return nil, nil
}

func ignored(accountID, detail string) *ReconcileResult {
	return &ReconcileResult{AccountID: accountID, Outcome: OutcomeIgnored, Detail: detail}
}

// apply runs fn under the account lock and turns an invalid transition into
// a rejected result.
func (r *Reconciler) apply(ctx context.Context, accountID string, fn func(ctx context.Context, acc *Account, tx LedgerTx) error) (*ReconcileResult, error) {
	var detail string
	err := r.ledger.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if err := fn(ctx, acc, tx); err != nil {
			return err
		}
		detail = "tier=" + string(acc.Tier) + " status=" + string(acc.TierStatus)
		return nil
	})
	if creditErrors.IsInvalidTransition(err) {
		return &ReconcileResult{AccountID: accountID, Outcome: OutcomeRejected, Detail: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{AccountID: accountID, Outcome: OutcomeApplied, Detail: detail}, nil
}

// staleSubscription reports whether ev targets a subscription the account
// has already moved away from.
func staleSubscription(acc *Account, ev *BillingEvent) bool {
	return ev.SubscriptionRef != "" && acc.SubscriptionRef != "" && acc.SubscriptionRef != ev.SubscriptionRef
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, ev *BillingEvent) (*ReconcileResult, error) {
	tier := ev.Tier
	if tier == "" {
		if t, ok := r.resolver.ResolveTierForBillingPlan(ev.PlanRef); ok {
			tier = t
		}
	}
	if err := r.resolver.ValidateCheckoutTier(tier); err != nil {
		return ignored(ev.AccountID, "checkout for unknown or unpaid tier "+string(tier)), nil
	}
	allowance, err := r.resolver.AllowanceFor(tier)
	if err != nil {
		return nil, err
	}

	acc, err := r.findAccount(ctx, ev)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return ignored(ev.AccountID, "no account for checkout"), nil
	}

	periodEnd := r.now().Add(r.period)
	if ev.PeriodEnd != nil {
		periodEnd = *ev.PeriodEnd
	}
	return r.apply(ctx, acc.AccountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if err := r.resolver.ValidateStatusTransition(acc.TierStatus, StatusActive); err != nil {
			return err
		}
		acc.Tier = tier
		acc.TierStatus = StatusActive
		if acc.BillingCustomerRef == "" {
			acc.BillingCustomerRef = ev.CustomerRef
		} else if ev.CustomerRef != "" && ev.CustomerRef != acc.BillingCustomerRef {
			r.log.WithContext(ctx).Warnf("checkout for %s names customer %s, keeping %s", acc.AccountID, ev.CustomerRef, acc.BillingCustomerRef)
		}
		if ev.SubscriptionRef != "" {
			acc.SubscriptionRef = ev.SubscriptionRef
		}
		acc.PeriodEnd = &periodEnd
		if _, err := r.credit.resetWithin(ctx, tx, acc, tier, allowance); err != nil {
			return err
		}
		return tx.SaveAccount(ctx, acc)
	})
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, ev *BillingEvent) (*ReconcileResult, error) {
	acc, err := r.findAccount(ctx, ev)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return ignored("", "no account for subscription "+ev.SubscriptionRef), nil
	}
	if staleSubscription(acc, ev) {
		return ignored(acc.AccountID, "subscription "+ev.SubscriptionRef+" is no longer current"), nil
	}
	tier, known := r.resolver.ResolveTierForBillingPlan(ev.PlanRef)
	if !known {
		return ignored(acc.AccountID, "unmapped plan "+ev.PlanRef), nil
	}
	status := MapProviderStatus(ev.ProviderStatus)

	return r.apply(ctx, acc.AccountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if err := r.resolver.ValidateStatusTransition(acc.TierStatus, status); err != nil {
			return err
		}
		acc.Tier = tier
		acc.TierStatus = status
		if ev.PeriodEnd != nil {
			acc.PeriodEnd = ev.PeriodEnd
		}
		return tx.SaveAccount(ctx, acc)
	})
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, ev *BillingEvent) (*ReconcileResult, error) {
	acc, err := r.findAccount(ctx, ev)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return ignored("", "no account for subscription "+ev.SubscriptionRef), nil
	}
	if staleSubscription(acc, ev) {
		return ignored(acc.AccountID, "subscription "+ev.SubscriptionRef+" is no longer current"), nil
	}
	allowance, err := r.resolver.AllowanceFor(TierFree)
	if err != nil {
		return nil, err
	}

	return r.apply(ctx, acc.AccountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if err := r.resolver.ValidateStatusTransition(acc.TierStatus, StatusCanceled); err != nil {
			return err
		}
		acc.Tier = TierFree
		acc.TierStatus = StatusCanceled
		acc.SubscriptionRef = ""
		if _, err := r.credit.resetWithin(ctx, tx, acc, TierFree, allowance); err != nil {
			return err
		}
		return tx.SaveAccount(ctx, acc)
	})
}

// renewalPaid reads the subscription from the provider before locking the
// account, so no remote call happens while the row is held.
func (r *Reconciler) renewalPaid(ctx context.Context, ev *BillingEvent) (*ReconcileResult, error) {
	if ev.SubscriptionRef == "" {
		return ignored("", "invoice without subscription"), nil
	}
	sub, err := r.provider.FetchSubscription(ctx, ev.SubscriptionRef)
	if err != nil {
		return nil, err
	}
	tier, ok := r.resolver.ResolveTierForBillingPlan(sub.PlanRef)
	if !ok {
		return ignored("", "unmapped plan "+sub.PlanRef), nil
	}
	allowance, err := r.resolver.AllowanceFor(tier)
	if err != nil {
		return nil, err
	}

	if ev.CustomerRef == "" {
		ev.CustomerRef = sub.CustomerRef
	}
	acc, err := r.findAccount(ctx, ev)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return ignored("", "no account for subscription "+ev.SubscriptionRef), nil
	}

	if staleSubscription(acc, ev) {
		return ignored(acc.AccountID, "subscription "+ev.SubscriptionRef+" is no longer current"), nil
	}

	periodEnd := r.now().Add(r.period)
	if sub.PeriodEnd != nil {
		periodEnd = *sub.PeriodEnd
	}
	return r.apply(ctx, acc.AccountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		// only a checkout brings a canceled account back
		if acc.TierStatus == StatusCanceled {
			return creditErrors.InvalidTransition(string(StatusCanceled), string(StatusActive))
		}
		if err := r.resolver.ValidateStatusTransition(acc.TierStatus, StatusActive); err != nil {
			return err
		}
		acc.Tier = tier
		acc.TierStatus = StatusActive
		acc.SubscriptionRef = ev.SubscriptionRef
		acc.PeriodEnd = &periodEnd
		if _, err := r.credit.resetWithin(ctx, tx, acc, tier, allowance); err != nil {
			return err
		}
		return tx.SaveAccount(ctx, acc)
	})
}

func (r *Reconciler) paymentFailed(ctx context.Context, ev *BillingEvent) (*ReconcileResult, error) {
	acc, err := r.findAccount(ctx, ev)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return ignored("", "no account for failed payment"), nil
	}
	return r.apply(ctx, acc.AccountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if err := r.resolver.ValidateStatusTransition(acc.TierStatus, StatusPastDue); err != nil {
			return err
		}
		acc.TierStatus = StatusPastDue
		return tx.SaveAccount(ctx, acc)
	})
}
