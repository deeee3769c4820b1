package biz

import (
	"context"
	"time"
)

// BillingEventType 账单生命周期事件类型
type BillingEventType string

const (
	EventCheckoutCompleted   BillingEventType = "checkout_completed"
	EventSubscriptionUpdated BillingEventType = "subscription_updated"
	EventSubscriptionDeleted BillingEventType = "subscription_deleted"
	EventRenewalPaid         BillingEventType = "renewal_paid"
	EventPaymentFailed       BillingEventType = "payment_failed"
)

// BillingEvent is a verified provider event reduced to what the reconciler
// needs. It is also the MQ message body.
type BillingEvent struct {
	ID              string           `json:"id"`
	Provider        string           `json:"provider"`
	Type            BillingEventType `json:"type"`
	AccountID       string           `json:"account_id,omitempty"`
	Tier            Tier             `json:"tier,omitempty"`
	CustomerRef     string           `json:"customer_ref,omitempty"`
	SubscriptionRef string           `json:"subscription_ref,omitempty"`
	PlanRef         string           `json:"plan_ref,omitempty"`
	ProviderStatus  string           `json:"provider_status,omitempty"`
	PeriodEnd       *time.Time       `json:"period_end,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// ReconcileOutcome 事件处理结果
type ReconcileOutcome string

const (
	OutcomeApplied           ReconcileOutcome = "applied"
	OutcomeAlreadyReconciled ReconcileOutcome = "already_reconciled"
	OutcomeIgnored           ReconcileOutcome = "ignored"
	OutcomeRejected          ReconcileOutcome = "rejected"
)

// BillingEventRecord 已处理事件记录
type BillingEventRecord struct {
	Provider  string
	EventID   string
	EventType BillingEventType
	AccountID string
	Outcome   ReconcileOutcome
	Detail    string
}

// BillingEventRepo remembers processed provider event ids.
type BillingEventRepo interface {
	IsProcessed(ctx context.Context, provider, eventID string) (bool, error)
	// MarkProcessed returns AlreadyReconciled when a concurrent delivery won.
	MarkProcessed(ctx context.Context, record *BillingEventRecord) error
}

// SubscriptionSnapshot is the provider's current view of a subscription.
type SubscriptionSnapshot struct {
	SubscriptionRef string
	CustomerRef     string
	PlanRef         string
	Status          string
	PeriodEnd       *time.Time
}

// BillingProvider 外部账单服务
type BillingProvider interface {
	FetchSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionSnapshot, error)
}

// BillingEventPublisher hands verified events to the queue. When it is
// disabled the webhook reconciles inline.
type BillingEventPublisher interface {
	Enabled() bool
	Publish(ctx context.Context, event *BillingEvent) error
}
