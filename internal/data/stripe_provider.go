package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/subscription"
)

// stripeProvider reads subscriptions back from Stripe (实现 biz.BillingProvider)
type stripeProvider struct {
	get func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	log *log.Helper
}

// NewStripeProvider 创建 Stripe 客户端
func NewStripeProvider(c *conf.Bootstrap, logger log.Logger) biz.BillingProvider {
	helper := log.NewHelper(log.With(logger, "module", "data/stripe"))
	if c.Stripe == nil || c.Stripe.SecretKey == "" {
		helper.Warn("stripe secret key is not configured, subscription lookups will fail")
	} else {
		stripe.Key = c.Stripe.SecretKey
	}
	return &stripeProvider{get: subscription.Get, log: helper}
}

// FetchSubscription 查询订阅当前状态
func (p *stripeProvider) FetchSubscription(ctx context.Context, subscriptionRef string) (*biz.SubscriptionSnapshot, error) {
	if subscriptionRef == "" {
		return nil, errors.New("subscription reference is empty")
	}
	sub, err := p.get(subscriptionRef, nil)
	if err != nil {
		p.log.WithContext(ctx).Errorf("get subscription %s: %v", subscriptionRef, err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return snapshotFromStripe(sub), nil
}

func snapshotFromStripe(sub *stripe.Subscription) *biz.SubscriptionSnapshot {
	snap := &biz.SubscriptionSnapshot{
		SubscriptionRef: sub.ID,
		Status:          string(sub.Status),
	}
	if sub.Customer != nil {
		snap.CustomerRef = sub.Customer.ID
	}
	// price and period live on the subscription item in v82
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			snap.PlanRef = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			snap.PeriodEnd = &t
		}
	}
	return snap
}
