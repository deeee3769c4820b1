package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	v1 "credit-service/api/credit/v1"
	"credit-service/internal/biz"
	"credit-service/internal/conf"
	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// OutcomeQueued is reported when the event was handed to the queue.
const OutcomeQueued = "queued"

// WebhookService verifies provider callbacks and feeds them to the reconciler.
type WebhookService struct {
	reconciler *biz.Reconciler
	publisher  biz.BillingEventPublisher
	secret     string
	tolerance  time.Duration
	log        *log.Helper
}

func NewWebhookService(c *conf.Bootstrap, reconciler *biz.Reconciler, publisher biz.BillingEventPublisher, logger log.Logger) *WebhookService {
	s := &WebhookService{
		reconciler: reconciler,
		publisher:  publisher,
		tolerance:  webhook.DefaultTolerance,
		log:        log.NewHelper(log.With(logger, "module", "service/webhook")),
	}
	if c.Stripe != nil {
		s.secret = c.Stripe.WebhookSecret
		if d := c.Stripe.Tolerance.AsDuration(); d > 0 {
			s.tolerance = d
		}
	}
	return s
}

// HandleStripe verifies the signature and either enqueues the event or
// reconciles it inline. Errors make the provider redeliver.
func (s *WebhookService) HandleStripe(ctx context.Context, payload []byte, signature string) (*v1.WebhookReply, error) {
	if s.secret == "" {
		return nil, creditErrors.InvalidSignature(stderrors.New("webhook secret not configured"))
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.secret, webhook.ConstructEventOptions{
		Tolerance:                s.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("stripe webhook rejected: %v", err)
		return nil, creditErrors.InvalidSignature(err)
	}

	ev, err := normalizeStripeEvent(&event)
	if err != nil {
		s.log.WithContext(ctx).Errorf("stripe event %s (%s) malformed: %v", event.ID, event.Type, err)
		return nil, err
	}
	if ev == nil {
		s.log.WithContext(ctx).Debugf("stripe event %s (%s) not handled", event.ID, event.Type)
		return &v1.WebhookReply{Received: true, Outcome: string(biz.OutcomeIgnored)}, nil
	}

	if s.publisher != nil && s.publisher.Enabled() {
		err := s.publisher.Publish(ctx, ev)
		if err == nil {
			return &v1.WebhookReply{Received: true, Outcome: OutcomeQueued}, nil
		}
		s.log.WithContext(ctx).Warnf("publish billing event %s failed, reconciling inline: %v", ev.ID, err)
	}

	res, err := s.reconciler.Reconcile(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &v1.WebhookReply{Received: true, Outcome: string(res.Outcome)}, nil
}

// normalizeStripeEvent returns nil for event types the reconciler does not consume.
func normalizeStripeEvent(event *stripe.Event) (*biz.BillingEvent, error) {
	if event.Data == nil {
		return nil, creditErrors.InvalidEvent("stripe event %s without data", event.ID)
	}
	ev := &biz.BillingEvent{
		ID:         event.ID,
		Provider:   constants.ProviderStripe,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}

	switch string(event.Type) {
	case constants.StripeEventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := sess.UnmarshalJSON(event.Data.Raw); err != nil {
			return nil, creditErrors.InvalidEvent("checkout session: %v", err)
		}
		ev.Type = biz.EventCheckoutCompleted
		ev.AccountID = sess.Metadata[constants.MetadataAccountID]
		if ev.AccountID == "" {
			ev.AccountID = sess.ClientReferenceID
		}
		ev.Tier = biz.Tier(sess.Metadata[constants.MetadataTier])
		if sess.Customer != nil {
			ev.CustomerRef = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionRef = sess.Subscription.ID
		}

	case constants.StripeEventSubscriptionUpdated, constants.StripeEventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := sub.UnmarshalJSON(event.Data.Raw); err != nil {
			return nil, creditErrors.InvalidEvent("subscription: %v", err)
		}
		ev.Type = biz.EventSubscriptionUpdated
		if string(event.Type) == constants.StripeEventSubscriptionDeleted {
			ev.Type = biz.EventSubscriptionDeleted
		}
		ev.AccountID = sub.Metadata[constants.MetadataAccountID]
		ev.SubscriptionRef = sub.ID
		ev.ProviderStatus = string(sub.Status)
		if sub.Customer != nil {
			ev.CustomerRef = sub.Customer.ID
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			if item.Price != nil {
				ev.PlanRef = item.Price.ID
			}
			if item.CurrentPeriodEnd > 0 {
				end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
				ev.PeriodEnd = &end
			}
		}

	case constants.StripeEventInvoicePaid, constants.StripeEventPaymentFailed:
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, creditErrors.InvalidEvent("invoice: %v", err)
		}
		ev.Type = biz.EventRenewalPaid
		if string(event.Type) == constants.StripeEventPaymentFailed {
			ev.Type = biz.EventPaymentFailed
		}
		ev.CustomerRef = string(inv.Customer)
		ev.SubscriptionRef = inv.subscriptionRef()

	default:
		return nil, nil
	}
	return ev, nil
}

// invoicePayload reads the invoice fields needed for routing. Newer API
// versions moved the subscription under parent.subscription_details.
type invoicePayload struct {
	ID           string    `json:"id"`
	Customer     objectRef `json:"customer"`
	Subscription objectRef `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription objectRef `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p *invoicePayload) subscriptionRef() string {
	if p.Subscription != "" {
		return string(p.Subscription)
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return string(p.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

// objectRef accepts either an id string or an expanded object.
type objectRef string

func (r *objectRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*r = objectRef(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = objectRef(obj.ID)
	return nil
}
