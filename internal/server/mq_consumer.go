package server

import (
	"context"
	"encoding/json"

	"credit-service/internal/biz"
	"credit-service/internal/conf"
	creditErrors "credit-service/internal/errors"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer consumes verified billing events and reconciles them.
type MQConsumerServer struct {
	c          rocketmq.PushConsumer
	reconciler *biz.Reconciler
	topic      string
	log        *log.Helper
	enabled    bool
}

// NewMQConsumerServer creates a RocketMQ consumer server
func NewMQConsumerServer(bc *conf.Bootstrap, reconciler *biz.Reconciler, logger log.Logger) *MQConsumerServer {
	helper := log.NewHelper(log.With(logger, "module", "server/mq"))
	if bc.Data == nil || bc.Data.Rocketmq == nil || !bc.Data.Rocketmq.Enabled {
		return &MQConsumerServer{log: helper}
	}
	c := bc.Data

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Rocketmq.GroupName),
		consumer.WithRetry(int(c.Rocketmq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(16),
	)
	if err != nil {
		// the webhook keeps reconciling inline when the queue is down
		helper.Errorf("init billing event consumer: %v", err)
		return &MQConsumerServer{log: helper}
	}

	return &MQConsumerServer{
		c:          r,
		reconciler: reconciler,
		topic:      c.Rocketmq.Topic,
		log:        helper,
		enabled:    true,
	}
}

// Start starts the consumer
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.topic)
	if err := s.c.Subscribe(s.topic, consumer.MessageSelector{}, s.handler); err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.topic, err)
		return nil
	}
	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}
	return nil
}

// Stop stops the consumer
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

// handler reconciles each message in order. The whole batch is retried
// when one event hits an infrastructure failure; events already applied
// come back as already reconciled.
func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, msg := range msgs {
		var ev biz.BillingEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			s.log.Errorf("drop undecodable billing event: %v, body: %s", err, string(msg.Body))
			continue
		}
		res, err := s.reconciler.Reconcile(ctx, &ev)
		if err != nil {
			if creditErrors.IsDomain(err) && !creditErrors.IsRetryable(err) {
				s.log.Errorf("drop billing event %s: %v", ev.ID, err)
				continue
			}
			s.log.Warnf("billing event %s will be redelivered: %v", ev.ID, err)
			return consumer.ConsumeRetryLater, nil
		}
		s.log.Debugf("billing event %s: %s", ev.ID, res.Outcome)
	}
	return consumer.ConsumeSuccess, nil
}
