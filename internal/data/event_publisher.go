package data

import (
	"context"
	"encoding/json"
	"fmt"

	"credit-service/internal/biz"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// eventPublisher 将已验签的账单事件投递到 RocketMQ
type eventPublisher struct {
	data *Data
	log  *log.Helper
}

// NewEventPublisher 创建账单事件发布者（返回 biz.BillingEventPublisher 接口）
func NewEventPublisher(data *Data, logger log.Logger) biz.BillingEventPublisher {
	return &eventPublisher{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/event_publisher")),
	}
}

func (p *eventPublisher) Enabled() bool {
	return p.data.mq != nil
}

// Publish 同步发送；失败由调用方决定是否退回同步处理
func (p *eventPublisher) Publish(ctx context.Context, ev *biz.BillingEvent) error {
	if p.data.mq == nil {
		return fmt.Errorf("rocketmq producer is not enabled")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := primitive.NewMessage(p.data.mqTopic, body)
	// key by event id so duplicates can be traced in the broker
	key := ev.ID
	if key == "" {
		key = uuid.NewString()
	}
	msg.WithKeys([]string{key})
	if ev.AccountID != "" {
		msg.WithShardingKey(ev.AccountID)
	}
	res, err := p.data.mq.SendSync(ctx, msg)
	if err != nil {
		p.log.WithContext(ctx).Errorf("send billing event %s failed: %v", ev.ID, err)
		return err
	}
	p.log.WithContext(ctx).Infof("billing event %s queued: msg_id=%s", ev.ID, res.MsgID)
	return nil
}
