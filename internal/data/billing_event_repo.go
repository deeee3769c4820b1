package data

import (
	"context"

	"credit-service/internal/biz"
	"credit-service/internal/data/model"
	creditErrors "credit-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

// billingEventRepo 账单事件去重
type billingEventRepo struct {
	data *Data
	log  *log.Helper
}

// NewBillingEventRepo 创建账单事件 repo（返回 biz.BillingEventRepo 接口）
func NewBillingEventRepo(data *Data, logger log.Logger) biz.BillingEventRepo {
	return &billingEventRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/billing_event")),
	}
}

// IsProcessed 事件是否已处理
func (r *billingEventRepo) IsProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	var count int64
	if err := r.data.db.WithContext(ctx).Model(&model.BillingEvent{}).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Count(&count).Error; err != nil {
		return false, creditErrors.LedgerUnavailable(err)
	}
	return count > 0, nil
}

// MarkProcessed 记录已处理事件；唯一索引冲突说明并发投递已先行处理
func (r *billingEventRepo) MarkProcessed(ctx context.Context, rec *biz.BillingEventRecord) error {
	m := model.BillingEvent{
		Provider:  rec.Provider,
		EventID:   rec.EventID,
		EventType: string(rec.EventType),
		AccountID: rec.AccountID,
		Outcome:   string(rec.Outcome),
		Detail:    truncate(rec.Detail, 512),
	}
	res := r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		r.log.WithContext(ctx).Errorf("MarkProcessed failed: provider=%s event=%s err=%v", rec.Provider, rec.EventID, res.Error)
		return creditErrors.LedgerUnavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return creditErrors.AlreadyReconciled(rec.EventID)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
