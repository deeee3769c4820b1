package data

import (
	"context"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"
	creditErrors "credit-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// statsRepo 统计相关数据访问
type statsRepo struct {
	data *Data
	log  *log.Helper
}

// NewStatsRepo 创建统计 repo（返回 biz.StatsRepo 接口）
func NewStatsRepo(data *Data, logger log.Logger) biz.StatsRepo {
	return &statsRepo{
		data: data,
		log:  log.NewHelper(log.With(logger, "module", "data/stats")),
	}
}

// CountAccountsByTier 按等级统计账户数
func (r *statsRepo) CountAccountsByTier(ctx context.Context) (map[biz.Tier]int64, error) {
	var rows []struct {
		Tier  string
		Total int64
	}
	if err := r.data.db.WithContext(ctx).Model(&model.CreditAccount{}).
		Select("tier", "COUNT(*) as total").
		Group("tier").
		Scan(&rows).Error; err != nil {
		return nil, creditErrors.LedgerUnavailable(err)
	}
	out := make(map[biz.Tier]int64, len(rows))
	for _, row := range rows {
		out[biz.Tier(row.Tier)] = row.Total
	}
	return out, nil
}

// CountActiveSubscriptions 付费且未取消的账户数
func (r *statsRepo) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	var count int64
	if err := r.data.db.WithContext(ctx).Model(&model.CreditAccount{}).
		Where("tier <> ? AND tier_status IN ?", string(biz.TierFree),
			[]string{string(biz.StatusActive), string(biz.StatusPastDue)}).
		Count(&count).Error; err != nil {
		return 0, creditErrors.LedgerUnavailable(err)
	}
	return count, nil
}

// SumConsumedSince 统计消耗积分（不含管理员手工调整）
func (r *statsRepo) SumConsumedSince(ctx context.Context, since time.Time) (int64, error) {
	var result struct {
		Consumed int64
	}
	if err := r.data.db.WithContext(ctx).Model(&model.CreditTransaction{}).
		Select("COALESCE(SUM(-amount), 0) as consumed").
		Where("kind = ? AND action_tag <> ? AND created_at >= ?",
			string(biz.KindDeduction), constants.ActionTagAdminAdjustment, since).
		Scan(&result).Error; err != nil {
		return 0, creditErrors.LedgerUnavailable(err)
	}
	return result.Consumed, nil
}

// CountAdminUsageSince 管理员调用次数
func (r *statsRepo) CountAdminUsageSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.data.db.WithContext(ctx).Model(&model.CreditTransaction{}).
		Where("kind = ? AND created_at >= ?", string(biz.KindAdminUsage), since).
		Count(&count).Error; err != nil {
		return 0, creditErrors.LedgerUnavailable(err)
	}
	return count, nil
}

// CountAccountsSince 新增账户数
func (r *statsRepo) CountAccountsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.data.db.WithContext(ctx).Model(&model.CreditAccount{}).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, creditErrors.LedgerUnavailable(err)
	}
	return count, nil
}

// DailySignups 按天统计新增账户
func (r *statsRepo) DailySignups(ctx context.Context, since time.Time) ([]*biz.DailyCount, error) {
	var rows []struct {
		Day   time.Time
		Total int64
	}
	if err := r.data.db.WithContext(ctx).Model(&model.CreditAccount{}).
		Select("DATE(created_at) as day", "COUNT(*) as total").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, creditErrors.LedgerUnavailable(err)
	}
	out := make([]*biz.DailyCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, &biz.DailyCount{Day: row.Day, Count: row.Total})
	}
	return out, nil
}

// RecentTransactions 最近的流水（全部账户）
func (r *statsRepo) RecentTransactions(ctx context.Context, limit int) ([]*biz.Transaction, error) {
	var rows []model.CreditTransaction
	if err := r.data.db.WithContext(ctx).
		Order("created_at DESC, transaction_id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, creditErrors.LedgerUnavailable(err)
	}
	out := make([]*biz.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, toTransaction(&rows[i]))
	}
	return out, nil
}

// ConsumptionByAction 按动作分组统计
func (r *statsRepo) ConsumptionByAction(ctx context.Context, since time.Time) ([]*biz.ActionUsage, error) {
	var rows []struct {
		ActionTag string
		Total     int64
		Credits   int64
	}
	if err := r.data.db.WithContext(ctx).Model(&model.CreditTransaction{}).
		Select("action_tag", "COUNT(*) as total", "COALESCE(SUM(-amount), 0) as credits").
		Where("kind IN ? AND action_tag <> ? AND created_at >= ?",
			[]string{string(biz.KindDeduction), string(biz.KindAdminUsage)},
			constants.ActionTagAdminAdjustment, since).
		Group("action_tag").
		Order("credits DESC").
		Scan(&rows).Error; err != nil {
		return nil, creditErrors.LedgerUnavailable(err)
	}
	out := make([]*biz.ActionUsage, 0, len(rows))
	for _, row := range rows {
		out = append(out, &biz.ActionUsage{ActionTag: row.ActionTag, Count: row.Total, Credits: row.Credits})
	}
	return out, nil
}
