package biz

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// ActionUsage 按动作汇总的消耗
type ActionUsage struct {
	ActionTag string
	Count     int64
	Credits   int64
}

// DailyCount 按天计数
type DailyCount struct {
	Day   time.Time
	Count int64
}

// recentTransactionLimit bounds the audit trail shown on the dashboard.
const recentTransactionLimit = 20

// growthDays is the window of the signup growth series.
const growthDays = 30

// StatsSummary 管理后台统计
type StatsSummary struct {
	TotalAccounts       int64
	AccountsByTier      map[Tier]int64
	NewAccountsToday    int64
	NewAccountsMonth    int64
	AccountGrowth       []*DailyCount
	RecentTransactions  []*Transaction
	ActiveSubscriptions int64
	ConsumedToday       int64
	ConsumedThisMonth   int64
	AdminUsageThisMonth int64
	ByAction            []*ActionUsage
	GeneratedAt         time.Time
}

// StatsRepo 统计数据层接口
type StatsRepo interface {
	CountAccountsByTier(ctx context.Context) (map[Tier]int64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
	// SumConsumedSince returns the credits deducted since the given time, as a positive number.
	SumConsumedSince(ctx context.Context, since time.Time) (int64, error)
	CountAdminUsageSince(ctx context.Context, since time.Time) (int64, error)
	ConsumptionByAction(ctx context.Context, since time.Time) ([]*ActionUsage, error)
	CountAccountsSince(ctx context.Context, since time.Time) (int64, error)
	// DailySignups returns one entry per day with at least one new account, oldest first.
	DailySignups(ctx context.Context, since time.Time) ([]*DailyCount, error)
	// RecentTransactions returns the newest ledger entries across all accounts.
	RecentTransactions(ctx context.Context, limit int) ([]*Transaction, error)
}

// StatsUseCase 统计业务逻辑
type StatsUseCase struct {
	repo StatsRepo
	log  *log.Helper
	now  func() time.Time
}

func NewStatsUseCase(repo StatsRepo, logger log.Logger) *StatsUseCase {
	return &StatsUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
		now:  time.Now,
	}
}

// Summary runs the dashboard queries concurrently.
func (uc *StatsUseCase) Summary(ctx context.Context) (*StatsSummary, error) {
	now := uc.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	growthStart := todayStart.AddDate(0, 0, -(growthDays - 1))

	out := &StatsSummary{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.AccountsByTier, err = uc.repo.CountAccountsByTier(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.NewAccountsToday, err = uc.repo.CountAccountsSince(gctx, todayStart)
		return err
	})
	g.Go(func() (err error) {
		out.NewAccountsMonth, err = uc.repo.CountAccountsSince(gctx, monthStart)
		return err
	})
	g.Go(func() error {
		days, err := uc.repo.DailySignups(gctx, growthStart)
		if err != nil {
			return err
		}
		out.AccountGrowth = fillDays(growthStart, growthDays, days)
		return nil
	})
	g.Go(func() (err error) {
		out.RecentTransactions, err = uc.repo.RecentTransactions(gctx, recentTransactionLimit)
		return err
	})
	g.Go(func() (err error) {
		out.ActiveSubscriptions, err = uc.repo.CountActiveSubscriptions(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.ConsumedToday, err = uc.repo.SumConsumedSince(gctx, todayStart)
		return err
	})
	g.Go(func() (err error) {
		out.ConsumedThisMonth, err = uc.repo.SumConsumedSince(gctx, monthStart)
		return err
	})
	g.Go(func() (err error) {
		out.AdminUsageThisMonth, err = uc.repo.CountAdminUsageSince(gctx, monthStart)
		return err
	})
	g.Go(func() (err error) {
		out.ByAction, err = uc.repo.ConsumptionByAction(gctx, monthStart)
		return err
	})
	if err := g.Wait(); err != nil {
		uc.log.WithContext(ctx).Errorf("stats summary: %v", err)
		return nil, err
	}
	for _, n := range out.AccountsByTier {
		out.TotalAccounts += n
	}
	return out, nil
}

// fillDays expands sparse per-day counts into n consecutive days from start.
func fillDays(start time.Time, n int, counts []*DailyCount) []*DailyCount {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day.Format("2006-01-02")] += c.Count
	}
	out := make([]*DailyCount, 0, n)
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		out = append(out, &DailyCount{Day: day, Count: byDay[day.Format("2006-01-02")]})
	}
	return out
}
