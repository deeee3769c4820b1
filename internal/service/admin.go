package service

import (
	"context"

	v1 "credit-service/api/credit/v1"
	"credit-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// AdminService 运营后台接口
type AdminService struct {
	credit *biz.CreditUseCase
	stats  *biz.StatsUseCase
	audit  *biz.AuditUseCase
	log    *log.Helper
}

func NewAdminService(credit *biz.CreditUseCase, stats *biz.StatsUseCase, audit *biz.AuditUseCase, logger log.Logger) *AdminService {
	return &AdminService{
		credit: credit,
		stats:  stats,
		audit:  audit,
		log:    log.NewHelper(log.With(logger, "module", "service/admin")),
	}
}

var _ v1.AdminServiceHTTPServer = (*AdminService)(nil)

// GetStats 后台统计
func (s *AdminService) GetStats(ctx context.Context, _ *v1.GetStatsRequest) (*v1.GetStatsReply, error) {
	sum, err := s.stats.Summary(ctx)
	if err != nil {
		s.log.WithContext(ctx).Errorf("GetStats failed: %v", err)
		return nil, err
	}
	reply := &v1.GetStatsReply{
		TotalAccounts:       sum.TotalAccounts,
		AccountsByTier:      make(map[string]int64, len(sum.AccountsByTier)),
		NewAccountsToday:    sum.NewAccountsToday,
		NewAccountsMonth:    sum.NewAccountsMonth,
		AccountGrowth:       make([]*v1.DailyCount, 0, len(sum.AccountGrowth)),
		RecentTransactions:  make([]*v1.Transaction, 0, len(sum.RecentTransactions)),
		ActiveSubscriptions: sum.ActiveSubscriptions,
		ConsumedToday:       sum.ConsumedToday,
		ConsumedThisMonth:   sum.ConsumedThisMonth,
		AdminUsageThisMonth: sum.AdminUsageThisMonth,
		ByAction:            make([]*v1.ActionUsage, 0, len(sum.ByAction)),
		GeneratedAt:         formatTime(sum.GeneratedAt),
	}
	for tier, n := range sum.AccountsByTier {
		reply.AccountsByTier[string(tier)] = n
	}
	for _, d := range sum.AccountGrowth {
		reply.AccountGrowth = append(reply.AccountGrowth, &v1.DailyCount{Day: d.Day.Format("2006-01-02"), Count: d.Count})
	}
	for _, t := range sum.RecentTransactions {
		reply.RecentTransactions = append(reply.RecentTransactions, toTransactionReply(t))
	}
	for _, a := range sum.ByAction {
		reply.ByAction = append(reply.ByAction, &v1.ActionUsage{
			ActionTag: a.ActionTag,
			Count:     a.Count,
			Credits:   a.Credits,
		})
	}
	return reply, nil
}

// AdjustBalance 手工调整余额，写入补偿流水
func (s *AdminService) AdjustBalance(ctx context.Context, req *v1.AdjustBalanceRequest) (*v1.LedgerReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	res, err := s.credit.AdjustBalance(ctx, req.AccountId, req.TargetBalance, req.Note)
	if err != nil {
		s.log.WithContext(ctx).Errorf("AdjustBalance failed: account=%s target=%d: %v", req.AccountId, req.TargetBalance, err)
		return nil, err
	}
	return toLedgerReply(res), nil
}

// SetAdmin promotes or revokes; both require a reason.
func (s *AdminService) SetAdmin(ctx context.Context, req *v1.SetAdminRequest) (*v1.Account, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var (
		acc *biz.Account
		err error
	)
	if req.Admin {
		acc, err = s.credit.PromoteToAdmin(ctx, req.AccountId, req.Reason)
	} else {
		acc, err = s.credit.RevokeAdmin(ctx, req.AccountId, req.Reason)
	}
	if err != nil {
		return nil, err
	}
	return toAccountReply(acc), nil
}

// AuditAccount 重放账本并核对余额
func (s *AdminService) AuditAccount(ctx context.Context, req *v1.AuditAccountRequest) (*v1.AuditAccountReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	rep, err := s.audit.VerifyAccount(ctx, req.AccountId)
	if err != nil {
		return nil, err
	}
	return &v1.AuditAccountReply{
		AccountId:       rep.AccountID,
		Balance:         rep.Balance,
		ReplayedBalance: rep.ReplayedBalance,
		Entries:         rep.Entries,
		FirstMismatch:   rep.FirstMismatch,
		Consistent:      rep.Consistent,
	}, nil
}
