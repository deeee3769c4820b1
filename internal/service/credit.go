package service

import (
	"context"

	v1 "credit-service/api/credit/v1"
	"credit-service/internal/biz"
	creditErrors "credit-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// CreditService 面向业务调用方的积分接口
type CreditService struct {
	uc   *biz.CreditUseCase
	gate *biz.ActionGate
	log  *log.Helper
}

// NewCreditService 创建 CreditService
func NewCreditService(uc *biz.CreditUseCase, gate *biz.ActionGate, logger log.Logger) *CreditService {
	return &CreditService{
		uc:   uc,
		gate: gate,
		log:  log.NewHelper(log.With(logger, "module", "service/credit")),
	}
}

var _ v1.CreditServiceHTTPServer = (*CreditService)(nil)

// CreateAccount 开户并发放免费额度
func (s *CreditService) CreateAccount(ctx context.Context, req *v1.CreateAccountRequest) (*v1.Account, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	acc, err := s.uc.CreateAccount(ctx, req.AccountId, req.Email)
	if err != nil {
		s.log.WithContext(ctx).Errorf("CreateAccount failed: %v", err)
		return nil, err
	}
	return toAccountReply(acc), nil
}

// GetAccount 获取账户信息
func (s *CreditService) GetAccount(ctx context.Context, req *v1.GetAccountRequest) (*v1.Account, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	acc, err := s.uc.GetAccount(ctx, req.AccountId)
	if err != nil {
		return nil, err
	}
	return toAccountReply(acc), nil
}

// CheckBalance 检查余额是否足够
func (s *CreditService) CheckBalance(ctx context.Context, req *v1.CheckBalanceRequest) (*v1.CheckBalanceReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	check, err := s.uc.CheckBalance(ctx, req.AccountId, req.Required)
	if err != nil {
		return nil, err
	}
	return &v1.CheckBalanceReply{
		Sufficient:     check.Sufficient,
		CurrentBalance: check.CurrentBalance,
		IsAdmin:        check.IsAdmin,
	}, nil
}

// Deduct 扣减积分
func (s *CreditService) Deduct(ctx context.Context, req *v1.DeductRequest) (*v1.LedgerReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	res, err := s.uc.Deduct(ctx, req.AccountId, req.Amount, req.ActionTag, req.Note)
	if err != nil {
		if creditErrors.IsInsufficientCredits(err) {
			s.log.WithContext(ctx).Infof("Deduct refused: account=%s amount=%d action=%s: %v", req.AccountId, req.Amount, req.ActionTag, err)
			return nil, err
		}
		s.log.WithContext(ctx).Errorf("Deduct failed: account=%s amount=%d action=%s: %v", req.AccountId, req.Amount, req.ActionTag, err)
		return nil, err
	}
	return toLedgerReply(res), nil
}

// Grant 增加积分
func (s *CreditService) Grant(ctx context.Context, req *v1.GrantRequest) (*v1.LedgerReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	kind, err := biz.ParseTransactionKind(req.Kind)
	if err != nil {
		return nil, err
	}
	res, err := s.uc.Grant(ctx, req.AccountId, req.Amount, kind, req.Note)
	if err != nil {
		s.log.WithContext(ctx).Errorf("Grant failed: account=%s amount=%d kind=%s: %v", req.AccountId, req.Amount, req.Kind, err)
		return nil, err
	}
	return toLedgerReply(res), nil
}

// ListTransactions 分页查询流水，最新的在前
func (s *CreditService) ListTransactions(ctx context.Context, req *v1.ListTransactionsRequest) (*v1.ListTransactionsReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	txns, total, err := s.uc.ListTransactions(ctx, req.AccountId, int(req.Page), int(req.PageSize))
	if err != nil {
		return nil, err
	}
	reply := &v1.ListTransactionsReply{
		Total:        total,
		Transactions: make([]*v1.Transaction, 0, len(txns)),
	}
	for _, t := range txns {
		reply.Transactions = append(reply.Transactions, toTransactionReply(t))
	}
	return reply, nil
}

func toTransactionReply(t *biz.Transaction) *v1.Transaction {
	return &v1.Transaction{
		Id:           t.TransactionID,
		AccountId:    t.AccountID,
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Kind:         string(t.Kind),
		ActionTag:    t.ActionTag,
		Note:         t.Note,
		CreatedAt:    formatTime(t.CreatedAt),
	}
}

// LinkBillingCustomer 绑定支付方客户 ID
func (s *CreditService) LinkBillingCustomer(ctx context.Context, req *v1.LinkBillingCustomerRequest) (*v1.LinkBillingCustomerReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ref, err := s.uc.LinkBillingCustomer(ctx, req.AccountId, req.CustomerRef)
	if err != nil {
		return nil, err
	}
	return &v1.LinkBillingCustomerReply{CustomerRef: ref}, nil
}

// Quote 估算动作费用并检查余额，不扣费
func (s *CreditService) Quote(ctx context.Context, req *v1.QuoteRequest) (*v1.QuoteReply, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	pass, err := s.gate.Quote(ctx, req.AccountId, biz.Action(req.Action), biz.Usage{
		Count:           req.Count,
		DurationSeconds: req.DurationSeconds,
		Characters:      req.Characters,
	})
	if err != nil {
		return nil, err
	}
	return &v1.QuoteReply{
		Action:    string(pass.Action),
		Estimated: pass.Estimated,
		Balance:   pass.Balance,
		IsAdmin:   pass.IsAdmin,
	}, nil
}

func toAccountReply(acc *biz.Account) *v1.Account {
	out := &v1.Account{
		AccountId:          acc.AccountID,
		Email:              acc.Email,
		Balance:            acc.Balance,
		Tier:               string(acc.Tier),
		TierStatus:         string(acc.TierStatus),
		IsAdmin:            acc.IsAdmin,
		AdminReason:        acc.AdminReason,
		BillingCustomerRef: acc.BillingCustomerRef,
		SubscriptionRef:    acc.SubscriptionRef,
		CreatedAt:          formatTime(acc.CreatedAt),
	}
	if acc.PeriodEnd != nil {
		out.PeriodEnd = formatTime(*acc.PeriodEnd)
	}
	return out
}

func toLedgerReply(res *biz.LedgerResult) *v1.LedgerReply {
	return &v1.LedgerReply{
		Success:       res.Success,
		NewBalance:    res.NewBalance,
		IsAdmin:       res.IsAdmin,
		TransactionId: res.TransactionID,
	}
}
