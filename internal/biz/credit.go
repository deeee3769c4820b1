package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// BalanceCheck 余额检查结果
type BalanceCheck struct {
	Sufficient     bool
	CurrentBalance int64
	IsAdmin        bool
}

// LedgerResult 账本写入结果
type LedgerResult struct {
	Success       bool
	NewBalance    int64
	IsAdmin       bool
	TransactionID string
}

// CreditUseCase owns every balance mutation. Each mutation runs inside a
// single WithAccountLock unit; nothing here retries.
type CreditUseCase struct {
	repo     LedgerRepo
	resolver *EntitlementResolver
	log      *log.Helper
	metrics  *metrics.CreditMetrics
	now      func() time.Time
}

func NewCreditUseCase(repo LedgerRepo, resolver *EntitlementResolver, logger log.Logger) *CreditUseCase {
	return &CreditUseCase{
		repo:     repo,
		resolver: resolver,
		log:      log.NewHelper(log.With(logger, "module", "biz/credit")),
		metrics:  metrics.GetMetrics(),
		now:      time.Now,
	}
}

// CheckBalance is advisory. A sufficient answer does not reserve anything;
// Deduct re-reads the balance under the lock.
func (uc *CreditUseCase) CheckBalance(ctx context.Context, accountID string, required int64) (*BalanceCheck, error) {
	start := time.Now()
	defer func() {
		uc.metrics.BalanceCheckDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err := uc.repo.GetBalanceSnapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	res := &BalanceCheck{
		Sufficient:     snap.IsAdmin || snap.Balance >= required,
		CurrentBalance: snap.Balance,
		IsAdmin:        snap.IsAdmin,
	}
	switch {
	case snap.IsAdmin:
		uc.metrics.BalanceCheckTotal.WithLabelValues("admin").Inc()
	case res.Sufficient:
		uc.metrics.BalanceCheckTotal.WithLabelValues("sufficient").Inc()
	default:
		uc.metrics.BalanceCheckTotal.WithLabelValues("insufficient").Inc()
	}
	return res, nil
}

// Deduct charges amount in one locked unit: admins log a zero-amount
// admin_usage row, short balances fail with InsufficientCredits and write
// nothing, everyone else is debited.
func (uc *CreditUseCase) Deduct(ctx context.Context, accountID string, amount int64, actionTag, note string) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, creditErrors.InvalidAmount(amount)
	}
	start := time.Now()
	defer func() {
		uc.metrics.DeductDuration.Observe(time.Since(start).Seconds())
	}()

	var res *LedgerResult
	err := uc.repo.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if acc.IsAdmin {
			txn := &Transaction{
				AccountID:    acc.AccountID,
				Amount:       0,
				BalanceAfter: acc.Balance,
				Kind:         KindAdminUsage,
				ActionTag:    actionTag,
				Note:         adminUsageNote(amount, note),
			}
			if err := tx.AppendTransaction(ctx, txn); err != nil {
				return err
			}
			res = &LedgerResult{Success: true, NewBalance: acc.Balance, IsAdmin: true, TransactionID: txn.TransactionID}
			return nil
		}
		if acc.Balance < amount {
			return creditErrors.InsufficientCredits(amount, acc.Balance)
		}
		acc.Balance -= amount
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		txn := &Transaction{
			AccountID:    acc.AccountID,
			Amount:       -amount,
			BalanceAfter: acc.Balance,
			Kind:         KindDeduction,
			ActionTag:    actionTag,
			Note:         note,
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		res = &LedgerResult{Success: true, NewBalance: acc.Balance, TransactionID: txn.TransactionID}
		return nil
	})
	if err != nil {
		if creditErrors.IsInsufficientCredits(err) {
			uc.metrics.DeductTotal.WithLabelValues(actionTag, "insufficient").Inc()
		} else {
			uc.metrics.DeductTotal.WithLabelValues(actionTag, "error").Inc()
			uc.log.WithContext(ctx).Errorf("deduct failed: account=%s amount=%d action=%s err=%v", accountID, amount, actionTag, err)
		}
		return nil, err
	}

	if res.IsAdmin {
		uc.metrics.DeductTotal.WithLabelValues(actionTag, "admin").Inc()
	} else {
		uc.metrics.DeductTotal.WithLabelValues(actionTag, "success").Inc()
		uc.metrics.DeductAmount.WithLabelValues(actionTag).Add(float64(amount))
	}
	return res, nil
}

// Grant adds credits. kind must be one of the grant kinds.
func (uc *CreditUseCase) Grant(ctx context.Context, accountID string, amount int64, kind TransactionKind, note string) (*LedgerResult, error) {
	if amount <= 0 {
		return nil, creditErrors.InvalidAmount(amount)
	}
	if !kind.IsGrant() {
		return nil, creditErrors.InvalidKind(string(kind))
	}

	var res *LedgerResult
	err := uc.repo.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		acc.Balance += amount
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		txn := &Transaction{
			AccountID:    acc.AccountID,
			Amount:       amount,
			BalanceAfter: acc.Balance,
			Kind:         kind,
			Note:         note,
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		res = &LedgerResult{Success: true, NewBalance: acc.Balance, IsAdmin: acc.IsAdmin, TransactionID: txn.TransactionID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.GrantTotal.WithLabelValues(string(kind)).Inc()
	uc.metrics.GrantAmount.WithLabelValues(string(kind)).Add(float64(amount))
	uc.log.WithContext(ctx).Infof("granted %d %s credits to %s, balance=%d", amount, kind, accountID, res.NewBalance)
	return res, nil
}

// maxNoteLen matches the credit_transaction.note column.
const maxNoteLen = 512

// adminUsageNote keeps the bypassed charge on the admin_usage row.
func adminUsageNote(amount int64, note string) string {
	s := fmt.Sprintf("requested %d", amount)
	if note != "" {
		s += ": " + note
	}
	if len(s) > maxNoteLen {
		s = s[:maxNoteLen]
	}
	return s
}

// ResetToTierAllowance sets the balance to the tier allowance, discarding
// any unused credits.
func (uc *CreditUseCase) ResetToTierAllowance(ctx context.Context, accountID string, tier Tier) (*LedgerResult, error) {
	allowance, err := uc.resolver.AllowanceFor(tier)
	if err != nil {
		return nil, err
	}

	var res *LedgerResult
	err = uc.repo.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		txn, err := uc.resetWithin(ctx, tx, acc, tier, allowance)
		if err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		res = &LedgerResult{Success: true, NewBalance: acc.Balance, IsAdmin: acc.IsAdmin, TransactionID: txn.TransactionID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resetWithin sets acc.Balance and logs the change as a delta so that the
// ledger sum keeps matching the balance across resets. The caller saves acc.
func (uc *CreditUseCase) resetWithin(ctx context.Context, tx LedgerTx, acc *Account, tier Tier, allowance int64) (*Transaction, error) {
	previous := acc.Balance
	acc.Balance = allowance
	txn := &Transaction{
		AccountID:    acc.AccountID,
		Amount:       allowance - previous,
		BalanceAfter: allowance,
		Kind:         KindSubscriptionCredit,
		Note:         fmt.Sprintf("reset to %s allowance %d (previous balance %d)", tier, allowance, previous),
	}
	if err := tx.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	uc.metrics.ResetTotal.WithLabelValues(string(tier)).Inc()
	return txn, nil
}

// CreateAccount registers a free-tier account holding the free allowance.
func (uc *CreditUseCase) CreateAccount(ctx context.Context, accountID, email string) (*Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, creditErrors.InvalidArgument("account_id", "required")
	}
	allowance, err := uc.resolver.AllowanceFor(TierFree)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	acc := &Account{
		AccountID:  accountID,
		Email:      email,
		Balance:    allowance,
		Tier:       TierFree,
		TierStatus: StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	opening := &Transaction{
		AccountID:    accountID,
		Amount:       allowance,
		BalanceAfter: allowance,
		Kind:         KindSubscriptionCredit,
		Note:         "free tier opening allowance",
	}
	if err := uc.repo.CreateAccount(ctx, acc, opening); err != nil {
		return nil, err
	}
	uc.log.WithContext(ctx).Infof("account created: %s tier=%s balance=%d", accountID, acc.Tier, acc.Balance)
	return acc, nil
}

func (uc *CreditUseCase) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	return uc.repo.GetAccount(ctx, accountID)
}

func (uc *CreditUseCase) ListTransactions(ctx context.Context, accountID string, page, pageSize int) ([]*Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	if _, err := uc.repo.GetAccount(ctx, accountID); err != nil {
		return nil, 0, err
	}
	return uc.repo.ListTransactions(ctx, accountID, page, pageSize)
}

// PromoteToAdmin is the only way an account gains admin rights.
func (uc *CreditUseCase) PromoteToAdmin(ctx context.Context, accountID, reason string) (*Account, error) {
	return uc.setAdmin(ctx, accountID, true, reason)
}

func (uc *CreditUseCase) RevokeAdmin(ctx context.Context, accountID, reason string) (*Account, error) {
	return uc.setAdmin(ctx, accountID, false, reason)
}

func (uc *CreditUseCase) setAdmin(ctx context.Context, accountID string, admin bool, reason string) (*Account, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, creditErrors.InvalidArgument("reason", "required")
	}
	var out *Account
	err := uc.repo.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		acc.IsAdmin = admin
		acc.AdminReason = reason
		if admin {
			now := uc.now()
			acc.AdminSince = &now
		} else {
			acc.AdminSince = nil
		}
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.WithContext(ctx).Warnf("admin flag changed: account=%s is_admin=%t reason=%q", accountID, admin, reason)
	return out, nil
}

// AdjustBalance moves the balance to target through a compensating entry.
func (uc *CreditUseCase) AdjustBalance(ctx context.Context, accountID string, target int64, note string) (*LedgerResult, error) {
	if target < 0 {
		return nil, creditErrors.InvalidAmount(target)
	}
	var res *LedgerResult
	err := uc.repo.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		delta := target - acc.Balance
		if delta == 0 {
			res = &LedgerResult{Success: true, NewBalance: acc.Balance, IsAdmin: acc.IsAdmin}
			return nil
		}
		txn := &Transaction{
			AccountID:    acc.AccountID,
			Amount:       delta,
			BalanceAfter: target,
			Kind:         KindBonus,
			Note:         note,
		}
		if delta < 0 {
			txn.Kind = KindDeduction
			txn.ActionTag = constants.ActionTagAdminAdjustment
		}
		acc.Balance = target
		if err := tx.SaveAccount(ctx, acc); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		res = &LedgerResult{Success: true, NewBalance: target, IsAdmin: acc.IsAdmin, TransactionID: txn.TransactionID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.WithContext(ctx).Infof("balance adjusted: account=%s balance=%d note=%q", accountID, target, note)
	return res, nil
}

// LinkBillingCustomer stores the provider customer reference once. An
// account already linked keeps its reference, which is returned.
func (uc *CreditUseCase) LinkBillingCustomer(ctx context.Context, accountID, customerRef string) (string, error) {
	if customerRef == "" {
		return "", creditErrors.InvalidArgument("customer_ref", "required")
	}
	var linked string
	err := uc.repo.WithAccountLock(ctx, accountID, func(ctx context.Context, acc *Account, tx LedgerTx) error {
		if acc.BillingCustomerRef != "" {
			linked = acc.BillingCustomerRef
			return nil
		}
		acc.BillingCustomerRef = customerRef
		linked = customerRef
		return tx.SaveAccount(ctx, acc)
	})
	if err != nil {
		return "", err
	}
	if linked != customerRef {
		uc.log.WithContext(ctx).Warnf("account %s already linked to customer %s, keeping it over %s", accountID, linked, customerRef)
	}
	return linked, nil
}
