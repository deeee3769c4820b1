package data

import (
	"context"
	"errors"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/conf"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"go.jetify.com/typeid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const transactionIDPrefix = "txn"

// ledgerRepo 账户与流水数据访问，实现 biz.LedgerRepo
type ledgerRepo struct {
	data       *Data
	sync       *redsync.Redsync
	lockExpiry time.Duration
	lockTries  int
	cache      *balanceCache
	log        *log.Helper
	metrics    *metrics.CreditMetrics
	now        func() time.Time
}

// NewLedgerRepo 创建账本 repo（返回 biz.LedgerRepo 接口）
func NewLedgerRepo(data *Data, sync *redsync.Redsync, c *conf.Bootstrap, logger log.Logger) biz.LedgerRepo {
	r := &ledgerRepo{
		data:       data,
		sync:       sync,
		lockExpiry: constants.DefaultLockExpiry,
		cache:      newBalanceCache(data.rdb, data.cacheTTL, logger),
		log:        log.NewHelper(log.With(logger, "module", "data/ledger")),
		metrics:    metrics.GetMetrics(),
		now:        time.Now,
	}
	if c.Data != nil && c.Data.Lock != nil {
		if d := c.Data.Lock.Expiry.AsDuration(); d > 0 {
			r.lockExpiry = d
		}
		r.lockTries = c.Data.Lock.Tries
	}
	return r
}

// WithAccountLock serializes writers of one account. The optional redsync
// mutex keeps contention off the database; the row lock taken inside the
// transaction is what guarantees mutual exclusion.
func (r *ledgerRepo) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, acc *biz.Account, tx biz.LedgerTx) error) error {
	if r.sync != nil {
		unlock, err := r.acquire(ctx, accountID)
		if err != nil {
			return err
		}
		defer unlock()
	}

	var saved *biz.Account
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.CreditAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", accountID).
			First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return creditErrors.UnknownAccount(accountID)
			}
			return err
		}

		lt := &ledgerTx{db: tx, accountID: accountID, now: r.now}
		if err := fn(ctx, toAccount(&m), lt); err != nil {
			return err
		}
		// 行锁释放前刷新余额快照, 保证快照按提交顺序写入
		saved = lt.saved
		if saved != nil {
			r.cache.set(snapshotOf(saved))
		}
		return nil
	})
	if err != nil {
		if saved != nil {
			// 提交失败, 丢弃已写入的快照
			r.cache.invalidate(accountID)
		}
		if creditErrors.IsDomain(err) {
			return err
		}
		r.log.WithContext(ctx).Errorf("ledger unit of work failed: account=%s err=%v", accountID, err)
		return creditErrors.LedgerUnavailable(err)
	}
	return nil
}

func (r *ledgerRepo) acquire(ctx context.Context, accountID string) (func(), error) {
	opts := []redsync.Option{redsync.WithExpiry(r.lockExpiry)}
	if r.lockTries > 0 {
		opts = append(opts, redsync.WithTries(r.lockTries))
	}
	mutex := r.sync.NewMutex(constants.RedisKeyAccountLock+accountID, opts...)

	start := time.Now()
	if err := mutex.LockContext(ctx); err != nil {
		r.metrics.LockAcquireTotal.WithLabelValues("failed").Inc()
		r.metrics.LockAcquireDuration.Observe(time.Since(start).Seconds())
		r.log.WithContext(ctx).Errorf("failed to acquire account lock: account=%s err=%v", accountID, err)
		return nil, creditErrors.LedgerUnavailable(err)
	}
	r.metrics.LockAcquireTotal.WithLabelValues("success").Inc()
	r.metrics.LockAcquireDuration.Observe(time.Since(start).Seconds())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.CacheWriteTimeout)
		defer cancel()
		if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
			r.log.Warnf("failed to release account lock: account=%s err=%v", accountID, err)
		}
	}, nil
}

// CreateAccount 创建账户并写入开户流水
func (r *ledgerRepo) CreateAccount(ctx context.Context, acc *biz.Account, opening *biz.Transaction) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.CreditAccount{}).Where("account_id = ?", acc.AccountID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return creditErrors.AccountExists(acc.AccountID)
		}
		m := fromAccount(acc)
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return creditErrors.AccountExists(acc.AccountID)
			}
			return err
		}
		if opening != nil {
			lt := &ledgerTx{db: tx, accountID: acc.AccountID, now: r.now}
			if err := lt.AppendTransaction(ctx, opening); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if creditErrors.IsDomain(err) {
			return err
		}
		r.log.WithContext(ctx).Errorf("CreateAccount failed: account=%s err=%v", acc.AccountID, err)
		return creditErrors.LedgerUnavailable(err)
	}
	r.cache.set(snapshotOf(acc))
	return nil
}

// GetAccount 查询账户（直接读库）
func (r *ledgerRepo) GetAccount(ctx context.Context, accountID string) (*biz.Account, error) {
	var m model.CreditAccount
	if err := r.data.db.WithContext(ctx).Where("account_id = ?", accountID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, creditErrors.UnknownAccount(accountID)
		}
		r.log.WithContext(ctx).Errorf("GetAccount failed: account=%s err=%v", accountID, err)
		return nil, creditErrors.LedgerUnavailable(err)
	}
	return toAccount(&m), nil
}

// GetBalanceSnapshot 先读缓存，未命中再读库并回填
func (r *ledgerRepo) GetBalanceSnapshot(ctx context.Context, accountID string) (*biz.BalanceSnapshot, error) {
	if snap, ok := r.cache.get(ctx, accountID); ok {
		r.metrics.BalanceCacheTotal.WithLabelValues("hit").Inc()
		return snap, nil
	}
	r.metrics.BalanceCacheTotal.WithLabelValues("miss").Inc()

	acc, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	snap := snapshotOf(acc)
	r.cache.fill(snap)
	return snap, nil
}

func (r *ledgerRepo) findAccount(ctx context.Context, column, value string) (*biz.Account, error) {
	if value == "" {
		return nil, nil
	}
	var m model.CreditAccount
	if err := r.data.db.WithContext(ctx).Where(column+" = ?", value).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("find account by %s failed: %v", column, err)
		return nil, creditErrors.LedgerUnavailable(err)
	}
	return toAccount(&m), nil
}

// FindAccountByCustomerRef 通过账单客户号查询账户
func (r *ledgerRepo) FindAccountByCustomerRef(ctx context.Context, customerRef string) (*biz.Account, error) {
	return r.findAccount(ctx, "billing_customer_ref", customerRef)
}

// FindAccountBySubscriptionRef 通过订阅号查询账户
func (r *ledgerRepo) FindAccountBySubscriptionRef(ctx context.Context, subscriptionRef string) (*biz.Account, error) {
	return r.findAccount(ctx, "subscription_ref", subscriptionRef)
}

// ListTransactions 获取账户流水列表，最新的在前
func (r *ledgerRepo) ListTransactions(ctx context.Context, accountID string, page, pageSize int) ([]*biz.Transaction, int64, error) {
	var total int64
	query := r.data.db.WithContext(ctx).Model(&model.CreditTransaction{}).Where("account_id = ?", accountID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, creditErrors.LedgerUnavailable(err)
	}

	var rows []model.CreditTransaction
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, transaction_id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, creditErrors.LedgerUnavailable(err)
	}

	out := make([]*biz.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, toTransaction(&rows[i]))
	}
	return out, total, nil
}

// ListAccountIDs 获取所有账户ID（用于账本审计）
func (r *ledgerRepo) ListAccountIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.data.db.WithContext(ctx).
		Model(&model.CreditAccount{}).
		Order("account_id").
		Pluck("account_id", &ids).Error; err != nil {
		return nil, creditErrors.LedgerUnavailable(err)
	}
	return ids, nil
}

// ledgerTx runs against the transaction that holds the account row lock.
type ledgerTx struct {
	db        *gorm.DB
	accountID string
	now       func() time.Time
	saved     *biz.Account
}

func (t *ledgerTx) SaveAccount(ctx context.Context, acc *biz.Account) error {
	if acc.AccountID != t.accountID {
		return creditErrors.InvalidArgument("account_id", "does not match the locked account")
	}
	acc.UpdatedAt = t.now()
	m := fromAccount(acc)
	err := t.db.WithContext(ctx).Model(&model.CreditAccount{}).
		Where("account_id = ?", acc.AccountID).
		Updates(map[string]interface{}{
			"balance":              m.Balance,
			"tier":                 m.Tier,
			"tier_status":          m.TierStatus,
			"period_end":           m.PeriodEnd,
			"is_admin":             m.IsAdmin,
			"admin_reason":         m.AdminReason,
			"admin_since":          m.AdminSince,
			"billing_customer_ref": m.BillingCustomerRef,
			"subscription_ref":     m.SubscriptionRef,
			"updated_at":           m.UpdatedAt,
		}).Error
	if err != nil {
		return err
	}
	cp := *acc
	t.saved = &cp
	return nil
}

func (t *ledgerTx) AppendTransaction(ctx context.Context, txn *biz.Transaction) error {
	if txn.TransactionID == "" {
		tid, err := typeid.Generate(transactionIDPrefix)
		if err != nil {
			return err
		}
		txn.TransactionID = tid.String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = t.now()
	}
	if txn.AccountID == "" {
		txn.AccountID = t.accountID
	}
	return t.db.WithContext(ctx).Create(fromTransaction(txn)).Error
}

func (t *ledgerTx) Transactions(ctx context.Context) ([]*biz.Transaction, error) {
	var rows []model.CreditTransaction
	if err := t.db.WithContext(ctx).
		Where("account_id = ?", t.accountID).
		Order("created_at ASC, transaction_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*biz.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, toTransaction(&rows[i]))
	}
	return out, nil
}

func toAccount(m *model.CreditAccount) *biz.Account {
	acc := &biz.Account{
		AccountID:   m.AccountID,
		Email:       m.Email,
		Balance:     m.Balance,
		Tier:        biz.Tier(m.Tier),
		TierStatus:  biz.TierStatus(m.TierStatus),
		PeriodEnd:   m.PeriodEnd,
		IsAdmin:     m.IsAdmin,
		AdminReason: m.AdminReason,
		AdminSince:  m.AdminSince,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.BillingCustomerRef != nil {
		acc.BillingCustomerRef = *m.BillingCustomerRef
	}
	if m.SubscriptionRef != nil {
		acc.SubscriptionRef = *m.SubscriptionRef
	}
	return acc
}

func fromAccount(acc *biz.Account) *model.CreditAccount {
	return &model.CreditAccount{
		AccountID:          acc.AccountID,
		Email:              acc.Email,
		Balance:            acc.Balance,
		Tier:               string(acc.Tier),
		TierStatus:         string(acc.TierStatus),
		PeriodEnd:          acc.PeriodEnd,
		IsAdmin:            acc.IsAdmin,
		AdminReason:        acc.AdminReason,
		AdminSince:         acc.AdminSince,
		BillingCustomerRef: nullable(acc.BillingCustomerRef),
		SubscriptionRef:    nullable(acc.SubscriptionRef),
		CreatedAt:          acc.CreatedAt,
		UpdatedAt:          acc.UpdatedAt,
	}
}

func toTransaction(m *model.CreditTransaction) *biz.Transaction {
	return &biz.Transaction{
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Amount:        m.Amount,
		BalanceAfter:  m.BalanceAfter,
		Kind:          biz.TransactionKind(m.Kind),
		ActionTag:     m.ActionTag,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}

func fromTransaction(t *biz.Transaction) *model.CreditTransaction {
	return &model.CreditTransaction{
		TransactionID: t.TransactionID,
		AccountID:     t.AccountID,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Kind:          string(t.Kind),
		ActionTag:     t.ActionTag,
		Note:          t.Note,
		CreatedAt:     t.CreatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
