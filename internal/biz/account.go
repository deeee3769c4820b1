package biz

import (
	"context"
	"time"
)

// Tier 订阅等级
type Tier string

const (
	TierFree     Tier = "free"
	TierStarter  Tier = "starter"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// IsPaid reports whether the tier is sold through checkout.
func (t Tier) IsPaid() bool {
	switch t {
	case TierStarter, TierPro, TierBusiness:
		return true
	}
	return false
}

// TierStatus 订阅状态
type TierStatus string

const (
	StatusActive   TierStatus = "active"
	StatusPastDue  TierStatus = "past_due"
	StatusCanceled TierStatus = "canceled"
	StatusInactive TierStatus = "inactive"
)

// Account 积分账户
type Account struct {
	AccountID          string
	Email              string
	Balance            int64
	Tier               Tier
	TierStatus         TierStatus
	PeriodEnd          *time.Time
	IsAdmin            bool
	AdminReason        string
	AdminSince         *time.Time
	BillingCustomerRef string
	SubscriptionRef    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BalanceSnapshot is the read-only view served to checkBalance. It may lag
// behind the row by up to the cache TTL.
type BalanceSnapshot struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
	IsAdmin   bool   `json:"is_admin"`
	Tier      Tier   `json:"tier"`
}

// LedgerTx is the handle passed into a unit of work. Every call runs against
// the locked account row and commits or rolls back with it.
type LedgerTx interface {
	SaveAccount(ctx context.Context, acc *Account) error
	// AppendTransaction assigns TransactionID and CreatedAt when unset.
	AppendTransaction(ctx context.Context, txn *Transaction) error
	// Transactions returns the account log in replay order.
	Transactions(ctx context.Context) ([]*Transaction, error)
}

// LedgerRepo 账本存储接口
type LedgerRepo interface {
	// WithAccountLock runs fn with the account row locked. fn sees the
	// current row; returning an error aborts without writing anything.
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, acc *Account, tx LedgerTx) error) error

	CreateAccount(ctx context.Context, acc *Account, opening *Transaction) error
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetBalanceSnapshot(ctx context.Context, accountID string) (*BalanceSnapshot, error)
	// FindAccountByCustomerRef / FindAccountBySubscriptionRef return nil, nil when nothing matches.
	FindAccountByCustomerRef(ctx context.Context, customerRef string) (*Account, error)
	FindAccountBySubscriptionRef(ctx context.Context, subscriptionRef string) (*Account, error)
	ListTransactions(ctx context.Context, accountID string, page, pageSize int) ([]*Transaction, int64, error)
	ListAccountIDs(ctx context.Context) ([]string, error)
}
