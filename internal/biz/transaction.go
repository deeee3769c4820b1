package biz

import (
	"time"

	creditErrors "credit-service/internal/errors"
)

// TransactionKind 账本流水类型
type TransactionKind string

const (
	KindDeduction          TransactionKind = "deduction"
	KindAdminUsage         TransactionKind = "admin_usage"
	KindBonus              TransactionKind = "bonus"
	KindRefund             TransactionKind = "refund"
	KindPurchase           TransactionKind = "purchase"
	KindSubscriptionCredit TransactionKind = "subscription_credit"
)

// TransactionKinds lists every kind in storage order.
var TransactionKinds = []TransactionKind{
	KindDeduction,
	KindAdminUsage,
	KindBonus,
	KindRefund,
	KindPurchase,
	KindSubscriptionCredit,
}

func ParseTransactionKind(s string) (TransactionKind, error) {
	for _, k := range TransactionKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", creditErrors.InvalidKind(s)
}

// IsGrant reports whether the kind may be used with Grant.
func (k TransactionKind) IsGrant() bool {
	switch k {
	case KindBonus, KindRefund, KindPurchase, KindSubscriptionCredit:
		return true
	case KindDeduction, KindAdminUsage:
		return false
	}
	return false
}

// Transaction 账本流水，写入后不可修改
type Transaction struct {
	TransactionID string
	AccountID     string
	Amount        int64
	BalanceAfter  int64
	Kind          TransactionKind
	ActionTag     string
	Note          string
	CreatedAt     time.Time
}
