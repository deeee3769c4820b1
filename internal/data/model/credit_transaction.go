package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrImmutableTransaction is returned by the hooks below; ledger rows are append-only.
var ErrImmutableTransaction = errors.New("credit_transaction rows are append-only")

// CreditTransaction 积分流水表
type CreditTransaction struct {
	TransactionID string    `gorm:"primaryKey;type:varchar(64)"`
	AccountID     string    `gorm:"type:varchar(64);not null;index:idx_account_created,priority:1"`
	Amount        int64     `gorm:"not null"`
	BalanceAfter  int64     `gorm:"not null"`
	Kind          string    `gorm:"type:enum('deduction','admin_usage','bonus','refund','purchase','subscription_credit');not null;index:idx_kind_created,priority:1"`
	ActionTag     string    `gorm:"type:varchar(64)"`
	Note          string    `gorm:"type:varchar(512)"`
	CreatedAt     time.Time `gorm:"not null;index:idx_account_created,priority:2;index:idx_kind_created,priority:2"`
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transaction"
}

func (t *CreditTransaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (t *CreditTransaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
