package model

import (
	"time"
)

// CreditAccount 积分账户表
type CreditAccount struct {
	AccountID  string     `gorm:"primaryKey;type:varchar(64)"`
	Email      string     `gorm:"type:varchar(255)"`
	Balance    int64      `gorm:"not null;default:0"`
	Tier       string     `gorm:"type:enum('free','starter','pro','business');not null;default:'free'"`
	TierStatus string     `gorm:"type:enum('active','past_due','canceled','inactive');not null;default:'active'"`
	PeriodEnd  *time.Time `gorm:"type:datetime"`
	IsAdmin    bool       `gorm:"not null;default:false"`
	// AdminReason records who granted the flag and why.
	AdminReason string     `gorm:"type:varchar(255)"`
	AdminSince  *time.Time `gorm:"type:datetime"`
	// NULL until linked; unique among linked accounts.
	BillingCustomerRef *string   `gorm:"type:varchar(64);uniqueIndex:uk_billing_customer"`
	SubscriptionRef    *string   `gorm:"type:varchar(64);index:idx_subscription"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CreditAccount) TableName() string {
	return "credit_account"
}
