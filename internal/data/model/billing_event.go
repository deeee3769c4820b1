package model

import (
	"time"
)

// BillingEvent 已处理的账单事件（用于幂等性保证）
type BillingEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Provider  string    `gorm:"type:varchar(32);not null;uniqueIndex:uk_provider_event,priority:1"`
	EventID   string    `gorm:"type:varchar(255);not null;uniqueIndex:uk_provider_event,priority:2"`
	EventType string    `gorm:"type:varchar(64);not null"`
	AccountID string    `gorm:"type:varchar(64);index"`
	Outcome   string    `gorm:"type:enum('applied','ignored','rejected');not null"`
	Detail    string    `gorm:"type:varchar(512)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (BillingEvent) TableName() string {
	return "billing_event"
}
