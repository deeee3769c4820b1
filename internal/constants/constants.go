package constants

import "time"

// 时间格式常量
const (
	// TimeFormatDay 日期格式 (YYYY-MM-DD)
	TimeFormatDay = "2006-01-02"
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
)

// Redis Key 前缀常量
const (
	// RedisKeyBalance 余额快照缓存 key 前缀
	RedisKeyBalance = "credit:balance:"
	// RedisKeyAccountLock 账户写锁 key 前缀
	RedisKeyAccountLock = "credit:lock:account:"
)

// 缓存与锁的默认值
const (
	DefaultBalanceCacheTTL = 5 * time.Minute
	DefaultLockExpiry      = 5 * time.Second
	CacheWriteTimeout      = time.Second
)

// ActionTagAdminAdjustment tags deductions written by a manual balance edit.
const ActionTagAdminAdjustment = "admin_adjustment"

// Billing providers
const (
	ProviderStripe = "stripe"
)

// Stripe 事件类型
const (
	StripeEventCheckoutCompleted   = "checkout.session.completed"
	StripeEventSubscriptionUpdated = "customer.subscription.updated"
	StripeEventSubscriptionDeleted = "customer.subscription.deleted"
	StripeEventInvoicePaid         = "invoice.paid"
	StripeEventPaymentFailed       = "invoice.payment_failed"
)

// Checkout session metadata keys
const (
	MetadataAccountID = "account_id"
	MetadataTier      = "tier"
)

// DefaultPeriod is the billing period assumed when the provider omits one.
const DefaultPeriod = 30 * 24 * time.Hour

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
