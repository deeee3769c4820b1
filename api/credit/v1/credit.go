// Package v1 holds the HTTP/JSON contract of the credit service.
package v1

// Account 账户信息
type Account struct {
	AccountId          string `json:"account_id"`
	Email              string `json:"email,omitempty"`
	Balance            int64  `json:"balance"`
	Tier               string `json:"tier"`
	TierStatus         string `json:"tier_status"`
	PeriodEnd          string `json:"period_end,omitempty"`
	IsAdmin            bool   `json:"is_admin"`
	AdminReason        string `json:"admin_reason,omitempty"`
	BillingCustomerRef string `json:"billing_customer_ref,omitempty"`
	SubscriptionRef    string `json:"subscription_ref,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type CreateAccountRequest struct {
	AccountId string `json:"account_id" validate:"required,max=64"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type GetAccountRequest struct {
	AccountId string `json:"account_id" validate:"required"`
}

type CheckBalanceRequest struct {
	AccountId string `json:"account_id" validate:"required"`
	Required  int64  `json:"required" validate:"gte=0"`
}

type CheckBalanceReply struct {
	Sufficient     bool  `json:"sufficient"`
	CurrentBalance int64 `json:"current_balance"`
	IsAdmin        bool  `json:"is_admin"`
}

type DeductRequest struct {
	AccountId string `json:"account_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	ActionTag string `json:"action_tag" validate:"required,max=64"`
	Note      string `json:"note" validate:"max=512"`
}

type GrantRequest struct {
	AccountId string `json:"account_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Kind      string `json:"kind" validate:"required,oneof=bonus refund purchase subscription_credit"`
	Note      string `json:"note" validate:"max=512"`
}

// LedgerReply 账本写入结果
type LedgerReply struct {
	Success       bool   `json:"success"`
	NewBalance    int64  `json:"new_balance"`
	IsAdmin       bool   `json:"is_admin"`
	TransactionId string `json:"transaction_id,omitempty"`
}

type ListTransactionsRequest struct {
	AccountId string `json:"account_id" validate:"required"`
	Page      int32  `json:"page"`
	PageSize  int32  `json:"page_size"`
}

type Transaction struct {
	Id           string `json:"id"`
	AccountId    string `json:"account_id,omitempty"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	Kind         string `json:"kind"`
	ActionTag    string `json:"action_tag,omitempty"`
	Note         string `json:"note,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ListTransactionsReply struct {
	Total        int64          `json:"total"`
	Transactions []*Transaction `json:"transactions"`
}

type LinkBillingCustomerRequest struct {
	AccountId   string `json:"account_id" validate:"required"`
	CustomerRef string `json:"customer_ref" validate:"required,max=64"`
}

type LinkBillingCustomerReply struct {
	CustomerRef string `json:"customer_ref"`
}

// QuoteRequest prices an action and checks the balance without charging.
type QuoteRequest struct {
	AccountId       string `json:"account_id" validate:"required"`
	Action          string `json:"action" validate:"required"`
	Count           int    `json:"count" validate:"gte=0"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Characters      int    `json:"characters" validate:"gte=0"`
}

type QuoteReply struct {
	Action    string `json:"action"`
	Estimated int64  `json:"estimated"`
	Balance   int64  `json:"balance"`
	IsAdmin   bool   `json:"is_admin"`
}

type WebhookReply struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// ========== 管理接口 ==========

type GetStatsRequest struct{}

type ActionUsage struct {
	ActionTag string `json:"action_tag"`
	Count     int64  `json:"count"`
	Credits   int64  `json:"credits"`
}

type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type GetStatsReply struct {
	TotalAccounts       int64            `json:"total_accounts"`
	AccountsByTier      map[string]int64 `json:"accounts_by_tier"`
	NewAccountsToday    int64            `json:"new_accounts_today"`
	NewAccountsMonth    int64            `json:"new_accounts_this_month"`
	AccountGrowth       []*DailyCount    `json:"account_growth"`
	RecentTransactions  []*Transaction   `json:"recent_transactions"`
	ActiveSubscriptions int64            `json:"active_subscriptions"`
	ConsumedToday       int64            `json:"consumed_today"`
	ConsumedThisMonth   int64            `json:"consumed_this_month"`
	AdminUsageThisMonth int64            `json:"admin_usage_this_month"`
	ByAction            []*ActionUsage   `json:"by_action"`
	GeneratedAt         string           `json:"generated_at"`
}

type AdjustBalanceRequest struct {
	AccountId     string `json:"account_id" validate:"required"`
	TargetBalance int64  `json:"target_balance" validate:"gte=0"`
	Note          string `json:"note" validate:"required,max=512"`
}

type SetAdminRequest struct {
	AccountId string `json:"account_id" validate:"required"`
	Admin     bool   `json:"admin"`
	Reason    string `json:"reason" validate:"required,max=255"`
}

type AuditAccountRequest struct {
	AccountId string `json:"account_id" validate:"required"`
}

type AuditAccountReply struct {
	AccountId       string `json:"account_id"`
	Balance         int64  `json:"balance"`
	ReplayedBalance int64  `json:"replayed_balance"`
	Entries         int    `json:"entries"`
	FirstMismatch   string `json:"first_mismatch,omitempty"`
	Consistent      bool   `json:"consistent"`
}
