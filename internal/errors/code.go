package errors

import (
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
)

// Credit Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Credit 固定为 21
//   MM: 模块标识
//   EE: 模块内错误序号
//
// 模块划分：
//   01: 账户模块
//   02: 扣费/授予模块
//   03: 权益模块
//   04: 账单事件模块
//   05: 存储模块
//
// The numeric code travels in metadata["code"]; the HTTP status and reason
// are carried by the kratos error itself.

const (
	ErrCodeUnknownAccount      = 210101
	ErrCodeAccountExists       = 210102
	ErrCodeInvalidArgument     = 210103
	ErrCodeInsufficientCredits = 210201
	ErrCodeInvalidAmount       = 210202
	ErrCodeInvalidKind         = 210203
	ErrCodeUnknownTier         = 210301
	ErrCodeUnknownAction       = 210302
	ErrCodeInvalidTransition   = 210401
	ErrCodeAlreadyReconciled   = 210402
	ErrCodeInvalidSignature    = 210403
	ErrCodeInvalidEvent        = 210404
	ErrCodeLedgerUnavailable   = 210501
)

const (
	ReasonUnknownAccount      = "UNKNOWN_ACCOUNT"
	ReasonAccountExists       = "ACCOUNT_EXISTS"
	ReasonInvalidArgument     = "INVALID_ARGUMENT"
	ReasonInsufficientCredits = "INSUFFICIENT_CREDITS"
	ReasonInvalidAmount       = "INVALID_AMOUNT"
	ReasonInvalidKind         = "INVALID_TRANSACTION_KIND"
	ReasonUnknownTier         = "UNKNOWN_TIER"
	ReasonUnknownAction       = "UNKNOWN_ACTION"
	ReasonInvalidTransition   = "INVALID_TRANSITION"
	ReasonAlreadyReconciled   = "ALREADY_RECONCILED"
	ReasonInvalidSignature    = "INVALID_SIGNATURE"
	ReasonInvalidEvent        = "INVALID_EVENT"
	ReasonLedgerUnavailable   = "LEDGER_UNAVAILABLE"
)

var (
	ErrUnknownAccount      = newError(404, ReasonUnknownAccount, "account not found", ErrCodeUnknownAccount)
	ErrAccountExists       = newError(409, ReasonAccountExists, "account already exists", ErrCodeAccountExists)
	ErrInvalidArgument     = newError(400, ReasonInvalidArgument, "invalid argument", ErrCodeInvalidArgument)
	ErrInsufficientCredits = newError(402, ReasonInsufficientCredits, "insufficient credits", ErrCodeInsufficientCredits)
	ErrInvalidAmount       = newError(400, ReasonInvalidAmount, "amount must be positive", ErrCodeInvalidAmount)
	ErrInvalidKind         = newError(400, ReasonInvalidKind, "transaction kind not allowed here", ErrCodeInvalidKind)
	ErrUnknownTier         = newError(400, ReasonUnknownTier, "unknown tier", ErrCodeUnknownTier)
	ErrUnknownAction       = newError(400, ReasonUnknownAction, "unknown action", ErrCodeUnknownAction)
	ErrInvalidTransition   = newError(409, ReasonInvalidTransition, "invalid tier status transition", ErrCodeInvalidTransition)
	// ErrAlreadyReconciled is informational; callers acknowledge the event.
	ErrAlreadyReconciled = newError(200, ReasonAlreadyReconciled, "billing event already reconciled", ErrCodeAlreadyReconciled)
	ErrInvalidSignature  = newError(400, ReasonInvalidSignature, "webhook signature verification failed", ErrCodeInvalidSignature)
	ErrInvalidEvent      = newError(400, ReasonInvalidEvent, "malformed billing event", ErrCodeInvalidEvent)
	ErrLedgerUnavailable = newError(503, ReasonLedgerUnavailable, "ledger unavailable", ErrCodeLedgerUnavailable)
)

func newError(code int, reason, message string, bizCode int) *errors.Error {
	return errors.New(code, reason, message).WithMetadata(map[string]string{
		"code": strconv.Itoa(bizCode),
	})
}

func with(e *errors.Error, kv ...string) *errors.Error {
	md := make(map[string]string, len(e.Metadata)+len(kv)/2)
	for k, v := range e.Metadata {
		md[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		md[kv[i]] = kv[i+1]
	}
	return e.WithMetadata(md)
}

// InsufficientCredits reports how much was asked for and what the account holds.
func InsufficientCredits(required, current int64) *errors.Error {
	return with(ErrInsufficientCredits,
		"required", strconv.FormatInt(required, 10),
		"current", strconv.FormatInt(current, 10),
	)
}

func UnknownAccount(accountID string) *errors.Error {
	return with(ErrUnknownAccount, "account_id", accountID)
}

func AccountExists(accountID string) *errors.Error {
	return with(ErrAccountExists, "account_id", accountID)
}

func InvalidArgument(field, problem string) *errors.Error {
	return with(ErrInvalidArgument, "field", field, "problem", problem)
}

func InvalidAmount(amount int64) *errors.Error {
	return with(ErrInvalidAmount, "amount", strconv.FormatInt(amount, 10))
}

func InvalidKind(kind string) *errors.Error {
	return with(ErrInvalidKind, "kind", kind)
}

func UnknownTier(tier string) *errors.Error {
	return with(ErrUnknownTier, "tier", tier)
}

func UnknownAction(action string) *errors.Error {
	return with(ErrUnknownAction, "action", action)
}

func InvalidTransition(from, to string) *errors.Error {
	return with(ErrInvalidTransition, "from", from, "to", to)
}

func AlreadyReconciled(eventID string) *errors.Error {
	return with(ErrAlreadyReconciled, "event_id", eventID)
}

func InvalidSignature(cause error) *errors.Error {
	return ErrInvalidSignature.WithCause(cause)
}

func InvalidEvent(format string, args ...interface{}) *errors.Error {
	return errors.Newf(400, ReasonInvalidEvent, format, args...).WithMetadata(ErrInvalidEvent.Metadata)
}

// LedgerUnavailable wraps a storage failure. Nothing was written.
func LedgerUnavailable(cause error) *errors.Error {
	return ErrLedgerUnavailable.WithCause(cause)
}

// IsInsufficientCredits matches regardless of attached metadata.
func IsInsufficientCredits(err error) bool {
	return errors.Is(err, ErrInsufficientCredits)
}

func IsUnknownAccount(err error) bool {
	return errors.Is(err, ErrUnknownAccount)
}

func IsAlreadyReconciled(err error) bool {
	return errors.Is(err, ErrAlreadyReconciled)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsDomain reports whether err already carries a kratos status, meaning it
// was produced deliberately and must not be rewrapped as a storage failure.
func IsDomain(err error) bool {
	var se *errors.Error
	return errors.As(err, &se)
}

// IsRetryable reports whether the whole unit of work may be resubmitted.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}
