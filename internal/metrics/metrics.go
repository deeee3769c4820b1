package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CreditMetrics 积分账本指标
type CreditMetrics struct {
	// 余额检查
	BalanceCheckTotal    *prometheus.CounterVec // result: sufficient/insufficient/admin
	BalanceCheckDuration prometheus.Histogram
	BalanceCacheTotal    *prometheus.CounterVec // result: hit/miss/error

	// 账本写入
	DeductTotal    *prometheus.CounterVec // action, result: success/insufficient/admin/error
	DeductDuration prometheus.Histogram
	DeductAmount   *prometheus.CounterVec // action
	GrantTotal     *prometheus.CounterVec // kind
	GrantAmount    *prometheus.CounterVec // kind
	ResetTotal     *prometheus.CounterVec // tier

	// Gate
	GateDecisionTotal *prometheus.CounterVec // decision: proceed/reject

	// 账单事件
	BillingEventTotal    *prometheus.CounterVec // type, outcome
	BillingEventDuration *prometheus.HistogramVec

	// 审计
	AuditDriftAccounts prometheus.Gauge
	AuditRunTotal      *prometheus.CounterVec // result

	// 分布式锁
	LockAcquireTotal    *prometheus.CounterVec // result: success/failed
	LockAcquireDuration prometheus.Histogram
}

func NewCreditMetrics() *CreditMetrics {
	return &CreditMetrics{
		BalanceCheckTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_balance_check_total",
				Help: "Total number of balance checks",
			},
			[]string{"result"},
		),
		BalanceCheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_balance_check_duration_seconds",
				Help:    "Duration of balance checks",
				Buckets: prometheus.DefBuckets,
			},
		),
		BalanceCacheTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_balance_cache_total",
				Help: "Balance snapshot cache lookups",
			},
			[]string{"result"},
		),
		DeductTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_deduct_total",
				Help: "Total number of deductions",
			},
			[]string{"action", "result"},
		),
		DeductDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_deduct_duration_seconds",
				Help:    "Duration of deduction units of work",
				Buckets: prometheus.DefBuckets,
			},
		),
		DeductAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_deduct_amount_total",
				Help: "Credits deducted",
			},
			[]string{"action"},
		),
		GrantTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_grant_total",
				Help: "Total number of grants",
			},
			[]string{"kind"},
		),
		GrantAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_grant_amount_total",
				Help: "Credits granted",
			},
			[]string{"kind"},
		),
		ResetTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_reset_total",
				Help: "Balance resets to a tier allowance",
			},
			[]string{"tier"},
		),
		GateDecisionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_gate_decision_total",
				Help: "Action gate decisions",
			},
			[]string{"decision"},
		),
		BillingEventTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_billing_event_total",
				Help: "Billing events handled by the reconciler",
			},
			[]string{"type", "outcome"},
		),
		BillingEventDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_billing_event_duration_seconds",
				Help:    "Duration of billing event reconciliation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		AuditDriftAccounts: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "credit_ledger_drift_accounts",
				Help: "Accounts whose balance does not match the replayed ledger",
			},
		),
		AuditRunTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_audit_run_total",
				Help: "Ledger audit runs",
			},
			[]string{"result"},
		),
		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"},
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

var (
	defaultMetrics *CreditMetrics
	once           sync.Once
)

// GetMetrics 获取全局指标实例
func GetMetrics() *CreditMetrics {
	once.Do(func() {
		defaultMetrics = NewCreditMetrics()
	})
	return defaultMetrics
}
