package biz

import (
	"context"

	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// Pass is issued by Guard and consumed by Settle.
type Pass struct {
	AccountID string
	Action    Action
	Estimated int64
	Balance   int64
	IsAdmin   bool
}

// ActionGate wraps every paid action: Guard before the work, Settle with
// the realized cost after it. Guard has no side effects.
type ActionGate struct {
	credit  *CreditUseCase
	costs   *CostTable
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

func NewActionGate(credit *CreditUseCase, costs *CostTable, logger log.Logger) *ActionGate {
	return &ActionGate{
		credit:  credit,
		costs:   costs,
		log:     log.NewHelper(log.With(logger, "module", "biz/gate")),
		metrics: metrics.GetMetrics(),
	}
}

// Guard lets the caller proceed or rejects with InsufficientCredits
// carrying the required and current amounts.
func (g *ActionGate) Guard(ctx context.Context, accountID string, estimatedCost int64) (*Pass, error) {
	if estimatedCost < 0 {
		return nil, creditErrors.InvalidAmount(estimatedCost)
	}
	check, err := g.credit.CheckBalance(ctx, accountID, estimatedCost)
	if err != nil {
		return nil, err
	}
	if !check.Sufficient {
		g.metrics.GateDecisionTotal.WithLabelValues("reject").Inc()
		return nil, creditErrors.InsufficientCredits(estimatedCost, check.CurrentBalance)
	}
	g.metrics.GateDecisionTotal.WithLabelValues("proceed").Inc()
	return &Pass{
		AccountID: accountID,
		Estimated: estimatedCost,
		Balance:   check.CurrentBalance,
		IsAdmin:   check.IsAdmin,
	}, nil
}

// Quote prices an action from the cost table and guards it.
func (g *ActionGate) Quote(ctx context.Context, accountID string, action Action, u Usage) (*Pass, error) {
	estimate, err := g.costs.Estimate(action, u)
	if err != nil {
		return nil, err
	}
	pass, err := g.Guard(ctx, accountID, estimate)
	if err != nil {
		return nil, err
	}
	pass.Action = action
	return pass, nil
}

// Settle deducts the realized cost. Sufficiency is not re-checked here;
// Deduct enforces it atomically. A zero cost charges nothing.
func (g *ActionGate) Settle(ctx context.Context, pass *Pass, action Action, realizedCost int64, note string) (*LedgerResult, error) {
	if realizedCost == 0 {
		return &LedgerResult{Success: true, NewBalance: pass.Balance, IsAdmin: pass.IsAdmin}, nil
	}
	res, err := g.credit.Deduct(ctx, pass.AccountID, realizedCost, string(action), note)
	if err != nil {
		g.log.WithContext(ctx).Warnf("settle %s for %s (estimated %d, realized %d): %v", action, pass.AccountID, pass.Estimated, realizedCost, err)
		return nil, err
	}
	return res, nil
}

// Work performs the paid action and reports the usage it actually consumed.
type Work func(ctx context.Context) (Usage, error)

// Run guards, performs work and settles. A failed work function leaves the
// balance untouched.
func (g *ActionGate) Run(ctx context.Context, accountID string, action Action, requested Usage, note string, work Work) (*LedgerResult, error) {
	pass, err := g.Quote(ctx, accountID, action, requested)
	if err != nil {
		return nil, err
	}
	used, err := work(ctx)
	if err != nil {
		return nil, err
	}
	realized, err := g.costs.Realize(action, used)
	if err != nil {
		return nil, err
	}
	return g.Settle(ctx, pass, action, realized, note)
}
