package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCreditConfig,
	NewEntitlementResolver,
	NewCostTable,
	NewCreditUseCase,
	NewActionGate,
	NewReconciler,
	NewStatsUseCase,
	NewAuditUseCase,
)
