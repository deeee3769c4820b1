package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditConsistentLedger(t *testing.T) {
	uc, ledger := newTestCredit(t)
	audit := NewAuditUseCase(ledger, testLogger)
	ctx := context.Background()

	_, err := uc.CreateAccount(ctx, "acc_a", "")
	require.NoError(t, err)
	_, err = uc.Deduct(ctx, "acc_a", 600, "image-generate", "")
	require.NoError(t, err)
	_, err = uc.ResetToTierAllowance(ctx, "acc_a", TierPro)
	require.NoError(t, err)
	_, err = uc.Grant(ctx, "acc_a", 5, KindBonus, "")
	require.NoError(t, err)

	report, err := audit.VerifyAccount(ctx, "acc_a")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(100005), report.ReplayedBalance)
	assert.Equal(t, 4, report.Entries)
}

func TestAuditFindsDrift(t *testing.T) {
	uc, ledger := newTestCredit(t)
	audit := NewAuditUseCase(ledger, testLogger)
	ctx := context.Background()

	_, err := uc.CreateAccount(ctx, "ok", "")
	require.NoError(t, err)
	_, err = uc.CreateAccount(ctx, "bad", "")
	require.NoError(t, err)
	// a raw row overwrite bypassing the ledger
	acc, _ := ledger.GetAccount(ctx, "bad")
	acc.Balance = 5000
	ledger.put(acc)

	drifted, err := audit.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.Equal(t, "bad", drifted[0].AccountID)
	assert.Equal(t, int64(5000), drifted[0].Balance)
	assert.Equal(t, int64(1000), drifted[0].ReplayedBalance)
}
