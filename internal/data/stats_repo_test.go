package data

import (
	"context"
	"testing"
	"time"

	"credit-service/internal/biz"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountAccountsByTier(t *testing.T) {
	env := newTestEnv(t)
	repo := NewStatsRepo(env.data, testLogger)

	env.mock.ExpectQuery("SELECT .*tier.*COUNT\\(\\*\\) as total FROM `credit_account` GROUP BY .*tier").
		WillReturnRows(sqlmock.NewRows([]string{"tier", "total"}).
			AddRow("free", 120).
			AddRow("pro", 7))

	got, err := repo.CountAccountsByTier(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[biz.Tier]int64{biz.TierFree: 120, biz.TierPro: 7}, got)
}

func TestSumConsumedSinceExcludesAdjustments(t *testing.T) {
	env := newTestEnv(t)
	repo := NewStatsRepo(env.data, testLogger)
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	env.mock.ExpectQuery("SELECT COALESCE\\(SUM\\(-amount\\), 0\\) as consumed FROM `credit_transaction` WHERE kind = \\?").
		WithArgs("deduction", "admin_adjustment", since).
		WillReturnRows(sqlmock.NewRows([]string{"consumed"}).AddRow(4200))

	got, err := repo.SumConsumedSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), got)
}

func TestRecentTransactionsAcrossAccounts(t *testing.T) {
	env := newTestEnv(t)
	repo := NewStatsRepo(env.data, testLogger)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	env.mock.ExpectQuery("SELECT \\* FROM `credit_transaction` ORDER BY created_at DESC, transaction_id DESC").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "account_id", "amount", "balance_after", "kind", "action_tag", "note", "created_at"}).
			AddRow("txn_2", "acc_b", -60, 940, "deduction", "image-generate", "", at).
			AddRow("txn_1", "acc_a", 500, 1500, "bonus", "", "welcome", at.Add(-time.Hour)))

	got, err := repo.RecentTransactions(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "acc_b", got[0].AccountID)
	assert.Equal(t, biz.KindDeduction, got[0].Kind)
	assert.Equal(t, int64(-60), got[0].Amount)
	assert.Equal(t, "acc_a", got[1].AccountID)
}

func TestDailySignups(t *testing.T) {
	env := newTestEnv(t)
	repo := NewStatsRepo(env.data, testLogger)
	since := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	env.mock.ExpectQuery("SELECT DATE\\(created_at\\) as day.*COUNT\\(\\*\\) as total FROM `credit_account` WHERE created_at >= \\? GROUP BY DATE\\(created_at\\) ORDER BY day ASC").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"day", "total"}).
			AddRow(since, 4).
			AddRow(since.AddDate(0, 0, 2), 1))

	got, err := repo.DailySignups(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].Count)
	assert.True(t, since.AddDate(0, 0, 2).Equal(got[1].Day))
}

func TestConsumptionByAction(t *testing.T) {
	env := newTestEnv(t)
	repo := NewStatsRepo(env.data, testLogger)

	env.mock.ExpectQuery("SELECT .*action_tag.*COUNT\\(\\*\\) as total,COALESCE\\(SUM\\(-amount\\), 0\\) as credits FROM `credit_transaction`.*GROUP BY .*action_tag.*ORDER BY credits DESC").
		WillReturnRows(sqlmock.NewRows([]string{"action_tag", "total", "credits"}).
			AddRow("image-generate", 3, 1800).
			AddRow("chat", 10, 300))

	got, err := repo.ConsumptionByAction(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "image-generate", got[0].ActionTag)
	assert.Equal(t, int64(3), got[0].Count)
	assert.Equal(t, int64(1800), got[0].Credits)
}
