package data

import (
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testLogger = log.NewStdLogger(io.Discard)

var accountColumns = []string{
	"account_id", "email", "balance", "tier", "tier_status", "period_end",
	"is_admin", "admin_reason", "admin_since", "billing_customer_ref",
	"subscription_ref", "created_at", "updated_at",
}

type testEnv struct {
	data *Data
	mock sqlmock.Sqlmock
	mr   *miniredis.Miniredis
	rdb  *redis.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return &testEnv{
		data: &Data{db: db, rdb: rdb, cacheTTL: time.Minute},
		mock: mock,
		mr:   mr,
		rdb:  rdb,
	}
}

func accountRow(id string, balance int64, admin bool) *sqlmock.Rows {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(accountColumns).AddRow(
		id, "", balance, "free", "active", nil,
		admin, "", nil, nil,
		nil, created, created,
	)
}
