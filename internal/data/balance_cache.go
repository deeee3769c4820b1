package data

import (
	"context"
	"encoding/json"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

// balanceCache keeps a short-lived snapshot of the account row for
// checkBalance. Writes always go to the database; the cache is refreshed
// while the row lock is still held and never consulted by a write.
type balanceCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *log.Helper
}

func newBalanceCache(rdb *redis.Client, ttl time.Duration, logger log.Logger) *balanceCache {
	return &balanceCache{
		rdb: rdb,
		ttl: ttl,
		log: log.NewHelper(log.With(logger, "module", "data/balance_cache")),
	}
}

func balanceKey(accountID string) string {
	return constants.RedisKeyBalance + accountID
}

// get reports a miss for absent, unreadable or undecodable entries.
func (c *balanceCache) get(ctx context.Context, accountID string) (*biz.BalanceSnapshot, bool) {
	raw, err := c.rdb.Get(ctx, balanceKey(accountID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithContext(ctx).Warnf("read balance cache %s: %v", accountID, err)
		}
		return nil, false
	}
	var snap biz.BalanceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.WithContext(ctx).Warnf("decode balance cache %s: %v", accountID, err)
		c.invalidate(accountID)
		return nil, false
	}
	return &snap, true
}

// set is best effort with its own short deadline so a slow Redis never
// delays a committed write.
func (c *balanceCache) set(snap *biz.BalanceSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.CacheWriteTimeout)
	defer cancel()
	if err := c.rdb.Set(ctx, balanceKey(snap.AccountID), raw, c.ttl).Err(); err != nil {
		c.log.Warnf("failed to update balance cache: account=%s err=%v", snap.AccountID, err)
	}
}

// fill stores a snapshot read outside the row lock. It never replaces an
// entry, so a slow reader cannot overwrite what a writer stored meanwhile.
func (c *balanceCache) fill(snap *biz.BalanceSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.CacheWriteTimeout)
	defer cancel()
	if err := c.rdb.SetNX(ctx, balanceKey(snap.AccountID), raw, c.ttl).Err(); err != nil {
		c.log.Warnf("failed to fill balance cache: account=%s err=%v", snap.AccountID, err)
	}
}

func (c *balanceCache) invalidate(accountID string) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.CacheWriteTimeout)
	defer cancel()
	if err := c.rdb.Del(ctx, balanceKey(accountID)).Err(); err != nil {
		c.log.Warnf("failed to drop balance cache: account=%s err=%v", accountID, err)
	}
}

func snapshotOf(acc *biz.Account) *biz.BalanceSnapshot {
	return &biz.BalanceSnapshot{
		AccountID: acc.AccountID,
		Balance:   acc.Balance,
		IsAdmin:   acc.IsAdmin,
		Tier:      acc.Tier,
	}
}
