package data

import (
	"context"
	"fmt"
	"time"

	"credit-service/internal/conf"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewRedis,
	NewRedsync,
	NewData,
	NewLedgerRepo,
	NewBillingEventRepo,
	NewStatsRepo,
	NewStripeProvider,
	NewEventPublisher,
)

// Data 数据层结构体
type Data struct {
	db       *gorm.DB
	rdb      *redis.Client
	mq       rocketmq.Producer
	mqTopic  string
	cacheTTL time.Duration
}

// NewDB 创建数据库连接
func NewDB(c *conf.Bootstrap) (*gorm.DB, error) {
	if c.Data == nil || c.Data.Database == nil {
		return nil, fmt.Errorf("database config is nil")
	}
	dbc := c.Data.Database
	if dbc.Driver != "" && dbc.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported database driver %q", dbc.Driver)
	}
	db, err := gorm.Open(mysql.Open(dbc.Source), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbc.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbc.MaxOpenConns)
	}
	if dbc.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbc.MaxIdleConns)
	}
	if d := dbc.ConnMaxLifetime.AsDuration(); d > 0 {
		sqlDB.SetConnMaxLifetime(d)
	}

	if dbc.AutoMigrate {
		if err := db.AutoMigrate(&model.CreditAccount{}, &model.CreditTransaction{}, &model.BillingEvent{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

// NewRedis 创建 Redis 连接
func NewRedis(c *conf.Bootstrap) (*redis.Client, error) {
	if c.Data == nil || c.Data.Redis == nil {
		return nil, fmt.Errorf("redis config is nil")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Data.Redis.Addr,
		Password:     c.Data.Redis.Password,
		DB:           c.Data.Redis.Db,
		ReadTimeout:  c.Data.Redis.ReadTimeout.AsDuration(),
		WriteTimeout: c.Data.Redis.WriteTimeout.AsDuration(),
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// NewRedsync 创建分布式锁；未启用时返回 nil，账户互斥只依赖数据库行锁
func NewRedsync(c *conf.Bootstrap, rdb *redis.Client) *redsync.Redsync {
	if c.Data == nil || c.Data.Lock == nil || !c.Data.Lock.Enabled {
		return nil
	}
	return redsync.New(goredis.NewPool(rdb))
}

// newProducer 创建 RocketMQ 生产者；未启用时返回 nil
func newProducer(c *conf.DataRocketmq) (rocketmq.Producer, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(c.NameServers)),
		producer.WithGroupName(c.GroupName),
		producer.WithRetry(int(c.RetryTimes)),
	)
	if err != nil {
		return nil, err
	}
	if err := p.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewData 创建数据层实例
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))

	d := &Data{
		db:       db,
		rdb:      rdb,
		cacheTTL: c.Data.Redis.CacheTtl.AsDuration(),
	}
	if d.cacheTTL <= 0 {
		d.cacheTTL = constants.DefaultBalanceCacheTTL
	}

	mq, err := newProducer(c.Data.Rocketmq)
	if err != nil {
		// 队列不可用时 webhook 退回同步处理
		helper.Errorf("init rocketmq producer failed, billing events will be reconciled inline: %v", err)
	} else if mq != nil {
		d.mq = mq
		d.mqTopic = c.Data.Rocketmq.Topic
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.mq != nil {
			if err := d.mq.Shutdown(); err != nil {
				helper.Errorf("failed to shutdown rocketmq producer: %v", err)
			}
		}
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		if err := rdb.Close(); err != nil {
			helper.Errorf("failed to close redis: %v", err)
		}
	}

	return d, cleanup, nil
}
