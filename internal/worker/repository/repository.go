package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/model"
	"web3-royalty/pkg/database"
	"web3-royalty/pkg/evm_client"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var once sync.Once
var r *repositoryImpl

func New(cfg config.Config, logger *zap.Logger) Repository {
	once.Do(func() {
		r = &repositoryImpl{
			cfg:    cfg,
			logger: logger,
		}
		r.init()
	})
	return r
}

type repositoryImpl struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *gorm.DB
	mainRdb   *redis.Client
	mq        *kafka.Writer
	evmClient *evm_client.Client
}

func (r *repositoryImpl) init() {
	r.db = r.initDB()
	r.mainRdb = r.initRedis()
	r.mq = newKafkaWriter(r.cfg.Kafka)
	// trace 需要节点开启 debug 接口
	r.evmClient = evm_client.Init(r.cfg.Rpc.URL)
}

func (r *repositoryImpl) initDB() *gorm.DB {
	db, err := database.InitPG(database.PGOptions{
		DSN:          r.cfg.Postgres.DSN,
		MaxIdleConns: r.cfg.Postgres.MaxIdleConns,
		MaxOpenConns: r.cfg.Postgres.MaxOpenConns,
	})
	if err != nil {
		panic(err)
	}
	if r.cfg.Postgres.AutoMigrate {
		// fill_events 由索引服务维护
		if err := database.Migrate(db, &model.RoyaltyDefinition{}, &model.FeeRecipient{}); err != nil {
			panic(err)
		}
	}
	return db
}

// Redis 只做共享缓存，连不上时继续运行
func (r *repositoryImpl) initRedis() *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
		PoolSize: 20,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		r.logger.Warn("⚠️ failed to connect to redis, continue", zap.String("addr", r.cfg.Redis.Address), zap.Error(err))
	}
	return rdb
}

// 同步写入，失败由 writer 重试
func newKafkaWriter(conf config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(conf.Brokers, ",")...),
		Balancer:     &kafka.Hash{},
		BatchSize:    500,
		BatchBytes:   1024 * 1024, // 1MB
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		WriteTimeout: time.Second,
	}
}

func (r *repositoryImpl) GetMainRDB() *redis.Client {
	return r.mainRdb
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetEvmClient() *evm_client.Client {
	return r.evmClient
}

func (r *repositoryImpl) Close() error {
	if r.mq != nil {
		if err := r.mq.Close(); err != nil {
			r.logger.Warn("⚠️ close kafka writer failed", zap.Error(err))
		}
	}
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if r.mainRdb != nil {
		_ = r.mainRdb.Close()
	}
	r.evmClient.Close()
	return nil
}
