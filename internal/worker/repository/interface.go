package repository

import (
	"web3-royalty/pkg/evm_client"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer

// Repository worker 与脚本共用的外部连接
type Repository interface {
	// GetMainRDB 共享缓存
	GetMainRDB() RedisClient
	// GetDB 成交、版税定义与手续费地址
	GetDB() DBClient
	// GetMQ 结果 topic 的 writer
	GetMQ() MQClient
	// GetEvmClient 需要开启 debug 接口的节点
	GetEvmClient() *evm_client.Client
	Close() error
}
