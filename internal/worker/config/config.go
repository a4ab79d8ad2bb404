package config

import (
	"fmt"

	"web3-royalty/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Rpc      RpcConfig      `mapstructure:"rpc"`
	Opensea  OpenseaConfig  `mapstructure:"opensea"`
	Royalty  RoyaltyConfig  `mapstructure:"royalty"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      string `mapstructure:"brokers"`
	TopicFill    string `mapstructure:"topic_fill"`
	TopicRoyalty string `mapstructure:"topic_royalty"`
	GroupID      string `mapstructure:"group_id"`
	// StartOffset 新消费组从哪里开始：first|last
	StartOffset string `mapstructure:"start_offset"`
	// RateLimit 每秒拉取的消息数
	RateLimit int `mapstructure:"rate_limit"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	// AutoMigrate 启动时创建本服务拥有的表
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

type WorkerConfig struct {
	WorkerNum int `mapstructure:"worker_num"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

// RpcConfig 节点配置，需要支持 debug_traceTransaction
type RpcConfig struct {
	URL     string `mapstructure:"url"`
	ChainID uint64 `mapstructure:"chain_id"`
	Timeout int    `mapstructure:"timeout"`
}

type OpenseaConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	RateLimit int    `mapstructure:"rate_limit"`
	Timeout   int    `mapstructure:"timeout"`
}

// RoyaltyConfig 版税归因配置，时间单位均为秒
type RoyaltyConfig struct {
	CacheTTL int  `mapstructure:"cache_ttl"`
	Timeout  int  `mapstructure:"timeout"`
	UseCache bool `mapstructure:"use_cache"`
	// Exchanges 覆盖内置交易所表（orderKind 含 "."，不能作为 viper key）
	Exchanges []ExchangeOverride `mapstructure:"exchanges"`
	// Routers 追加的聚合路由地址
	Routers []string `mapstructure:"routers"`
	// FeeRecipientsReload 已知手续费地址重新加载间隔
	FeeRecipientsReload int `mapstructure:"fee_recipients_reload"`
}

type ExchangeOverride struct {
	OrderKind string `mapstructure:"order_kind"`
	Address   string `mapstructure:"address"`
}

const (
	DefaultRoyaltyCacheTTL     = 600
	DefaultRoyaltyTimeout      = 20
	DefaultFeeRecipientsReload = 600
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.start_offset", "last")
	v.SetDefault("kafka.rate_limit", 1000)
	v.SetDefault("postgres.max_idle_conns", 10)
	v.SetDefault("postgres.max_open_conns", 50)
	v.SetDefault("worker.worker_num", 8)
	v.SetDefault("rpc.chain_id", 1)
	v.SetDefault("rpc.timeout", 10)
	v.SetDefault("opensea.base_url", "https://api.opensea.io")
	v.SetDefault("opensea.rate_limit", 4)
	v.SetDefault("opensea.timeout", 10)
	v.SetDefault("royalty.cache_ttl", DefaultRoyaltyCacheTTL)
	v.SetDefault("royalty.timeout", DefaultRoyaltyTimeout)
	v.SetDefault("royalty.use_cache", true)
	v.SetDefault("royalty.fee_recipients_reload", DefaultFeeRecipientsReload)
}

func decode(v *viper.Viper) (Config, error) {
	var config Config
	if err := mapstructure.Decode(v.AllSettings(), &config); err != nil {
		return config, err
	}
	return config, nil
}

// LoadConfig 从指定路径读取配置
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	config, err := decode(v)
	if err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return config, nil
}

func InitConfig() Config {
	viper.SetConfigName("config.worker")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")
	setDefaults(viper.GetViper())

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	config, err := decode(viper.GetViper())
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	return config
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := InitConfig()
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}

// ExchangeMap orderKind -> 交易所地址
func (c RoyaltyConfig) ExchangeMap() map[string]string {
	m := make(map[string]string, len(c.Exchanges))
	for _, e := range c.Exchanges {
		m[e.OrderKind] = e.Address
	}
	return m
}
