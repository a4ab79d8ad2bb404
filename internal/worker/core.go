package worker

import (
	"context"
	"time"

	"web3-royalty/internal/worker/cache"
	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/consumer"
	"web3-royalty/internal/worker/dao"
	"web3-royalty/internal/worker/handler"
	"web3-royalty/internal/worker/job"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/monitor"
	"web3-royalty/internal/worker/network"
	"web3-royalty/internal/worker/onchain"
	"web3-royalty/internal/worker/repository"
	"web3-royalty/internal/worker/royalty"
	"web3-royalty/internal/worker/service"
	"web3-royalty/internal/worker/tracer"
	"web3-royalty/internal/worker/writer"
	royaltywriter "web3-royalty/internal/worker/writer/royalty"
	"web3-royalty/pkg/opensea"

	"go.uber.org/zap"
)

const (
	RESULT_BATCH_SIZE     = 500
	RESULT_FLUSH_INTERVAL = 300 * time.Millisecond
	RESULT_WRITER_WORKERS = 2

	DEFINITION_CLEANUP_INTERVAL = 24 * time.Hour
)

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	scheduler *job.Scheduler
	consumers []consumer.KafkaConsumer
	metrics   *monitor.MetricsServer
}

// Components 版税归因引擎及其依赖，worker 与脚本共用
type Components struct {
	Network *network.Network
	TxCache *cache.TxCache
	DAOs    *dao.DAOManager
	Engine  *royalty.Engine
}

// BuildNetwork 内置主网表叠加配置中的覆盖项
func BuildNetwork(cfg config.Config) *network.Network {
	net := network.Mainnet()
	if cfg.Rpc.ChainID != 0 {
		net.ChainID = cfg.Rpc.ChainID
	}
	net.Override(cfg.Royalty.ExchangeMap(), cfg.Royalty.Routers)
	net.Normalize()
	return net
}

// NewComponents 组装 trace 缓存、版税定义来源与归因引擎
func NewComponents(cfg config.Config, logger *zap.Logger, repo repository.Repository) *Components {
	net := BuildNetwork(cfg)
	evm := repo.GetEvmClient()

	cacheTTL := time.Duration(cfg.Royalty.CacheTTL) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = cache.TX_CACHE_TTL
	}
	localStore := cache.NewLocalStore(cacheTTL)
	store := cache.NewTieredStore(localStore, cache.NewRedisStore(repo.GetMainRDB()), cacheTTL)

	daos := dao.NewDAOManager(&cfg, logger, repo.GetDB(), repo.GetMainRDB(),
		onchain.NewRoyaltyInfoReader(evm.Eth),
		opensea.NewOpenseaClient(cfg.Opensea, net.Slug, logger),
	)

	rpcTracer := tracer.NewRPCTracer(logger, evm.RPC, time.Duration(cfg.Rpc.Timeout)*time.Second)
	txCache := cache.NewTxCache(logger, net, store, rpcTracer, daos.FillEventDAO, cacheTTL)

	return &Components{
		Network: net,
		TxCache: txCache,
		DAOs:    daos,
		Engine:  royalty.NewEngine(logger, net, txCache, daos.RoyaltyDAO, daos.FeeRecipientDAO),
	}
}

func New(cfg config.Config, logger *zap.Logger) *Core {
	// 初始化作业调度器
	scheduler := job.NewScheduler(logger)

	// 初始化repo
	repo := repository.New(cfg, logger)

	components := NewComponents(cfg, logger, repo)

	// 已知手续费收款地址：启动时加载一次，之后定时刷新
	reloadInterval := time.Duration(cfg.Royalty.FeeRecipientsReload) * time.Second
	if reloadInterval <= 0 {
		reloadInterval = config.DefaultFeeRecipientsReload * time.Second
	}
	feeRecipientsReload := job.NewFeeRecipientsReload(components.DAOs.FeeRecipientDAO, logger)
	scheduler.RegisterJob("fee_recipients_reload", reloadInterval, feeRecipientsReload.Run)

	// 每天清理过期的版税定义
	definitionCleanup := job.NewDefinitionCleanup(repo.GetDB(), logger)
	scheduler.RegisterJob("definition_cleanup", DEFINITION_CLEANUP_INTERVAL, definitionCleanup.Run)

	// 结果写入下游 topic
	resultWriter := writer.NewAsyncBatchWriter[model.RoyaltyResultEvent](logger,
		royaltywriter.NewKafkaRoyaltyWriter(repo.GetMQ(), logger, cfg.Kafka.TopicRoyalty),
		RESULT_BATCH_SIZE, RESULT_FLUSH_INTERVAL, "royalty_kafka_writer", RESULT_WRITER_WORKERS)
	resultWriter.Start(context.Background())

	attribution := service.NewRoyaltyAttribution(cfg, logger, components.Engine, resultWriter)

	// 初始化消费者
	consumers := []consumer.KafkaConsumer{
		consumer.NewFillConsumer(cfg, logger, handler.NewRoyaltyHandler(logger, attribution)),
	}

	return &Core{
		cfg:       cfg,
		repo:      repo,
		tl:        logger,
		scheduler: scheduler,
		consumers: consumers,
		metrics:   monitor.NewMetricsServer(cfg.Monitor, logger),
	}
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	// 启动监控服务
	if c.metrics != nil {
		c.metrics.Run()
	}

	// 启动调度器，先加载手续费收款地址
	c.scheduler.Start(ctx)

	// 启动消费者
	for _, cons := range c.consumers {
		go cons.Run(ctx)
	}
	if c.metrics != nil {
		c.metrics.SetReady(true)
	}
	c.tl.Info("Worker started successfully")

	// 等待外部关闭信号
	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	// 停止消费者，等待已入队的成交处理完并刷出结果
	for _, cons := range c.consumers {
		if err := cons.Stop(); err != nil {
			c.tl.Warn("⚠️ stop consumer failed", zap.String("consumer", cons.ID()), zap.Error(err))
		}
	}

	// 停止调度器
	if c.scheduler != nil {
		c.scheduler.Stop(ctx)
	}

	// 停止 Prometheus 监控服务
	if c.metrics != nil {
		_ = c.metrics.Stop(ctx)
	}

	_ = c.repo.Close()

	c.tl.Info("Worker core stopped.")
}
