package consumer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"web3-royalty/internal/worker/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DEFAULT_RATE_LIMIT = 1000

	fetchTimeout = 2 * time.Second
	errorBackoff = time.Second
)

// KafkaConsumer 接口
type KafkaConsumer interface {
	Run(ctx context.Context)
	Stop() error
	ID() string
}

// MessageHandler 解耦消息处理逻辑，返回 false 表示消息未被接收，不提交 offset
type MessageHandler interface {
	HandleMessage(msg kafka.Message) bool
}

// messageReader *kafka.Reader 满足该接口
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 限速拉取消息，交给 handler 后再提交 offset
type Consumer struct {
	logger      *zap.Logger
	kafkaReader messageReader
	limiter     *rate.Limiter
	started     atomic.Bool
	done        chan struct{}
}

// NewConsumer 创建一个新的通用 Consumer 实例
func NewConsumer(conf config.KafkaConfig, logger *zap.Logger, topic string) *Consumer {
	limit := conf.RateLimit
	if limit <= 0 {
		limit = DEFAULT_RATE_LIMIT
	}
	return &Consumer{
		logger:      logger.With(zap.String("topic", topic)),
		kafkaReader: newKafkaReader(conf, topic),
		limiter:     rate.NewLimiter(rate.Limit(limit), limit),
		done:        make(chan struct{}),
	}
}

// Start 启动消费者主循环
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) {
	c.started.Store(true)
	go c.run(ctx, handler)
}

func (c *Consumer) run(ctx context.Context, handler MessageHandler) {
	defer close(c.done)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("closing Kafka consumer...")
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		msg, err := c.kafkaReader.FetchMessage(fetchCtx)
		cancel()

		switch {
		case err == nil:
		case ctx.Err() != nil:
			c.logger.Warn("closing Kafka consumer...")
			return
		case errors.Is(err, io.EOF):
			// reader 已关闭
			return
		case errors.Is(err, context.DeadlineExceeded):
			c.logger.Debug("⌛ Kafka running...")
			continue
		default:
			c.logger.Warn("❌ Kafka Fetch Error", zap.Error(err))
			time.Sleep(errorBackoff)
			continue
		}

		if !handler.HandleMessage(msg) {
			// 正在关闭，消息留给下次消费
			c.logger.Warn("⚠️ message not accepted, leave uncommitted", zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))
			return
		}

		// 消息已进入 worker 队列后再提交
		if err := c.kafkaReader.CommitMessages(context.Background(), msg); err != nil {
			c.logger.Warn("⚠️ Kafka Commit Error", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Stop 关闭 reader 并等待主循环退出，返回后不会再有消息交给 handler
func (c *Consumer) Stop() error {
	err := c.kafkaReader.Close()
	if c.started.Load() {
		<-c.done
	}
	return err
}

func startOffset(conf config.KafkaConfig) int64 {
	if strings.EqualFold(conf.StartOffset, "first") {
		return kafka.FirstOffset
	}
	return kafka.LastOffset
}

// 创建 Kafka Reader，已提交的 offset 每秒批量刷到 broker
func newKafkaReader(conf config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:                strings.Split(conf.Brokers, ","),
		Topic:                  topic,
		GroupID:                conf.GroupID,
		StartOffset:            startOffset(conf),
		CommitInterval:         time.Second,
		QueueCapacity:          500,
		MinBytes:               1024,
		MaxBytes:               10e6,
		ReadBatchTimeout:       500 * time.Millisecond,
		PartitionWatchInterval: 5 * time.Second,
	})
}
