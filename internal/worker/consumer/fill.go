package consumer

import (
	"context"
	"strconv"
	"sync"
	"time"

	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/monitor"
	"web3-royalty/pkg/logger"
	"web3-royalty/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const FILL_BUFFER_SIZE = 2000

// fillTask 一条消息及上游 trace
type fillTask struct {
	msg    model.FillBatchMessage
	parent trace.SpanContext
}

// BatchHandler handler.RoyaltyHandler 满足该接口
type BatchHandler interface {
	HandleBatch(ctx context.Context, msg model.FillBatchMessage)
	Stop()
}

type FillConsumer struct {
	// 组合通用 Consumer
	*Consumer
	id         string
	tl         *zap.Logger
	workerSize int
	// 每个 worker 一个消息队列
	buffers      []chan fillTask
	batchHandler BatchHandler
	workers      sync.WaitGroup
	// 等待下游组件就绪
	startDelay time.Duration

	// stopping 关闭后 dispatch 不再等待队列空位
	stopping chan struct{}
	stopOnce sync.Once
	// mu 保护 buffers 的关闭
	mu     sync.RWMutex
	closed bool
}

// NewFillConsumer 创建 FillConsumer 实例
func NewFillConsumer(conf config.Config, logger *zap.Logger, batchHandler BatchHandler) *FillConsumer {
	fc := newFillConsumer(logger, conf.Worker.WorkerNum, batchHandler)
	fc.Consumer = NewConsumer(conf.Kafka, logger, conf.Kafka.TopicFill)
	return fc
}

func newFillConsumer(logger *zap.Logger, workerSize int, batchHandler BatchHandler) *FillConsumer {
	if workerSize <= 0 {
		workerSize = 1
	}
	buffers := make([]chan fillTask, workerSize)
	for i := 0; i < workerSize; i++ {
		buffers[i] = make(chan fillTask, FILL_BUFFER_SIZE)
	}
	return &FillConsumer{
		id:           "fill_consumer",
		tl:           logger,
		workerSize:   workerSize,
		buffers:      buffers,
		batchHandler: batchHandler,
		startDelay:   5 * time.Second,
		stopping:     make(chan struct{}),
	}
}

// Run 启动 fill 消费者
func (fc *FillConsumer) Run(ctx context.Context) {
	fc.startWorkers(ctx)

	// 启动消费者
	select {
	case <-time.After(fc.startDelay):
	case <-fc.stopping:
		return
	case <-ctx.Done():
		return
	}
	fc.Consumer.Start(ctx, fc)
}

// startWorkers worker 一直处理到 buffer 关闭；offset 已提交的消息在退出前都要处理完，
// 因此处理时不继承 ctx 的取消，超时由下游按单笔成交控制
func (fc *FillConsumer) startWorkers(ctx context.Context) {
	handleCtx := context.WithoutCancel(ctx)
	for i := 0; i < fc.workerSize; i++ {
		idx := i
		fc.workers.Add(1)
		go func() {
			defer fc.workers.Done()
			workerID := strconv.Itoa(idx)
			for task := range fc.buffers[idx] {
				startTime := time.Now()
				fc.tl.Debug("✅ Process fills", zap.String("consumerID", fc.id), zap.String("tx_hash", task.msg.TxHash), zap.Int("fills", len(task.msg.Fills)))
				fc.batchHandler.HandleBatch(logger.ContextWithRemoteSpan(handleCtx, task.parent), task.msg)

				// 统计消息处理次数与耗时
				monitor.KafkaWorkerMessagesProcessed.WithLabelValues(workerID).Inc()
				monitor.KafkaWorkerProcessDuration.WithLabelValues(workerID).Observe(time.Since(startTime).Seconds())
			}
			fc.tl.Info("buffer is closed", zap.String("consumerID", fc.id), zap.Int("idx", idx))
		}()
	}
}

// HandleMessage 实现 MessageHandler 接口，非法消息直接跳过（提交），只有关闭中未入队的返回 false
func (fc *FillConsumer) HandleMessage(msg kafka.Message) bool {
	monitor.KafkaMessagesReceived.WithLabelValues("fill").Inc()

	var batch model.FillBatchMessage
	if err := sonic.Unmarshal(msg.Value, &batch); err != nil {
		fc.tl.Warn("❌ JSON Parse Error", zap.String("consumerID", fc.id), zap.Error(err), zap.String("raw", string(msg.Value)))
		return true
	}

	// 过滤掉空批次
	if len(batch.Fills) == 0 {
		return true
	}
	if batch.TxHash == "" {
		batch.TxHash = batch.Fills[0].TxHash
	}
	if batch.TxHash == "" {
		fc.tl.Warn("⚠️ fill batch without tx hash", zap.String("consumerID", fc.id))
		return true
	}

	headers := headerCarrier(msg.Headers)
	return fc.dispatch(fillTask{msg: batch, parent: logger.SpanContextFromCarrier(&headers)})
}

func (fc *FillConsumer) ID() string {
	return fc.id
}

// Stop 停止 fill 消费者，可重复调用
func (fc *FillConsumer) Stop() error {
	fc.stopOnce.Do(fc.shutdown)
	return nil
}

func (fc *FillConsumer) shutdown() {
	close(fc.stopping)

	// 先停止 Kafka 消费，等待主循环退出
	if fc.Consumer != nil {
		if err := fc.Consumer.Stop(); err != nil {
			fc.tl.Warn("⚠️ close kafka reader failed", zap.String("consumerID", fc.id), zap.Error(err))
		}
	}

	// 关闭所有 buffer channels，等待 worker 处理完已入队的消息
	fc.mu.Lock()
	fc.closed = true
	for i := 0; i < fc.workerSize; i++ {
		close(fc.buffers[i])
	}
	fc.mu.Unlock()
	fc.workers.Wait()

	// 停止处理器，刷出剩余结果
	fc.batchHandler.Stop()
}

// dispatch 按 txHash 分组，同一交易的成交落在同一个 worker；
// 队列满时阻塞等待，关闭中返回 false
func (fc *FillConsumer) dispatch(task fillTask) bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	if fc.closed {
		return false
	}

	idx := fc.hashBy(task.msg.TxHash)
	if len(fc.buffers[idx]) > cap(fc.buffers[idx])*8/10 {
		fc.tl.Warn("⚠️ buffer nearly full", zap.String("consumerID", fc.id), zap.Uint32("idx", idx), zap.Int("len", len(fc.buffers[idx])))
	}

	select {
	case fc.buffers[idx] <- task:
		monitor.KafkaWorkerMessagesDispatched.WithLabelValues(strconv.Itoa(int(idx))).Inc()
		return true
	case <-fc.stopping:
		fc.tl.Warn("❌ consumer stopping, task not queued", zap.String("consumerID", fc.id), zap.String("tx_hash", task.msg.TxHash))
		return false
	}
}

func (fc *FillConsumer) hashBy(key string) uint32 {
	return utils.GetHashBucket(key, uint32(fc.workerSize))
}
