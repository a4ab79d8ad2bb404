package royalty

import (
	"context"
	"time"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/writer"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	RETRY_COUNT   = 3
	WRITE_TIMEOUT = 2 * time.Second
)

// MessageWriter kafka.Writer 满足该接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaRoyaltyWriter 把归因结果推送到下游 topic，以 txHash 为 key 保证同一交易的结果落在同一分区
type KafkaRoyaltyWriter struct {
	mq MessageWriter
	tl *zap.Logger

	topic string
}

func NewKafkaRoyaltyWriter(mq MessageWriter, tl *zap.Logger, topic string) writer.BatchWriter[model.RoyaltyResultEvent] {
	return &KafkaRoyaltyWriter{mq: mq, tl: tl, topic: topic}
}

func (w *KafkaRoyaltyWriter) BWrite(ctx context.Context, events []model.RoyaltyResultEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := w.marshalToMsg(event)
		if err != nil {
			w.tl.Warn("⚠️ marshal royalty result failed", zap.String("tx_hash", event.TxHash), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	var err error
	for attempt := 0; attempt < RETRY_COUNT; attempt++ {
		newCtx, cancel := context.WithTimeout(ctx, WRITE_TIMEOUT)
		err = w.mq.WriteMessages(newCtx, msgs...)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	w.tl.Warn("❌ MQ write failed, exceeded the maximum number of retries", zap.Int("size", len(msgs)), zap.Error(err))
	return err
}

func (w *KafkaRoyaltyWriter) Close() error {
	return nil
}

func (w *KafkaRoyaltyWriter) marshalToMsg(event model.RoyaltyResultEvent) (kafka.Message, error) {
	jsonData, err := sonic.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: w.topic,
		Key:   []byte(event.TxHash),
		Value: jsonData,
	}, nil
}
