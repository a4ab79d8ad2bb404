package royalty

import (
	"context"
	"errors"
	"testing"

	"web3-royalty/internal/worker/model"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMQ struct {
	failures int
	calls    int
	msgs     []kafka.Message
}

func (f *fakeMQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func testEvent(tx string) model.RoyaltyResultEvent {
	fill := &model.FillEvent{TxHash: tx, LogIndex: 3, OrderKind: "seaport-v1.5", Contract: "0xc0", TokenID: "1"}
	return model.NewRoyaltyResultEvent(fill, &model.AttributionResult{RoyaltyFeeBps: 500, PaidFullRoyalty: true}, "ok")
}

func TestKafkaRoyaltyWriter_BWrite(t *testing.T) {
	mq := &fakeMQ{failures: 1}
	w := NewKafkaRoyaltyWriter(mq, zap.NewNop(), "nft.fill_royalties")

	err := w.BWrite(context.Background(), []model.RoyaltyResultEvent{testEvent("0xaa"), testEvent("0xbb")})
	require.NoError(t, err)
	assert.Equal(t, 2, mq.calls)
	require.Len(t, mq.msgs, 2)
	assert.Equal(t, "nft.fill_royalties", mq.msgs[0].Topic)
	assert.Equal(t, []byte("0xaa"), mq.msgs[0].Key)

	var decoded model.RoyaltyResultEvent
	require.NoError(t, sonic.Unmarshal(mq.msgs[1].Value, &decoded))
	assert.Equal(t, "0xbb", decoded.TxHash)
	assert.Equal(t, int64(500), decoded.Result.RoyaltyFeeBps)
	assert.Equal(t, "ok", decoded.Status)
}

func TestKafkaRoyaltyWriter_RetriesExhausted(t *testing.T) {
	mq := &fakeMQ{failures: RETRY_COUNT}
	w := NewKafkaRoyaltyWriter(mq, zap.NewNop(), "topic")

	err := w.BWrite(context.Background(), []model.RoyaltyResultEvent{testEvent("0xaa")})
	require.Error(t, err)
	assert.Equal(t, RETRY_COUNT, mq.calls)
	assert.Empty(t, mq.msgs)
}

func TestKafkaRoyaltyWriter_Empty(t *testing.T) {
	mq := &fakeMQ{}
	w := NewKafkaRoyaltyWriter(mq, zap.NewNop(), "topic")
	require.NoError(t, w.BWrite(context.Background(), nil))
	assert.Zero(t, mq.calls)
}
