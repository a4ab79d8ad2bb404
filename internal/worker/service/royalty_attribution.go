package service

import (
	"context"
	"errors"
	"time"

	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/monitor"
	"web3-royalty/internal/worker/royalty"
	"web3-royalty/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	OUTCOME_OK       = "ok"
	OUTCOME_NO_TRACE = "no_trace"
	OUTCOME_TIMEOUT  = "timeout"
	OUTCOME_ERROR    = "error"
)

// Attributor royalty.Engine 满足该接口
type Attributor interface {
	ExtractRoyalties(ctx context.Context, fill *model.FillEvent, batch *royalty.BatchContext, useCache, forceOnChain bool) (*model.AttributionResult, error)
}

// ResultSink 归因结果的下游，AsyncBatchWriter 满足该接口
type ResultSink interface {
	Submit(item model.RoyaltyResultEvent) bool
	Close()
}

// RoyaltyAttribution 按交易批量计算成交的版税拆分并推送结果
type RoyaltyAttribution struct {
	tl       *zap.Logger
	engine   Attributor
	sink     ResultSink
	timeout  time.Duration
	useCache bool
}

func NewRoyaltyAttribution(cfg config.Config, logger *zap.Logger, engine Attributor, sink ResultSink) *RoyaltyAttribution {
	timeout := time.Duration(cfg.Royalty.Timeout) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultRoyaltyTimeout * time.Second
	}
	return &RoyaltyAttribution{
		tl:       logger,
		engine:   engine,
		sink:     sink,
		timeout:  timeout,
		useCache: cfg.Royalty.UseCache,
	}
}

// ProcessBatch 同一交易的成交共用一个 BatchContext，每笔成交单独计时
func (s *RoyaltyAttribution) ProcessBatch(ctx context.Context, msg model.FillBatchMessage) []model.RoyaltyResultEvent {
	ctx, span := logger.StartSpan(ctx, "service", "ProcessBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("tx_hash", msg.TxHash),
		attribute.Int("fills", len(msg.Fills)),
	)

	batch := royalty.NewBatchContext()
	events := make([]model.RoyaltyResultEvent, 0, len(msg.Fills))

	for i := range msg.Fills {
		if ctx.Err() != nil {
			s.tl.Warn("⚠️ context done, stop processing batch", zap.String("tx_hash", msg.TxHash), zap.Int("remaining", len(msg.Fills)-i))
			break
		}

		fill := &msg.Fills[i]
		if fill.TxHash == "" {
			fill.TxHash = msg.TxHash
		}
		fill.Normalize()

		result, outcome := s.attribute(ctx, fill, batch)
		monitor.RoyaltyFillsProcessed.WithLabelValues(outcome).Inc()

		event := model.NewRoyaltyResultEvent(fill, result, outcome)
		events = append(events, event)
		if s.sink != nil {
			s.sink.Submit(event)
		}
	}
	return events
}

func (s *RoyaltyAttribution) attribute(ctx context.Context, fill *model.FillEvent, batch *royalty.BatchContext) (*model.AttributionResult, string) {
	fillCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.engine.ExtractRoyalties(fillCtx, fill, batch, s.useCache, false)
	switch {
	case err == nil && result == nil:
		return nil, OUTCOME_NO_TRACE
	case err == nil:
		return result, OUTCOME_OK
	case errors.Is(err, context.DeadlineExceeded):
		s.tl.Warn("⚠️ royalty extraction timeout", zap.String("tx_hash", fill.TxHash), zap.Int("log_index", fill.LogIndex), zap.Duration("timeout", s.timeout))
		return nil, OUTCOME_TIMEOUT
	default:
		s.tl.Warn("❌ royalty extraction failed", zap.String("tx_hash", fill.TxHash), zap.Int("log_index", fill.LogIndex), zap.Error(err))
		return nil, OUTCOME_ERROR
	}
}

// Close 关闭服务时把剩余结果刷出去
func (s *RoyaltyAttribution) Close() {
	if s.sink != nil {
		s.sink.Close()
	}
}
