package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/monitor"
	"web3-royalty/internal/worker/network"
	"web3-royalty/internal/worker/onchain"
	"web3-royalty/pkg/utils"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const TX_CACHE_TTL = 10 * time.Minute

// TraceFetcher 从节点获取交易 trace，交易不存在时返回 nil, nil
type TraceFetcher interface {
	FetchTransactionTrace(ctx context.Context, txHash string) (*model.CallTrace, error)
}

// FillFetcher 从索引库获取交易内的成交
type FillFetcher interface {
	GetFillEventsInTransaction(ctx context.Context, txHash string) ([]model.FillEvent, error)
}

// TxCache 按交易哈希缓存 trace 与成交。缓存未命中时并发请求可能重复拉取，结果一致即可
type TxCache struct {
	tl     *zap.Logger
	net    *network.Network
	store  Store
	traces TraceFetcher
	fills  FillFetcher
	ttl    time.Duration
}

func NewTxCache(tl *zap.Logger, net *network.Network, store Store, traces TraceFetcher, fills FillFetcher, ttl time.Duration) *TxCache {
	if ttl <= 0 {
		ttl = TX_CACHE_TTL
	}
	return &TxCache{
		tl:     tl,
		net:    net,
		store:  store,
		traces: traces,
		fills:  fills,
		ttl:    ttl,
	}
}

func (c *TxCache) load(ctx context.Context, kind, key string, v interface{}) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.tl.Warn("⚠️ tx cache get failed", zap.String("key", key), zap.Error(err))
		}
		monitor.RoyaltyCacheRequests.WithLabelValues(kind, "miss").Inc()
		return false
	}
	raw, err := utils.DecompressData(data)
	if err == nil {
		err = sonic.Unmarshal(raw, v)
	}
	if err != nil {
		c.tl.Warn("⚠️ tx cache decode failed", zap.String("key", key), zap.Error(err))
		monitor.RoyaltyCacheRequests.WithLabelValues(kind, "miss").Inc()
		return false
	}
	monitor.RoyaltyCacheRequests.WithLabelValues(kind, "hit").Inc()
	return true
}

func (c *TxCache) save(ctx context.Context, key string, v interface{}) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		c.tl.Warn("⚠️ tx cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	data, err := utils.CompressData(raw)
	if err != nil {
		c.tl.Warn("⚠️ tx cache compress failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.tl.Warn("⚠️ tx cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// GetTrace 交易 trace，不存在时返回 nil 且不缓存
func (c *TxCache) GetTrace(ctx context.Context, txHash string, useCache bool) (*model.CallTrace, error) {
	key := utils.RoyaltyTraceKey(c.net.ChainID, txHash)
	if useCache {
		var trace model.CallTrace
		if c.load(ctx, "trace", key, &trace) {
			return &trace, nil
		}
	}

	trace, err := c.traces.FetchTransactionTrace(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("fetch trace %s: %w", txHash, err)
	}
	if trace == nil {
		return nil, nil
	}
	trace.Normalize()
	c.save(ctx, key, trace)
	return trace, nil
}

// GetFillEvents 交易内已索引的成交，空结果不缓存（可能尚未索引完）
func (c *TxCache) GetFillEvents(ctx context.Context, txHash string, useCache bool) ([]model.FillEvent, error) {
	key := utils.RoyaltyFillsKey(c.net.ChainID, txHash)
	if useCache {
		var fills []model.FillEvent
		if c.load(ctx, "fills", key, &fills) {
			return fills, nil
		}
	}

	fills, err := c.fills.GetFillEventsInTransaction(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("fetch fills %s: %w", txHash, err)
	}
	for i := range fills {
		fills[i].Normalize()
	}
	if len(fills) > 0 {
		c.save(ctx, key, fills)
	}
	return fills, nil
}

// GetOnChainData 不经过索引库，直接从 trace 还原成交，仅用于校验
func (c *TxCache) GetOnChainData(ctx context.Context, txHash string, useCache bool) ([]onchain.OnChainData, error) {
	trace, err := c.GetTrace(ctx, txHash, useCache)
	if err != nil || trace == nil {
		return nil, err
	}
	return onchain.GetOnChainData(txHash, trace, c.net), nil
}
