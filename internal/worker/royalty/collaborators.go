package royalty

import (
	"context"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/onchain"
)

// TxSource 按交易哈希获取 trace 与成交（带缓存）
type TxSource interface {
	GetTrace(ctx context.Context, txHash string, useCache bool) (*model.CallTrace, error)
	GetFillEvents(ctx context.Context, txHash string, useCache bool) ([]model.FillEvent, error)
	GetOnChainData(ctx context.Context, txHash string, useCache bool) ([]onchain.OnChainData, error)
}

// RoyaltySource 版税定义来源
type RoyaltySource interface {
	GetRoyalties(ctx context.Context, contract, tokenID, spec string) ([]model.Royalty, error)
}

// FeeRecipientChecker 已知市场手续费收款地址判定
type FeeRecipientChecker interface {
	IsKnownMarketplaceFeeRecipient(address, orderKind string) bool
}
