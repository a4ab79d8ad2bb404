package dao

import (
	"context"

	"web3-royalty/internal/worker/model"
)

// RoyaltyDAO 版税定义
type RoyaltyDAO interface {
	// GetRoyalties 按来源（onchain|opensea）取 token 的版税定义，token 级定义优先于合约级
	GetRoyalties(ctx context.Context, contract, tokenID, spec string) ([]model.Royalty, error)

	// Upsert 保存一条版税定义，tokenID 为空表示整个合约
	Upsert(ctx context.Context, def *model.RoyaltyDefinition) error
}

// OnChainRoyaltyReader EIP-2981 royaltyInfo
type OnChainRoyaltyReader interface {
	RoyaltyBps(ctx context.Context, contract, tokenID string) (string, int64, error)
}

// CollectionRoyaltyFetcher 市场声明的 collection 创作者费用
type CollectionRoyaltyFetcher interface {
	GetCollectionRoyalties(ctx context.Context, contract string) ([]model.Royalty, error)
}
