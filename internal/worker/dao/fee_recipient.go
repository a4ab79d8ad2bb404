package dao

import (
	"context"

	"web3-royalty/internal/worker/model"
)

// FeeRecipientDAO 已知手续费收款地址，内存中常驻，定时从数据库刷新
type FeeRecipientDAO interface {
	IsKnownMarketplaceFeeRecipient(address, orderKind string) bool

	// Reload 重新加载数据库中的地址，与内置地址合并
	Reload(ctx context.Context) error

	List() []model.FeeRecipient
}
