package dao

import (
	"context"

	"web3-royalty/internal/worker/model"
)

// FillEventDAO 已索引成交的只读访问
type FillEventDAO interface {
	// GetFillEventsInTransaction 交易内的全部成交，按 log_index、batch_index 排序
	GetFillEventsInTransaction(ctx context.Context, txHash string) ([]model.FillEvent, error)
}
