package royalty

import (
	"fmt"
	"sync"

	"web3-royalty/internal/worker/calldata"
	"web3-royalty/internal/worker/model"
)

// BatchContext 同一笔交易内多笔成交共享的缓存，每批创建一次，处理完即丢弃
type BatchContext struct {
	mu         sync.Mutex
	royalties  map[string][][]model.Royalty
	orderInfos map[string][]calldata.Order
}

func NewBatchContext() *BatchContext {
	return &BatchContext{
		royalties:  make(map[string][][]model.Royalty),
		orderInfos: make(map[string][]calldata.Order),
	}
}

func royaltyKey(contract, tokenID string) string {
	return fmt.Sprintf("%s:%s", contract, tokenID)
}

func (b *BatchContext) getRoyalties(contract, tokenID string) ([][]model.Royalty, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.royalties[royaltyKey(contract, tokenID)]
	return v, ok
}

func (b *BatchContext) setRoyalties(contract, tokenID string, defs [][]model.Royalty) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.royalties[royaltyKey(contract, tokenID)] = defs
}

func (b *BatchContext) getOrders(txHash string) ([]calldata.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.orderInfos[txHash]
	return v, ok
}

func (b *BatchContext) setOrders(txHash string, orders []calldata.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderInfos[txHash] = orders
}
