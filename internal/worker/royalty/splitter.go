package royalty

import (
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"
)

// ChunkedFill 一笔成交及按转账顺序切分出的相关转账
type ChunkedFill struct {
	Fill            *model.FillEvent
	RelatedPayments []model.Payment
}

// SplitResult 多笔成交共享同一子调用时的切分结果
type SplitResult struct {
	ChunkedFills []ChunkedFill
	// IsReliable 转账顺序由合约语义保证
	IsReliable bool
	// HasMultiple 旧打包协议下成交跨越多个合约
	HasMultiple bool
}

// RelatedOf 取某笔成交的相关转账
func (s *SplitResult) RelatedOf(fill *model.FillEvent) []model.Payment {
	if s == nil {
		return nil
	}
	for _, chunk := range s.ChunkedFills {
		if chunk.Fill.LogIndex == fill.LogIndex && chunk.Fill.BatchIndex == fill.BatchIndex {
			return chunk.RelatedPayments
		}
	}
	return nil
}

// SplitPayments 将同一子调用内的转账按成交切分，结果只是启发式估计
func SplitPayments(net *network.Network, fills []model.FillEvent, payments []model.Payment) *SplitResult {
	sorted := make([]model.FillEvent, len(fills))
	copy(sorted, fills)
	sortFills(sorted)

	allBundle, allReliable := len(sorted) > 0, len(sorted) > 0
	contracts := make(map[string]struct{})
	for i := range sorted {
		contracts[sorted[i].Contract] = struct{}{}
		if !net.IsBundleKind(sorted[i].OrderKind) {
			allBundle = false
		}
		if !net.IsReliableKind(sorted[i].OrderKind) {
			allReliable = false
		}
	}

	result := &SplitResult{
		HasMultiple: len(contracts) > 1 && allBundle,
	}
	if allBundle {
		result.ChunkedFills = splitSequential(sorted, payments)
		result.IsReliable = allReliable
		return result
	}
	result.ChunkedFills = splitByBoundary(sorted, payments)
	return result
}

// splitSequential 旧打包协议：顺序查找每笔成交的 NFT 转账，
// 上一次匹配之后到本次匹配（含）之间的转账归属本笔成交
func splitSequential(fills []model.FillEvent, payments []model.Payment) []ChunkedFill {
	chunks := make([]ChunkedFill, 0, len(fills))
	prev := -1
	for i := range fills {
		match := -1
		for j := prev + 1; j < len(payments); j++ {
			if paymentMatchesFill(&payments[j], &fills[i]) {
				match = j
				break
			}
		}
		chunk := ChunkedFill{Fill: &fills[i]}
		if match >= 0 {
			chunk.RelatedPayments = payments[prev+1 : match+1]
			prev = match
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitByBoundary 新协议：以下一笔成交的卖方地址作为边界，
// 没有下一笔成交时以下一个 NFT 转账为边界，边界之间的转账归属本笔成交
func splitByBoundary(fills []model.FillEvent, payments []model.Payment) []ChunkedFill {
	chunks := make([]ChunkedFill, 0, len(fills))
	for i := range fills {
		chunk := ChunkedFill{Fill: &fills[i]}
		match := -1
		for j := range payments {
			if paymentMatchesFill(&payments[j], &fills[i]) {
				match = j
				break
			}
		}
		if match < 0 {
			chunks = append(chunks, chunk)
			continue
		}

		boundary := len(payments)
		if i+1 < len(fills) {
			if idx := nextInvolving(payments, match+1, fills[i+1].Seller()); idx >= 0 {
				boundary = idx
			} else if idx := nextNFT(payments, match+1); idx >= 0 {
				boundary = idx
			}
		} else if idx := nextNFT(payments, match+1); idx >= 0 {
			boundary = idx
		}
		if boundary > match+1 {
			chunk.RelatedPayments = payments[match+1 : boundary]
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func nextInvolving(payments []model.Payment, from int, addr string) int {
	if addr == "" {
		return -1
	}
	for j := from; j < len(payments); j++ {
		if payments[j].From == addr || payments[j].To == addr {
			return j
		}
	}
	return -1
}

func nextNFT(payments []model.Payment, from int) int {
	for j := from; j < len(payments); j++ {
		if payments[j].IsNFT() {
			return j
		}
	}
	return -1
}
