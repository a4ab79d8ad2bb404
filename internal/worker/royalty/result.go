package royalty

import (
	"web3-royalty/internal/worker/model"
)

// BuildResult 汇总分类结果：先分别累加版税与市场手续费，再把 fee on top 并入版税明细，
// 最后统一除以 BPS_NORMALIZER 还原为标准 bps
func BuildResult(royalties, marketplaceFees, onTop []model.Royalty, definitions [][]model.Royalty) *model.AttributionResult {
	result := &model.AttributionResult{
		RoyaltyFeeBreakdown:     []model.Royalty{},
		MarketplaceFeeBreakdown: []model.Royalty{},
		RoyaltyFeeOnTop:         []model.Royalty{},
	}

	var royaltyBps, marketplaceBps int64
	for _, r := range royalties {
		royaltyBps += r.Bps
	}
	for _, r := range marketplaceFees {
		marketplaceBps += r.Bps
	}

	merged := make([]model.Royalty, 0, len(royalties)+len(onTop))
	merged = append(merged, royalties...)
	for _, r := range onTop {
		merged = addBps(merged, r.Recipient, r.Bps)
	}

	result.RoyaltyFeeBps = royaltyBps / BPS_NORMALIZER
	result.MarketplaceFeeBps = marketplaceBps / BPS_NORMALIZER
	result.RoyaltyFeeBreakdown = normalize(merged)
	result.MarketplaceFeeBreakdown = normalize(marketplaceFees)
	result.RoyaltyFeeOnTop = normalize(onTop)
	result.PaidFullRoyalty = len(result.RoyaltyFeeBreakdown) > 0 && result.RoyaltyFeeBps >= MinDefinedBps(definitions)
	return result
}

func normalize(list []model.Royalty) []model.Royalty {
	out := make([]model.Royalty, 0, len(list))
	for _, r := range list {
		out = append(out, model.Royalty{Recipient: r.Recipient, Bps: r.Bps / BPS_NORMALIZER})
	}
	return out
}

// MinDefinedBps 各非空版税定义总 bps 的最小值，没有定义时为 0
func MinDefinedBps(definitions [][]model.Royalty) int64 {
	var (
		lowest int64
		found  bool
	)
	for _, def := range definitions {
		if len(def) == 0 {
			continue
		}
		total := model.TotalBps(def)
		if !found || total < lowest {
			lowest, found = total, true
		}
	}
	return lowest
}
