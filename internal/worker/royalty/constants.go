package royalty

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// PRECISION_BASE 内部 bps 以 10 倍精度计算（100000 = 100%），
	// 多笔成交按比例拆分时多保留一位小数
	PRECISION_BASE = 100000
	// BPS_NORMALIZER 最终结果除以 10 还原为标准 bps（10000 = 100%）
	BPS_NORMALIZER = 10
	// BPS_CEILING 单个收款方的合理性上限（10 倍精度），达到即视为误判
	BPS_CEILING = 15000
	// SHARED_BPS_TOLERANCE 共享收款方校验时允许的误差（10 倍精度下即 1 bps）
	SHARED_BPS_TOLERANCE = 10
	// MAX_SUBCALL_ATTEMPTS 查找交易所子调用的最大次数
	MAX_SUBCALL_ATTEMPTS = 20
)

var precisionBase = decimal.NewFromInt(PRECISION_BASE)

// bpsOf amount / denominator，10 倍精度，分母非正返回 0
func bpsOf(amount, denominator decimal.Decimal) int64 {
	if denominator.Sign() <= 0 || amount.Sign() <= 0 {
		return 0
	}
	v := amount.Mul(precisionBase).Div(denominator).Floor()
	if v.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return math.MaxInt32
	}
	return v.IntPart()
}

// withinCeiling 0 < bps < BPS_CEILING
func withinCeiling(bps int64) bool {
	return bps > 0 && bps < BPS_CEILING
}
