package royalty

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Rule 单条分类规则，返回 true 表示该地址已被处理，后续规则不再查看
type Rule interface {
	Name() string
	Apply(a *analysis, c *candidate) bool
}

// DefaultRules 子调用候选地址的规则，按优先级排列
func DefaultRules() []Rule {
	return []Rule{marketplaceFeeRule{}, royaltyRule{}}
}

// GlobalRules 整笔交易候选地址的规则
func GlobalRules() []Rule {
	return []Rule{feeOnTopRule{}}
}

// applyRule 执行规则，单条规则 panic 只跳过当前地址
func applyRule(tl *zap.Logger, rule Rule, a *analysis, c *candidate) (handled, matched bool) {
	defer func() {
		if r := recover(); r != nil {
			tl.Warn("⚠️ royalty rule panicked, skip address",
				zap.String("rule", rule.Name()),
				zap.String("tx_hash", a.fill.TxHash),
				zap.String("address", c.address),
				zap.Any("panic", r))
			handled, matched = true, false
		}
	}()
	before := len(a.royaltyBreakdown) + len(a.marketplaceBreakdown) + len(a.onTop)
	handled = rule.Apply(a, c)
	matched = len(a.royaltyBreakdown)+len(a.marketplaceBreakdown)+len(a.onTop) > before
	return handled, matched
}

// feeOnTopRule 路由交易中，整笔交易的净流入超出子调用净流入的部分为聚合器额外收取的费用
type feeOnTopRule struct{}

func (feeOnTopRule) Name() string { return "fee_on_top" }

func (feeOnTopRule) Apply(a *analysis, c *candidate) bool {
	if a.located.RouterCall == nil || len(a.fills) != 1 {
		return true
	}
	if a.net.IsNonRoyalty(c.address) || a.net.IsRouter(c.address) || c.address == a.fill.Seller() {
		return true
	}
	bps := bpsOf(c.balance, a.price)
	if withinCeiling(bps) {
		a.addOnTop(c.address, bps)
	}
	return true
}

// marketplaceFeeRule 已知市场手续费收款地址
type marketplaceFeeRule struct{}

func (marketplaceFeeRule) Name() string { return "marketplace_fee" }

func (marketplaceFeeRule) Apply(a *analysis, c *candidate) bool {
	if a.feeRecipients == nil || !a.feeRecipients.IsKnownMarketplaceFeeRecipient(c.address, a.fill.OrderKind) {
		return false
	}

	denominator := a.sameProtocolTotal()
	if a.linkedOrder != nil {
		if _, ok := a.linkedOrder.FeeTo(c.address); ok {
			denominator = a.declaredFeeTotal(c.address)
		}
	}
	bps := bpsOf(c.balance, denominator)
	if a.reliableSplit() {
		if amount := a.relatedAmount(c.address); amount.Sign() > 0 {
			bps = bpsOf(amount, a.price)
		}
	}
	if withinCeiling(bps) {
		a.addMarketplaceFee(c.address, bps)
	}
	return true
}

// royaltyRule 其余地址按版税判定
type royaltyRule struct{}

func (royaltyRule) Name() string { return "royalty" }

func (royaltyRule) Apply(a *analysis, c *candidate) bool {
	// 池子协议按现价结算，不支付版税
	if a.net.IsAmm(a.fill.OrderKind) {
		return true
	}
	if a.isSeller(c.address) {
		return true
	}

	declaring := a.fillsDeclaring(c.address)
	sameCollection := true
	for _, f := range declaring {
		if f.Contract != a.fill.Contract {
			sameCollection = false
			break
		}
	}
	if !sameCollection {
		return true
	}

	declaredBps, declared := a.declaredBps(c.address)
	if a.net.IsNonRoyalty(c.address) && !declared {
		return true
	}

	shared := len(declaring) > 1
	denominator := a.sameCollectionTotal()
	if shared {
		denominator = a.sameProtocolTotal()
	}
	bps := bpsOf(c.balance, denominator)

	switch {
	case a.reliableSplit():
		amount := a.relatedAmount(c.address)
		if amount.Sign() <= 0 {
			return true
		}
		bps = bpsOf(amount, a.price)
	case a.isMultiSale():
		inRange := a.relatedAmount(c.address).Sign() > 0
		inOrder := false
		if a.linkedOrder != nil {
			_, inOrder = a.linkedOrder.FeeTo(c.address)
		}
		if !inRange && !inOrder {
			return true
		}
	}

	// calldata 中的订单声明优先
	if a.linkedOrder != nil {
		fee, ok := a.linkedOrder.FeeTo(c.address)
		if !ok {
			return true
		}
		bps = bpsOf(fee, a.price)
	}

	if shared && declared && absDiff(bps, declaredBps*BPS_NORMALIZER) > SHARED_BPS_TOLERANCE {
		return true
	}
	if withinCeiling(bps) {
		a.addRoyalty(c.address, bps)
	}
	return true
}

func absDiff(x, y int64) int64 {
	if x > y {
		return x - y
	}
	return y - x
}

// collapseTransfers 同一地址收到多笔转账且合计恰为成交价时，
// 最大一笔视为本金，其余视为手续费
func collapseTransfers(a *analysis, c *candidate) {
	var (
		total   = decimal.Zero
		largest = decimal.Zero
		count   int
	)
	for _, p := range a.subcallPayments {
		if p.To != c.address || !a.isCurrency(p.Token) {
			continue
		}
		v := p.Value()
		total = total.Add(v)
		largest = decimal.Max(largest, v)
		count++
	}
	if count < 2 || !total.Equal(a.price) {
		return
	}
	rest := total.Sub(largest)
	if rest.Sign() > 0 && bpsOf(rest, a.price) < BPS_CEILING {
		c.balance = rest
	}
}

// declaredFeesMissingFromState 订单声明的手续费收款方不在候选地址中（例如合约内部转发），
// 子调用内存在金额一致的转账时直接计入版税
func declaredFeesMissingFromState(a *analysis, candidates []*candidate) {
	if a.linkedOrder == nil {
		return
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		seen[c.address] = struct{}{}
	}
	for _, fee := range a.linkedOrder.Fees {
		if _, ok := seen[fee.Recipient]; ok || hasRecipient(a.royaltyBreakdown, fee.Recipient) {
			continue
		}
		for _, p := range a.subcallPayments {
			if p.To != fee.Recipient || !a.isCurrency(p.Token) || !p.Value().Equal(fee.Amount) {
				continue
			}
			if bps := bpsOf(fee.Amount, a.price); withinCeiling(bps) {
				a.addRoyalty(fee.Recipient, bps)
			}
			break
		}
	}
}
