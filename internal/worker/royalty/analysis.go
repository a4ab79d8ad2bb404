package royalty

import (
	"sort"

	"web3-royalty/internal/worker/calldata"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// candidate 在结算币种上净流入为正的地址
type candidate struct {
	address string
	balance decimal.Decimal
	// global 来自整笔交易的状态变化（fee on top 检测）
	global bool
}

// analysis 单笔成交的分类上下文，规则只读其输入、只写其结果
type analysis struct {
	tl            *zap.Logger
	net           *network.Network
	feeRecipients FeeRecipientChecker

	fill  *model.FillEvent
	price decimal.Decimal
	// currencyTags 与成交结算币种等价的 token 标记
	currencyTags []string

	// fills 交易内全部成交
	fills []model.FillEvent
	// subcallFills NFT 转账落在子调用内的成交
	subcallFills []model.FillEvent
	royalties    map[string][][]model.Royalty

	located         *Located
	subcallPayments []model.Payment
	subcallState    model.StateChange
	globalState     model.StateChange
	split           *SplitResult

	orders      []calldata.Order
	linkedOrder *calldata.Order

	royaltyBreakdown     []model.Royalty
	marketplaceBreakdown []model.Royalty
	onTop                []model.Royalty
	// parentOnlyAmounts 仅出现在模块调用中、已计入 fee on top 的金额，需从子调用余额中扣除
	parentOnlyAmounts map[string]decimal.Decimal
}

func (a *analysis) isCurrency(token string) bool {
	for _, tag := range a.currencyTags {
		if tag == token {
			return true
		}
	}
	return false
}

// balanceOf 地址在结算币种（含等价币种）上的净变化
func (a *analysis) balanceOf(state model.StateChange, address string) decimal.Decimal {
	total := decimal.Zero
	for _, tag := range a.currencyTags {
		total = total.Add(state.Balance(address, tag))
	}
	return total
}

func (a *analysis) isMultiSale() bool {
	return len(a.subcallFills) > 1
}

// isSeller 当前成交或子调用内任一成交的卖家，收到的是货款而非费用
func (a *analysis) isSeller(address string) bool {
	if address == a.fill.Seller() {
		return true
	}
	for i := range a.subcallFills {
		if address == a.subcallFills[i].Seller() {
			return true
		}
	}
	return false
}

func (a *analysis) reliableSplit() bool {
	return a.split != nil && a.split.IsReliable && a.split.HasMultiple
}

func (a *analysis) related() []model.Payment {
	return a.split.RelatedOf(a.fill)
}

// relatedAmount 相关转账中支付给地址的结算币种金额
func (a *analysis) relatedAmount(address string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.related() {
		if p.To == address && a.isCurrency(p.Token) {
			total = total.Add(p.Value())
		}
	}
	return total
}

func (a *analysis) sameCurrency(f *model.FillEvent) bool {
	tags := a.net.CurrencyTags(f.Currency)
	return len(tags) > 0 && a.isCurrency(tags[0])
}

// sameProtocolTotal 交易内同协议同结算币种的成交总价
func (a *analysis) sameProtocolTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range a.fills {
		if a.fills[i].OrderKind == a.fill.OrderKind && a.sameCurrency(&a.fills[i]) {
			total = total.Add(a.fills[i].SettlementPrice())
		}
	}
	return total
}

// sameCollectionTotal 子调用内同合约成交总价
func (a *analysis) sameCollectionTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range a.subcallFills {
		if a.subcallFills[i].Contract == a.fill.Contract && a.sameCurrency(&a.subcallFills[i]) {
			total = total.Add(a.subcallFills[i].SettlementPrice())
		}
	}
	if total.IsZero() {
		return a.price
	}
	return total
}

// declaredFeeTotal 关联订单声明了给该地址手续费的成交总价
func (a *analysis) declaredFeeTotal(address string) decimal.Decimal {
	total := decimal.Zero
	for i := range a.fills {
		order := linkOrder(a.orders, &a.fills[i])
		if order == nil {
			continue
		}
		if _, ok := order.FeeTo(address); ok {
			total = total.Add(a.fills[i].SettlementPrice())
		}
	}
	return total
}

func (a *analysis) definitionsOf(f *model.FillEvent) [][]model.Royalty {
	return a.royalties[royaltyKey(f.Contract, f.TokenID)]
}

// declaredBps 当前成交的版税定义中该地址的 bps（标准精度），未声明返回 false
func (a *analysis) declaredBps(address string) (int64, bool) {
	for _, def := range a.definitionsOf(a.fill) {
		for _, r := range def {
			if r.Recipient == address {
				return r.Bps, true
			}
		}
	}
	return 0, false
}

// fillsDeclaring 交易内版税定义中包含该地址的成交
func (a *analysis) fillsDeclaring(address string) []*model.FillEvent {
	var result []*model.FillEvent
	for i := range a.fills {
		found := false
		for _, def := range a.definitionsOf(&a.fills[i]) {
			for _, r := range def {
				if r.Recipient == address {
					found = true
				}
			}
		}
		if found {
			result = append(result, &a.fills[i])
		}
	}
	return result
}

func (a *analysis) addRoyalty(address string, bps int64) {
	a.royaltyBreakdown = addBps(a.royaltyBreakdown, address, bps)
}

func (a *analysis) addMarketplaceFee(address string, bps int64) {
	a.marketplaceBreakdown = addBps(a.marketplaceBreakdown, address, bps)
}

func (a *analysis) addOnTop(address string, bps int64) {
	a.onTop = addBps(a.onTop, address, bps)
}

// recordParentOnlyTransfers 模块调用中多出的结算币种转账计为 fee on top，与 feeOnTopRule 一样只看单笔成交的交易
func (a *analysis) recordParentOnlyTransfers() {
	if len(a.fills) != 1 {
		return
	}
	for _, p := range a.located.ParentOnlyTransfers {
		if !a.isCurrency(p.Token) || p.To == a.fill.Seller() || a.net.IsNonRoyalty(p.To) || a.net.IsRouter(p.To) {
			continue
		}
		if a.balanceOf(a.subcallState, p.To).Sign() <= 0 {
			continue
		}
		bps := bpsOf(p.Value(), a.price)
		if !withinCeiling(bps) {
			continue
		}
		a.addOnTop(p.To, bps)
		if a.parentOnlyAmounts == nil {
			a.parentOnlyAmounts = make(map[string]decimal.Decimal)
		}
		a.parentOnlyAmounts[p.To] = a.parentOnlyAmounts[p.To].Add(p.Value())
	}
}

func addBps(list []model.Royalty, address string, bps int64) []model.Royalty {
	for i := range list {
		if list[i].Recipient == address {
			list[i].Bps += bps
			return list
		}
	}
	return append(list, model.Royalty{Recipient: address, Bps: bps})
}

func hasRecipient(list []model.Royalty, address string) bool {
	for _, r := range list {
		if r.Recipient == address {
			return true
		}
	}
	return false
}

// linkOrder calldata 中与成交同合约同 tokenId 的第一个订单
func linkOrder(orders []calldata.Order, fill *model.FillEvent) *calldata.Order {
	for i := range orders {
		if orders[i].Contract == fill.Contract && orders[i].TokenID == fill.TokenID {
			return &orders[i]
		}
	}
	return nil
}

// sortedAddresses 状态变化中的地址按字典序排列，保证结果确定
func sortedAddresses(state model.StateChange) []string {
	addresses := make([]string, 0, len(state))
	for addr := range state {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)
	return addresses
}

// subcallCandidates 子调用内净流入为正的地址，已计入 fee on top 的部分先行扣除
func (a *analysis) subcallCandidates() []*candidate {
	var candidates []*candidate
	for _, addr := range sortedAddresses(a.subcallState) {
		balance := a.balanceOf(a.subcallState, addr).Sub(a.parentOnlyAmounts[addr])
		if balance.Sign() <= 0 {
			continue
		}
		candidates = append(candidates, &candidate{address: addr, balance: balance})
	}
	return candidates
}

// globalCandidates 整笔交易内净流入大于子调用内净流入的地址，balance 为差额
func (a *analysis) globalCandidates() []*candidate {
	var candidates []*candidate
	for _, addr := range sortedAddresses(a.globalState) {
		global := a.balanceOf(a.globalState, addr)
		if global.Sign() <= 0 {
			continue
		}
		sub := decimal.Max(a.balanceOf(a.subcallState, addr), decimal.Zero)
		delta := global.Sub(sub)
		if delta.Sign() <= 0 {
			continue
		}
		candidates = append(candidates, &candidate{address: addr, balance: delta, global: true})
	}
	return candidates
}
