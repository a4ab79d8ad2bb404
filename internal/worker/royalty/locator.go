package royalty

import (
	"sort"

	"web3-royalty/internal/worker/calldata"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"

	"go.uber.org/zap"
)

// Located 定位结果
type Located struct {
	// Subcall 需要分析的调用，找不到更窄的调用时为交易根调用
	Subcall *model.CallTrace
	// RouterCall 交易内的聚合路由调用，没有时为 nil
	RouterCall *model.CallTrace
	// ParentOnlyTransfers 模块调用中存在、交易所调用中不存在的币种转账（可能是 fee on top）
	ParentOnlyTransfers []model.Payment
}

// SubcallLocator 为一笔成交定位交易调用树中对应的子调用
type SubcallLocator struct {
	tl  *zap.Logger
	net *network.Network
}

func NewSubcallLocator(logger *zap.Logger, net *network.Network) *SubcallLocator {
	return &SubcallLocator{tl: logger, net: net}
}

// searchForCall 深度优先、按执行顺序查找第 skip 个（从 0 开始）满足条件的调用
func searchForCall(root *model.CallTrace, match func(call *model.CallTrace) bool, skip int) *model.CallTrace {
	var (
		found *model.CallTrace
		seen  int
	)
	root.Walk(func(call *model.CallTrace) {
		if found != nil || !match(call) {
			return
		}
		if seen == skip {
			found = call
		}
		seen++
	}, nil)
	return found
}

// containsCall target 是否位于 parent 子树内（含自身）
func containsCall(parent, target *model.CallTrace) bool {
	found := false
	parent.Walk(func(call *model.CallTrace) {
		if call == target {
			found = true
		}
	}, nil)
	return found
}

// paymentMatchesFill 转账是否对应该成交：同合约同 tokenId，
// 或非标准 NFT（以 ERC20 形式转移，amount 即 tokenId）
func paymentMatchesFill(p *model.Payment, fill *model.FillEvent) bool {
	tag := p.Tag()
	if tag.Address != fill.Contract {
		return false
	}
	if tag.IsNFT() {
		return tag.TokenID == fill.TokenID
	}
	return tag.Kind == model.TOKEN_KIND_ERC20 && p.Amount == fill.TokenID
}

func anyPaymentMatches(payments []model.Payment, fill *model.FillEvent) bool {
	for i := range payments {
		if paymentMatchesFill(&payments[i], fill) {
			return true
		}
	}
	return false
}

// sortFills 按 logIndex、batchIndex 排序
func sortFills(fills []model.FillEvent) {
	sort.SliceStable(fills, func(i, j int) bool {
		if fills[i].LogIndex != fills[j].LogIndex {
			return fills[i].LogIndex < fills[j].LogIndex
		}
		return fills[i].BatchIndex < fills[j].BatchIndex
	})
}

// sameTokenOrdinal 成交在同合约同 tokenId 成交中的序号
func sameTokenOrdinal(fill *model.FillEvent, fills []model.FillEvent) int {
	same := make([]model.FillEvent, 0, len(fills))
	for i := range fills {
		if fills[i].SameToken(fill) {
			same = append(same, fills[i])
		}
	}
	sortFills(same)
	for i := range same {
		if same[i].LogIndex == fill.LogIndex && same[i].BatchIndex == fill.BatchIndex {
			return i
		}
	}
	return 0
}

// Locate 查找成交对应的子调用，找不到时回退到交易根调用
func (l *SubcallLocator) Locate(fill *model.FillEvent, trace *model.CallTrace, fills []model.FillEvent) *Located {
	located := &Located{Subcall: trace}
	ordinal := sameTokenOrdinal(fill, fills)

	// 聚合路由：按声明顺序为每个模块调用找到对应的子调用
	var moduleCalls []*model.CallTrace
	located.RouterCall = searchForCall(trace, func(call *model.CallTrace) bool {
		return l.net.IsRouter(call.To) && calldata.IsRouterCall(call.Input)
	}, 0)
	if located.RouterCall != nil {
		moduleCalls = l.locateExecutions(located.RouterCall)
	}

	if exchange, ok := l.net.ExchangeOf(fill.OrderKind); ok {
		if call := l.locateExchangeCall(fill, trace, exchange, ordinal); call != nil {
			located.Subcall = call
		}
	}

	if located.RouterCall == nil {
		return located
	}

	if located.Subcall == trace {
		// 找不到交易所调用时，退而使用与成交匹配的模块调用
		var matching []*model.CallTrace
		for _, call := range moduleCalls {
			if anyPaymentMatches(ExtractPayments(call), fill) {
				matching = append(matching, call)
			}
		}
		if len(matching) > 0 {
			located.Subcall = matching[min(ordinal, len(matching)-1)]
		}
		return located
	}

	// 模块调用完整包含交易所调用的转账时，改为分析模块调用
	for _, parent := range moduleCalls {
		if parent == located.Subcall || !containsCall(parent, located.Subcall) {
			continue
		}
		extra, ok := parentOnlyTransfers(ExtractPayments(parent), ExtractPayments(located.Subcall))
		if !ok {
			continue
		}
		located.Subcall = parent
		located.ParentOnlyTransfers = extra
		break
	}
	return located
}

func (l *SubcallLocator) locateExecutions(routerCall *model.CallTrace) []*model.CallTrace {
	executions, err := calldata.ParseExecutionsFromRouterCalldata(routerCall.Input)
	if err != nil {
		l.tl.Debug("parse router executions failed", zap.Error(err))
		return nil
	}
	used := make(map[string]int)
	calls := make([]*model.CallTrace, 0, len(executions))
	for _, exec := range executions {
		key := exec.Module + exec.Sighash
		call := searchForCall(routerCall, func(call *model.CallTrace) bool {
			return call != routerCall && call.To == exec.Module && call.Selector() == exec.Sighash
		}, used[key])
		used[key]++
		if call != nil {
			calls = append(calls, call)
		}
	}
	return calls
}

func (l *SubcallLocator) locateExchangeCall(fill *model.FillEvent, trace *model.CallTrace, exchange string, ordinal int) *model.CallTrace {
	type candidate struct {
		call     *model.CallTrace
		payments []model.Payment
	}
	var candidates []candidate
	for i := 0; i < MAX_SUBCALL_ATTEMPTS; i++ {
		call := searchForCall(trace, func(call *model.CallTrace) bool {
			return call.To == exchange
		}, i)
		if call == nil {
			break
		}
		payments := ExtractPayments(call)
		if len(payments) == 0 {
			continue
		}
		candidates = append(candidates, candidate{call: call, payments: payments})
	}

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0].call
	}

	var matching []*model.CallTrace
	for _, c := range candidates {
		if anyPaymentMatches(c.payments, fill) {
			matching = append(matching, c.call)
		}
	}
	if len(matching) == 0 {
		return nil
	}
	return matching[min(ordinal, len(matching)-1)]
}

// parentOnlyTransfers parent 是否完整包含 child 的转账（NFT 转账一致），
// 返回仅存在于 parent 的币种转账
func parentOnlyTransfers(parent, child []model.Payment) ([]model.Payment, bool) {
	used := make([]bool, len(parent))
	for i := range child {
		matched := false
		for j := range parent {
			if !used[j] && parent[j].Equal(&child[i]) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}
	var extra []model.Payment
	for j := range parent {
		if used[j] {
			continue
		}
		if parent[j].IsNFT() {
			return nil, false
		}
		if parent[j].IsCurrency() {
			extra = append(extra, parent[j])
		}
	}
	return extra, true
}
