package royalty

import (
	"context"
	"errors"
	"time"

	"web3-royalty/internal/worker/calldata"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/monitor"
	"web3-royalty/internal/worker/network"
	"web3-royalty/internal/worker/onchain"
	"web3-royalty/pkg/logger"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	tracerName = "royalty"

	defaultRoyaltyConcurrency = 8
)

// RoyaltySpecs 每个 token 查询的版税定义来源
var RoyaltySpecs = []string{model.ROYALTY_SPEC_ONCHAIN, model.ROYALTY_SPEC_OPENSEA}

// Engine 根据交易 trace 还原单笔成交的版税与手续费拆分
type Engine struct {
	tl            *zap.Logger
	net           *network.Network
	txs           TxSource
	royalties     RoyaltySource
	feeRecipients FeeRecipientChecker
	locator       *SubcallLocator

	rules       []Rule
	globalRules []Rule
	concurrency int
}

func NewEngine(logger *zap.Logger, net *network.Network, txs TxSource, royalties RoyaltySource, feeRecipients FeeRecipientChecker) *Engine {
	return &Engine{
		tl:            logger,
		net:           net,
		txs:           txs,
		royalties:     royalties,
		feeRecipients: feeRecipients,
		locator:       NewSubcallLocator(logger, net),
		rules:         DefaultRules(),
		globalRules:   GlobalRules(),
		concurrency:   defaultRoyaltyConcurrency,
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExtractRoyalties 计算成交的版税/手续费拆分。
// 没有 trace 时返回 nil, nil；只有 ctx 取消或超时才返回错误，其余问题尽量给出（可能为空的）结果
func (e *Engine) ExtractRoyalties(ctx context.Context, fill *model.FillEvent, batch *BatchContext, useCache, forceOnChain bool) (*model.AttributionResult, error) {
	ctx, span := logger.StartSpan(ctx, tracerName, "ExtractRoyalties")
	defer span.End()
	span.SetAttributes(
		attribute.String("tx_hash", fill.TxHash),
		attribute.Int("log_index", fill.LogIndex),
		attribute.Int("batch_index", fill.BatchIndex),
	)

	start := time.Now()
	defer func() {
		monitor.RoyaltyExtractDuration.Observe(time.Since(start).Seconds())
	}()

	if batch == nil {
		batch = NewBatchContext()
	}

	trace, err := e.txs.GetTrace(ctx, fill.TxHash, useCache)
	if err != nil {
		if isContextErr(err) || ctx.Err() != nil {
			return nil, err
		}
		e.tl.Warn("⚠️ get trace failed", zap.String("tx_hash", fill.TxHash), zap.Error(err))
		return nil, nil
	}
	if trace == nil {
		e.tl.Info("no trace, skip royalty extraction", zap.String("tx_hash", fill.TxHash))
		return nil, nil
	}

	fills, err := e.fillsOf(ctx, fill, useCache, forceOnChain)
	if err != nil {
		return nil, err
	}

	definitions, err := e.loadRoyalties(ctx, batch, fills)
	if err != nil {
		return nil, err
	}

	a := e.analyze(fill, trace, fills, definitions, batch)
	e.classify(a)

	result := BuildResult(a.royaltyBreakdown, a.marketplaceBreakdown, a.onTop, definitions[royaltyKey(fill.Contract, fill.TokenID)])
	span.SetAttributes(
		attribute.Int64("royalty_fee_bps", result.RoyaltyFeeBps),
		attribute.Int64("marketplace_fee_bps", result.MarketplaceFeeBps),
	)
	return result, nil
}

// fillsOf 交易内全部成交，保证包含当前成交
func (e *Engine) fillsOf(ctx context.Context, fill *model.FillEvent, useCache, forceOnChain bool) ([]model.FillEvent, error) {
	var (
		fills []model.FillEvent
		err   error
	)
	if forceOnChain {
		var data []onchain.OnChainData
		data, err = e.txs.GetOnChainData(ctx, fill.TxHash, useCache)
		for _, d := range data {
			fills = append(fills, d.Fills...)
		}
	} else {
		fills, err = e.txs.GetFillEvents(ctx, fill.TxHash, useCache)
	}
	if err != nil {
		if isContextErr(err) || ctx.Err() != nil {
			return nil, err
		}
		e.tl.Warn("⚠️ get fill events failed, continue with current fill", zap.String("tx_hash", fill.TxHash), zap.Error(err))
		fills = nil
	}

	found := false
	for i := range fills {
		if fills[i].LogIndex == fill.LogIndex && fills[i].BatchIndex == fill.BatchIndex {
			found = true
			break
		}
	}
	if !found {
		fills = append(fills, *fill)
	}
	sortFills(fills)
	return fills, nil
}

type tokenRoyalties struct {
	contract string
	tokenID  string
	defs     [][]model.Royalty
}

// loadRoyalties 并发加载交易内每个 token 的版税定义，批次内已加载的直接复用
func (e *Engine) loadRoyalties(ctx context.Context, batch *BatchContext, fills []model.FillEvent) (map[string][][]model.Royalty, error) {
	definitions := make(map[string][][]model.Royalty)
	var missing []*model.FillEvent
	for i := range fills {
		key := royaltyKey(fills[i].Contract, fills[i].TokenID)
		if _, ok := definitions[key]; ok {
			continue
		}
		if defs, ok := batch.getRoyalties(fills[i].Contract, fills[i].TokenID); ok {
			definitions[key] = defs
			continue
		}
		definitions[key] = nil
		missing = append(missing, &fills[i])
	}
	if len(missing) == 0 || e.royalties == nil {
		return definitions, nil
	}

	p := pool.NewWithResults[tokenRoyalties]().WithMaxGoroutines(e.concurrency)
	for _, f := range missing {
		p.Go(func() tokenRoyalties {
			defs := make([][]model.Royalty, 0, len(RoyaltySpecs))
			for _, spec := range RoyaltySpecs {
				royalties, err := e.royalties.GetRoyalties(ctx, f.Contract, f.TokenID, spec)
				if err != nil {
					e.tl.Warn("⚠️ get royalties failed",
						zap.String("contract", f.Contract),
						zap.String("token_id", f.TokenID),
						zap.String("spec", spec),
						zap.Error(err))
					royalties = nil
				}
				defs = append(defs, royalties)
			}
			return tokenRoyalties{contract: f.Contract, tokenID: f.TokenID, defs: defs}
		})
	}
	results := p.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range results {
		batch.setRoyalties(r.contract, r.tokenID, r.defs)
		definitions[royaltyKey(r.contract, r.tokenID)] = r.defs
	}
	return definitions, nil
}

func (e *Engine) analyze(fill *model.FillEvent, trace *model.CallTrace, fills []model.FillEvent, definitions map[string][][]model.Royalty, batch *BatchContext) *analysis {
	located := e.locator.Locate(fill, trace, fills)
	subcallPayments := ExtractPayments(located.Subcall)
	subcallState := StateChangeOf(subcallPayments)
	globalState := subcallState
	if located.Subcall != trace {
		globalState = ExtractStateChange(trace)
	}

	a := &analysis{
		tl:              e.tl,
		net:             e.net,
		feeRecipients:   e.feeRecipients,
		fill:            fill,
		price:           fill.SettlementPrice(),
		currencyTags:    e.net.CurrencyTags(fill.Currency),
		fills:           fills,
		royalties:       definitions,
		located:         located,
		subcallPayments: subcallPayments,
		subcallState:    subcallState,
		globalState:     globalState,
	}

	for i := range fills {
		if anyPaymentMatches(subcallPayments, &fills[i]) {
			a.subcallFills = append(a.subcallFills, fills[i])
		}
	}
	if len(a.subcallFills) > 1 {
		a.split = SplitPayments(e.net, a.subcallFills, subcallPayments)
	}

	if len(fills) > 1 {
		a.orders = e.ordersOf(fill.TxHash, trace, located.Subcall, batch)
		a.linkedOrder = linkOrder(a.orders, fill)
	}
	return a
}

// ordersOf 从交易入口（或子调用）calldata 还原订单，同一交易只解析一次
func (e *Engine) ordersOf(txHash string, trace, subcall *model.CallTrace, batch *BatchContext) []calldata.Order {
	if orders, ok := batch.getOrders(txHash); ok {
		return orders
	}
	orders, err := calldata.ExtractOrdersFromCalldata(trace.Input)
	if err != nil {
		e.tl.Debug("extract orders from root calldata failed", zap.String("tx_hash", txHash), zap.Error(err))
	}
	if len(orders) == 0 && subcall != trace {
		orders, err = calldata.ExtractOrdersFromCalldata(subcall.Input)
		if err != nil {
			e.tl.Debug("extract orders from subcall calldata failed", zap.String("tx_hash", txHash), zap.Error(err))
		}
	}
	batch.setOrders(txHash, orders)
	return orders
}

func (e *Engine) classify(a *analysis) {
	if a.price.Sign() <= 0 {
		return
	}

	for _, c := range a.globalCandidates() {
		e.applyRules(e.globalRules, a, c)
	}
	a.recordParentOnlyTransfers()

	candidates := a.subcallCandidates()
	for _, c := range candidates {
		collapseTransfers(a, c)
		e.applyRules(e.rules, a, c)
	}
	declaredFeesMissingFromState(a, candidates)
}

func (e *Engine) applyRules(rules []Rule, a *analysis, c *candidate) {
	for _, rule := range rules {
		handled, matched := applyRule(e.tl, rule, a, c)
		if matched {
			monitor.RoyaltyRuleMatches.WithLabelValues(rule.Name()).Inc()
		}
		if handled {
			return
		}
	}
}
