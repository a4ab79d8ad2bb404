package royalty

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"web3-royalty/internal/worker/calldata"
	"web3-royalty/internal/worker/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleSaleTrace 单笔 seaport 成交：NFT seller -> buyer，buyer 支付 feeTo/seller
func singleSaleTrace(feeTo string, fee int64, extra ...model.CallLog) *model.CallTrace {
	logs := []model.CallLog{
		erc721Log(collection, seller, buyer, 1, 0),
		erc20Log(weth, buyer, seller, 10000-fee, 0),
		erc20Log(weth, buyer, feeTo, fee, 0),
	}
	call := exchangeCall(seaport, append(logs, extra...)...)
	return &call
}

func TestExtractRoyalties_MarketplaceFee(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	txs := &fakeTxSource{trace: singleSaleTrace(marketFee, 500), fills: []model.FillEvent{fill}}
	engine := newTestEngine(txs, &fakeRoyaltySource{})

	result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), true, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(500), result.MarketplaceFeeBps)
	assert.Equal(t, int64(0), result.RoyaltyFeeBps)
	assert.Equal(t, []model.Royalty{{Recipient: marketFee, Bps: 500}}, result.MarketplaceFeeBreakdown)
	assert.Empty(t, result.RoyaltyFeeBreakdown)
	assert.False(t, result.PaidFullRoyalty)
}

func TestExtractRoyalties_RoyaltyPaidInFull(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	txs := &fakeTxSource{trace: singleSaleTrace(creator, 500), fills: []model.FillEvent{fill}}
	royalties := &fakeRoyaltySource{}
	royalties.set(collection, 1, model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator, Bps: 500})
	royalties.set(collection, 1, model.ROYALTY_SPEC_OPENSEA, model.Royalty{Recipient: creator, Bps: 500})
	engine := newTestEngine(txs, royalties)

	result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), true, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(500), result.RoyaltyFeeBps)
	assert.Equal(t, int64(0), result.MarketplaceFeeBps)
	assert.Equal(t, []model.Royalty{{Recipient: creator, Bps: 500}}, result.RoyaltyFeeBreakdown)
	assert.True(t, result.PaidFullRoyalty)
}

func TestExtractRoyalties_PartialRoyalty(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	txs := &fakeTxSource{trace: singleSaleTrace(creator, 250), fills: []model.FillEvent{fill}}
	royalties := &fakeRoyaltySource{}
	royalties.set(collection, 1, model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator, Bps: 500})
	engine := newTestEngine(txs, royalties)

	result, err := engine.ExtractRoyalties(context.Background(), &fill, nil, true, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(250), result.RoyaltyFeeBps)
	assert.False(t, result.PaidFullRoyalty)
}

func TestExtractRoyalties_AboveCeilingExcluded(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	txs := &fakeTxSource{trace: singleSaleTrace(creator, 1600), fills: []model.FillEvent{fill}}
	royalties := &fakeRoyaltySource{}
	royalties.set(collection, 1, model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator, Bps: 1600})
	engine := newTestEngine(txs, royalties)

	result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), true, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Empty(t, result.RoyaltyFeeBreakdown)
	assert.Equal(t, int64(0), result.RoyaltyFeeBps)
	assert.False(t, result.PaidFullRoyalty)
}

func TestExtractRoyalties_NoTrace(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	engine := newTestEngine(&fakeTxSource{}, &fakeRoyaltySource{})

	result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), true, false)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestExtractRoyalties_TraceErrorIsAbsorbed(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	engine := newTestEngine(&fakeTxSource{traceErr: errors.New("rpc down")}, &fakeRoyaltySource{})

	result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), true, false)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestExtractRoyalties_CanceledContext(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	engine := newTestEngine(&fakeTxSource{trace: singleSaleTrace(marketFee, 500)}, &fakeRoyaltySource{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := engine.ExtractRoyalties(ctx, &fill, NewBatchContext(), true, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestExtractRoyalties_NoiseDoesNotChangeMarketplaceFee(t *testing.T) {
	conduit := "0x1e0049783f008a0085193e00003d00cd54003c71"

	cases := []struct {
		name  string
		kind  string
		extra []model.CallLog
	}{
		{name: "deny-listed intermediary", kind: "seaport-v1.5", extra: []model.CallLog{erc20Log(weth, buyer, conduit, 300, 0)}},
		{name: "wrapped native contract", kind: "seaport-v1.5", extra: []model.CallLog{erc20Log(weth, buyer, weth, 300, 0)}},
		{name: "amm pool", kind: "sudoswap", extra: []model.CallLog{erc20Log(weth, buyer, creator, 300, 0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fill := newFill(0, tc.kind, collection, 1, seller, 10000)
			baseline := &fakeTxSource{trace: singleSaleTrace(marketFee, 500), fills: []model.FillEvent{fill}}
			noisy := &fakeTxSource{trace: singleSaleTrace(marketFee, 500, tc.extra...), fills: []model.FillEvent{fill}}

			want, err := newTestEngine(baseline, &fakeRoyaltySource{}).ExtractRoyalties(context.Background(), &fill, nil, true, false)
			require.NoError(t, err)
			got, err := newTestEngine(noisy, &fakeRoyaltySource{}).ExtractRoyalties(context.Background(), &fill, nil, true, false)
			require.NoError(t, err)

			assert.Equal(t, want.MarketplaceFeeBps, got.MarketplaceFeeBps)
			assert.Equal(t, want.MarketplaceFeeBreakdown, got.MarketplaceFeeBreakdown)
			assert.Empty(t, got.RoyaltyFeeBreakdown)
		})
	}
}

func TestExtractRoyalties_Idempotent(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	txs := &fakeTxSource{trace: singleSaleTrace(creator, 500), fills: []model.FillEvent{fill}}
	royalties := &fakeRoyaltySource{}
	royalties.set(collection, 1, model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator, Bps: 500})
	engine := newTestEngine(txs, royalties)
	batch := NewBatchContext()

	first, err := engine.ExtractRoyalties(context.Background(), &fill, batch, true, false)
	require.NoError(t, err)
	second, err := engine.ExtractRoyalties(context.Background(), &fill, batch, true, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// 第二次调用复用批次内已加载的版税定义
	assert.Equal(t, len(RoyaltySpecs), royalties.calls)
}

// bundleTrace 旧协议一次打包两个不同合约的成交，转账顺序：费用、卖家、NFT
func bundleTrace() *model.CallTrace {
	call := exchangeCall(wyvern,
		erc20Log(weth, buyer, creator, 500, 0),
		erc20Log(weth, buyer, seller, 9500, 0),
		erc721Log(collection, seller, buyer, 1, 0),
		erc20Log(weth, buyer, creator2, 250, 0),
		erc20Log(weth, buyer, seller2, 9750, 0),
		erc721Log(collection2, seller2, buyer, 7, 0),
	)
	return &call
}

func TestExtractRoyalties_ReliableBundleSplit(t *testing.T) {
	fill1 := newFill(0, "wyvern-v2", collection, 1, seller, 10000)
	fill2 := newFill(1, "wyvern-v2", collection2, 7, seller2, 10000)
	txs := &fakeTxSource{trace: bundleTrace(), fills: []model.FillEvent{fill1, fill2}}
	royalties := &fakeRoyaltySource{}
	royalties.set(collection, 1, model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator, Bps: 500})
	royalties.set(collection2, 7, model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator2, Bps: 250})
	engine := newTestEngine(txs, royalties)
	batch := NewBatchContext()

	r1, err := engine.ExtractRoyalties(context.Background(), &fill1, batch, true, false)
	require.NoError(t, err)
	r2, err := engine.ExtractRoyalties(context.Background(), &fill2, batch, true, false)
	require.NoError(t, err)

	assert.Equal(t, []model.Royalty{{Recipient: creator, Bps: 500}}, r1.RoyaltyFeeBreakdown)
	assert.True(t, r1.PaidFullRoyalty)
	assert.Equal(t, []model.Royalty{{Recipient: creator2, Bps: 250}}, r2.RoyaltyFeeBreakdown)
	assert.True(t, r2.PaidFullRoyalty)

	for _, r := range []*model.AttributionResult{r1, r2} {
		assert.LessOrEqual(t, model.TotalBps(r.RoyaltyFeeBreakdown), int64(BPS_CEILING))
	}
}

type executionInfo struct {
	Module common.Address
	Data   []byte
	Value  *big.Int
}

func routerInput(t *testing.T, moduleInput []byte) hexutil.Bytes {
	input, err := calldata.RouterABI.Pack("execute", []executionInfo{{
		Module: common.HexToAddress(module),
		Data:   moduleInput,
		Value:  big.NewInt(0),
	}})
	require.NoError(t, err)
	return input
}

// routedTrace 路由 -> 模块 -> 交易所，聚合器费用由 routerLogs / moduleLogs 支付
func routedTrace(t *testing.T, routerLogs, moduleLogs []model.CallLog) *model.CallTrace {
	moduleInput := hexutil.Bytes{0x12, 0x34, 0x56, 0x78}
	exchange := exchangeCall(seaport,
		erc721Log(collection, seller, buyer, 1, 0),
		erc20Log(weth, buyer, seller, 9500, 0),
		erc20Log(weth, buyer, marketFee, 500, 0),
	)
	exchange.From = module
	return &model.CallTrace{
		Type:  model.CALL_TYPE_CALL,
		From:  buyer,
		To:    router,
		Input: routerInput(t, moduleInput),
		Logs:  routerLogs,
		Calls: []model.CallTrace{{
			Type:  model.CALL_TYPE_CALL,
			From:  router,
			To:    module,
			Input: moduleInput,
			Logs:  moduleLogs,
			Calls: []model.CallTrace{exchange},
		}},
	}
}

func TestExtractRoyalties_RouterFeeOnTop(t *testing.T) {
	cases := []struct {
		name       string
		routerLogs []model.CallLog
		moduleLogs []model.CallLog
	}{
		{name: "paid by router", routerLogs: []model.CallLog{erc20Log(weth, buyer, aggregator, 100, 1)}},
		{name: "paid by module", moduleLogs: []model.CallLog{erc20Log(weth, buyer, aggregator, 100, 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
			txs := &fakeTxSource{trace: routedTrace(t, tc.routerLogs, tc.moduleLogs), fills: []model.FillEvent{fill}}
			engine := newTestEngine(txs, &fakeRoyaltySource{})

			result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), true, false)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, []model.Royalty{{Recipient: aggregator, Bps: 100}}, result.RoyaltyFeeOnTop)
			assert.Equal(t, []model.Royalty{{Recipient: aggregator, Bps: 100}}, result.RoyaltyFeeBreakdown)
			assert.Equal(t, int64(0), result.RoyaltyFeeBps)
			assert.Equal(t, int64(500), result.MarketplaceFeeBps)
		})
	}
}

func TestExtractRoyalties_ForceOnChainKeepsCurrentFill(t *testing.T) {
	fill := newFill(0, "seaport-v1.5", collection, 1, seller, 10000)
	txs := &fakeTxSource{trace: singleSaleTrace(marketFee, 500)}
	engine := newTestEngine(txs, &fakeRoyaltySource{})

	result, err := engine.ExtractRoyalties(context.Background(), &fill, NewBatchContext(), false, true)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(500), result.MarketplaceFeeBps)
}

func TestExtractRoyalties_SweepSellersAreNotRoyalty(t *testing.T) {
	// 同一合约 10 件扫货，每件卖家 9500、创作者 500
	const items = 10
	var (
		logs    []model.CallLog
		fills   []model.FillEvent
		sellers = make(map[string]bool)
	)
	royalties := &fakeRoyaltySource{}
	for i := 0; i < items; i++ {
		maker := fmt.Sprintf("0x%040x", 0x600+i)
		sellers[maker] = true
		logs = append(logs,
			erc721Log(collection, maker, buyer, int64(i+1), 0),
			erc20Log(weth, buyer, maker, 9500, 0),
			erc20Log(weth, buyer, creator, 500, 0),
		)
		fills = append(fills, newFill(i, "seaport-v1.5", collection, int64(i+1), maker, 10000))
		royalties.set(collection, int64(i+1), model.ROYALTY_SPEC_ONCHAIN, model.Royalty{Recipient: creator, Bps: 500})
	}
	call := exchangeCall(seaport, logs...)
	engine := newTestEngine(&fakeTxSource{trace: &call, fills: fills}, royalties)
	batch := NewBatchContext()

	for i := range fills {
		result, err := engine.ExtractRoyalties(context.Background(), &fills[i], batch, true, false)
		require.NoError(t, err)
		require.NotNil(t, result)
		for _, r := range result.RoyaltyFeeBreakdown {
			assert.False(t, sellers[r.Recipient], "fill %d: seller %s booked as royalty", i, r.Recipient)
		}
		assert.LessOrEqual(t, result.RoyaltyFeeBps, int64(500))
	}

	first, err := engine.ExtractRoyalties(context.Background(), &fills[0], batch, true, false)
	require.NoError(t, err)
	assert.Equal(t, []model.Royalty{{Recipient: creator, Bps: 500}}, first.RoyaltyFeeBreakdown)
	assert.True(t, first.PaidFullRoyalty)
}
