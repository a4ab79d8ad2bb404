package royalty

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"
	"web3-royalty/internal/worker/onchain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	weth        = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	seaport     = "0x00000000000000adc04c56bf30ac9d3c0aaf14dc"
	wyvern      = "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b"
	router      = "0xc2c862322e9c97d6244a3506655da95f05246fd8"
	module      = "0x00000000000000000000000000000000000000aa"
	collection  = "0x0000000000000000000000000000000000000c01"
	collection2 = "0x0000000000000000000000000000000000000c02"
	seller      = "0x0000000000000000000000000000000000000501"
	seller2     = "0x0000000000000000000000000000000000000502"
	buyer       = "0x0000000000000000000000000000000000000b01"
	marketFee   = "0x0000a26b00c1f0df003000390027140000faa719"
	creator     = "0x00000000000000000000000000000000000000c1"
	creator2    = "0x00000000000000000000000000000000000000c2"
	aggregator  = "0x00000000000000000000000000000000000000ee"
	txHash      = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

func addressTopic(addr string) string {
	return common.BytesToHash(common.HexToAddress(addr).Bytes()).Hex()
}

func uintTopic(v int64) string {
	return common.BigToHash(big.NewInt(v)).Hex()
}

func uintWord(v int64) []byte {
	return common.BigToHash(big.NewInt(v)).Bytes()
}

func erc20Log(token, from, to string, amount int64, position int) model.CallLog {
	return model.CallLog{
		Address:  token,
		Topics:   []string{transferTopic, addressTopic(from), addressTopic(to)},
		Data:     uintWord(amount),
		Position: hexutil.Uint64(position),
	}
}

func erc721Log(contract, from, to string, tokenID int64, position int) model.CallLog {
	return model.CallLog{
		Address:  contract,
		Topics:   []string{transferTopic, addressTopic(from), addressTopic(to), uintTopic(tokenID)},
		Position: hexutil.Uint64(position),
	}
}

func exchangeCall(to string, logs ...model.CallLog) model.CallTrace {
	return model.CallTrace{
		Type:  model.CALL_TYPE_CALL,
		From:  buyer,
		To:    to,
		Input: hexutil.Bytes{0xfb, 0x0f, 0x3e, 0xe1},
		Logs:  logs,
	}
}

func newFill(logIndex int, kind, contract string, tokenID int64, maker string, price int64) model.FillEvent {
	return model.FillEvent{
		TxHash:     txHash,
		LogIndex:   logIndex,
		BatchIndex: 1,
		OrderKind:  kind,
		OrderSide:  model.ORDER_SIDE_SELL,
		Contract:   contract,
		TokenID:    fmt.Sprint(tokenID),
		Currency:   weth,
		Price:      decimal.NewFromInt(price),
		Amount:     "1",
		Maker:      maker,
		Taker:      buyer,
	}
}

type fakeTxSource struct {
	mu         sync.Mutex
	trace      *model.CallTrace
	fills      []model.FillEvent
	onChain    []onchain.OnChainData
	traceErr   error
	traceCalls int
}

func (f *fakeTxSource) GetTrace(ctx context.Context, txHash string, useCache bool) (*model.CallTrace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.traceCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.trace, f.traceErr
}

func (f *fakeTxSource) GetFillEvents(ctx context.Context, txHash string, useCache bool) ([]model.FillEvent, error) {
	return f.fills, nil
}

func (f *fakeTxSource) GetOnChainData(ctx context.Context, txHash string, useCache bool) ([]onchain.OnChainData, error) {
	return f.onChain, nil
}

type fakeRoyaltySource struct {
	mu    sync.Mutex
	defs  map[string][]model.Royalty
	calls int
}

func (f *fakeRoyaltySource) set(contract string, tokenID int64, spec string, royalties ...model.Royalty) {
	if f.defs == nil {
		f.defs = make(map[string][]model.Royalty)
	}
	f.defs[fmt.Sprintf("%s:%d:%s", contract, tokenID, spec)] = royalties
}

func (f *fakeRoyaltySource) GetRoyalties(ctx context.Context, contract, tokenID, spec string) ([]model.Royalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.defs[fmt.Sprintf("%s:%s:%s", contract, tokenID, spec)], nil
}

type fakeFeeRecipients map[string]bool

func (f fakeFeeRecipients) IsKnownMarketplaceFeeRecipient(address, orderKind string) bool {
	return f[address]
}

func newTestEngine(txs TxSource, royalties RoyaltySource) *Engine {
	return NewEngine(zap.NewNop(), network.Mainnet(), txs, royalties, fakeFeeRecipients{marketFee: true})
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
