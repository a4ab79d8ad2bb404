package onchain

import (
	"math/big"
	"testing"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSeaport    = "0x00000000000000adc04c56bf30ac9d3c0aaf14dc"
	testCollection = "0x00000000000000000000000000000000000000c0"
	testSeller     = "0x00000000000000000000000000000000000000a1"
	testBuyer      = "0x00000000000000000000000000000000000000b1"
	testFee        = "0x00000000000000000000000000000000000000f1"
	testWeth       = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

func topicOf(addr string) string {
	return common.BytesToHash(common.HexToAddress(addr).Bytes()).Hex()
}

func fulfilledLog(t *testing.T, offerer, recipient string, offer []SpentItem, consideration []ReceivedItem) model.CallLog {
	data, err := seaportAbi.Events["OrderFulfilled"].Inputs.NonIndexed().Pack(
		[32]byte{0x01}, common.HexToAddress(recipient), offer, consideration)
	require.NoError(t, err)
	return model.CallLog{
		Address: testSeaport,
		Topics:  []string{seaportFulfilledTopic, topicOf(offerer), topicOf("0x0000000000000000000000000000000000000000")},
		Data:    data,
	}
}

func testNetwork() *network.Network {
	n := network.Mainnet()
	n.Normalize()
	return n
}

func TestGetOnChainData_Listing(t *testing.T) {
	offer := []SpentItem{{ItemType: itemTypeERC721, Token: common.HexToAddress(testCollection), Identifier: big.NewInt(7), Amount: big.NewInt(1)}}
	consideration := []ReceivedItem{
		{ItemType: itemTypeNative, Token: common.Address{}, Identifier: big.NewInt(0), Amount: big.NewInt(9500), Recipient: common.HexToAddress(testSeller)},
		{ItemType: itemTypeNative, Token: common.Address{}, Identifier: big.NewInt(0), Amount: big.NewInt(500), Recipient: common.HexToAddress(testFee)},
	}
	trace := &model.CallTrace{
		Type: model.CALL_TYPE_CALL,
		From: testBuyer,
		To:   testSeaport,
		Logs: []model.CallLog{
			// 非成交事件也占用日志序号
			{Address: testWeth, Topics: []string{"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"}},
			fulfilledLog(t, testSeller, testBuyer, offer, consideration),
		},
	}

	data := GetOnChainData("0xABC", trace, testNetwork())
	require.Len(t, data, 1)
	assert.Equal(t, "seaport-v1.5", data[0].OrderKind)
	assert.Equal(t, testSeaport, data[0].Exchange)
	assert.Equal(t, 1, data[0].LogIndex)

	require.Len(t, data[0].Fills, 1)
	fill := data[0].Fills[0]
	assert.Equal(t, "0xabc", fill.TxHash)
	assert.Equal(t, 1, fill.LogIndex)
	assert.Equal(t, 1, fill.BatchIndex)
	assert.Equal(t, model.ORDER_SIDE_SELL, fill.OrderSide)
	assert.Equal(t, testCollection, fill.Contract)
	assert.Equal(t, "7", fill.TokenID)
	assert.Equal(t, network.NativeAddress, fill.Currency)
	assert.True(t, decimal.NewFromInt(10000).Equal(fill.Price))
	assert.Equal(t, testSeller, fill.Maker)
	assert.Equal(t, testBuyer, fill.Taker)
}

func TestGetFillEventsFromTraceOnChain_AcceptBid(t *testing.T) {
	offer := []SpentItem{{ItemType: itemTypeERC20, Token: common.HexToAddress(testWeth), Identifier: big.NewInt(0), Amount: big.NewInt(10000)}}
	consideration := []ReceivedItem{
		{ItemType: itemTypeERC721, Token: common.HexToAddress(testCollection), Identifier: big.NewInt(1), Amount: big.NewInt(1), Recipient: common.HexToAddress(testBuyer)},
		{ItemType: itemTypeERC721, Token: common.HexToAddress(testCollection), Identifier: big.NewInt(2), Amount: big.NewInt(1), Recipient: common.HexToAddress(testBuyer)},
		{ItemType: itemTypeERC20, Token: common.HexToAddress(testWeth), Identifier: big.NewInt(0), Amount: big.NewInt(250), Recipient: common.HexToAddress(testFee)},
	}
	trace := &model.CallTrace{
		Type: model.CALL_TYPE_CALL,
		From: testSeller,
		To:   testSeaport,
		Logs: []model.CallLog{fulfilledLog(t, testBuyer, testSeller, offer, consideration)},
	}

	fills := GetFillEventsFromTraceOnChain("0xabc", trace, testNetwork())
	require.Len(t, fills, 2)
	for i, fill := range fills {
		assert.Equal(t, model.ORDER_SIDE_BUY, fill.OrderSide)
		assert.Equal(t, i+1, fill.BatchIndex)
		assert.Equal(t, testWeth, fill.Currency)
		assert.True(t, decimal.NewFromInt(5000).Equal(fill.Price))
		assert.Equal(t, testBuyer, fill.Maker)
		// 接受出价时卖方是 taker
		assert.Equal(t, testSeller, fill.Seller())
	}
	assert.Equal(t, "1", fills[0].TokenID)
	assert.Equal(t, "2", fills[1].TokenID)
}

func TestGetOnChainData_UnknownExchange(t *testing.T) {
	offer := []SpentItem{{ItemType: itemTypeERC721, Token: common.HexToAddress(testCollection), Identifier: big.NewInt(7), Amount: big.NewInt(1)}}
	log := fulfilledLog(t, testSeller, testBuyer, offer, nil)
	log.Address = "0x0000000000000000000000000000000000000abc"
	trace := &model.CallTrace{Type: model.CALL_TYPE_CALL, To: log.Address, Logs: []model.CallLog{log}}

	assert.Empty(t, GetOnChainData("0xabc", trace, testNetwork()))

	trace.Error = "execution reverted"
	trace.To = testSeaport
	trace.Logs[0].Address = testSeaport
	assert.Empty(t, GetOnChainData("0xabc", trace, testNetwork()))
}
