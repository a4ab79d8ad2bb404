package royalty

import (
	"math/big"
	"testing"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPayments_ExecutionOrder(t *testing.T) {
	trace := &model.CallTrace{
		Type:  model.CALL_TYPE_CALL,
		From:  buyer,
		To:    seaport,
		Value: (*hexutil.Big)(big.NewInt(1000)),
		Logs: []model.CallLog{
			erc721Log(collection, seller, buyer, 1, 0),
			erc20Log(weth, buyer, seller, 50, 1),
		},
		Calls: []model.CallTrace{
			{Type: model.CALL_TYPE_CALL, From: seaport, To: seller, Value: (*hexutil.Big)(big.NewInt(900))},
			// 回滚的调用不产生转账
			{Type: model.CALL_TYPE_CALL, From: seaport, To: creator, Value: (*hexutil.Big)(big.NewInt(100)), Error: "execution reverted"},
			// staticcall 不转移价值
			{Type: model.CALL_TYPE_STATICCALL, From: seaport, To: creator, Value: (*hexutil.Big)(big.NewInt(100))},
		},
	}

	payments := ExtractPayments(trace)
	require.Len(t, payments, 4)
	assert.Equal(t, model.Payment{Token: model.NativeTag(network.NativeAddress), From: buyer, To: seaport, Amount: "1000"}, payments[0])
	assert.Equal(t, model.ERC721Tag(collection, "1"), payments[1].Token)
	assert.True(t, payments[1].IsNFT())
	assert.Equal(t, model.Payment{Token: model.NativeTag(network.NativeAddress), From: seaport, To: seller, Amount: "900"}, payments[2])
	assert.Equal(t, model.Payment{Token: model.ERC20Tag(weth), From: buyer, To: seller, Amount: "50"}, payments[3])
	assert.True(t, payments[3].IsCurrency())
}

func TestExtractPayments_ERC1155(t *testing.T) {
	operator := "0x00000000000000000000000000000000000000f0"
	single := model.CallLog{
		Address: collection,
		Topics:  []string{transferSingleTopic, addressTopic(operator), addressTopic(seller), addressTopic(buyer)},
		Data:    append(uintWord(5), uintWord(3)...),
	}
	batchData, err := transferBatchArgs.Pack([]*big.Int{big.NewInt(1), big.NewInt(2)}, []*big.Int{big.NewInt(10), big.NewInt(20)})
	require.NoError(t, err)
	batch := model.CallLog{
		Address: collection,
		Topics:  []string{transferBatchTopic, addressTopic(operator), addressTopic(seller), addressTopic(buyer)},
		Data:    batchData,
	}
	trace := &model.CallTrace{Type: model.CALL_TYPE_CALL, To: seaport, Logs: []model.CallLog{single, batch}}

	payments := ExtractPayments(trace)
	require.Len(t, payments, 3)
	assert.Equal(t, model.Payment{Token: model.ERC1155Tag(collection, "5"), From: seller, To: buyer, Amount: "3"}, payments[0])
	assert.Equal(t, model.Payment{Token: model.ERC1155Tag(collection, "1"), From: seller, To: buyer, Amount: "10"}, payments[1])
	assert.Equal(t, model.Payment{Token: model.ERC1155Tag(collection, "2"), From: seller, To: buyer, Amount: "20"}, payments[2])
}

func TestExtractPayments_Garbled(t *testing.T) {
	assert.Empty(t, ExtractPayments(&model.CallTrace{}))
	assert.Empty(t, ExtractPayments(nil))

	trace := &model.CallTrace{Logs: []model.CallLog{
		{Address: weth, Topics: []string{transferTopic}},
		{Address: weth, Topics: []string{transferTopic, addressTopic(buyer), addressTopic(seller)}, Data: []byte{0x01}},
		{Address: weth, Topics: []string{common.Hash{}.Hex()}},
	}}
	assert.Empty(t, ExtractPayments(trace))
}

func TestExtractStateChange(t *testing.T) {
	state := ExtractStateChange(singleSaleTrace(marketFee, 500))

	assert.Equal(t, "-10000", state.Balance(buyer, model.ERC20Tag(weth)).String())
	assert.Equal(t, "9500", state.Balance(seller, model.ERC20Tag(weth)).String())
	assert.Equal(t, "500", state.Balance(marketFee, model.ERC20Tag(weth)).String())
	assert.Equal(t, "1", state.Balance(buyer, model.ERC721Tag(collection, "1")).String())
	assert.True(t, state.Balance(creator, model.ERC20Tag(weth)).IsZero())
}
