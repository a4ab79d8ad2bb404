package royalty

import (
	"math/big"
	"strings"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	transferTopic       = strings.ToLower(crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")).Hex())
	transferSingleTopic = strings.ToLower(crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)")).Hex())
	transferBatchTopic  = strings.ToLower(crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])")).Hex())

	transferBatchArgs = mustBatchArgs()
)

func mustBatchArgs() abi.Arguments {
	uintArr, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "ids", Type: uintArr}, {Name: "values", Type: uintArr}}
}

// ExtractPayments 按执行顺序提取 trace（子树）中的全部资产转移
func ExtractPayments(trace *model.CallTrace) []model.Payment {
	var payments []model.Payment
	trace.Walk(
		func(call *model.CallTrace) {
			if p, ok := nativePayment(call); ok {
				payments = append(payments, p)
			}
		},
		func(_ *model.CallTrace, log *model.CallLog) {
			payments = append(payments, logPayments(log)...)
		},
	)
	return payments
}

// ExtractStateChange 汇总转账得到每个地址的净余额变化
func ExtractStateChange(trace *model.CallTrace) model.StateChange {
	return StateChangeOf(ExtractPayments(trace))
}

// StateChangeOf 由转账列表计算净余额变化
func StateChangeOf(payments []model.Payment) model.StateChange {
	state := make(model.StateChange)
	for i := range payments {
		state.Apply(&payments[i])
	}
	return state
}

func nativePayment(call *model.CallTrace) (model.Payment, bool) {
	switch call.Type {
	case model.CALL_TYPE_DELEGATECALL, model.CALL_TYPE_STATICCALL:
		return model.Payment{}, false
	}
	if call.Value == nil || call.Value.ToInt().Sign() <= 0 || call.From == call.To {
		return model.Payment{}, false
	}
	return model.Payment{
		Token:  model.NativeTag(network.NativeAddress),
		From:   call.From,
		To:     call.To,
		Amount: call.Value.ToInt().String(),
	}, true
}

func topicAddress(topic string) string {
	return strings.ToLower(common.HexToAddress(topic).Hex())
}

func topicUint(topic string) string {
	return common.HexToHash(topic).Big().String()
}

func logPayments(log *model.CallLog) []model.Payment {
	if len(log.Topics) == 0 {
		return nil
	}
	switch log.Topics[0] {
	case transferTopic:
		switch len(log.Topics) {
		case 3:
			// ERC20
			if len(log.Data) < 32 {
				return nil
			}
			return []model.Payment{{
				Token:  model.ERC20Tag(log.Address),
				From:   topicAddress(log.Topics[1]),
				To:     topicAddress(log.Topics[2]),
				Amount: new(big.Int).SetBytes(log.Data[:32]).String(),
			}}
		case 4:
			// ERC721
			return []model.Payment{{
				Token:  model.ERC721Tag(log.Address, topicUint(log.Topics[3])),
				From:   topicAddress(log.Topics[1]),
				To:     topicAddress(log.Topics[2]),
				Amount: "1",
			}}
		}
	case transferSingleTopic:
		if len(log.Topics) != 4 || len(log.Data) < 64 {
			return nil
		}
		id := new(big.Int).SetBytes(log.Data[:32])
		value := new(big.Int).SetBytes(log.Data[32:64])
		return []model.Payment{{
			Token:  model.ERC1155Tag(log.Address, id.String()),
			From:   topicAddress(log.Topics[2]),
			To:     topicAddress(log.Topics[3]),
			Amount: value.String(),
		}}
	case transferBatchTopic:
		if len(log.Topics) != 4 {
			return nil
		}
		values, err := transferBatchArgs.Unpack(log.Data)
		if err != nil || len(values) != 2 {
			return nil
		}
		ids, ok1 := values[0].([]*big.Int)
		amounts, ok2 := values[1].([]*big.Int)
		if !ok1 || !ok2 || len(ids) != len(amounts) {
			return nil
		}
		from, to := topicAddress(log.Topics[2]), topicAddress(log.Topics[3])
		payments := make([]model.Payment, 0, len(ids))
		for i := range ids {
			payments = append(payments, model.Payment{
				Token:  model.ERC1155Tag(log.Address, ids[i].String()),
				From:   from,
				To:     to,
				Amount: amounts[i].String(),
			})
		}
		return payments
	}
	return nil
}
