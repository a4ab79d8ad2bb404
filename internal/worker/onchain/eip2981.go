package onchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const eip2981ABI = `[{
  "name": "royaltyInfo",
  "type": "function",
  "stateMutability": "view",
  "inputs": [{"name": "tokenId", "type": "uint256"}, {"name": "salePrice", "type": "uint256"}],
  "outputs": [{"name": "receiver", "type": "address"}, {"name": "royaltyAmount", "type": "uint256"}]
}]`

// royaltySalePrice 以 10000 作为售价，返回的版税金额即 bps
var royaltySalePrice = big.NewInt(10000)

var royaltyInfoAbi abi.ABI

func init() {
	var err error
	royaltyInfoAbi, err = abi.JSON(strings.NewReader(eip2981ABI))
	if err != nil {
		panic(err)
	}
}

// ContractCaller ethclient.Client 满足该接口
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RoyaltyInfoReader 读取 EIP-2981 royaltyInfo
type RoyaltyInfoReader struct {
	caller ContractCaller
}

func NewRoyaltyInfoReader(caller ContractCaller) *RoyaltyInfoReader {
	return &RoyaltyInfoReader{caller: caller}
}

// RoyaltyBps 返回收款地址与 bps。合约未实现 EIP-2981 时调用会失败，由调用方决定是否忽略
func (r *RoyaltyInfoReader) RoyaltyBps(ctx context.Context, contract, tokenID string) (string, int64, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", 0, fmt.Errorf("invalid token id %q", tokenID)
	}
	input, err := royaltyInfoAbi.Pack("royaltyInfo", id, royaltySalePrice)
	if err != nil {
		return "", 0, err
	}
	to := common.HexToAddress(contract)
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return "", 0, fmt.Errorf("call royaltyInfo on %s: %w", contract, err)
	}
	values, err := royaltyInfoAbi.Unpack("royaltyInfo", output)
	if err != nil || len(values) != 2 {
		return "", 0, fmt.Errorf("unpack royaltyInfo from %s: %v", contract, err)
	}
	receiver, ok1 := values[0].(common.Address)
	amount, ok2 := values[1].(*big.Int)
	if !ok1 || !ok2 {
		return "", 0, fmt.Errorf("unexpected royaltyInfo output from %s", contract)
	}
	if receiver == (common.Address{}) || !amount.IsInt64() {
		return "", 0, nil
	}
	return strings.ToLower(receiver.Hex()), amount.Int64(), nil
}
