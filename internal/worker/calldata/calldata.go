// Package calldata 解析聚合路由与交易所订单的 calldata
package calldata

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// 递归解析路由时的最大深度
const maxUnwrapDepth = 3

// Execution 路由中的一次模块调用
type Execution struct {
	Sighash string `json:"sighash"`
	Module  string `json:"module"`
}

// Fee 订单声明的手续费
type Fee struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

// Order 从 calldata 还原的订单
type Order struct {
	Kind     string `json:"kind"`
	Contract string `json:"contract"`
	TokenID  string `json:"tokenId"`
	Fees     []Fee  `json:"fees"`
}

// FeeTo 订单声明给某地址的手续费
func (o *Order) FeeTo(recipient string) (decimal.Decimal, bool) {
	for _, fee := range o.Fees {
		if fee.Recipient == recipient {
			return fee.Amount, true
		}
	}
	return decimal.Zero, false
}

type executionInfo struct {
	Module common.Address
	Data   []byte
	Value  *big.Int
}

type additionalRecipient struct {
	Amount    *big.Int
	Recipient common.Address
}

type basicOrderParameters struct {
	ConsiderationToken                common.Address
	ConsiderationIdentifier           *big.Int
	ConsiderationAmount               *big.Int
	Offerer                           common.Address
	Zone                              common.Address
	OfferToken                        common.Address
	OfferIdentifier                   *big.Int
	OfferAmount                       *big.Int
	BasicOrderType                    uint8
	StartTime                         *big.Int
	EndTime                           *big.Int
	ZoneHash                          [32]byte
	Salt                              *big.Int
	OffererConduitKey                 [32]byte
	FulfillerConduitKey               [32]byte
	TotalOriginalAdditionalRecipients *big.Int
	AdditionalRecipients              []additionalRecipient
	Signature                         []byte
}

func methodOf(parsed abi.ABI, input []byte) (*abi.Method, bool) {
	if len(input) < 4 {
		return nil, false
	}
	method, err := parsed.MethodById(input[:4])
	if err != nil {
		return nil, false
	}
	return method, true
}

// IsRouterCall 输入是否为已知路由入口
func IsRouterCall(input []byte) bool {
	_, ok := methodOf(RouterABI, input)
	return ok
}

// RouterSelectors 已知路由入口的函数选择器
func RouterSelectors() []string {
	selectors := make([]string, 0, len(RouterABI.Methods))
	for _, m := range RouterABI.Methods {
		selectors = append(selectors, hexutil.Encode(m.ID))
	}
	return selectors
}

func unpackExecutions(input []byte) ([]executionInfo, error) {
	method, ok := methodOf(RouterABI, input)
	if !ok {
		return nil, fmt.Errorf("not a router call")
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	var args struct {
		ExecutionInfos  []executionInfo
		AmountCheckInfo struct {
			Target    common.Address
			Data      []byte
			Threshold *big.Int
		}
	}
	if method.Name == "execute" {
		var single struct {
			ExecutionInfos []executionInfo
		}
		if err := method.Inputs.Copy(&single, values); err != nil {
			return nil, fmt.Errorf("copy %s: %w", method.Name, err)
		}
		return single.ExecutionInfos, nil
	}
	if err := method.Inputs.Copy(&args, values); err != nil {
		return nil, fmt.Errorf("copy %s: %w", method.Name, err)
	}
	return args.ExecutionInfos, nil
}

// ParseExecutionsFromRouterCalldata 解析路由 calldata 中按声明顺序排列的模块调用
func ParseExecutionsFromRouterCalldata(input []byte) ([]Execution, error) {
	infos, err := unpackExecutions(input)
	if err != nil {
		return nil, err
	}
	executions := make([]Execution, 0, len(infos))
	for _, info := range infos {
		if len(info.Data) < 4 {
			continue
		}
		executions = append(executions, Execution{
			Sighash: hexutil.Encode(info.Data[:4]),
			Module:  strings.ToLower(info.Module.Hex()),
		})
	}
	return executions, nil
}

// ExtractOrdersFromCalldata 从 calldata 中还原订单及其声明的手续费，无法识别时返回空
func ExtractOrdersFromCalldata(input []byte) ([]Order, error) {
	return extractOrders(input, 0)
}

func extractOrders(input []byte, depth int) ([]Order, error) {
	if depth > maxUnwrapDepth {
		return nil, nil
	}
	if IsRouterCall(input) {
		infos, err := unpackExecutions(input)
		if err != nil {
			return nil, err
		}
		var orders []Order
		for _, info := range infos {
			inner, err := extractOrders(info.Data, depth+1)
			if err != nil {
				continue
			}
			orders = append(orders, inner...)
		}
		return orders, nil
	}

	method, ok := methodOf(SeaportABI, input)
	if !ok {
		return nil, nil
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	var args struct {
		Parameters basicOrderParameters
	}
	if err := method.Inputs.Copy(&args, values); err != nil {
		return nil, fmt.Errorf("copy %s: %w", method.Name, err)
	}
	return []Order{basicOrderToOrder(&args.Parameters)}, nil
}

func basicOrderToOrder(p *basicOrderParameters) Order {
	order := Order{Kind: "seaport"}
	// route = basicOrderType / 4，4、5 为接受出价，NFT 位于 consideration
	route := p.BasicOrderType / 4
	if route >= 4 {
		order.Contract = strings.ToLower(p.ConsiderationToken.Hex())
		order.TokenID = bigString(p.ConsiderationIdentifier)
	} else {
		order.Contract = strings.ToLower(p.OfferToken.Hex())
		order.TokenID = bigString(p.OfferIdentifier)
	}
	for _, r := range p.AdditionalRecipients {
		if r.Amount == nil {
			continue
		}
		order.Fees = append(order.Fees, Fee{
			Recipient: strings.ToLower(r.Recipient.Hex()),
			Amount:    decimal.NewFromBigInt(r.Amount, 0),
		})
	}
	return order
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
