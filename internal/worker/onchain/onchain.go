// Package onchain 不依赖索引库，直接从 trace 还原成交
package onchain

import (
	"math/big"
	"strings"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/network"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// OnChainData 一个订单成交事件及其还原出的 FillEvent
type OnChainData struct {
	OrderKind string            `json:"orderKind"`
	Exchange  string            `json:"exchange"`
	OrderHash string            `json:"orderHash"`
	LogIndex  int               `json:"logIndex"`
	Fills     []model.FillEvent `json:"fills"`
}

// GetOnChainData 遍历 trace 日志，解析已知交易所的成交事件
func GetOnChainData(txHash string, trace *model.CallTrace, net *network.Network) []OnChainData {
	var (
		result   []OnChainData
		logIndex int
	)
	trace.Walk(nil, func(call *model.CallTrace, log *model.CallLog) {
		idx := logIndex
		logIndex++
		if len(log.Topics) == 0 || log.Topics[0] != seaportFulfilledTopic {
			return
		}
		kind, ok := net.OrderKindOf(log.Address)
		if !ok || !strings.HasPrefix(kind, "seaport") {
			return
		}
		event, err := decodeSeaportOrderFulfilled(log.Topics, log.Data)
		if err != nil {
			return
		}
		data := OnChainData{
			OrderKind: kind,
			Exchange:  log.Address,
			OrderHash: hexutil.Encode(event.OrderHash[:]),
			LogIndex:  idx,
		}
		data.Fills = seaportFills(strings.ToLower(txHash), idx, kind, event, net)
		result = append(result, data)
	})
	return result
}

// GetFillEventsFromTraceOnChain 从 trace 还原的全部成交，顺序与日志顺序一致
func GetFillEventsFromTraceOnChain(txHash string, trace *model.CallTrace, net *network.Network) []model.FillEvent {
	var fills []model.FillEvent
	for _, data := range GetOnChainData(txHash, trace, net) {
		fills = append(fills, data.Fills...)
	}
	return fills
}

type nftItem struct {
	token      string
	identifier string
	amount     string
}

func seaportFills(txHash string, logIndex int, kind string, event *SeaportOrderFulfilled, net *network.Network) []model.FillEvent {
	var (
		nfts     []nftItem
		currency string
		total    = decimal.Zero
		side     = model.ORDER_SIDE_SELL
	)

	for _, item := range event.Offer {
		if isNFTItem(item.ItemType) {
			nfts = append(nfts, nftItem{addrOf(item.Token.Hex()), bigString(item.Identifier), bigString(item.Amount)})
		}
	}
	if len(nfts) > 0 {
		for _, item := range event.Consideration {
			if isCurrencyItem(item.ItemType) {
				currency = currencyOf(item.ItemType, item.Token.Hex(), net)
				total = total.Add(decimal.NewFromBigInt(item.Amount, 0))
			}
		}
	} else {
		// 接受出价：NFT 出现在 consideration，价格来自 offer
		side = model.ORDER_SIDE_BUY
		for _, item := range event.Consideration {
			if isNFTItem(item.ItemType) {
				nfts = append(nfts, nftItem{addrOf(item.Token.Hex()), bigString(item.Identifier), bigString(item.Amount)})
			}
		}
		for _, item := range event.Offer {
			if isCurrencyItem(item.ItemType) {
				currency = currencyOf(item.ItemType, item.Token.Hex(), net)
				total = total.Add(decimal.NewFromBigInt(item.Amount, 0))
			}
		}
	}
	if len(nfts) == 0 {
		return nil
	}

	// 一个订单包含多个 NFT 时均分价格
	price := total.Div(decimal.NewFromInt(int64(len(nfts)))).Floor()
	maker := addrOf(event.Offerer.Hex())
	taker := addrOf(event.Recipient.Hex())
	fills := make([]model.FillEvent, 0, len(nfts))
	for i, nft := range nfts {
		fills = append(fills, model.FillEvent{
			TxHash:     txHash,
			LogIndex:   logIndex,
			BatchIndex: i + 1,
			OrderKind:  kind,
			OrderSide:  side,
			Contract:   nft.token,
			TokenID:    nft.identifier,
			Currency:   currency,
			Price:      price,
			Amount:     nft.amount,
			Maker:      maker,
			Taker:      taker,
		})
	}
	return fills
}

func currencyOf(itemType uint8, token string, net *network.Network) string {
	if itemType == itemTypeNative {
		return net.Native
	}
	return addrOf(token)
}

func addrOf(hex string) string {
	return strings.ToLower(hex)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
