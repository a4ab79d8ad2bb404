package onchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const seaportEventsABI = `[
  {
    "anonymous": false,
    "type": "event",
    "name": "OrderFulfilled",
    "inputs": [
      {"indexed": false, "name": "orderHash", "type": "bytes32"},
      {"indexed": true, "name": "offerer", "type": "address"},
      {"indexed": true, "name": "zone", "type": "address"},
      {"indexed": false, "name": "recipient", "type": "address"},
      {
        "indexed": false,
        "name": "offer",
        "type": "tuple[]",
        "components": [
          {"name": "itemType", "type": "uint8"},
          {"name": "token", "type": "address"},
          {"name": "identifier", "type": "uint256"},
          {"name": "amount", "type": "uint256"}
        ]
      },
      {
        "indexed": false,
        "name": "consideration",
        "type": "tuple[]",
        "components": [
          {"name": "itemType", "type": "uint8"},
          {"name": "token", "type": "address"},
          {"name": "identifier", "type": "uint256"},
          {"name": "amount", "type": "uint256"},
          {"name": "recipient", "type": "address"}
        ]
      }
    ]
  }
]`

// Seaport ItemType
const (
	itemTypeNative uint8 = iota
	itemTypeERC20
	itemTypeERC721
	itemTypeERC1155
	itemTypeERC721WithCriteria
	itemTypeERC1155WithCriteria
)

var (
	seaportAbi            abi.ABI
	seaportFulfilledTopic string
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(seaportEventsABI))
	if err != nil {
		panic(err)
	}
	seaportAbi = parsed
	seaportFulfilledTopic = strings.ToLower(parsed.Events["OrderFulfilled"].ID.Hex())
}

type SeaportOrderFulfilled struct {
	OrderHash     [32]byte       `json:"orderHash"`
	Recipient     common.Address `json:"recipient"`
	Offer         []SpentItem    `json:"offer"`
	Consideration []ReceivedItem `json:"consideration"`

	Offerer common.Address
	Zone    common.Address
}

type SpentItem struct {
	ItemType   uint8          `json:"itemType"`
	Token      common.Address `json:"token"`
	Identifier *big.Int       `json:"identifier"`
	Amount     *big.Int       `json:"amount"`
}

type ReceivedItem struct {
	ItemType   uint8          `json:"itemType"`
	Token      common.Address `json:"token"`
	Identifier *big.Int       `json:"identifier"`
	Amount     *big.Int       `json:"amount"`
	Recipient  common.Address `json:"recipient"`
}

func decodeSeaportOrderFulfilled(topics []string, data []byte) (*SeaportOrderFulfilled, error) {
	var event SeaportOrderFulfilled
	if err := seaportAbi.UnpackIntoInterface(&event, "OrderFulfilled", data); err != nil {
		return nil, fmt.Errorf("unpack seaport event: %w", err)
	}
	if len(topics) >= 2 {
		event.Offerer = common.HexToAddress(topics[1])
	}
	if len(topics) >= 3 {
		event.Zone = common.HexToAddress(topics[2])
	}
	return &event, nil
}

func isNFTItem(itemType uint8) bool {
	switch itemType {
	case itemTypeERC721, itemTypeERC1155, itemTypeERC721WithCriteria, itemTypeERC1155WithCriteria:
		return true
	}
	return false
}

func isCurrencyItem(itemType uint8) bool {
	return itemType == itemTypeNative || itemType == itemTypeERC20
}
