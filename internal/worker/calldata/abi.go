package calldata

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const routerABIJSON = `[
  {
    "name": "execute",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "executionInfos",
        "type": "tuple[]",
        "components": [
          {"name": "module", "type": "address"},
          {"name": "data", "type": "bytes"},
          {"name": "value", "type": "uint256"}
        ]
      }
    ],
    "outputs": []
  },
  {
    "name": "executeWithAmountCheck",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      {
        "name": "executionInfos",
        "type": "tuple[]",
        "components": [
          {"name": "module", "type": "address"},
          {"name": "data", "type": "bytes"},
          {"name": "value", "type": "uint256"}
        ]
      },
      {
        "name": "amountCheckInfo",
        "type": "tuple",
        "components": [
          {"name": "target", "type": "address"},
          {"name": "data", "type": "bytes"},
          {"name": "threshold", "type": "uint256"}
        ]
      }
    ],
    "outputs": []
  }
]`

const basicOrderComponents = `[
  {"name": "considerationToken", "type": "address"},
  {"name": "considerationIdentifier", "type": "uint256"},
  {"name": "considerationAmount", "type": "uint256"},
  {"name": "offerer", "type": "address"},
  {"name": "zone", "type": "address"},
  {"name": "offerToken", "type": "address"},
  {"name": "offerIdentifier", "type": "uint256"},
  {"name": "offerAmount", "type": "uint256"},
  {"name": "basicOrderType", "type": "uint8"},
  {"name": "startTime", "type": "uint256"},
  {"name": "endTime", "type": "uint256"},
  {"name": "zoneHash", "type": "bytes32"},
  {"name": "salt", "type": "uint256"},
  {"name": "offererConduitKey", "type": "bytes32"},
  {"name": "fulfillerConduitKey", "type": "bytes32"},
  {"name": "totalOriginalAdditionalRecipients", "type": "uint256"},
  {
    "name": "additionalRecipients",
    "type": "tuple[]",
    "components": [
      {"name": "amount", "type": "uint256"},
      {"name": "recipient", "type": "address"}
    ]
  },
  {"name": "signature", "type": "bytes"}
]`

var seaportABIJSON = `[
  {
    "name": "fulfillBasicOrder",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [{"name": "parameters", "type": "tuple", "components": ` + basicOrderComponents + `}],
    "outputs": [{"name": "fulfilled", "type": "bool"}]
  },
  {
    "name": "fulfillBasicOrder_efficient_6GL6yc",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [{"name": "parameters", "type": "tuple", "components": ` + basicOrderComponents + `}],
    "outputs": [{"name": "fulfilled", "type": "bool"}]
  }
]`

var (
	RouterABI  = mustParseABI(routerABIJSON)
	SeaportABI = mustParseABI(seaportABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
