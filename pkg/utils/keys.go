package utils

import "fmt"

func RoyaltyTraceKey(chainId uint64, txHash string) string {
	return fmt.Sprintf("royalty:trace:%d:%s", chainId, txHash)
}

func RoyaltyFillsKey(chainId uint64, txHash string) string {
	return fmt.Sprintf("royalty:fills:%d:%s", chainId, txHash)
}

func RoyaltyDefinitionKey(chainId uint64, contract, tokenId, spec string) string {
	return fmt.Sprintf("royalty:definition:%d:%s:%s:%s", chainId, contract, tokenId, spec)
}
