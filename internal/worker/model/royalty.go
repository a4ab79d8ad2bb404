package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const (
	ROYALTY_SPEC_ONCHAIN = "onchain"
	ROYALTY_SPEC_OPENSEA = "opensea"

	FEE_RECIPIENT_KIND_MARKETPLACE = "marketplace"
	FEE_RECIPIENT_KIND_ROYALTY     = "royalty"
)

// Royalty 收款地址与 bps
type Royalty struct {
	Recipient string `json:"recipient"`
	Bps       int64  `json:"bps"`
}

// TotalBps 一组版税定义的 bps 之和
func TotalBps(royalties []Royalty) int64 {
	var total int64
	for _, r := range royalties {
		total += r.Bps
	}
	return total
}

// AttributionResult 单笔成交的版税/手续费拆分结果
type AttributionResult struct {
	RoyaltyFeeBps           int64     `json:"royaltyFeeBps"`
	MarketplaceFeeBps       int64     `json:"marketplaceFeeBps"`
	RoyaltyFeeBreakdown     []Royalty `json:"royaltyFeeBreakdown"`
	MarketplaceFeeBreakdown []Royalty `json:"marketplaceFeeBreakdown"`
	RoyaltyFeeOnTop         []Royalty `json:"royaltyFeeOnTop"`
	PaidFullRoyalty         bool      `json:"paidFullRoyalty"`
}

// RoyaltyResultEvent 推送到下游的结果消息
type RoyaltyResultEvent struct {
	TxHash     string             `json:"txHash"`
	LogIndex   int                `json:"logIndex"`
	BatchIndex int                `json:"batchIndex"`
	OrderKind  string             `json:"orderKind"`
	Contract   string             `json:"contract"`
	TokenID    string             `json:"tokenId"`
	Result     *AttributionResult `json:"result"`
	Status     string             `json:"status"`
	CreatedAt  int64              `json:"createdAt"`
}

func NewRoyaltyResultEvent(fill *FillEvent, result *AttributionResult, status string) RoyaltyResultEvent {
	return RoyaltyResultEvent{
		TxHash:     fill.TxHash,
		LogIndex:   fill.LogIndex,
		BatchIndex: fill.BatchIndex,
		OrderKind:  fill.OrderKind,
		Contract:   fill.Contract,
		TokenID:    fill.TokenID,
		Result:     result,
		Status:     status,
		CreatedAt:  time.Now().UnixMilli(),
	}
}

// RoyaltyDefinition 版税定义表，token_id 为空表示整个合约
type RoyaltyDefinition struct {
	ID         int64                       `gorm:"column:id;primaryKey;autoIncrement:true"`
	Contract   string                      `gorm:"column:contract;not null;uniqueIndex:uk_royalty_definition"`
	TokenID    string                      `gorm:"column:token_id;not null;default:'';uniqueIndex:uk_royalty_definition"`
	Spec       string                      `gorm:"column:spec;not null;uniqueIndex:uk_royalty_definition"`
	Recipients datatypes.JSONSlice[Royalty] `gorm:"column:recipients"`
	UpdatedAt  time.Time                   `gorm:"column:updated_at"`
}

func (RoyaltyDefinition) TableName() string {
	return "royalty_definitions"
}

// FeeRecipient 已知手续费收款地址，OrderKinds 为空表示对全部协议生效
type FeeRecipient struct {
	Address    string         `gorm:"column:address;primaryKey"`
	Kind       string         `gorm:"column:kind;primaryKey"`
	OrderKinds pq.StringArray `gorm:"column:order_kinds;type:text[]"`
}

func (FeeRecipient) TableName() string {
	return "fee_recipients"
}
