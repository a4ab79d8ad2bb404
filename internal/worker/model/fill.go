package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ORDER_SIDE_SELL = "sell"
	ORDER_SIDE_BUY  = "buy"
)

// FillEvent 一笔已索引的 NFT 成交
type FillEvent struct {
	TxHash        string           `gorm:"column:tx_hash;primaryKey" json:"txHash"`
	LogIndex      int              `gorm:"column:log_index;primaryKey" json:"logIndex"`
	BatchIndex    int              `gorm:"column:batch_index;primaryKey" json:"batchIndex"`
	OrderID       *string          `gorm:"column:order_id" json:"orderId,omitempty"`
	OrderKind     string           `gorm:"column:order_kind;not null" json:"orderKind"`
	OrderSide     string           `gorm:"column:order_side;not null" json:"orderSide"`
	Contract      string           `gorm:"column:contract;not null" json:"contract"`
	TokenID       string           `gorm:"column:token_id;not null" json:"tokenId"`
	Currency      string           `gorm:"column:currency;not null" json:"currency"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(78,0);not null" json:"price"`
	CurrencyPrice *decimal.Decimal `gorm:"column:currency_price;type:numeric(78,0)" json:"currencyPrice,omitempty"`
	Amount        string           `gorm:"column:amount;not null;default:1" json:"amount"`
	Maker         string           `gorm:"column:maker;not null" json:"maker"`
	Taker         string           `gorm:"column:taker;not null" json:"taker"`
	BlockNumber   uint64           `gorm:"column:block" json:"block"`
	Timestamp     int64            `gorm:"column:timestamp" json:"timestamp"`
}

func (FillEvent) TableName() string {
	return "fill_events"
}

// SettlementPrice 以实际支付币种计价的价格，未设置时回退到 Price
func (f *FillEvent) SettlementPrice() decimal.Decimal {
	if f.CurrencyPrice != nil {
		return *f.CurrencyPrice
	}
	return f.Price
}

// Seller 按成交方向取卖方
func (f *FillEvent) Seller() string {
	if f.OrderSide == ORDER_SIDE_BUY {
		return f.Taker
	}
	return f.Maker
}

// Buyer 按成交方向取买方
func (f *FillEvent) Buyer() string {
	if f.OrderSide == ORDER_SIDE_BUY {
		return f.Maker
	}
	return f.Taker
}

// SameToken 是否为同一合约同一 tokenId
func (f *FillEvent) SameToken(other *FillEvent) bool {
	return f.Contract == other.Contract && f.TokenID == other.TokenID
}

// Normalize 地址统一小写
func (f *FillEvent) Normalize() {
	f.TxHash = strings.ToLower(f.TxHash)
	f.Contract = strings.ToLower(f.Contract)
	f.Currency = strings.ToLower(f.Currency)
	f.Maker = strings.ToLower(f.Maker)
	f.Taker = strings.ToLower(f.Taker)
	if f.Amount == "" {
		f.Amount = "1"
	}
}

// FillBatchMessage Kafka 消息：同一笔交易内的全部成交
type FillBatchMessage struct {
	TxHash string      `json:"txHash"`
	Fills  []FillEvent `json:"fills"`
}
