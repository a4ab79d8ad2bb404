package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseTokenTag(t *testing.T) {
	tests := []struct {
		token    string
		want     TokenTag
		nft      bool
		currency bool
	}{
		{NativeTag("0x0000000000000000000000000000000000000000"), TokenTag{Kind: TOKEN_KIND_NATIVE, Address: "0x0000000000000000000000000000000000000000"}, false, true},
		{ERC20Tag("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), TokenTag{Kind: TOKEN_KIND_ERC20, Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"}, false, true},
		{ERC721Tag("0xC0", "7"), TokenTag{Kind: TOKEN_KIND_ERC721, Address: "0xc0", TokenID: "7"}, true, false},
		{ERC1155Tag("0xC0", "8"), TokenTag{Kind: TOKEN_KIND_ERC1155, Address: "0xc0", TokenID: "8"}, true, false},
		{"garbage", TokenTag{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := ParseTokenTag(tt.token)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.nft, got.IsNFT())
			assert.Equal(t, tt.currency, got.IsCurrency())
		})
	}
}

func TestStateChange_Apply(t *testing.T) {
	weth := ERC20Tag("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	s := StateChange{}
	s.Apply(&Payment{Token: weth, From: "0xb1", To: "0xa1", Amount: "9500"})
	s.Apply(&Payment{Token: weth, From: "0xb1", To: "0xf1", Amount: "500"})
	s.Apply(&Payment{Token: weth, From: "0xb1", To: "0xf1", Amount: "0"})
	s.Apply(&Payment{Token: weth, From: "0xb1", To: "0xf1", Amount: "bad"})

	assert.True(t, decimal.NewFromInt(-10000).Equal(s.Balance("0xb1", weth)))
	assert.True(t, decimal.NewFromInt(9500).Equal(s.Balance("0xa1", weth)))
	assert.True(t, decimal.NewFromInt(500).Equal(s.Balance("0xf1", weth)))
	assert.True(t, s.Balance("0xdead", weth).IsZero())
}

func TestFillEvent_Sides(t *testing.T) {
	f := FillEvent{TxHash: "0xABC", Contract: "0xC0", Maker: "0xA1", Taker: "0xB1", OrderSide: ORDER_SIDE_SELL, Price: decimal.NewFromInt(100)}
	f.Normalize()
	assert.Equal(t, "0xabc", f.TxHash)
	assert.Equal(t, "1", f.Amount)
	assert.Equal(t, "0xa1", f.Seller())
	assert.Equal(t, "0xb1", f.Buyer())

	f.OrderSide = ORDER_SIDE_BUY
	assert.Equal(t, "0xb1", f.Seller())
	assert.Equal(t, "0xa1", f.Buyer())

	assert.True(t, decimal.NewFromInt(100).Equal(f.SettlementPrice()))
	cp := decimal.NewFromInt(42)
	f.CurrencyPrice = &cp
	assert.True(t, cp.Equal(f.SettlementPrice()))

	other := FillEvent{Contract: "0xc0", TokenID: f.TokenID}
	assert.True(t, f.SameToken(&other))
}

func TestTotalBps(t *testing.T) {
	assert.Equal(t, int64(750), TotalBps([]Royalty{{Recipient: "0x1", Bps: 500}, {Recipient: "0x2", Bps: 250}}))
	assert.Zero(t, TotalBps(nil))
}
