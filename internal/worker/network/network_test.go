package network

import (
	"testing"

	"web3-royalty/internal/worker/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainnet_Classification(t *testing.T) {
	n := Mainnet()
	n.Normalize()

	kind, ok := n.OrderKindOf("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC")
	require.True(t, ok)
	assert.Equal(t, "seaport-v1.5", kind)

	assert.True(t, n.IsAmm("sudoswap"))
	assert.False(t, n.IsAmm("seaport"))
	assert.True(t, n.IsReliableKind("x2y2"))
	assert.False(t, n.IsReliableKind("looks-rare"))
	assert.True(t, n.IsBundleKind("looks-rare"))

	assert.True(t, n.IsNonRoyalty(n.WNative))
	assert.True(t, n.IsNonRoyalty("0x1e0049783f008a0085193e00003d00cd54003c71"))
	assert.False(t, n.IsNonRoyalty("0x00000000000000000000000000000000000000c1"))
}

func TestCurrencyTags(t *testing.T) {
	n := Mainnet()
	n.Normalize()

	native := n.CurrencyTags(NativeAddress)
	assert.ElementsMatch(t, []string{model.NativeTag(n.Native), model.ERC20Tag(n.BlurEth)}, native)
	assert.Equal(t, native, n.CurrencyTags(NativeAliasAddress))

	weth := n.CurrencyTags("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	assert.Equal(t, []string{model.ERC20Tag(n.WNative)}, weth)
}

func TestOverride(t *testing.T) {
	n := Mainnet()
	n.Override(map[string]string{
		"seaport-v1.5": "0x00000000000000000000000000000000000000AA",
		"":             "0x00000000000000000000000000000000000000bb",
	}, []string{
		"0x00000000000000000000000000000000000000CC",
		"0xc2c862322e9c97d6244a3506655da95f05246fd8",
	})
	n.Normalize()

	addr, ok := n.ExchangeOf("seaport-v1.5")
	require.True(t, ok)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", addr)
	_, ok = n.ExchangeOf("")
	assert.False(t, ok)

	assert.True(t, n.IsRouter("0x00000000000000000000000000000000000000cc"))
	assert.Len(t, n.Routers, 2)
}
