// Package network 链上已知地址与协议分类
package network

import (
	"strings"

	"web3-royalty/internal/worker/model"
)

const (
	MAINNET_CHAIN_ID = 1

	NativeAddress      = "0x0000000000000000000000000000000000000000"
	NativeAliasAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

// Network 单条链上参与版税归因的地址与协议表
type Network struct {
	ChainID uint64
	// Slug 市场接口中的链名
	Slug   string
	Native string
	// WNative 包装原生币合约
	WNative string
	// BlurEth Blur 池化的 ETH，与原生币视为同一结算币种
	BlurEth string
	// Exchanges orderKind -> 交易所合约地址
	Exchanges map[string]string
	// Routers 已知聚合路由合约
	Routers []string
	// NonRoyaltyAddresses 永远不会是版税收款方的中间地址
	NonRoyaltyAddresses []string
	// AmmOrderKinds 以曲线定价的池子协议，结构上不支付版税
	AmmOrderKinds []string
	// BundleOrderKinds 会在一笔交易内打包不同合约成交的旧协议
	BundleOrderKinds []string
	// ReliableOrderKinds 转账顺序由合约语义保证的协议，是 BundleOrderKinds 的子集
	ReliableOrderKinds []string
}

// Mainnet 以太坊主网默认配置
func Mainnet() *Network {
	return &Network{
		ChainID: MAINNET_CHAIN_ID,
		Slug:    "ethereum",
		Native:  NativeAddress,
		WNative: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		BlurEth: "0x0000000000a39bb272e79075ade125fd351887ac",
		Exchanges: map[string]string{
			"seaport":          "0x00000000006c3852cbef3e08e8df289169ede581",
			"seaport-v1.4":     "0x00000000000001ad428e4906ae43d8f9852d0dd6",
			"seaport-v1.5":     "0x00000000000000adc04c56bf30ac9d3c0aaf14dc",
			"seaport-v1.6":     "0x0000000000000068f116a894984e2db1123eb395",
			"blur":             "0x000000000000ad05ccc4f10045630fb830b95127",
			"blur-v2":          "0xb2ecfe4e4d61f8790bbb9de2d1259b9e2410cea5",
			"looks-rare":       "0x59728544b08ab483533076417fbbb2fd0b17ce3a",
			"looks-rare-v2":    "0x0000000000e655fae4d56241588680f86e3b2377",
			"x2y2":             "0x74312363e45dcaba76c59ec49a7aa8a65a67eed3",
			"wyvern-v2":        "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b",
			"wyvern-v2.3":      "0x7f268357a8c2552623316e2562d90e642bb538e5",
			"foundation":       "0xcda72070e455bb31c7690a170224ce43623d0b6f",
			"zeroex-v4-erc721": "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
		},
		Routers: []string{
			"0xc2c862322e9c97d6244a3506655da95f05246fd8",
		},
		NonRoyaltyAddresses: []string{
			// seaport conduit
			"0x1e0049783f008a0085193e00003d00cd54003c71",
			// blur execution delegate
			"0x00000000000111abe46ff893f3b2fdf1f759a8a8",
			// looks-rare transfer manager
			"0xf42aa99f011a1fa7cda90e5e98b277e306bca83e",
		},
		AmmOrderKinds: []string{
			"sudoswap", "sudoswap-v2", "nftx", "nftx-v3", "caviar-v1", "collectionxyz", "midaswap",
		},
		BundleOrderKinds: []string{
			"wyvern-v2", "wyvern-v2.3", "looks-rare", "x2y2", "foundation", "zeroex-v4-erc721",
		},
		ReliableOrderKinds: []string{
			"wyvern-v2", "wyvern-v2.3", "x2y2",
		},
	}
}

// Normalize 地址统一小写
func (n *Network) Normalize() {
	n.Native = strings.ToLower(n.Native)
	n.WNative = strings.ToLower(n.WNative)
	n.BlurEth = strings.ToLower(n.BlurEth)
	for k, v := range n.Exchanges {
		n.Exchanges[k] = strings.ToLower(v)
	}
	lowerAll(n.Routers)
	lowerAll(n.NonRoyaltyAddresses)
}

func lowerAll(list []string) {
	for i := range list {
		list[i] = strings.ToLower(list[i])
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ExchangeOf orderKind 对应的交易所地址
func (n *Network) ExchangeOf(orderKind string) (string, bool) {
	addr, ok := n.Exchanges[orderKind]
	return addr, ok
}

// OrderKindOf 交易所地址对应的 orderKind
func (n *Network) OrderKindOf(exchange string) (string, bool) {
	exchange = strings.ToLower(exchange)
	for kind, addr := range n.Exchanges {
		if addr == exchange {
			return kind, true
		}
	}
	return "", false
}

func (n *Network) IsRouter(addr string) bool {
	return contains(n.Routers, addr)
}

func (n *Network) IsAmm(orderKind string) bool {
	return contains(n.AmmOrderKinds, orderKind)
}

func (n *Network) IsBundleKind(orderKind string) bool {
	return contains(n.BundleOrderKinds, orderKind)
}

func (n *Network) IsReliableKind(orderKind string) bool {
	return contains(n.ReliableOrderKinds, orderKind)
}

// IsNonRoyalty 永远不会是版税收款方的地址：包装原生币、原生币伪地址及已知中间合约
func (n *Network) IsNonRoyalty(addr string) bool {
	switch addr {
	case n.WNative, n.Native, NativeAliasAddress, n.BlurEth:
		return true
	}
	return contains(n.NonRoyaltyAddresses, addr)
}

// CurrencyTags 与结算币种等价的 token 标记：原生币与 Blur ETH 互相等价
func (n *Network) CurrencyTags(currency string) []string {
	currency = strings.ToLower(currency)
	if currency == n.Native || currency == NativeAliasAddress || currency == n.BlurEth {
		return []string{model.NativeTag(n.Native), model.ERC20Tag(n.BlurEth)}
	}
	return []string{model.ERC20Tag(currency)}
}

// Override 用配置覆盖交易所地址并追加路由地址，调用后需要 Normalize
func (n *Network) Override(exchanges map[string]string, routers []string) {
	for kind, addr := range exchanges {
		if kind == "" || addr == "" {
			continue
		}
		n.Exchanges[kind] = addr
	}
	for _, router := range routers {
		if !contains(n.Routers, strings.ToLower(router)) {
			n.Routers = append(n.Routers, router)
		}
	}
}
