package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TOKEN_KIND_NATIVE  = "native"
	TOKEN_KIND_ERC20   = "erc20"
	TOKEN_KIND_ERC721  = "erc721"
	TOKEN_KIND_ERC1155 = "erc1155"
)

// Payment 从 trace 中提取的一次资产转移，按执行顺序排列
type Payment struct {
	Token  string `json:"token"` // native:<addr> | erc20:<addr> | erc721:<addr>:<id> | erc1155:<addr>:<id>
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// TokenTag 解析后的 token 标记
type TokenTag struct {
	Kind    string
	Address string
	TokenID string
}

func NativeTag(addr string) string {
	return fmt.Sprintf("%s:%s", TOKEN_KIND_NATIVE, strings.ToLower(addr))
}

func ERC20Tag(addr string) string {
	return fmt.Sprintf("%s:%s", TOKEN_KIND_ERC20, strings.ToLower(addr))
}

func ERC721Tag(addr, tokenID string) string {
	return fmt.Sprintf("%s:%s:%s", TOKEN_KIND_ERC721, strings.ToLower(addr), tokenID)
}

func ERC1155Tag(addr, tokenID string) string {
	return fmt.Sprintf("%s:%s:%s", TOKEN_KIND_ERC1155, strings.ToLower(addr), tokenID)
}

// ParseTokenTag 解析 token 标记，格式不合法时 Kind 为空
func ParseTokenTag(token string) TokenTag {
	parts := strings.Split(token, ":")
	switch len(parts) {
	case 2:
		return TokenTag{Kind: parts[0], Address: parts[1]}
	case 3:
		return TokenTag{Kind: parts[0], Address: parts[1], TokenID: parts[2]}
	}
	return TokenTag{}
}

func (t TokenTag) IsNFT() bool {
	return t.Kind == TOKEN_KIND_ERC721 || t.Kind == TOKEN_KIND_ERC1155
}

func (t TokenTag) IsCurrency() bool {
	return t.Kind == TOKEN_KIND_NATIVE || t.Kind == TOKEN_KIND_ERC20
}

func (p *Payment) Tag() TokenTag {
	return ParseTokenTag(p.Token)
}

func (p *Payment) IsNFT() bool {
	return p.Tag().IsNFT()
}

func (p *Payment) IsCurrency() bool {
	return p.Tag().IsCurrency()
}

// Value 金额，非法值视为 0
func (p *Payment) Value() decimal.Decimal {
	v, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Equal 判断两笔转账完全一致
func (p *Payment) Equal(other *Payment) bool {
	return p.Token == other.Token && p.From == other.From && p.To == other.To && p.Value().Equal(other.Value())
}

// BalanceState 单个地址在各 token 上的净变化
type BalanceState struct {
	TokenBalanceState map[string]decimal.Decimal `json:"tokenBalanceState"`
}

// StateChange address -> 净余额变化
type StateChange map[string]*BalanceState

// Balance 取地址在某个 token 上的净变化，不存在返回 0
func (s StateChange) Balance(address, token string) decimal.Decimal {
	st, ok := s[address]
	if !ok {
		return decimal.Zero
	}
	return st.TokenBalanceState[token]
}

func (s StateChange) add(address, token string, delta decimal.Decimal) {
	st, ok := s[address]
	if !ok {
		st = &BalanceState{TokenBalanceState: make(map[string]decimal.Decimal)}
		s[address] = st
	}
	st.TokenBalanceState[token] = st.TokenBalanceState[token].Add(delta)
}

// Apply 记入一笔转账
func (s StateChange) Apply(p *Payment) {
	amount := p.Value()
	if amount.IsZero() {
		return
	}
	s.add(p.From, p.Token, amount.Neg())
	s.add(p.To, p.Token, amount)
}
