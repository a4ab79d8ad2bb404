package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	CALL_TYPE_CALL         = "CALL"
	CALL_TYPE_DELEGATECALL = "DELEGATECALL"
	CALL_TYPE_STATICCALL   = "STATICCALL"
	CALL_TYPE_CALLCODE     = "CALLCODE"
	CALL_TYPE_CREATE       = "CREATE"
	CALL_TYPE_CREATE2      = "CREATE2"
)

// CallTrace callTracer(withLog) 输出的一个调用节点
type CallTrace struct {
	Type   string        `json:"type"`
	From   string        `json:"from"`
	To     string        `json:"to"`
	Value  *hexutil.Big  `json:"value,omitempty"`
	Input  hexutil.Bytes `json:"input"`
	Output hexutil.Bytes `json:"output,omitempty"`
	Error  string        `json:"error,omitempty"`
	Logs   []CallLog     `json:"logs,omitempty"`
	Calls  []CallTrace   `json:"calls,omitempty"`
}

// CallLog 调用内产生的事件，Position 为该日志之前已发生的子调用数量
type CallLog struct {
	Address  string         `json:"address"`
	Topics   []string       `json:"topics"`
	Data     hexutil.Bytes  `json:"data"`
	Position hexutil.Uint64 `json:"position"`
}

// Selector 调用的函数选择器，不足4字节返回空串
func (c *CallTrace) Selector() string {
	if len(c.Input) < 4 {
		return ""
	}
	return hexutil.Encode(c.Input[:4])
}

// Reverted 调用是否回滚
func (c *CallTrace) Reverted() bool {
	return c.Error != ""
}

// Normalize 递归统一地址小写
func (c *CallTrace) Normalize() {
	c.Type = strings.ToUpper(c.Type)
	c.From = strings.ToLower(c.From)
	c.To = strings.ToLower(c.To)
	for i := range c.Logs {
		c.Logs[i].Address = strings.ToLower(c.Logs[i].Address)
		for j := range c.Logs[i].Topics {
			c.Logs[i].Topics[j] = strings.ToLower(c.Logs[i].Topics[j])
		}
	}
	for i := range c.Calls {
		c.Calls[i].Normalize()
	}
}

// Walk 按执行顺序遍历未回滚的调用及其日志：先访问调用本身，
// 再按 Position 将日志与子调用交错访问
func (c *CallTrace) Walk(onCall func(call *CallTrace), onLog func(call *CallTrace, log *CallLog)) {
	if c == nil || c.Reverted() {
		return
	}
	if onCall != nil {
		onCall(c)
	}
	emitLogs := func(position int) {
		if onLog == nil {
			return
		}
		for i := range c.Logs {
			if int(c.Logs[i].Position) == position {
				onLog(c, &c.Logs[i])
			}
		}
	}
	for i := range c.Calls {
		emitLogs(i)
		c.Calls[i].Walk(onCall, onLog)
	}
	// 位置越界的日志统一放在最后
	if onLog != nil {
		for i := range c.Logs {
			if int(c.Logs[i].Position) >= len(c.Calls) {
				onLog(c, &c.Logs[i])
			}
		}
	}
}
