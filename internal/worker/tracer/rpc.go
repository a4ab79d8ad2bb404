// Package tracer 通过节点 debug 接口获取交易 trace
package tracer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"web3-royalty/internal/worker/model"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const defaultTraceTimeout = 10 * time.Second

// RPCTracer debug_traceTransaction + callTracer(withLog)
type RPCTracer struct {
	tl      *zap.Logger
	client  *rpc.Client
	timeout time.Duration
}

func NewRPCTracer(tl *zap.Logger, client *rpc.Client, timeout time.Duration) *RPCTracer {
	if timeout <= 0 {
		timeout = defaultTraceTimeout
	}
	return &RPCTracer{tl: tl, client: client, timeout: timeout}
}

type traceConfig struct {
	Tracer       string          `json:"tracer"`
	TracerConfig map[string]bool `json:"tracerConfig"`
	Timeout      string          `json:"timeout,omitempty"`
}

// isNotFound 节点对不存在的交易返回的错误
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found")
}

// FetchTransactionTrace 交易不存在时返回 nil, nil
func (t *RPCTracer) FetchTransactionTrace(ctx context.Context, txHash string) (*model.CallTrace, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var raw json.RawMessage
	err := t.client.CallContext(ctx, &raw, "debug_traceTransaction", txHash, traceConfig{
		Tracer:       "callTracer",
		TracerConfig: map[string]bool{"withLog": true},
		Timeout:      t.timeout.String(),
	})
	if err != nil {
		if isNotFound(err) {
			t.tl.Info("trace not found", zap.String("tx_hash", txHash), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("debug_traceTransaction %s: %w", txHash, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var trace model.CallTrace
	if err := sonic.Unmarshal(raw, &trace); err != nil {
		return nil, fmt.Errorf("decode trace %s: %w", txHash, err)
	}
	trace.Normalize()
	return &trace, nil
}
