package evm_client

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client 同一连接上的原始 rpc（debug_* 接口）与 ethclient
type Client struct {
	RPC *rpc.Client
	Eth *ethclient.Client
}

// Init evm client
func Init(rawurl string) *Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rpcClient, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		panic(fmt.Sprintf("Init evm client error: %v", err))
	}

	return &Client{
		RPC: rpcClient,
		Eth: ethclient.NewClient(rpcClient),
	}
}

func (c *Client) Close() {
	if c != nil && c.RPC != nil {
		c.RPC.Close()
	}
}
