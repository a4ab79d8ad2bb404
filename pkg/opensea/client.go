package opensea

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/model"
	"web3-royalty/pkg/httpclient"

	"go.uber.org/zap"
)

// OpenSea 自身收取的平台费地址，不属于版税
var platformFeeRecipients = map[string]struct{}{
	"0x0000a26b00c1f0df003000390027140000faa719": {},
	"0x8de9c5a032463c561423387a9648c5c7bcc5bc90": {},
}

type OpenseaClient struct {
	baseURL    string
	chain      string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewOpenseaClient(cfg config.OpenseaConfig, chain string, logger *zap.Logger) *OpenseaClient {
	// 创建HTTP客户端配置
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RateLimit:  cfg.RateLimit,
		MaxRetries: 2,
		XApiKey:    cfg.APIKey,
	}

	return &OpenseaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		chain:      chain,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

// GetCollectionRoyalties 合约对应 collection 声明的创作者费用，未收录时返回空
func (c *OpenseaClient) GetCollectionRoyalties(ctx context.Context, contract string) ([]model.Royalty, error) {
	var contractResp ContractResp
	url := fmt.Sprintf("%s/api/v2/chain/%s/contract/%s", c.baseURL, c.chain, contract)
	if err := c.httpClient.Get(ctx, url, nil, nil, &contractResp); err != nil {
		if httpclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch opensea contract %s: %w", contract, err)
	}
	if contractResp.Collection == "" {
		return nil, nil
	}

	var collectionResp CollectionResp
	url = fmt.Sprintf("%s/api/v2/collections/%s", c.baseURL, contractResp.Collection)
	if err := c.httpClient.Get(ctx, url, nil, nil, &collectionResp); err != nil {
		if httpclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch opensea collection %s: %w", contractResp.Collection, err)
	}

	return feesToRoyalties(collectionResp.Fees), nil
}

func feesToRoyalties(fees []Fee) []model.Royalty {
	var royalties []model.Royalty
	for _, fee := range fees {
		recipient := strings.ToLower(fee.Recipient)
		if _, ok := platformFeeRecipients[recipient]; ok {
			continue
		}
		bps := int64(math.Round(fee.Fee * 100))
		if bps <= 0 || recipient == "" {
			continue
		}
		royalties = append(royalties, model.Royalty{Recipient: recipient, Bps: bps})
	}
	return royalties
}
