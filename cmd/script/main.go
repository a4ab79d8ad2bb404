package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"web3-royalty/internal/worker"
	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/repository"
	"web3-royalty/internal/worker/royalty"
	"web3-royalty/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 校验脚本：不依赖索引库，从 trace 还原交易内的成交并逐笔计算版税拆分

const (
	CfgTx      = "tx"
	CfgConfig  = "config"
	CfgCache   = "cache"
	CfgTimeout = "timeout"
)

var (
	txHash     string
	configPath string
	useCache   bool
	timeout    time.Duration

	rootCmd = &cobra.Command{
		Use:   "script",
		Short: "Attribute royalties for every fill reconstructed from a transaction trace",
		Args:  cobra.NoArgs,
		RunE:  runScript,
	}
)

type fillAttribution struct {
	Fill   model.FillEvent          `json:"fill"`
	Result *model.AttributionResult `json:"result"`
	Error  string                   `json:"error,omitempty"`
}

func init() {
	rootCmd.Flags().StringVar(&txHash, CfgTx, "", "transaction hash")
	rootCmd.Flags().StringVar(&configPath, CfgConfig, "config/config.worker.yaml", "config file")
	rootCmd.Flags().BoolVar(&useCache, CfgCache, false, "read trace and fills through the cache")
	rootCmd.Flags().DurationVar(&timeout, CfgTimeout, time.Minute, "overall timeout")
	_ = rootCmd.MarkFlagRequired(CfgTx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runScript(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// 初始化 trace provider
	logger.InitTrace("web3-royalty", "script")
	// 启动主 span
	ctx, span := logger.StartSpan(cmd.Context(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("script")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 初始化 repository
	repo := repository.New(cfg, tl)
	defer repo.Close()

	components := worker.NewComponents(cfg, tl, repo)
	if err := components.DAOs.FeeRecipientDAO.Reload(ctx); err != nil {
		tl.Warn("⚠️ load fee recipients failed, using defaults", zap.Error(err))
	}

	onChainData, err := components.TxCache.GetOnChainData(ctx, txHash, useCache)
	if err != nil {
		tl.Error("Failed to reconstruct fills", zap.String("tx_hash", txHash), zap.Error(err))
		return err
	}

	batch := royalty.NewBatchContext()
	var output []fillAttribution
	for _, data := range onChainData {
		for i := range data.Fills {
			fill := data.Fills[i]
			result, err := components.Engine.ExtractRoyalties(ctx, &fill, batch, useCache, true)
			item := fillAttribution{Fill: fill, Result: result}
			if err != nil {
				item.Error = err.Error()
			}
			output = append(output, item)
		}
	}

	out, err := sonic.ConfigStd.MarshalIndent(output, "", "  ")
	if err != nil {
		tl.Error("Failed to marshal result", zap.Error(err))
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	tl.Info("Task completed successfully", zap.Int("fills", len(output)), zap.Duration("taken_time", time.Since(startTime)))
	return nil
}
