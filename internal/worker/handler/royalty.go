package handler

import (
	"context"

	"web3-royalty/internal/worker/model"
	"web3-royalty/internal/worker/service"

	"go.uber.org/zap"
)

type RoyaltyHandler struct {
	tl      *zap.Logger
	service *service.RoyaltyAttribution
}

func NewRoyaltyHandler(logger *zap.Logger, attribution *service.RoyaltyAttribution) *RoyaltyHandler {
	return &RoyaltyHandler{
		tl:      logger,
		service: attribution,
	}
}

func (h *RoyaltyHandler) HandleBatch(ctx context.Context, msg model.FillBatchMessage) {
	if len(msg.Fills) == 0 {
		return
	}
	events := h.service.ProcessBatch(ctx, msg)
	h.tl.Debug("royalty batch processed", zap.String("tx_hash", msg.TxHash), zap.Int("fills", len(msg.Fills)), zap.Int("results", len(events)))
}

func (h *RoyaltyHandler) Stop() {
	h.service.Close()
}
