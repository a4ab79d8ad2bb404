package job

import (
	"context"

	"web3-royalty/internal/worker/dao"

	"go.uber.org/zap"
)

// FeeRecipientsReload 定时从数据库刷新已知手续费收款地址
type FeeRecipientsReload struct {
	dao dao.FeeRecipientDAO
	tl  *zap.Logger
}

func NewFeeRecipientsReload(feeRecipients dao.FeeRecipientDAO, logger *zap.Logger) *FeeRecipientsReload {
	return &FeeRecipientsReload{
		dao: feeRecipients,
		tl:  logger,
	}
}

func (j *FeeRecipientsReload) Run(ctx context.Context) error {
	if err := j.dao.Reload(ctx); err != nil {
		return err
	}
	j.tl.Info("fee recipients reloaded", zap.Int("count", len(j.dao.List())))
	return nil
}
