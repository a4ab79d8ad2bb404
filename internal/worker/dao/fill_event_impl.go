package dao

import (
	"context"
	"strings"

	"web3-royalty/internal/worker/model"

	"gorm.io/gorm"
)

type fillEventDAO struct {
	db *gorm.DB
}

func NewFillEventDAO(db *gorm.DB) FillEventDAO {
	return &fillEventDAO{db: db}
}

func (f *fillEventDAO) GetFillEventsInTransaction(ctx context.Context, txHash string) ([]model.FillEvent, error) {
	var fills []model.FillEvent
	err := f.db.WithContext(ctx).
		Where("tx_hash = ?", strings.ToLower(txHash)).
		Order("log_index ASC, batch_index ASC").
		Find(&fills).Error
	if err != nil {
		return nil, err
	}
	return fills, nil
}
