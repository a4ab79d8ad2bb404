package job

import (
	"context"
	"fmt"
	"time"

	"web3-royalty/internal/worker/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DEFINITION_MAX_AGE = 7 * 24 * time.Hour

// DefinitionCleanup 删除过期的版税定义，下次查询时重新从链上或市场拉取
type DefinitionCleanup struct {
	db     *gorm.DB
	logger *zap.Logger
	maxAge time.Duration
}

func NewDefinitionCleanup(db *gorm.DB, logger *zap.Logger) *DefinitionCleanup {
	return &DefinitionCleanup{db: db, logger: logger, maxAge: DEFINITION_MAX_AGE}
}

func (j *DefinitionCleanup) Run(ctx context.Context) error {
	if j.db == nil {
		return fmt.Errorf("db is nil")
	}
	cutoff := time.Now().Add(-j.maxAge)
	res := j.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&model.RoyaltyDefinition{})
	if res.Error != nil {
		return fmt.Errorf("delete stale royalty definitions: %w", res.Error)
	}
	j.logger.Info("cleaned stale royalty definitions", zap.Time("cutoff", cutoff), zap.Int64("rows", res.RowsAffected))
	return nil
}
