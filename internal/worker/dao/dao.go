package dao

import (
	"web3-royalty/internal/worker/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DAOManager 管理所有DAO实例
type DAOManager struct {
	FillEventDAO    FillEventDAO
	RoyaltyDAO      RoyaltyDAO
	FeeRecipientDAO FeeRecipientDAO
}

// NewDAOManager 创建DAO管理器实例
func NewDAOManager(cfg *config.Config, tl *zap.Logger, db *gorm.DB, rds *redis.Client, onChain OnChainRoyaltyReader, collections CollectionRoyaltyFetcher) *DAOManager {
	return &DAOManager{
		FillEventDAO:    NewFillEventDAO(db),
		RoyaltyDAO:      NewRoyaltyDAO(cfg, tl, db, rds, onChain, collections),
		FeeRecipientDAO: NewFeeRecipientDAO(tl, db),
	}
}
