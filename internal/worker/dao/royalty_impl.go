package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"web3-royalty/internal/worker/config"
	"web3-royalty/internal/worker/model"
	"web3-royalty/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ROYALTY_LOCAL_CACHE_TTL = 10 * time.Minute
	ROYALTY_REDIS_CACHE_TTL = 6 * time.Hour
)

// royaltyDAO 本地缓存 -> Redis -> 数据库 -> 链上/市场接口
type royaltyDAO struct {
	tl          *zap.Logger
	chainID     uint64
	db          *gorm.DB
	rds         *redis.Client
	localCache  *cache.Cache
	onChain     OnChainRoyaltyReader
	collections CollectionRoyaltyFetcher
}

func NewRoyaltyDAO(cfg *config.Config, tl *zap.Logger, db *gorm.DB, rds *redis.Client, onChain OnChainRoyaltyReader, collections CollectionRoyaltyFetcher) RoyaltyDAO {
	return &royaltyDAO{
		tl:          tl,
		chainID:     cfg.Rpc.ChainID,
		db:          db,
		rds:         rds,
		localCache:  cache.New(ROYALTY_LOCAL_CACHE_TTL, time.Minute),
		onChain:     onChain,
		collections: collections,
	}
}

func (r *royaltyDAO) GetRoyalties(ctx context.Context, contract, tokenID, spec string) ([]model.Royalty, error) {
	contract = strings.ToLower(contract)
	cacheKey := utils.RoyaltyDefinitionKey(r.chainID, contract, tokenID, spec)

	// 先查本地缓存
	if cached, found := r.localCache.Get(cacheKey); found {
		if royalties, ok := cached.([]model.Royalty); ok {
			return royalties, nil
		}
	}

	// 再查Redis缓存
	if r.rds != nil {
		cached, err := r.rds.Get(ctx, cacheKey).Result()
		if err == nil {
			var royalties []model.Royalty
			if sonic.Unmarshal([]byte(cached), &royalties) == nil {
				r.localCache.Set(cacheKey, royalties, cache.DefaultExpiration)
				return royalties, nil
			}
		}
	}

	royalties, found, err := r.fromDB(ctx, contract, tokenID, spec)
	if err != nil {
		return nil, err
	}
	if !found {
		royalties, err = r.fromSource(ctx, contract, tokenID, spec)
		if err != nil {
			return nil, err
		}
	}

	r.updateCache(ctx, cacheKey, royalties)
	return royalties, nil
}

// fromDB token 级定义优先，其次合约级
func (r *royaltyDAO) fromDB(ctx context.Context, contract, tokenID, spec string) ([]model.Royalty, bool, error) {
	if r.db == nil {
		return nil, false, nil
	}
	var def model.RoyaltyDefinition
	err := r.db.WithContext(ctx).
		Where("contract = ? AND spec = ? AND token_id IN ?", contract, spec, []string{tokenID, ""}).
		Order("token_id DESC").
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query royalty definition %s:%s: %w", contract, tokenID, err)
	}
	return []model.Royalty(def.Recipients), true, nil
}

// fromSource 数据库中没有时实时查询并落库
func (r *royaltyDAO) fromSource(ctx context.Context, contract, tokenID, spec string) ([]model.Royalty, error) {
	def := &model.RoyaltyDefinition{Contract: contract, Spec: spec, UpdatedAt: time.Now()}
	switch spec {
	case model.ROYALTY_SPEC_ONCHAIN:
		if r.onChain == nil {
			return nil, nil
		}
		recipient, bps, err := r.onChain.RoyaltyBps(ctx, contract, tokenID)
		if err != nil {
			// 未实现 EIP-2981 的合约
			r.tl.Debug("royaltyInfo unavailable", zap.String("contract", contract), zap.String("token_id", tokenID), zap.Error(err))
			return nil, nil
		}
		def.TokenID = tokenID
		if recipient != "" && bps > 0 {
			def.Recipients = []model.Royalty{{Recipient: recipient, Bps: bps}}
		}
	case model.ROYALTY_SPEC_OPENSEA:
		if r.collections == nil {
			return nil, nil
		}
		royalties, err := r.collections.GetCollectionRoyalties(ctx, contract)
		if err != nil {
			return nil, err
		}
		def.Recipients = royalties
	default:
		return nil, fmt.Errorf("unknown royalty spec %q", spec)
	}

	if r.db != nil {
		if err := r.Upsert(ctx, def); err != nil {
			r.tl.Warn("⚠️ save royalty definition failed", zap.String("contract", contract), zap.Error(err))
		}
	}
	return []model.Royalty(def.Recipients), nil
}

func (r *royaltyDAO) Upsert(ctx context.Context, def *model.RoyaltyDefinition) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contract"}, {Name: "token_id"}, {Name: "spec"}},
			DoUpdates: clause.AssignmentColumns([]string{"recipients", "updated_at"}),
		}).
		Create(def).Error
}

// updateCache 更新版税定义缓存，空结果同样缓存
func (r *royaltyDAO) updateCache(ctx context.Context, cacheKey string, royalties []model.Royalty) {
	r.localCache.Set(cacheKey, royalties, cache.DefaultExpiration)

	if r.rds == nil {
		return
	}
	if data, err := sonic.Marshal(royalties); err == nil {
		r.rds.Set(ctx, cacheKey, string(data), ROYALTY_REDIS_CACHE_TTL)
	}
}
