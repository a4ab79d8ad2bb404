package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PGOptions 连接池参数，<=0 使用默认值
type PGOptions struct {
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
}

func InitPG(opts PGOptions) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	gormDB, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(withDefault(opts.MaxIdleConns, 10))
	sqlDB.SetMaxOpenConns(withDefault(opts.MaxOpenConns, 50))
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return gormDB, nil
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Migrate 建表（仅限本服务拥有的表）
func Migrate(db *gorm.DB, models ...interface{}) error {
	return db.AutoMigrate(models...)
}
