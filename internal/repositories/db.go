// Package repositories provides the data access layer.
// It handles all database operations and data persistence logic.
package repositories

import (
	"log"
	"time"

	"tapcash/internal/config"
	"tapcash/internal/models"
	"tapcash/internal/repositories/cache"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// adminPoolID is the primary key of the singleton platform wallet row.
const adminPoolID = 1

// DB is the global database instance used across the application.
var DB *gorm.DB

// CacheService is the shared Redis-backed cache.
var CacheService *cache.CacheService

// InitDB initializes the PostgreSQL connection, the Redis cache, runs
// migrations and seeds the singleton rows.
func InitDB() error {
	dsn := "host=" + config.GetEnv("DB_HOST", "localhost") +
		" user=" + config.GetEnv("DB_USER", "postgres") +
		" password=" + config.GetEnv("DB_PASSWORD", "postgres") +
		" dbname=" + config.GetEnv("DB_NAME", "tapcash") +
		" port=" + config.GetEnv("DB_PORT", "5432") +
		" sslmode=" + config.GetEnv("DB_SSLMODE", "disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Needed so unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return err
	}
	DB = db

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	redisCfg := &cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	}
	CacheService = cache.NewCacheService(cache.NewRedisClient(redisCfg), 24*time.Hour)

	err = DB.AutoMigrate(
		&models.User{},
		&models.Receiver{},
		&models.AdminPool{},
		&models.MerchantUserBalance{},
		&models.Transaction{},
		&models.Loan{},
		&models.GatewayTransaction{},
		&models.RefundRecord{},
		&models.RangeSetting{},
		&models.CommissionSetting{},
		&models.GatewaySetting{},
		&models.GlobalSettings{},
	)
	if err != nil {
		return err
	}

	return seedSingletons(DB)
}

// seedSingletons makes sure the admin pool and global settings rows exist.
func seedSingletons(db *gorm.DB) error {
	var pool models.AdminPool
	if err := db.FirstOrCreate(&pool, models.AdminPool{ID: adminPoolID}).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.GlobalSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		settings := models.GlobalSettings{
			AdminDiscountPercentage: decimal.Zero,
			UserBonusPercentage:     decimal.Zero,
		}
		if err := db.Create(&settings).Error; err != nil {
			return err
		}
		log.Println("seeded default global settings")
	}
	return nil
}
