package main

import (
	"log"

	"tapcash/internal/config"
	"tapcash/internal/models"
	"tapcash/internal/repositories"

	"github.com/shopspring/decimal"
)

// Seeds the singleton global settings row and a starter set of discount
// ranges so a fresh deployment has something to resolve against.
func main() {
	config.LoadEnv()

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err != nil {
				log.Printf("Failed to get SQL DB instance: %v", err)
			} else if err := sqlDB.Close(); err != nil {
				log.Printf("Failed to close PostgreSQL connection: %v", err)
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	var existing models.GlobalSettings
	if err := repositories.DB.First(&existing).Error; err == nil {
		log.Println("Global settings already seeded")
		return
	}

	global := models.GlobalSettings{
		AdminDiscountPercentage: decimal.NewFromFloat(5),
		UserBonusPercentage:     decimal.NewFromFloat(2),
	}
	if err := repositories.DB.Create(&global).Error; err != nil {
		log.Fatal("Failed to create global settings:", err)
	}

	tierCap := decimal.NewFromInt(10000)
	ranges := []models.RangeSetting{
		{
			MinAmount:  decimal.Zero,
			MaxAmount:  &tierCap,
			Percentage: decimal.NewFromFloat(5),
			Priority:   1,
			IsActive:   true,
		},
		{
			MinAmount:  tierCap,
			MaxAmount:  nil,
			Percentage: decimal.NewFromFloat(2),
			Priority:   2,
			IsActive:   true,
		},
	}
	if err := repositories.DB.Create(&ranges).Error; err != nil {
		log.Fatal("Failed to create range settings:", err)
	}

	log.Println("Settings seeded successfully")
}
