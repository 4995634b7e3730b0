package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RangeSetting defines a commission percentage for an amount range.
// MinAmount is inclusive, MaxAmount exclusive; a nil MaxAmount means
// unbounded. Lower Priority values take precedence. Admin mutated,
// read-only to the engine during resolution.
type RangeSetting struct {
	gorm.Model
	MinAmount  decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	MaxAmount  *decimal.Decimal `gorm:"type:numeric(18,2)"`
	Percentage decimal.Decimal  `gorm:"type:numeric(8,4);not null"`
	Priority   int              `gorm:"not null;default:100"`
	IsActive   bool             `gorm:"default:true"`
}

// CommissionSetting configures a payout percentage for one of a merchant's
// payout destinations, keyed by (receiver, phone).
type CommissionSetting struct {
	gorm.Model
	ReceiverID uint            `gorm:"not null;uniqueIndex:idx_receiver_phone"`
	Phone      string          `gorm:"not null;uniqueIndex:idx_receiver_phone"`
	Percentage decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	IsActive   bool            `gorm:"default:true"`
}

// GatewaySetting holds the cashback split percentages for one bill-payment
// service type.
type GatewaySetting struct {
	gorm.Model
	ServiceType                string          `gorm:"uniqueIndex;not null"`
	CustomerCashbackPercentage decimal.Decimal `gorm:"type:numeric(8,4);default:0"`
	PlatformSharePercentage    decimal.Decimal `gorm:"type:numeric(8,4);default:0"`
	ProviderSharePercentage    decimal.Decimal `gorm:"type:numeric(8,4);default:0"`
	IsActive                   bool            `gorm:"default:true"`
}

// GlobalSettings is the singleton row of platform-wide percentages.
type GlobalSettings struct {
	gorm.Model
	AdminDiscountPercentage decimal.Decimal `gorm:"type:numeric(8,4);default:0"`
	UserBonusPercentage     decimal.Decimal `gorm:"type:numeric(8,4);default:0"`
}
