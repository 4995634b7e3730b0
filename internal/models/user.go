package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a wallet-holding customer. The wallet is embedded: Balance and
// TotalInflow live on the user row and are mutated only by the ledger service.
type User struct {
	gorm.Model
	Name        string          `gorm:"not null"`
	Phone       string          `gorm:"uniqueIndex;not null"`
	CardUID     string          `gorm:"uniqueIndex"` // NFC card identifier
	Role        string          `gorm:"default:'user'"`
	Status      string          `gorm:"default:'active'"`
	Balance     decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	TotalInflow decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	LastLoginAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Balances always start at zero regardless of what the caller set.
	u.Balance = decimal.Zero
	u.TotalInflow = decimal.Zero
	return nil
}
