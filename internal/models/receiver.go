package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Receiver is a merchant that accepts payments and performs NFC top-ups.
// Like User it embeds its wallet; a receiver may belong to a parent receiver
// (submerchant), in which case operators of the parent can act on its behalf.
type Receiver struct {
	gorm.Model
	BusinessName     string `gorm:"not null"`
	Phone            string `gorm:"uniqueIndex;not null"`
	Status           string `gorm:"default:'active'"`
	ParentReceiverID *uint  `gorm:"index"`

	Balance     decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	TotalInflow decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
}

func (r *Receiver) BeforeCreate(tx *gorm.DB) error {
	r.Balance = decimal.Zero
	r.TotalInflow = decimal.Zero
	return nil
}

// AdminPool is the singleton platform wallet. Commission income, cashback
// funding and refund clearing all move through this row.
type AdminPool struct {
	ID          uint            `gorm:"primarykey"`
	Balance     decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	TotalInflow decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
}

// MerchantUserBalance is the per (user, receiver) sub-wallet tracking how much
// of a user's balance was topped up through a given merchant. Created lazily
// on first interaction; unique per pair.
type MerchantUserBalance struct {
	gorm.Model
	UserID        uint            `gorm:"not null;uniqueIndex:idx_merchant_user"`
	ReceiverID    uint            `gorm:"not null;uniqueIndex:idx_merchant_user"`
	Balance       decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	TotalToppedUp decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
}
