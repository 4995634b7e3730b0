package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Refund statuses
const (
	RefundStatusPending = "PENDING"
	RefundStatusSuccess = "SUCCESS"
	RefundStatusFailed  = "FAILED"
)

// RefundRecord reverses a completed gateway transaction. The unique index on
// RefundTransactionID, which is derived deterministically from the original
// id, is what makes a double refund impossible under retries.
type RefundRecord struct {
	gorm.Model
	OriginalTransactionID string          `gorm:"index;not null"`
	RefundTransactionID   string          `gorm:"uniqueIndex;not null"`
	RefundAmount          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	DebitPhone            string
	CreditPhone           string
	Status                string `gorm:"not null;default:'PENDING'"`
	Reason                string
}
