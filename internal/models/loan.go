package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Loan statuses, derived from RemainingAmount (see services/loan).
const (
	LoanStatusPending       = "PENDING"
	LoanStatusPartiallyPaid = "PARTIALLY_PAID"
	LoanStatusCompleted     = "COMPLETED"
)

// Loan records credit a merchant extended to a user during an NFC top-up,
// created when the authorized amount exceeded the merchant's available float.
// Mutated only by repayment operations; never deleted.
type Loan struct {
	gorm.Model
	UserID        uint `gorm:"not null;index"`
	ReceiverID    uint `gorm:"not null;index"`
	TransactionID uint `gorm:"not null"` // originating top-up transaction

	LoanAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status          string          `gorm:"not null;default:'PENDING'"`
}
