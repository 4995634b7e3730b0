package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeTopUp           = "TOP_UP"
	TransactionTypeMerchantPayment = "MERCHANT_PAYMENT"
	TransactionTypeLoanRepayment   = "LOAN_REPAYMENT"
	TransactionTypeBillPayment     = "BILL_PAYMENT"
	TransactionTypeReversal        = "REVERSAL"
	TransactionTypeRefund          = "REFUND"
	TransactionTypeCashback        = "CASHBACK"
	TransactionTypeCommission      = "COMMISSION"
	TransactionTypePlatformShare   = "PLATFORM_SHARE"
)

// Transaction statuses
const (
	TransactionStatusPending = "PENDING"
	TransactionStatusSuccess = "SUCCESS"
	TransactionStatusFailed  = "FAILED"
)

// Party kinds recorded on a transaction side.
const (
	PartyUser     = "USER"
	PartyReceiver = "RECEIVER"
	PartyAdmin    = "ADMIN"
	PartyExternal = "EXTERNAL" // money entering or leaving the platform
)

// Transaction is the immutable audit record of one ledger operation. Created
// together with the balance mutation it describes; status moves exactly once
// from PENDING to a terminal state; rows are never deleted.
type Transaction struct {
	ID            uint   `gorm:"primarykey"`
	TransactionID string `gorm:"uniqueIndex;not null"` // idempotency key
	Type          string `gorm:"not null"`
	Status        string `gorm:"not null;default:'PENDING'"`

	Amount decimal.Decimal `gorm:"type:numeric(18,2);not null"`

	SenderKind            string          `gorm:"not null"`
	SenderID              uint            // zero for EXTERNAL
	SenderBalanceBefore   decimal.Decimal `gorm:"type:numeric(18,2)"`
	SenderBalanceAfter    decimal.Decimal `gorm:"type:numeric(18,2)"`
	ReceiverKind          string          `gorm:"not null"`
	ReceiverID            uint
	ReceiverBalanceBefore decimal.Decimal `gorm:"type:numeric(18,2)"`
	ReceiverBalanceAfter  decimal.Decimal `gorm:"type:numeric(18,2)"`

	DiscountAmount    decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	UserBonusAmount   decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	AdminIncomeAmount decimal.Decimal `gorm:"type:numeric(18,2);default:0"`

	Description string
	Metadata    JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
