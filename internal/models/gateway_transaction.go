package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gateway transaction statuses. GatewayStatus tracks our side of the
// reconciliation, ProviderStatus mirrors what the provider last reported.
const (
	GatewayStatusInitiated   = "INITIATED"
	GatewayStatusProviderAck = "PROVIDER_ACK"
	GatewayStatusSuccess     = "SUCCESS"
	GatewayStatusFailed      = "FAILED"
)

// GatewayTransaction tracks one bill-payment request against an external
// provider. Both sides keep their own status plus the initial snapshot of
// each for audit. Terminal once GatewayStatus is SUCCESS or FAILED.
type GatewayTransaction struct {
	ID            uint   `gorm:"primarykey"`
	TransactionID string `gorm:"uniqueIndex;not null"` // internal id, also the hold transaction id
	Provider      string `gorm:"not null"`             // which provider handled the vend
	ServiceType   string `gorm:"not null"`             // airtime, electricity, tv, ...

	ProviderTrxID        string `gorm:"index"` // provider-side id returned at initiation
	GatewayTransactionID string // id on the upstream biller, when reported

	UserID        uint            `gorm:"not null;index"`
	ReceiverID    *uint           `gorm:"index"` // selling agent, when initiated at a merchant
	CustomerPhone string          `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`

	GatewayStatus         string `gorm:"not null;default:'INITIATED'"`
	ProviderStatus        string
	InitialGatewayStatus  string
	InitialProviderStatus string

	PollEndpoint   string
	RetryAfterSecs int

	// Settlement split, computed at initiation and applied exactly once.
	CustomerCashbackAmount decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	PlatformShareAmount    decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	ProviderShareAmount    decimal.Decimal `gorm:"type:numeric(18,2);default:0"`
	CashbackSent           bool            `gorm:"default:false"`

	// Pre-generated settlement transfer ids so a crashed fan-out can be
	// re-run without double paying.
	ProviderShareTxnID string
	CashbackTxnID      string
	PlatformShareTxnID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the transaction reached a final state on our side.
func (g *GatewayTransaction) Terminal() bool {
	return g.GatewayStatus == GatewayStatusSuccess || g.GatewayStatus == GatewayStatusFailed
}
