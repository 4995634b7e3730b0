package gateway

import (
	"time"

	"tapcash/internal/models"

	"github.com/shopspring/decimal"
)

// InitiateRequest starts a bill payment against an external provider.
type InitiateRequest struct {
	UserID        uint
	ReceiverID    *uint // selling agent, when initiated at a merchant
	ServiceType   string
	CustomerPhone string
	Amount        decimal.Decimal
	Provider      string // optional; defaults to the primary provider
}

// OutcomeKind tags what applying a webhook or poll result did.
type OutcomeKind string

const (
	// OutcomeApplied means the event advanced the transaction.
	OutcomeApplied OutcomeKind = "APPLIED"
	// OutcomeAlreadyApplied means the same terminal event was seen before;
	// replaying it is a successful no-op.
	OutcomeAlreadyApplied OutcomeKind = "ALREADY_APPLIED"
	// OutcomeRejected means the event could not be applied; Reason says why.
	OutcomeRejected OutcomeKind = "REJECTED"
)

// Outcome is the tagged result of HandleWebhook or PollStatus. Idempotency
// stays observable: callers can tell a fresh application from a replay.
type Outcome struct {
	Kind        OutcomeKind
	Reason      string
	Transaction *models.GatewayTransaction
}

// Config tunes the reconciliation state machine.
type Config struct {
	// InitiateTimeout bounds the provider initiation call.
	InitiateTimeout time.Duration
	// StalenessWindow is how long a non-terminal transaction may sit
	// before the sweep forces it FAILED.
	StalenessWindow time.Duration
	// SweepBatchSize caps how many stale rows one sweep pass handles.
	SweepBatchSize int
}

// ProviderAck is what a provider returns from a successful initiation.
type ProviderAck struct {
	ProviderTrxID  string
	Status         string
	PollEndpoint   string
	RetryAfterSecs int
}

// StatusReport is a provider's answer to a status check, and the payload
// carried by a webhook token.
type StatusReport struct {
	ProviderTrxID        string
	GatewayTransactionID string
	Status               string
}
