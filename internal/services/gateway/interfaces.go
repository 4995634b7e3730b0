package gateway

import (
	"context"

	"tapcash/internal/models"
	"tapcash/internal/services/ledger"
	"tapcash/internal/services/split"

	"github.com/shopspring/decimal"
)

// Service drives each external transaction from initiation to a terminal
// state, reconciling asynchronous webhook deliveries and poll results
// idempotently.
type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*models.GatewayTransaction, error)
	// HandleWebhook verifies and applies a provider-signed webhook token.
	HandleWebhook(ctx context.Context, token string) (*Outcome, error)
	// PollStatus actively asks the provider, for transactions whose
	// webhook never arrived.
	PollStatus(ctx context.Context, transactionID string) (*Outcome, error)
	// SweepStale forces transactions stuck past the staleness window to a
	// terminal FAILED state; returns how many it closed.
	SweepStale(ctx context.Context) (int, error)

	Get(ctx context.Context, transactionID string) (*models.GatewayTransaction, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.GatewayTransaction, error)
}

// Provider is one external payment provider. Implementations live in
// internal/providers.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, internalID, serviceType, customerPhone string, amount decimal.Decimal) (*ProviderAck, error)
	CheckStatus(ctx context.Context, pollEndpoint, providerTrxID string) (*StatusReport, error)
}

// Ledger is the slice of the ledger service the state machine uses for the
// hold, its reversal and the final status flip.
type Ledger interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*models.Transaction, error)
	MarkTransactionStatus(ctx context.Context, transactionID, from, to string) error
}

// Splitter supplies the split configuration at initiation and fans out the
// settlement transfers on success.
type Splitter interface {
	ConfigFor(ctx context.Context, serviceType string) (split.Config, error)
	Settle(ctx context.Context, gtx *models.GatewayTransaction) error
}

// Notifier receives "notify customer" intents after settlement; delivery is
// someone else's problem.
type Notifier interface {
	Notify(ctx context.Context, recipient, template string, params map[string]string)
}
