package ledger

import (
	"context"

	"tapcash/internal/models"
	"tapcash/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service is the money-conservation authority. Every balance mutation in
// the system goes through one of these operations; each commits its balance
// deltas and its audit Transaction row as a single atomic unit.
type Service interface {
	TopUp(ctx context.Context, req TopUpRequest) (*TopUpResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*models.Transaction, error)
	Pay(ctx context.Context, req PayRequest) (*models.Transaction, error)
	RecordLoanRepayment(ctx context.Context, loanID uint, amount decimal.Decimal) (*models.Transaction, error)

	// MarkTransactionStatus finalizes a PENDING transaction; the status of
	// a transaction changes exactly once.
	MarkTransactionStatus(ctx context.Context, transactionID, from, to string) error
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetBalance(ctx context.Context, ref repositories.AccountRef) (decimal.Decimal, error)
}

// BalanceCache is the read-side cache the service keeps coherent.
type BalanceCache interface {
	GetBalance(ctx context.Context, kind string, id uint) (decimal.Decimal, bool, error)
	CacheBalance(ctx context.Context, kind string, id uint, balance decimal.Decimal) error
	InvalidateBalance(ctx context.Context, kind string, id uint) error
}

// RateResolver supplies the tiered percentage used for the merchant
// discount side-effect on top-ups.
type RateResolver interface {
	Resolve(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
}

// SettingsSource supplies the global percentage configuration.
type SettingsSource interface {
	GlobalSettings() (*models.GlobalSettings, error)
}
