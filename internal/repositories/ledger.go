package repositories

import (
	"context"
	"errors"
	"time"

	"tapcash/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrStaleStatus         = errors.New("transaction status already changed")
)

// AccountRef identifies one wallet-holding party. External money has kind
// PartyExternal and no backing row.
type AccountRef struct {
	Kind string
	ID   uint
}

// External is the account reference for money entering or leaving the platform.
var External = AccountRef{Kind: models.PartyExternal}

// Account is a point-in-time view of a locked wallet row.
type Account struct {
	Ref         AccountRef
	Balance     decimal.Decimal
	TotalInflow decimal.Decimal
}

// TransactionFilter narrows history queries for the presentation surface.
type TransactionFilter struct {
	UserID     *uint
	ReceiverID *uint
	Type       string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// LedgerRepository is the data access layer for wallet balances and the
// transaction audit trail. Balance reads inside a unit of work take row
// locks; all mutations of one logical operation share a single database
// transaction via ExecuteInTransaction.
type LedgerRepository interface {
	// ExecuteInTransaction runs fn against a repository bound to one
	// database transaction; any error rolls the whole unit back.
	ExecuteInTransaction(fn func(LedgerRepository) error) error

	// GetAccountForUpdate loads a wallet row with a row-level lock.
	GetAccountForUpdate(ref AccountRef) (*Account, error)
	// SaveAccount writes back a mutated balance snapshot.
	SaveAccount(acc *Account) error

	CreateTransaction(txn *models.Transaction) error
	GetTransactionByTransactionID(transactionID string) (*models.Transaction, error)
	// UpdateTransactionStatus moves a transaction from one status to
	// another; returns ErrStaleStatus when the row was not in `from`.
	UpdateTransactionStatus(transactionID, from, to string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)

	// GetMerchantUserBalanceForUpdate lazily creates and locks the
	// per-pair sub-wallet.
	GetMerchantUserBalanceForUpdate(userID, receiverID uint) (*models.MerchantUserBalance, error)
	SaveMerchantUserBalance(mub *models.MerchantUserBalance) error

	// Loan rows are mutated only inside ledger units of work, so their
	// write path lives here; read-only listings use LoanRepository.
	CreateLoan(loan *models.Loan) error
	GetLoanForUpdate(id uint) (*models.Loan, error)
	SaveLoan(loan *models.Loan) error
}
