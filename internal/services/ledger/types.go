package ledger

import (
	"tapcash/internal/models"
	"tapcash/internal/repositories"

	"github.com/shopspring/decimal"
)

// Funding sources accepted by TopUp.
const (
	FundingMerchantFloat = "merchant_float"
	FundingExternal      = "external"
)

// TopUpRequest is a merchant-assisted NFC top-up: the merchant credits the
// user's wallet out of its own float, extending a loan for any part the
// float cannot cover.
type TopUpRequest struct {
	UserID        uint
	ReceiverID    uint
	Amount        decimal.Decimal
	FundingSource string
	Description   string
}

// TopUpResult reports what the top-up did.
type TopUpResult struct {
	Transaction *models.Transaction
	Loan        *models.Loan // nil when the float covered everything
	Discount    decimal.Decimal
	UserBonus   decimal.Decimal
}

// TransferRequest is one atomic two-sided balance move. TransactionID, when
// set, is the idempotency key: a transfer with an already-recorded id is
// skipped and the existing row returned.
type TransferRequest struct {
	From          repositories.AccountRef
	To            repositories.AccountRef
	Amount        decimal.Decimal
	Type          string
	TransactionID string
	Status        string // defaults to SUCCESS
	Description   string
	Metadata      models.JSON

	DiscountAmount    decimal.Decimal
	UserBonusAmount   decimal.Decimal
	AdminIncomeAmount decimal.Decimal
}

// PayRequest is a customer paying a merchant from their wallet.
type PayRequest struct {
	UserID      uint
	ReceiverID  uint
	Amount      decimal.Decimal
	Description string
}

// UserAccount builds the account reference for a user wallet.
func UserAccount(id uint) repositories.AccountRef {
	return repositories.AccountRef{Kind: models.PartyUser, ID: id}
}

// ReceiverAccount builds the account reference for a merchant wallet.
func ReceiverAccount(id uint) repositories.AccountRef {
	return repositories.AccountRef{Kind: models.PartyReceiver, ID: id}
}

// AdminAccount is the platform pool.
func AdminAccount() repositories.AccountRef {
	return repositories.AccountRef{Kind: models.PartyAdmin}
}
