// Package split computes how a settled gateway amount is divided between
// the selling agent, the customer cashback and the platform, and fans the
// resulting transfers out through the ledger.
//
// The shares are deductions from the gross amount, not a partition of it:
// whatever is not claimed stays with the provider.
package split

import (
	"context"
	"errors"
	"fmt"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/ledger"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Config holds the three percentages for one service type.
type Config struct {
	ProviderPct decimal.Decimal
	CashbackPct decimal.Decimal
	PlatformPct decimal.Decimal
}

// Shares is the result of splitting a gross amount.
type Shares struct {
	Provider decimal.Decimal
	Cashback decimal.Decimal
	Platform decimal.Decimal
}

// Payout is one destination of a merchant's payment proceeds.
type Payout struct {
	Phone  string
	Amount decimal.Decimal
}

// Transferer is the slice of the ledger the splitter needs.
type Transferer interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*models.Transaction, error)
}

// Service resolves split configuration and settles gateway transactions.
type Service interface {
	ConfigFor(ctx context.Context, serviceType string) (Config, error)
	// Settle executes the three settlement transfers for a successful
	// gateway transaction. Safe to re-run: each transfer carries a
	// pre-generated deterministic transaction id.
	Settle(ctx context.Context, gtx *models.GatewayTransaction) error
	// PayoutPlan divides a merchant's payment proceeds across its
	// configured payout destinations.
	PayoutPlan(ctx context.Context, receiverID uint, gross decimal.Decimal) ([]Payout, error)
}

type service struct {
	settings repositories.SettingsRepository
	ledger   Transferer
}

func NewService(settings repositories.SettingsRepository, l Transferer) Service {
	if settings == nil {
		panic("settings repository is required")
	}
	if l == nil {
		panic("ledger is required")
	}
	return &service{settings: settings, ledger: l}
}

// Compute splits gross per cfg. Each share must land in [0, gross];
// a percentage above 100 is a configuration error, never a silent clamp.
func Compute(gross decimal.Decimal, cfg Config) (Shares, error) {
	if gross.IsNegative() {
		return Shares{}, ErrInvalidGross
	}

	shares := Shares{}
	for _, p := range []struct {
		pct  decimal.Decimal
		dest *decimal.Decimal
	}{
		{cfg.ProviderPct, &shares.Provider},
		{cfg.CashbackPct, &shares.Cashback},
		{cfg.PlatformPct, &shares.Platform},
	} {
		if p.pct.IsNegative() {
			return Shares{}, ErrInvalidPercentageConfig
		}
		share := gross.Mul(p.pct).Div(hundred).Round(2)
		if share.GreaterThan(gross) {
			return Shares{}, ErrInvalidPercentageConfig
		}
		*p.dest = share
	}
	return shares, nil
}

func (s *service) ConfigFor(ctx context.Context, serviceType string) (Config, error) {
	setting, err := s.settings.GatewaySetting(serviceType)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingNotFound) {
			return Config{}, ErrMissingGatewaySetting
		}
		return Config{}, err
	}
	return Config{
		ProviderPct: setting.ProviderSharePercentage,
		CashbackPct: setting.CustomerCashbackPercentage,
		PlatformPct: setting.PlatformSharePercentage,
	}, nil
}

func (s *service) Settle(ctx context.Context, gtx *models.GatewayTransaction) error {
	transfers := []ledger.TransferRequest{}

	if gtx.ProviderShareAmount.IsPositive() && gtx.ReceiverID != nil {
		transfers = append(transfers, ledger.TransferRequest{
			From:          repositories.External,
			To:            ledger.ReceiverAccount(*gtx.ReceiverID),
			Amount:        gtx.ProviderShareAmount,
			Type:          models.TransactionTypeCommission,
			TransactionID: gtx.ProviderShareTxnID,
			Description:   fmt.Sprintf("agent commission for %s", gtx.TransactionID),
		})
	}
	if gtx.CustomerCashbackAmount.IsPositive() {
		transfers = append(transfers, ledger.TransferRequest{
			From:            repositories.External,
			To:              ledger.UserAccount(gtx.UserID),
			Amount:          gtx.CustomerCashbackAmount,
			Type:            models.TransactionTypeCashback,
			TransactionID:   gtx.CashbackTxnID,
			UserBonusAmount: gtx.CustomerCashbackAmount,
			Description:     fmt.Sprintf("cashback for %s", gtx.TransactionID),
		})
	}
	if gtx.PlatformShareAmount.IsPositive() {
		transfers = append(transfers, ledger.TransferRequest{
			From:              repositories.External,
			To:                ledger.AdminAccount(),
			Amount:            gtx.PlatformShareAmount,
			Type:              models.TransactionTypePlatformShare,
			TransactionID:     gtx.PlatformShareTxnID,
			AdminIncomeAmount: gtx.PlatformShareAmount,
			Description:       fmt.Sprintf("platform share for %s", gtx.TransactionID),
		})
	}

	for _, req := range transfers {
		if _, err := s.ledger.Transfer(ctx, req); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSettlementTransferFailed, req.TransactionID, err)
		}
	}
	return nil
}

func (s *service) PayoutPlan(ctx context.Context, receiverID uint, gross decimal.Decimal) ([]Payout, error) {
	if gross.IsNegative() {
		return nil, ErrInvalidGross
	}
	settings, err := s.settings.CommissionSettings(receiverID)
	if err != nil {
		return nil, err
	}

	payouts := make([]Payout, 0, len(settings))
	total := decimal.Zero
	for _, cs := range settings {
		if cs.Percentage.IsNegative() {
			return nil, ErrInvalidPercentageConfig
		}
		amount := gross.Mul(cs.Percentage).Div(hundred).Round(2)
		total = total.Add(amount)
		if total.GreaterThan(gross) {
			return nil, ErrInvalidPercentageConfig
		}
		payouts = append(payouts, Payout{Phone: cs.Phone, Amount: amount})
	}
	return payouts, nil
}
