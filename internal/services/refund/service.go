// Package refund reverses completed gateway transactions by issuing a
// compensating transfer. At most one non-failed refund can exist per
// original transaction; the uniqueness constraint on the derived refund id
// enforces that even under concurrent retries.
package refund

import (
	"context"
	"errors"
	"fmt"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/ledger"

	"github.com/shopspring/decimal"
)

// Service issues refunds.
type Service interface {
	Refund(ctx context.Context, originalTransactionID, reason string) (*models.RefundRecord, error)
	ListByOriginal(ctx context.Context, originalTransactionID string) ([]models.RefundRecord, error)
}

// Ledger is the slice of the ledger service refunds go through.
type Ledger interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*models.Transaction, error)
}

// ProviderTransferer pushes the refunded money back to the customer's
// mobile wallet on the provider side.
type ProviderTransferer interface {
	Transfer(ctx context.Context, refundRef, debitPhone, creditPhone string, amount decimal.Decimal) error
}

type service struct {
	refunds    repositories.RefundRepository
	gatewayTxs repositories.GatewayRepository
	ledger     Ledger
	provider   ProviderTransferer
	debitPhone string // platform settlement account on the provider side
}

func NewService(
	refunds repositories.RefundRepository,
	gatewayTxs repositories.GatewayRepository,
	l Ledger,
	provider ProviderTransferer,
	debitPhone string,
) Service {
	if refunds == nil {
		panic("refund repository is required")
	}
	if gatewayTxs == nil {
		panic("gateway repository is required")
	}
	if l == nil {
		panic("ledger is required")
	}
	if provider == nil {
		panic("provider transferer is required")
	}
	return &service{
		refunds:    refunds,
		gatewayTxs: gatewayTxs,
		ledger:     l,
		provider:   provider,
		debitPhone: debitPhone,
	}
}

func (s *service) Refund(ctx context.Context, originalTransactionID, reason string) (*models.RefundRecord, error) {
	gtx, err := s.gatewayTxs.GetByTransactionID(originalTransactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrGatewayTransactionNotFound) {
			return nil, ErrOriginalNotFound
		}
		return nil, err
	}
	if gtx.GatewayStatus != models.GatewayStatusSuccess {
		return nil, ErrNotRefundable
	}

	prior, err := s.refunds.ListByOriginal(originalTransactionID)
	if err != nil {
		return nil, err
	}
	for _, p := range prior {
		if p.Status != models.RefundStatusFailed {
			return nil, ErrAlreadyRefunded
		}
	}

	// Cashback already disbursed to the customer is not refunded.
	amount := gtx.Amount
	if gtx.CashbackSent {
		amount = amount.Sub(gtx.CustomerCashbackAmount)
	}

	record := &models.RefundRecord{
		OriginalTransactionID: originalTransactionID,
		RefundTransactionID:   refundTransactionID(originalTransactionID, len(prior)+1),
		RefundAmount:          amount,
		DebitPhone:            s.debitPhone,
		CreditPhone:           gtx.CustomerPhone,
		Status:                models.RefundStatusPending,
		Reason:                reason,
	}
	if err := s.refunds.Create(record); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Lost a race against a concurrent refund of the same original.
			return nil, ErrAlreadyRefunded
		}
		return nil, err
	}

	if err := s.provider.Transfer(ctx, record.RefundTransactionID, record.DebitPhone, record.CreditPhone, amount); err != nil {
		record.Status = models.RefundStatusFailed
		if saveErr := s.refunds.Save(record); saveErr != nil {
			return nil, saveErr
		}
		return record, fmt.Errorf("%w: %v", ErrProviderTransferFailed, err)
	}

	if _, err := s.ledger.Transfer(ctx, ledger.TransferRequest{
		From:          repositories.External,
		To:            ledger.UserAccount(gtx.UserID),
		Amount:        amount,
		Type:          models.TransactionTypeRefund,
		TransactionID: record.RefundTransactionID,
		Description:   fmt.Sprintf("refund of %s: %s", originalTransactionID, reason),
	}); err != nil {
		record.Status = models.RefundStatusFailed
		if saveErr := s.refunds.Save(record); saveErr != nil {
			return nil, saveErr
		}
		return record, err
	}

	record.Status = models.RefundStatusSuccess
	if err := s.refunds.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) ListByOriginal(ctx context.Context, originalTransactionID string) ([]models.RefundRecord, error) {
	return s.refunds.ListByOriginal(originalTransactionID)
}

// refundTransactionID derives the deterministic refund id. The first
// attempt has no suffix; retries after FAILED attempts are numbered.
func refundTransactionID(originalTransactionID string, attempt int) string {
	if attempt <= 1 {
		return originalTransactionID + "-REFUND"
	}
	return fmt.Sprintf("%s-REFUND-%d", originalTransactionID, attempt)
}
