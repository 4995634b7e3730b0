// Package loan tracks credit a merchant extended to a user during top-up
// and derives loan status from repayments. The repayment money movement
// itself goes through the ledger service; this package owns the lifecycle
// rules.
package loan

import (
	"context"
	"errors"
	"fmt"

	"tapcash/internal/models"
	"tapcash/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service exposes the read-only loan surface.
type Service interface {
	Get(ctx context.Context, id uint) (*models.Loan, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Loan, error)
	ListByReceiver(ctx context.Context, receiverID uint) ([]models.Loan, error)
	OutstandingByPair(ctx context.Context, userID, receiverID uint) (decimal.Decimal, error)
}

type service struct {
	repo repositories.LoanRepository
}

func NewService(repo repositories.LoanRepository) Service {
	if repo == nil {
		panic("loan repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, id uint) (*models.Loan, error) {
	l, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrLoanNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return l, nil
}

func (s *service) ListByUser(ctx context.Context, userID uint) ([]models.Loan, error) {
	return s.repo.ListByUser(userID)
}

func (s *service) ListByReceiver(ctx context.Context, receiverID uint) ([]models.Loan, error) {
	return s.repo.ListByReceiver(receiverID)
}

func (s *service) OutstandingByPair(ctx context.Context, userID, receiverID uint) (decimal.Decimal, error) {
	loans, err := s.repo.ListOutstandingByPair(userID, receiverID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, l := range loans {
		total = total.Add(l.RemainingAmount)
	}
	return total, nil
}

// New builds a PENDING loan for credit extended at top-up time.
func New(userID, receiverID, transactionID uint, amount decimal.Decimal) *models.Loan {
	return &models.Loan{
		UserID:          userID,
		ReceiverID:      receiverID,
		TransactionID:   transactionID,
		LoanAmount:      amount,
		PaidAmount:      decimal.Zero,
		RemainingAmount: amount,
		Status:          models.LoanStatusPending,
	}
}

// Apply records a repayment against the loan in memory. COMPLETED is
// terminal: further repayments fail with ErrLoanAlreadySettled. A repayment
// larger than what remains fails with ErrOverpayment and leaves the loan
// untouched.
func Apply(l *models.Loan, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if l.Status == models.LoanStatusCompleted {
		return ErrLoanAlreadySettled
	}
	if amount.GreaterThan(l.RemainingAmount) {
		return ErrOverpayment
	}

	l.PaidAmount = l.PaidAmount.Add(amount)
	l.RemainingAmount = l.LoanAmount.Sub(l.PaidAmount)
	l.Status = DeriveStatus(l)
	return nil
}

// DeriveStatus derives the loan status from paid and remaining amounts:
// nothing paid is PENDING, fully paid is COMPLETED, anything between is
// PARTIALLY_PAID.
func DeriveStatus(l *models.Loan) string {
	switch {
	case l.RemainingAmount.IsZero():
		return models.LoanStatusCompleted
	case l.PaidAmount.IsZero():
		return models.LoanStatusPending
	default:
		return models.LoanStatusPartiallyPaid
	}
}
