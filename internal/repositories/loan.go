package repositories

import (
	"errors"
	"fmt"

	"tapcash/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrLoanNotFound = errors.New("loan not found")

// LoanRepository is the data access layer for merchant-extended credit.
type LoanRepository interface {
	Create(loan *models.Loan) error
	GetByID(id uint) (*models.Loan, error)
	// GetByIDForUpdate locks the loan row for a repayment.
	GetByIDForUpdate(id uint) (*models.Loan, error)
	Save(loan *models.Loan) error
	ListByUser(userID uint) ([]models.Loan, error)
	ListByReceiver(receiverID uint) ([]models.Loan, error)
	// ListOutstandingByPair returns non-completed loans for a (user,
	// receiver) pair, oldest first, for repayment allocation.
	ListOutstandingByPair(userID, receiverID uint) ([]models.Loan, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(loan *models.Loan) error {
	if err := r.db.Create(loan).Error; err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func (r *loanRepository) GetByID(id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to lock loan: %w", err)
	}
	return &loan, nil
}

func (r *loanRepository) Save(loan *models.Loan) error {
	if err := r.db.Save(loan).Error; err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	return nil
}

func (r *loanRepository) ListByUser(userID uint) ([]models.Loan, error) {
	var loans []models.Loan
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (r *loanRepository) ListByReceiver(receiverID uint) ([]models.Loan, error) {
	var loans []models.Loan
	if err := r.db.Where("receiver_id = ?", receiverID).Order("created_at DESC").Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

func (r *loanRepository) ListOutstandingByPair(userID, receiverID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.Where("user_id = ? AND receiver_id = ? AND status <> ?",
		userID, receiverID, models.LoanStatusCompleted).
		Order("created_at ASC").Find(&loans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding loans: %w", err)
	}
	return loans, nil
}
