package repositories

import (
	"errors"
	"fmt"

	"tapcash/internal/models"

	"gorm.io/gorm"
)

var ErrRefundNotFound = errors.New("refund record not found")

// RefundRepository is the data access layer for refund records.
type RefundRepository interface {
	// Create inserts a refund record; ErrDuplicateKey when the derived
	// refund transaction id already exists.
	Create(record *models.RefundRecord) error
	Save(record *models.RefundRecord) error
	ListByOriginal(originalTransactionID string) ([]models.RefundRecord, error)
}

type refundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) Create(record *models.RefundRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create refund record: %w", err)
	}
	return nil
}

func (r *refundRepository) Save(record *models.RefundRecord) error {
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("failed to save refund record: %w", err)
	}
	return nil
}

func (r *refundRepository) ListByOriginal(originalTransactionID string) ([]models.RefundRecord, error) {
	var records []models.RefundRecord
	err := r.db.Where("original_transaction_id = ?", originalTransactionID).
		Order("created_at ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refund records: %w", err)
	}
	return records, nil
}
