package repositories

import (
	"errors"
	"fmt"
	"time"

	"tapcash/internal/models"

	"gorm.io/gorm"
)

var ErrGatewayTransactionNotFound = errors.New("gateway transaction not found")

// GatewayRepository is the data access layer for external bill-payment
// transactions and their reconciliation state.
type GatewayRepository interface {
	Create(gtx *models.GatewayTransaction) error
	GetByTransactionID(transactionID string) (*models.GatewayTransaction, error)
	GetByProviderTrxID(providerTrxID string) (*models.GatewayTransaction, error)
	GetByID(id uint) (*models.GatewayTransaction, error)
	Save(gtx *models.GatewayTransaction) error
	// MarkCashbackSent flips the cashback_sent flag; returns false when it
	// was already set, which is the settlement exactly-once guard.
	MarkCashbackSent(id uint) (bool, error)
	// ListStale returns non-terminal transactions initiated before cutoff.
	ListStale(cutoff time.Time, limit int) ([]models.GatewayTransaction, error)
	ListByUser(userID uint, limit, offset int) ([]models.GatewayTransaction, error)
}

type gatewayRepository struct {
	db *gorm.DB
}

func NewGatewayRepository(db *gorm.DB) GatewayRepository {
	return &gatewayRepository{db: db}
}

func (r *gatewayRepository) Create(gtx *models.GatewayTransaction) error {
	if err := r.db.Create(gtx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create gateway transaction: %w", err)
	}
	return nil
}

func (r *gatewayRepository) GetByTransactionID(transactionID string) (*models.GatewayTransaction, error) {
	return r.getOne("transaction_id = ?", transactionID)
}

func (r *gatewayRepository) GetByProviderTrxID(providerTrxID string) (*models.GatewayTransaction, error) {
	return r.getOne("provider_trx_id = ?", providerTrxID)
}

func (r *gatewayRepository) getOne(query string, arg interface{}) (*models.GatewayTransaction, error) {
	var gtx models.GatewayTransaction
	if err := r.db.Where(query, arg).First(&gtx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get gateway transaction: %w", err)
	}
	return &gtx, nil
}

func (r *gatewayRepository) GetByID(id uint) (*models.GatewayTransaction, error) {
	var gtx models.GatewayTransaction
	if err := r.db.First(&gtx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGatewayTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get gateway transaction: %w", err)
	}
	return &gtx, nil
}

func (r *gatewayRepository) Save(gtx *models.GatewayTransaction) error {
	if err := r.db.Save(gtx).Error; err != nil {
		return fmt.Errorf("failed to save gateway transaction: %w", err)
	}
	return nil
}

func (r *gatewayRepository) MarkCashbackSent(id uint) (bool, error) {
	res := r.db.Model(&models.GatewayTransaction{}).
		Where("id = ? AND cashback_sent = ?", id, false).
		Update("cashback_sent", true)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark cashback sent: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gatewayRepository) ListStale(cutoff time.Time, limit int) ([]models.GatewayTransaction, error) {
	var gtxs []models.GatewayTransaction
	err := r.db.Where("gateway_status IN ? AND created_at < ?",
		[]string{models.GatewayStatusInitiated, models.GatewayStatusProviderAck}, cutoff).
		Order("created_at ASC").Limit(limit).Find(&gtxs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale gateway transactions: %w", err)
	}
	return gtxs, nil
}

func (r *gatewayRepository) ListByUser(userID uint, limit, offset int) ([]models.GatewayTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var gtxs []models.GatewayTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&gtxs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gateway transactions: %w", err)
	}
	return gtxs, nil
}
