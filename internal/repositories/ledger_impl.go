package repositories

import (
	"context"
	"errors"
	"fmt"

	"tapcash/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ExecuteInTransaction(fn func(LedgerRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) GetAccountForUpdate(ref AccountRef) (*Account, error) {
	locked := r.db.Clauses(clause.Locking{Strength: "UPDATE"})

	switch ref.Kind {
	case models.PartyUser:
		var u models.User
		if err := locked.First(&u, ref.ID).Error; err != nil {
			return nil, wrapNotFound(err, "user %d", ref.ID)
		}
		return &Account{Ref: ref, Balance: u.Balance, TotalInflow: u.TotalInflow}, nil
	case models.PartyReceiver:
		var rec models.Receiver
		if err := locked.First(&rec, ref.ID).Error; err != nil {
			return nil, wrapNotFound(err, "receiver %d", ref.ID)
		}
		return &Account{Ref: ref, Balance: rec.Balance, TotalInflow: rec.TotalInflow}, nil
	case models.PartyAdmin:
		var pool models.AdminPool
		if err := locked.First(&pool, adminPoolID).Error; err != nil {
			return nil, wrapNotFound(err, "admin pool")
		}
		return &Account{Ref: ref, Balance: pool.Balance, TotalInflow: pool.TotalInflow}, nil
	default:
		return nil, fmt.Errorf("unknown account kind %q", ref.Kind)
	}
}

func (r *ledgerRepository) SaveAccount(acc *Account) error {
	updates := map[string]interface{}{
		"balance":      acc.Balance,
		"total_inflow": acc.TotalInflow,
	}

	var res *gorm.DB
	switch acc.Ref.Kind {
	case models.PartyUser:
		res = r.db.Model(&models.User{}).Where("id = ?", acc.Ref.ID).Updates(updates)
	case models.PartyReceiver:
		res = r.db.Model(&models.Receiver{}).Where("id = ?", acc.Ref.ID).Updates(updates)
	case models.PartyAdmin:
		res = r.db.Model(&models.AdminPool{}).Where("id = ?", adminPoolID).Updates(updates)
	default:
		return fmt.Errorf("unknown account kind %q", acc.Ref.Kind)
	}
	if res.Error != nil {
		return fmt.Errorf("failed to save account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *ledgerRepository) CreateTransaction(txn *models.Transaction) error {
	if err := r.db.Create(txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByTransactionID(transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.Where("transaction_id = ?", transactionID).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) UpdateTransactionStatus(transactionID, from, to string) error {
	res := r.db.Model(&models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.UserID != nil {
		q = q.Where("(sender_kind = ? AND sender_id = ?) OR (receiver_kind = ? AND receiver_id = ?)",
			models.PartyUser, *filter.UserID, models.PartyUser, *filter.UserID)
	}
	if filter.ReceiverID != nil {
		q = q.Where("(sender_kind = ? AND sender_id = ?) OR (receiver_kind = ? AND receiver_id = ?)",
			models.PartyReceiver, *filter.ReceiverID, models.PartyReceiver, *filter.ReceiverID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var txns []models.Transaction
	err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func (r *ledgerRepository) GetMerchantUserBalanceForUpdate(userID, receiverID uint) (*models.MerchantUserBalance, error) {
	var mub models.MerchantUserBalance
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND receiver_id = ?", userID, receiverID).
		First(&mub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mub = models.MerchantUserBalance{UserID: userID, ReceiverID: receiverID}
		if err := r.db.Create(&mub).Error; err != nil {
			return nil, fmt.Errorf("failed to create merchant user balance: %w", err)
		}
		return &mub, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant user balance: %w", err)
	}
	return &mub, nil
}

func (r *ledgerRepository) SaveMerchantUserBalance(mub *models.MerchantUserBalance) error {
	if err := r.db.Save(mub).Error; err != nil {
		return fmt.Errorf("failed to save merchant user balance: %w", err)
	}
	return nil
}

func (r *ledgerRepository) CreateLoan(loan *models.Loan) error {
	if err := r.db.Create(loan).Error; err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetLoanForUpdate(id uint) (*models.Loan, error) {
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

func (r *ledgerRepository) SaveLoan(loan *models.Loan) error {
	if err := r.db.Save(loan).Error; err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	return nil
}

func wrapNotFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	return fmt.Errorf("failed to load "+format+": %w", append(args, err)...)
}
