// Package ledger implements the atomic balance mutation primitives for user
// wallets, merchant wallets and the admin pool. No other component writes
// balances directly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/loan"
	"tapcash/internal/services/rates"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type service struct {
	repo     repositories.LedgerRepository
	cache    BalanceCache
	rates    RateResolver
	settings SettingsSource
	metrics  MetricsCollector
}

// NewService creates the ledger service.
func NewService(
	repo repositories.LedgerRepository,
	cache BalanceCache,
	rateResolver RateResolver,
	settings SettingsSource,
	metrics MetricsCollector,
) Service {
	if repo == nil {
		panic("ledger repository is required")
	}
	if cache == nil {
		panic("balance cache is required")
	}
	if rateResolver == nil {
		panic("rate resolver is required")
	}
	if settings == nil {
		panic("settings source is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{
		repo:     repo,
		cache:    cache,
		rates:    rateResolver,
		settings: settings,
		metrics:  metrics,
	}
}

func (s *service) TopUp(ctx context.Context, req TopUpRequest) (*TopUpResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.UserID == 0 || req.ReceiverID == 0 {
		return nil, ErrAccountNotFound
	}

	// Resolve side-effect percentages before opening the unit of work so a
	// configuration gap cannot abort a half-applied top-up.
	bonusPct := decimal.Zero
	fallbackDiscountPct := decimal.Zero
	if globals, err := s.settings.GlobalSettings(); err == nil {
		bonusPct = globals.UserBonusPercentage
		fallbackDiscountPct = globals.AdminDiscountPercentage
	} else if !errors.Is(err, repositories.ErrSettingNotFound) {
		return nil, fmt.Errorf("failed to load global settings: %w", err)
	}

	// A matching range overrides the platform-wide discount percentage;
	// with no range configured the global one applies.
	discountPct := fallbackDiscountPct
	if pct, err := s.rates.Resolve(ctx, req.Amount); err == nil {
		discountPct = pct
	} else if !errors.Is(err, rates.ErrNoApplicableRange) {
		return nil, fmt.Errorf("failed to resolve discount rate: %w", err)
	}

	result := &TopUpResult{}
	userRef := UserAccount(req.UserID)
	merchRef := ReceiverAccount(req.ReceiverID)
	adminRef := AdminAccount()

	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		accs, err := lockOrdered(tx, userRef, merchRef, adminRef)
		if err != nil {
			return err
		}
		user, merch, admin := accs[userRef], accs[merchRef], accs[adminRef]

		// The merchant float covers what it can; the rest becomes a loan.
		covered := decimal.Min(merch.Balance, req.Amount)
		loanAmount := req.Amount.Sub(covered)

		userBefore, merchBefore := user.Balance, merch.Balance
		merch.Balance = merch.Balance.Sub(covered)
		user.Balance = user.Balance.Add(req.Amount)
		user.TotalInflow = user.TotalInflow.Add(req.Amount)

		// Discount and bonus are incentives funded by the admin pool; they
		// are skipped, not failed, when the pool cannot cover them.
		discount := req.Amount.Mul(discountPct).Div(hundred).Round(2)
		bonus := req.Amount.Mul(bonusPct).Div(hundred).Round(2)
		if admin.Balance.LessThan(discount.Add(bonus)) {
			discount, bonus = decimal.Zero, decimal.Zero
		}
		admin.Balance = admin.Balance.Sub(discount).Sub(bonus)
		merch.Balance = merch.Balance.Add(discount)
		user.Balance = user.Balance.Add(bonus)
		user.TotalInflow = user.TotalInflow.Add(bonus)

		for _, acc := range []*repositories.Account{user, merch, admin} {
			if err := tx.SaveAccount(acc); err != nil {
				return err
			}
		}

		mub, err := tx.GetMerchantUserBalanceForUpdate(req.UserID, req.ReceiverID)
		if err != nil {
			return err
		}
		mub.Balance = mub.Balance.Add(req.Amount)
		mub.TotalToppedUp = mub.TotalToppedUp.Add(req.Amount)
		if err := tx.SaveMerchantUserBalance(mub); err != nil {
			return err
		}

		txn := &models.Transaction{
			TransactionID:         newTransactionID(),
			Type:                  models.TransactionTypeTopUp,
			Status:                models.TransactionStatusSuccess,
			Amount:                req.Amount,
			SenderKind:            models.PartyReceiver,
			SenderID:              req.ReceiverID,
			SenderBalanceBefore:   merchBefore,
			SenderBalanceAfter:    merch.Balance,
			ReceiverKind:          models.PartyUser,
			ReceiverID:            req.UserID,
			ReceiverBalanceBefore: userBefore,
			ReceiverBalanceAfter:  user.Balance,
			DiscountAmount:        discount,
			UserBonusAmount:       bonus,
			AdminIncomeAmount:     discount.Add(bonus).Neg(),
			Description:           req.Description,
			Metadata: models.NewJSON(map[string]interface{}{
				"funding_source": req.FundingSource,
				"loan_amount":    loanAmount.String(),
			}),
		}
		if err := tx.CreateTransaction(txn); err != nil {
			return err
		}
		result.Transaction = txn
		result.Discount = discount
		result.UserBonus = bonus

		if loanAmount.IsPositive() {
			l := loan.New(req.UserID, req.ReceiverID, txn.ID, loanAmount)
			if err := tx.CreateLoan(l); err != nil {
				return err
			}
			result.Loan = l
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordError("top_up", err.Error())
		return nil, err
	}

	s.invalidate(ctx, userRef, merchRef, adminRef)
	s.metrics.RecordTransaction(models.TransactionTypeTopUp, req.Amount)
	return result, nil
}

func (s *service) Transfer(ctx context.Context, req TransferRequest) (*models.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.From == req.To {
		return nil, ErrSameAccount
	}
	if req.Status == "" {
		req.Status = models.TransactionStatusSuccess
	}
	if req.TransactionID == "" {
		req.TransactionID = newTransactionID()
	} else if existing, err := s.repo.GetTransactionByTransactionID(req.TransactionID); err == nil {
		// Already applied; retried fan-outs and webhook replays land here.
		return existing, nil
	} else if !errors.Is(err, repositories.ErrTransactionNotFound) {
		return nil, err
	}

	var txn *models.Transaction
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		accs, err := lockOrdered(tx, req.From, req.To)
		if err != nil {
			return err
		}

		var fromBefore, fromAfter, toBefore, toAfter decimal.Decimal
		if from, ok := accs[req.From]; ok {
			if from.Balance.LessThan(req.Amount) {
				return ErrInsufficientBalance
			}
			fromBefore = from.Balance
			from.Balance = from.Balance.Sub(req.Amount)
			fromAfter = from.Balance
			if err := tx.SaveAccount(from); err != nil {
				return err
			}
		}
		if to, ok := accs[req.To]; ok {
			toBefore = to.Balance
			to.Balance = to.Balance.Add(req.Amount)
			to.TotalInflow = to.TotalInflow.Add(req.Amount)
			toAfter = to.Balance
			if err := tx.SaveAccount(to); err != nil {
				return err
			}
		}

		txn = &models.Transaction{
			TransactionID:         req.TransactionID,
			Type:                  req.Type,
			Status:                req.Status,
			Amount:                req.Amount,
			SenderKind:            req.From.Kind,
			SenderID:              req.From.ID,
			SenderBalanceBefore:   fromBefore,
			SenderBalanceAfter:    fromAfter,
			ReceiverKind:          req.To.Kind,
			ReceiverID:            req.To.ID,
			ReceiverBalanceBefore: toBefore,
			ReceiverBalanceAfter:  toAfter,
			DiscountAmount:        req.DiscountAmount,
			UserBonusAmount:       req.UserBonusAmount,
			AdminIncomeAmount:     req.AdminIncomeAmount,
			Description:           req.Description,
			Metadata:              req.Metadata,
		}
		return tx.CreateTransaction(txn)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Lost a race against a concurrent retry of the same transfer.
			return s.repo.GetTransactionByTransactionID(req.TransactionID)
		}
		s.metrics.RecordError("transfer", err.Error())
		return nil, err
	}

	s.invalidate(ctx, req.From, req.To)
	s.metrics.RecordTransaction(req.Type, req.Amount)
	return txn, nil
}

func (s *service) Pay(ctx context.Context, req PayRequest) (*models.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	userRef := UserAccount(req.UserID)
	merchRef := ReceiverAccount(req.ReceiverID)

	var txn *models.Transaction
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		accs, err := lockOrdered(tx, userRef, merchRef)
		if err != nil {
			return err
		}
		user, merch := accs[userRef], accs[merchRef]

		if user.Balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}

		userBefore, merchBefore := user.Balance, merch.Balance
		user.Balance = user.Balance.Sub(req.Amount)
		merch.Balance = merch.Balance.Add(req.Amount)
		merch.TotalInflow = merch.TotalInflow.Add(req.Amount)

		if err := tx.SaveAccount(user); err != nil {
			return err
		}
		if err := tx.SaveAccount(merch); err != nil {
			return err
		}

		// The per-pair sub-wallet is drawn down first: spending tops-ups
		// made through this merchant before generic balance.
		mub, err := tx.GetMerchantUserBalanceForUpdate(req.UserID, req.ReceiverID)
		if err != nil {
			return err
		}
		mub.Balance = decimal.Max(decimal.Zero, mub.Balance.Sub(req.Amount))
		if err := tx.SaveMerchantUserBalance(mub); err != nil {
			return err
		}

		txn = &models.Transaction{
			TransactionID:         newTransactionID(),
			Type:                  models.TransactionTypeMerchantPayment,
			Status:                models.TransactionStatusSuccess,
			Amount:                req.Amount,
			SenderKind:            models.PartyUser,
			SenderID:              req.UserID,
			SenderBalanceBefore:   userBefore,
			SenderBalanceAfter:    user.Balance,
			ReceiverKind:          models.PartyReceiver,
			ReceiverID:            req.ReceiverID,
			ReceiverBalanceBefore: merchBefore,
			ReceiverBalanceAfter:  merch.Balance,
			Description:           req.Description,
		}
		return tx.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordError("merchant_payment", err.Error())
		return nil, err
	}

	s.invalidate(ctx, userRef, merchRef)
	s.metrics.RecordTransaction(models.TransactionTypeMerchantPayment, req.Amount)
	return txn, nil
}

func (s *service) RecordLoanRepayment(ctx context.Context, loanID uint, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var txn *models.Transaction
	var userRef, merchRef repositories.AccountRef

	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		l, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			if errors.Is(err, repositories.ErrLoanNotFound) {
				return loan.ErrLoanNotFound
			}
			return err
		}
		if err := loan.Apply(l, amount); err != nil {
			return err
		}

		userRef = UserAccount(l.UserID)
		merchRef = ReceiverAccount(l.ReceiverID)
		accs, err := lockOrdered(tx, userRef, merchRef)
		if err != nil {
			return err
		}
		user, merch := accs[userRef], accs[merchRef]

		if user.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}

		userBefore, merchBefore := user.Balance, merch.Balance
		user.Balance = user.Balance.Sub(amount)
		merch.Balance = merch.Balance.Add(amount)
		merch.TotalInflow = merch.TotalInflow.Add(amount)

		if err := tx.SaveAccount(user); err != nil {
			return err
		}
		if err := tx.SaveAccount(merch); err != nil {
			return err
		}
		if err := tx.SaveLoan(l); err != nil {
			return err
		}

		txn = &models.Transaction{
			TransactionID:         newTransactionID(),
			Type:                  models.TransactionTypeLoanRepayment,
			Status:                models.TransactionStatusSuccess,
			Amount:                amount,
			SenderKind:            models.PartyUser,
			SenderID:              l.UserID,
			SenderBalanceBefore:   userBefore,
			SenderBalanceAfter:    user.Balance,
			ReceiverKind:          models.PartyReceiver,
			ReceiverID:            l.ReceiverID,
			ReceiverBalanceBefore: merchBefore,
			ReceiverBalanceAfter:  merch.Balance,
			Description:           "loan repayment",
			Metadata: models.NewJSON(map[string]interface{}{
				"loan_id":     l.ID,
				"loan_status": l.Status,
			}),
		}
		return tx.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordError("loan_repayment", err.Error())
		return nil, err
	}

	s.invalidate(ctx, userRef, merchRef)
	s.metrics.RecordTransaction(models.TransactionTypeLoanRepayment, amount)
	return txn, nil
}

func (s *service) MarkTransactionStatus(ctx context.Context, transactionID, from, to string) error {
	return s.repo.UpdateTransactionStatus(transactionID, from, to)
}

func (s *service) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.repo.GetTransactionByTransactionID(transactionID)
}

func (s *service) GetBalance(ctx context.Context, ref repositories.AccountRef) (decimal.Decimal, error) {
	if balance, found, err := s.cache.GetBalance(ctx, ref.Kind, ref.ID); err == nil && found {
		return balance, nil
	}

	var balance decimal.Decimal
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		acc, err := tx.GetAccountForUpdate(ref)
		if err != nil {
			return err
		}
		balance = acc.Balance
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}

	if err := s.cache.CacheBalance(ctx, ref.Kind, ref.ID, balance); err != nil {
		log.Printf("failed to cache balance for %s %d: %v", ref.Kind, ref.ID, err)
	}
	return balance, nil
}

// invalidate drops cached balances after a commit. Failures are logged only;
// the cache is advisory.
func (s *service) invalidate(ctx context.Context, refs ...repositories.AccountRef) {
	for _, ref := range refs {
		if ref.Kind == models.PartyExternal {
			continue
		}
		if err := s.cache.InvalidateBalance(ctx, ref.Kind, ref.ID); err != nil {
			log.Printf("failed to invalidate balance cache for %s %d: %v", ref.Kind, ref.ID, err)
		}
	}
}

// lockOrdered acquires row locks for all non-external refs in ascending
// entity-id order (kind breaks id ties) so bidirectional transfers cannot
// deadlock. External refs are valid inputs but take no lock and appear in
// no map entry.
func lockOrdered(tx repositories.LedgerRepository, refs ...repositories.AccountRef) (map[repositories.AccountRef]*repositories.Account, error) {
	toLock := make([]repositories.AccountRef, 0, len(refs))
	seen := make(map[repositories.AccountRef]bool, len(refs))
	for _, ref := range refs {
		if ref.Kind == models.PartyExternal || seen[ref] {
			continue
		}
		seen[ref] = true
		toLock = append(toLock, ref)
	}
	sort.Slice(toLock, func(i, j int) bool {
		if toLock[i].ID != toLock[j].ID {
			return toLock[i].ID < toLock[j].ID
		}
		return toLock[i].Kind < toLock[j].Kind
	})

	accs := make(map[repositories.AccountRef]*repositories.Account, len(toLock))
	for _, ref := range toLock {
		acc, err := tx.GetAccountForUpdate(ref)
		if err != nil {
			if errors.Is(err, repositories.ErrAccountNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}
		accs[ref] = acc
	}
	return accs, nil
}

func newTransactionID() string {
	return "TX-" + uuid.NewString()
}
