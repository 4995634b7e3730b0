package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/loan"
	"tapcash/internal/services/rates"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLedgerRepo is an in-memory LedgerRepository. ExecuteInTransaction
// serializes units of work the way row locks do in production, and rolls
// back by restoring a snapshot on error.
type memLedgerRepo struct {
	mu       sync.Mutex
	accounts map[repositories.AccountRef]*repositories.Account
	txns     map[string]*models.Transaction
	txnOrder []string
	loans    map[uint]*models.Loan
	nextLoan uint
	nextTxn  uint
	mubs     map[[2]uint]*models.MerchantUserBalance
	inTx     bool
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{
		accounts: map[repositories.AccountRef]*repositories.Account{},
		txns:     map[string]*models.Transaction{},
		loans:    map[uint]*models.Loan{},
		mubs:     map[[2]uint]*models.MerchantUserBalance{},
	}
}

func (m *memLedgerRepo) seed(ref repositories.AccountRef, balance string) {
	m.accounts[ref] = &repositories.Account{
		Ref:     ref,
		Balance: decimal.RequireFromString(balance),
	}
}

func (m *memLedgerRepo) snapshot() *memLedgerRepo {
	snap := newMemLedgerRepo()
	for k, v := range m.accounts {
		cp := *v
		snap.accounts[k] = &cp
	}
	for k, v := range m.txns {
		cp := *v
		snap.txns[k] = &cp
	}
	snap.txnOrder = append([]string(nil), m.txnOrder...)
	for k, v := range m.loans {
		cp := *v
		snap.loans[k] = &cp
	}
	for k, v := range m.mubs {
		cp := *v
		snap.mubs[k] = &cp
	}
	snap.nextLoan, snap.nextTxn = m.nextLoan, m.nextTxn
	return snap
}

func (m *memLedgerRepo) restore(snap *memLedgerRepo) {
	m.accounts, m.txns, m.txnOrder = snap.accounts, snap.txns, snap.txnOrder
	m.loans, m.mubs = snap.loans, snap.mubs
	m.nextLoan, m.nextTxn = snap.nextLoan, snap.nextTxn
}

func (m *memLedgerRepo) ExecuteInTransaction(fn func(repositories.LedgerRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inTx = true
	defer func() { m.inTx = false }()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memLedgerRepo) GetAccountForUpdate(ref repositories.AccountRef) (*repositories.Account, error) {
	acc, ok := m.accounts[ref]
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memLedgerRepo) SaveAccount(acc *repositories.Account) error {
	cp := *acc
	m.accounts[acc.Ref] = &cp
	return nil
}

func (m *memLedgerRepo) CreateTransaction(txn *models.Transaction) error {
	if _, exists := m.txns[txn.TransactionID]; exists {
		return repositories.ErrDuplicateKey
	}
	m.nextTxn++
	txn.ID = m.nextTxn
	txn.CreatedAt = time.Now()
	cp := *txn
	m.txns[txn.TransactionID] = &cp
	m.txnOrder = append(m.txnOrder, txn.TransactionID)
	return nil
}

func (m *memLedgerRepo) GetTransactionByTransactionID(transactionID string) (*models.Transaction, error) {
	if !m.inTx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	txn, ok := m.txns[transactionID]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (m *memLedgerRepo) UpdateTransactionStatus(transactionID, from, to string) error {
	if !m.inTx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	txn, ok := m.txns[transactionID]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	if txn.Status != from {
		return repositories.ErrStaleStatus
	}
	txn.Status = to
	return nil
}

func (m *memLedgerRepo) ListTransactions(_ context.Context, filter repositories.TransactionFilter) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, id := range m.txnOrder {
		out = append(out, *m.txns[id])
	}
	return out, nil
}

func (m *memLedgerRepo) GetMerchantUserBalanceForUpdate(userID, receiverID uint) (*models.MerchantUserBalance, error) {
	key := [2]uint{userID, receiverID}
	mub, ok := m.mubs[key]
	if !ok {
		mub = &models.MerchantUserBalance{UserID: userID, ReceiverID: receiverID}
		m.mubs[key] = mub
	}
	cp := *mub
	return &cp, nil
}

func (m *memLedgerRepo) SaveMerchantUserBalance(mub *models.MerchantUserBalance) error {
	cp := *mub
	m.mubs[[2]uint{mub.UserID, mub.ReceiverID}] = &cp
	return nil
}

func (m *memLedgerRepo) CreateLoan(l *models.Loan) error {
	m.nextLoan++
	l.ID = m.nextLoan
	cp := *l
	m.loans[l.ID] = &cp
	return nil
}

func (m *memLedgerRepo) GetLoanForUpdate(id uint) (*models.Loan, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, repositories.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLedgerRepo) SaveLoan(l *models.Loan) error {
	cp := *l
	m.loans[l.ID] = &cp
	return nil
}

func (m *memLedgerRepo) balance(ref repositories.AccountRef) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[ref].Balance
}

type memCache struct{}

func (memCache) GetBalance(context.Context, string, uint) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}
func (memCache) CacheBalance(context.Context, string, uint, decimal.Decimal) error { return nil }
func (memCache) InvalidateBalance(context.Context, string, uint) error             { return nil }

type fixedRates struct {
	pct decimal.Decimal
	err error
}

func (f fixedRates) Resolve(context.Context, decimal.Decimal) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.pct, nil
}

type fixedSettings struct {
	bonusPct    decimal.Decimal
	discountPct decimal.Decimal
}

func (f fixedSettings) GlobalSettings() (*models.GlobalSettings, error) {
	return &models.GlobalSettings{
		UserBonusPercentage:     f.bonusPct,
		AdminDiscountPercentage: f.discountPct,
	}, nil
}

func newTestService(repo *memLedgerRepo, discountPct, bonusPct string) Service {
	return NewService(
		repo,
		memCache{},
		fixedRates{pct: decimal.RequireFromString(discountPct)},
		fixedSettings{bonusPct: decimal.RequireFromString(bonusPct)},
		nil,
	)
}

func TestTopUpFloatCoversEverything(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "1000")
	repo.seed(AdminAccount(), "0")
	svc := newTestService(repo, "0", "0")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:        1,
		ReceiverID:    2,
		Amount:        decimal.NewFromInt(500),
		FundingSource: FundingMerchantFloat,
	})
	require.NoError(t, err)

	assert.Nil(t, result.Loan)
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(500)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(500)))
	assert.Equal(t, models.TransactionTypeTopUp, result.Transaction.Type)
	assert.Equal(t, models.TransactionStatusSuccess, result.Transaction.Status)
}

func TestTopUpShortFloatCreatesLoan(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "300")
	repo.seed(AdminAccount(), "0")
	svc := newTestService(repo, "0", "0")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	// The user is credited in full; the uncovered 200 is a loan.
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(500)))
	assert.True(t, repo.balance(ReceiverAccount(2)).IsZero())
	require.NotNil(t, result.Loan)
	assert.True(t, result.Loan.LoanAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.Loan.RemainingAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, models.LoanStatusPending, result.Loan.Status)
}

func TestTopUpEmptyFloatLoansFullAmount(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "0")
	repo.seed(AdminAccount(), "0")
	svc := newTestService(repo, "0", "0")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Loan)
	assert.True(t, result.Loan.LoanAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(500)))
}

func TestTopUpDiscountAndBonusFromAdminPool(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "2000")
	repo.seed(AdminAccount(), "1000")
	svc := newTestService(repo, "5", "2")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	// Discount 5% of 1000 = 50 to the merchant, bonus 2% = 20 to the user,
	// both out of the admin pool.
	assert.True(t, result.Discount.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.UserBonus.Equal(decimal.NewFromInt(20)))
	assert.True(t, repo.balance(AdminAccount()).Equal(decimal.NewFromInt(930)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(1050)))
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(1020)))
	assert.True(t, result.Transaction.AdminIncomeAmount.Equal(decimal.NewFromInt(-70)))
}

func TestTopUpSkipsIncentivesWhenPoolShort(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "2000")
	repo.seed(AdminAccount(), "10")
	svc := newTestService(repo, "5", "2")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	// Pool cannot fund 70; the top-up still succeeds with no incentives.
	assert.True(t, result.Discount.IsZero())
	assert.True(t, result.UserBonus.IsZero())
	assert.True(t, repo.balance(AdminAccount()).Equal(decimal.NewFromInt(10)))
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(1000)))
}

func TestTopUpNoApplicableRangeMeansNoDiscount(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "2000")
	repo.seed(AdminAccount(), "1000")
	svc := NewService(repo, memCache{},
		fixedRates{err: rates.ErrNoApplicableRange},
		fixedSettings{bonusPct: decimal.Zero}, nil)

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.True(t, result.Discount.IsZero())
}

func TestTopUpGlobalDiscountAppliesWithoutMatchingRange(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "2000")
	repo.seed(AdminAccount(), "1000")
	svc := NewService(repo, memCache{},
		fixedRates{err: rates.ErrNoApplicableRange},
		fixedSettings{discountPct: decimal.NewFromInt(5)}, nil)

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	// 5% of 1000 from the admin pool to the merchant.
	assert.True(t, result.Discount.Equal(decimal.NewFromInt(50)))
	assert.True(t, repo.balance(AdminAccount()).Equal(decimal.NewFromInt(950)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.RequireFromString("1050")))
}

func TestTopUpRangeOverridesGlobalDiscount(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "2000")
	repo.seed(AdminAccount(), "1000")
	svc := NewService(repo, memCache{},
		fixedRates{pct: decimal.NewFromInt(2)},
		fixedSettings{discountPct: decimal.NewFromInt(5)}, nil)

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.True(t, result.Discount.Equal(decimal.NewFromInt(20)))
}

func TestTopUpConservation(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "100")
	repo.seed(ReceiverAccount(2), "700")
	repo.seed(AdminAccount(), "500")
	svc := newTestService(repo, "5", "2")

	before := repo.balance(UserAccount(1)).
		Add(repo.balance(ReceiverAccount(2))).
		Add(repo.balance(AdminAccount()))

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Loan)

	after := repo.balance(UserAccount(1)).
		Add(repo.balance(ReceiverAccount(2))).
		Add(repo.balance(AdminAccount()))

	// Internal balances only grow by the credit the loan injected; the
	// incentives are pool-internal moves.
	assert.True(t, after.Sub(before).Equal(result.Loan.LoanAmount),
		"before %s after %s loan %s", before, after, result.Loan.LoanAmount)
}

func TestTopUpInvalidInputs(t *testing.T) {
	repo := newMemLedgerRepo()
	svc := newTestService(repo, "0", "0")

	_, err := svc.TopUp(context.Background(), TopUpRequest{UserID: 1, ReceiverID: 2, Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.TopUp(context.Background(), TopUpRequest{ReceiverID: 2, Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestTransferInsufficientBalanceLeavesBothUntouched(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "50")
	repo.seed(ReceiverAccount(2), "10")
	svc := newTestService(repo, "0", "0")

	_, err := svc.Transfer(context.Background(), TransferRequest{
		From:   UserAccount(1),
		To:     ReceiverAccount(2),
		Amount: decimal.NewFromInt(100),
		Type:   models.TransactionTypeMerchantPayment,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(50)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(10)))
}

func TestTransferIdempotentByTransactionID(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "500")
	repo.seed(ReceiverAccount(2), "0")
	svc := newTestService(repo, "0", "0")

	req := TransferRequest{
		From:          UserAccount(1),
		To:            ReceiverAccount(2),
		Amount:        decimal.NewFromInt(100),
		Type:          models.TransactionTypeMerchantPayment,
		TransactionID: "TX-fixed",
	}

	first, err := svc.Transfer(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Transfer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	// Applied exactly once.
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(400)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(100)))
}

func TestTransferExternalSides(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	svc := newTestService(repo, "0", "0")

	// External inflow: no sender balance row to check or debit.
	txn, err := svc.Transfer(context.Background(), TransferRequest{
		From:   repositories.External,
		To:     UserAccount(1),
		Amount: decimal.NewFromInt(250),
		Type:   models.TransactionTypeTopUp,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PartyExternal, txn.SenderKind)
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(250)))

	// External outflow debits the user and vanishes.
	_, err = svc.Transfer(context.Background(), TransferRequest{
		From:   UserAccount(1),
		To:     repositories.External,
		Amount: decimal.NewFromInt(100),
		Type:   models.TransactionTypeBillPayment,
	})
	require.NoError(t, err)
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(150)))
}

func TestTransferSameAccount(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "100")
	svc := newTestService(repo, "0", "0")

	_, err := svc.Transfer(context.Background(), TransferRequest{
		From:   UserAccount(1),
		To:     UserAccount(1),
		Amount: decimal.NewFromInt(10),
		Type:   models.TransactionTypeMerchantPayment,
	})
	assert.ErrorIs(t, err, ErrSameAccount)
}

func TestConcurrentTransfersNoDoubleSpend(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "100")
	repo.seed(ReceiverAccount(2), "0")
	svc := newTestService(repo, "0", "0")

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transfer(context.Background(), TransferRequest{
				From:   UserAccount(1),
				To:     ReceiverAccount(2),
				Amount: decimal.NewFromInt(10),
				Type:   models.TransactionTypeMerchantPayment,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 10, succeeded)
	assert.True(t, repo.balance(UserAccount(1)).IsZero())
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(100)))
}

func TestPayDrawsDownPairSubWallet(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "1000")
	repo.seed(AdminAccount(), "0")
	svc := newTestService(repo, "0", "0")

	_, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), PayRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(100)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(900)))

	mub := repo.mubs[[2]uint{1, 2}]
	assert.True(t, mub.Balance.Equal(decimal.NewFromInt(100)))

	// Spending more than the pair sub-wallet clamps it at zero instead of
	// going negative.
	_, err = svc.Pay(context.Background(), PayRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, repo.mubs[[2]uint{1, 2}].Balance.IsZero())
}

func TestPayInsufficientBalance(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "50")
	repo.seed(ReceiverAccount(2), "0")
	svc := newTestService(repo, "0", "0")

	_, err := svc.Pay(context.Background(), PayRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRecordLoanRepayment(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "0")
	repo.seed(ReceiverAccount(2), "0")
	repo.seed(AdminAccount(), "0")
	svc := newTestService(repo, "0", "0")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Loan)
	loanID := result.Loan.ID

	txn, err := svc.RecordLoanRepayment(context.Background(), loanID, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeLoanRepayment, txn.Type)
	assert.True(t, repo.balance(UserAccount(1)).Equal(decimal.NewFromInt(300)))
	assert.True(t, repo.balance(ReceiverAccount(2)).Equal(decimal.NewFromInt(200)))
	assert.Equal(t, models.LoanStatusPartiallyPaid, repo.loans[loanID].Status)

	_, err = svc.RecordLoanRepayment(context.Background(), loanID, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusCompleted, repo.loans[loanID].Status)

	// COMPLETED is terminal; the failed attempt moves no money.
	_, err = svc.RecordLoanRepayment(context.Background(), loanID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, loan.ErrLoanAlreadySettled)
	assert.True(t, repo.balance(UserAccount(1)).IsZero())
}

func TestRecordLoanRepaymentOverpayment(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "1000")
	repo.seed(ReceiverAccount(2), "0")
	repo.seed(AdminAccount(), "0")
	svc := newTestService(repo, "0", "0")

	result, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID:     1,
		ReceiverID: 2,
		Amount:     decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = svc.RecordLoanRepayment(context.Background(), result.Loan.ID, decimal.NewFromInt(501))
	assert.ErrorIs(t, err, loan.ErrOverpayment)
}

func TestRecordLoanRepaymentUnknownLoan(t *testing.T) {
	repo := newMemLedgerRepo()
	svc := newTestService(repo, "0", "0")

	_, err := svc.RecordLoanRepayment(context.Background(), 99, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, loan.ErrLoanNotFound)
}

func TestMarkTransactionStatusExactlyOnce(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.seed(UserAccount(1), "500")
	svc := newTestService(repo, "0", "0")

	_, err := svc.Transfer(context.Background(), TransferRequest{
		From:          UserAccount(1),
		To:            repositories.External,
		Amount:        decimal.NewFromInt(100),
		Type:          models.TransactionTypeBillPayment,
		TransactionID: "GW-1",
		Status:        models.TransactionStatusPending,
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkTransactionStatus(context.Background(), "GW-1",
		models.TransactionStatusPending, models.TransactionStatusSuccess))

	err = svc.MarkTransactionStatus(context.Background(), "GW-1",
		models.TransactionStatusPending, models.TransactionStatusFailed)
	assert.ErrorIs(t, err, repositories.ErrStaleStatus)
}
