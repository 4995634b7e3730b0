// Package gateway tracks bill payments against external providers and
// reconciles their asynchronous webhook and poll results. Events for one
// transaction are serialized; replays are no-ops; conflicting terminal
// reports are rejected rather than overwritten.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/ledger"
	"tapcash/internal/services/split"

	"github.com/google/uuid"
)

const (
	DefaultInitiateTimeout = 15 * time.Second
	DefaultStalenessWindow = 30 * time.Minute
	DefaultSweepBatchSize  = 100
)

type service struct {
	repo      repositories.GatewayRepository
	ledger    Ledger
	splitter  Splitter
	providers map[string]Provider
	primary   string
	secrets   map[string]string // webhook secret per provider name
	notifier  Notifier
	cfg       Config
	mu        keyedMutex
}

// NewService creates the reconciliation state machine. The first provider
// passed is the primary one used when a request names none.
func NewService(
	repo repositories.GatewayRepository,
	l Ledger,
	splitter Splitter,
	providers []Provider,
	secrets map[string]string,
	notifier Notifier,
	cfg Config,
) Service {
	if repo == nil {
		panic("gateway repository is required")
	}
	if l == nil {
		panic("ledger is required")
	}
	if splitter == nil {
		panic("splitter is required")
	}
	if len(providers) == 0 {
		panic("at least one provider is required")
	}
	if cfg.InitiateTimeout == 0 {
		cfg.InitiateTimeout = DefaultInitiateTimeout
	}
	if cfg.StalenessWindow == 0 {
		cfg.StalenessWindow = DefaultStalenessWindow
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = DefaultSweepBatchSize
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &service{
		repo:      repo,
		ledger:    l,
		splitter:  splitter,
		providers: byName,
		primary:   providers[0].Name(),
		secrets:   secrets,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func (s *service) Initiate(ctx context.Context, req InitiateRequest) (*models.GatewayTransaction, error) {
	if !req.Amount.IsPositive() || req.CustomerPhone == "" || req.ServiceType == "" || req.UserID == 0 {
		return nil, ErrInvalidRequest
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = s.primary
	}
	prov, ok := s.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	// Split amounts are fixed at initiation so a later settings change
	// cannot alter what an in-flight transaction pays out.
	cfg, err := s.splitter.ConfigFor(ctx, req.ServiceType)
	if err != nil {
		if !errors.Is(err, split.ErrMissingGatewaySetting) {
			return nil, err
		}
		cfg = split.Config{} // no split configured for this service type
	}
	shares, err := split.Compute(req.Amount, cfg)
	if err != nil {
		return nil, err
	}

	internalID := "GW-" + uuid.NewString()
	gtx := &models.GatewayTransaction{
		TransactionID:          internalID,
		Provider:               providerName,
		ServiceType:            req.ServiceType,
		UserID:                 req.UserID,
		ReceiverID:             req.ReceiverID,
		CustomerPhone:          req.CustomerPhone,
		Amount:                 req.Amount,
		GatewayStatus:          models.GatewayStatusInitiated,
		InitialGatewayStatus:   models.GatewayStatusInitiated,
		ProviderShareAmount:    shares.Provider,
		CustomerCashbackAmount: shares.Cashback,
		PlatformShareAmount:    shares.Platform,
		ProviderShareTxnID:     internalID + "-PROVIDER",
		CashbackTxnID:          internalID + "-CASHBACK",
		PlatformShareTxnID:     internalID + "-PLATFORM",
	}

	// Hold the customer's money first. The hold transaction stays PENDING
	// until a terminal signal arrives.
	_, err = s.ledger.Transfer(ctx, ledger.TransferRequest{
		From:          ledger.UserAccount(req.UserID),
		To:            repositories.External,
		Amount:        req.Amount,
		Type:          models.TransactionTypeBillPayment,
		TransactionID: internalID,
		Status:        models.TransactionStatusPending,
		Description:   fmt.Sprintf("%s bill payment for %s", req.ServiceType, req.CustomerPhone),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(gtx); err != nil {
		if ferr := s.finalizeHold(ctx, gtx, models.TransactionStatusFailed); ferr != nil {
			log.Printf("gateway: could not fail hold for %s: %v", gtx.TransactionID, ferr)
		}
		if rerr := s.reverseHold(ctx, gtx); rerr != nil {
			log.Printf("gateway: could not reverse hold for %s: %v", gtx.TransactionID, rerr)
		}
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.InitiateTimeout)
	defer cancel()
	ack, err := prov.Initiate(callCtx, internalID, req.ServiceType, req.CustomerPhone, req.Amount)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The provider may still be processing: report pending, never
			// fabricate a terminal result from a timeout.
			log.Printf("gateway: initiation timed out for %s, awaiting webhook or poll", internalID)
			return gtx, nil
		}
		s.failInitiation(ctx, gtx, err)
		return nil, ErrGatewayUnavailable
	}

	gtx.ProviderTrxID = ack.ProviderTrxID
	gtx.ProviderStatus = ack.Status
	gtx.InitialProviderStatus = ack.Status
	gtx.PollEndpoint = ack.PollEndpoint
	gtx.RetryAfterSecs = ack.RetryAfterSecs
	gtx.GatewayStatus = models.GatewayStatusProviderAck
	if err := s.repo.Save(gtx); err != nil {
		return nil, err
	}

	// Some providers answer synchronously with a terminal status.
	if st := normalizeStatus(ack.Status); st != models.GatewayStatusProviderAck {
		unlock := s.mu.lock(internalID)
		defer unlock()
		if _, err := s.apply(ctx, gtx.ID, &StatusReport{ProviderTrxID: ack.ProviderTrxID, Status: ack.Status}); err != nil {
			return nil, err
		}
		return s.repo.GetByID(gtx.ID)
	}
	return gtx, nil
}

func (s *service) HandleWebhook(ctx context.Context, token string) (*Outcome, error) {
	report, providerName, err := parseWebhookToken(token, s.secrets)
	if err != nil {
		return &Outcome{Kind: OutcomeRejected, Reason: "invalid token"}, err
	}

	gtx, err := s.repo.GetByProviderTrxID(report.ProviderTrxID)
	if err != nil {
		if errors.Is(err, repositories.ErrGatewayTransactionNotFound) {
			// Logged, not retried: a retry cannot make the transaction appear.
			log.Printf("gateway: webhook for unknown provider trx %s", report.ProviderTrxID)
			return &Outcome{Kind: OutcomeRejected, Reason: "unknown transaction"}, ErrUnknownTransaction
		}
		return nil, err
	}
	if gtx.Provider != providerName {
		return &Outcome{Kind: OutcomeRejected, Reason: "token issuer does not match transaction provider"}, ErrInvalidWebhookToken
	}

	unlock := s.mu.lock(gtx.TransactionID)
	defer unlock()
	return s.apply(ctx, gtx.ID, report)
}

func (s *service) PollStatus(ctx context.Context, transactionID string) (*Outcome, error) {
	gtx, err := s.repo.GetByTransactionID(transactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrGatewayTransactionNotFound) {
			return nil, ErrUnknownTransaction
		}
		return nil, err
	}
	if gtx.Terminal() {
		if gtx.GatewayStatus == models.GatewayStatusSuccess && !gtx.CashbackSent {
			unlock := s.mu.lock(gtx.TransactionID)
			defer unlock()
			gtx, err = s.repo.GetByID(gtx.ID)
			if err != nil {
				return nil, err
			}
			if err := s.settleOnce(ctx, gtx); err != nil {
				return nil, err
			}
		}
		return &Outcome{Kind: OutcomeAlreadyApplied, Transaction: gtx}, nil
	}

	prov, ok := s.providers[gtx.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	report, err := prov.CheckStatus(ctx, gtx.PollEndpoint, gtx.ProviderTrxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	unlock := s.mu.lock(gtx.TransactionID)
	defer unlock()
	return s.apply(ctx, gtx.ID, report)
}

func (s *service) SweepStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.StalenessWindow)
	stale, err := s.repo.ListStale(cutoff, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range stale {
		gtx := &stale[i]

		// One last chance over the poll path before forcing failure.
		if gtx.ProviderTrxID != "" {
			if out, err := s.PollStatus(ctx, gtx.TransactionID); err == nil &&
				out.Transaction != nil && out.Transaction.Terminal() {
				closed++
				continue
			}
		}

		unlock := s.mu.lock(gtx.TransactionID)
		out, err := s.apply(ctx, gtx.ID, &StatusReport{
			ProviderTrxID: gtx.ProviderTrxID,
			Status:        models.GatewayStatusFailed,
		})
		unlock()
		if err != nil {
			log.Printf("gateway: sweep could not close %s: %v", gtx.TransactionID, err)
			continue
		}
		if out.Kind == OutcomeApplied {
			closed++
		}
	}
	return closed, nil
}

func (s *service) Get(ctx context.Context, transactionID string) (*models.GatewayTransaction, error) {
	gtx, err := s.repo.GetByTransactionID(transactionID)
	if errors.Is(err, repositories.ErrGatewayTransactionNotFound) {
		return nil, ErrUnknownTransaction
	}
	return gtx, err
}

func (s *service) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.GatewayTransaction, error) {
	return s.repo.ListByUser(userID, limit, offset)
}

// apply advances one transaction with one status report. Callers must hold
// the keyed mutex for the transaction.
func (s *service) apply(ctx context.Context, gtxID uint, report *StatusReport) (*Outcome, error) {
	gtx, err := s.repo.GetByID(gtxID)
	if err != nil {
		return nil, err
	}

	next := normalizeStatus(report.Status)
	if gtx.Terminal() {
		if next == gtx.GatewayStatus {
			if next == models.GatewayStatusSuccess {
				// An earlier SUCCESS event may have finalized the hold
				// without completing the fan-out; the replay finishes it.
				if err := s.settleOnce(ctx, gtx); err != nil {
					return nil, err
				}
			}
			return &Outcome{Kind: OutcomeAlreadyApplied, Transaction: gtx}, nil
		}
		if next == models.GatewayStatusSuccess || next == models.GatewayStatusFailed {
			// A duplicate or out-of-order webhook claims the opposite
			// terminal state; never overwrite, surface the inconsistency.
			return &Outcome{Kind: OutcomeRejected, Reason: "conflicting terminal state", Transaction: gtx},
				ErrConflictingTerminalState
		}
		// Late non-terminal event after the transaction finished.
		return &Outcome{Kind: OutcomeAlreadyApplied, Transaction: gtx}, nil
	}

	gtx.ProviderStatus = report.Status
	if gtx.InitialProviderStatus == "" {
		gtx.InitialProviderStatus = report.Status
	}
	if report.GatewayTransactionID != "" {
		gtx.GatewayTransactionID = report.GatewayTransactionID
	}

	switch next {
	case models.GatewayStatusSuccess:
		if err := s.finalizeHold(ctx, gtx, models.TransactionStatusSuccess); err != nil {
			return nil, err
		}
		gtx.GatewayStatus = models.GatewayStatusSuccess
		if err := s.repo.Save(gtx); err != nil {
			return nil, err
		}
		if err := s.settleOnce(ctx, gtx); err != nil {
			return nil, err
		}
		s.notifier.Notify(ctx, gtx.CustomerPhone, "bill_payment_success", map[string]string{
			"transaction_id": gtx.TransactionID,
			"amount":         gtx.Amount.String(),
			"cashback":       gtx.CustomerCashbackAmount.String(),
		})
		return &Outcome{Kind: OutcomeApplied, Transaction: gtx}, nil

	case models.GatewayStatusFailed:
		if err := s.finalizeHold(ctx, gtx, models.TransactionStatusFailed); err != nil {
			return nil, err
		}
		if err := s.reverseHold(ctx, gtx); err != nil {
			return nil, err
		}
		gtx.GatewayStatus = models.GatewayStatusFailed
		if err := s.repo.Save(gtx); err != nil {
			return nil, err
		}
		s.notifier.Notify(ctx, gtx.CustomerPhone, "bill_payment_failed", map[string]string{
			"transaction_id": gtx.TransactionID,
			"amount":         gtx.Amount.String(),
		})
		return &Outcome{Kind: OutcomeApplied, Transaction: gtx}, nil

	default:
		gtx.GatewayStatus = models.GatewayStatusProviderAck
		if err := s.repo.Save(gtx); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeApplied, Transaction: gtx}, nil
	}
}

// settleOnce runs the cashback fan-out for a successful transaction. The
// cashback_sent flag is set only after the fan-out succeeds, so a failed
// fan-out stays open for the next replayed event; the deterministic
// transfer ids make a repeated fan-out a no-op.
func (s *service) settleOnce(ctx context.Context, gtx *models.GatewayTransaction) error {
	if gtx.CashbackSent {
		return nil
	}
	if err := s.splitter.Settle(ctx, gtx); err != nil {
		return err
	}
	if _, err := s.repo.MarkCashbackSent(gtx.ID); err != nil {
		return err
	}
	gtx.CashbackSent = true
	return nil
}

// finalizeHold flips the PENDING hold transaction to its terminal status.
// A stale flip means a replayed event already finalized it.
func (s *service) finalizeHold(ctx context.Context, gtx *models.GatewayTransaction, status string) error {
	err := s.ledger.MarkTransactionStatus(ctx, gtx.TransactionID, models.TransactionStatusPending, status)
	if err != nil && !errors.Is(err, repositories.ErrStaleStatus) {
		return err
	}
	return nil
}

// reverseHold returns held money to the customer with a compensating
// transfer. Idempotent through its deterministic transaction id.
func (s *service) reverseHold(ctx context.Context, gtx *models.GatewayTransaction) error {
	_, err := s.ledger.Transfer(ctx, ledger.TransferRequest{
		From:          repositories.External,
		To:            ledger.UserAccount(gtx.UserID),
		Amount:        gtx.Amount,
		Type:          models.TransactionTypeReversal,
		TransactionID: gtx.TransactionID + "-REVERSAL",
		Description:   fmt.Sprintf("reversal of %s", gtx.TransactionID),
	})
	return err
}

// failInitiation closes a transaction whose provider call definitively
// failed: the record must not be left looking successful.
func (s *service) failInitiation(ctx context.Context, gtx *models.GatewayTransaction, cause error) {
	log.Printf("gateway: initiation failed for %s: %v", gtx.TransactionID, cause)
	if err := s.finalizeHold(ctx, gtx, models.TransactionStatusFailed); err != nil {
		log.Printf("gateway: could not fail hold for %s: %v", gtx.TransactionID, err)
	}
	if err := s.reverseHold(ctx, gtx); err != nil {
		log.Printf("gateway: could not reverse hold for %s: %v", gtx.TransactionID, err)
	}
	gtx.GatewayStatus = models.GatewayStatusFailed
	gtx.ProviderStatus = models.GatewayStatusFailed
	if err := s.repo.Save(gtx); err != nil {
		log.Printf("gateway: could not save failed transaction %s: %v", gtx.TransactionID, err)
	}
}

// normalizeStatus maps the status vocabulary of different providers onto
// the gateway's three buckets.
func normalizeStatus(status string) string {
	switch strings.ToUpper(status) {
	case "SUCCESS", "SUCCESSFUL", "SUCCESSFULL", "COMPLETED", "PAID", "DELIVERED":
		return models.GatewayStatusSuccess
	case "FAILED", "FAILURE", "REJECTED", "CANCELLED", "EXPIRED":
		return models.GatewayStatusFailed
	default:
		return models.GatewayStatusProviderAck
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, map[string]string) {}
