package history

import (
	"context"
	"fmt"
	"time"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Query selects a page of transaction history for one party.
type Query struct {
	UserID     *uint
	ReceiverID *uint
	Type       string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// Page is one page of results plus the paging echo.
type Page struct {
	Transactions []models.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
}

// Cache is the slice of the cache layer used for first-page reads.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service serves read-only transaction and bill-payment history. The first
// page of each party's history is cached briefly; writes elsewhere tolerate
// the staleness window.
type Service struct {
	ledger  repositories.LedgerRepository
	gateway repositories.GatewayRepository
	cache   Cache
}

// NewService creates the history service. Cache may be nil.
func NewService(ledger repositories.LedgerRepository, gateway repositories.GatewayRepository, cache Cache) *Service {
	if ledger == nil {
		panic("ledger repository is required")
	}
	if gateway == nil {
		panic("gateway repository is required")
	}
	return &Service{ledger: ledger, gateway: gateway, cache: cache}
}

// Transactions returns one page of ledger history matching the query.
func (s *Service) Transactions(ctx context.Context, q Query) (*Page, error) {
	page, pageSize := normalize(q.Page, q.PageSize)

	key := s.cacheKey(q, page, pageSize)
	if key != "" {
		var cached Page
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	txns, err := s.ledger.ListTransactions(ctx, repositories.TransactionFilter{
		UserID:     q.UserID,
		ReceiverID: q.ReceiverID,
		Type:       q.Type,
		From:       q.From,
		To:         q.To,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	result := &Page{Transactions: txns, Page: page, PageSize: pageSize}
	if key != "" {
		_ = s.cache.SetWithTTL(ctx, key, result, 30*time.Second)
	}
	return result, nil
}

// BillPayments returns one page of a user's gateway transactions.
func (s *Service) BillPayments(ctx context.Context, userID uint, page, pageSize int) ([]models.GatewayTransaction, error) {
	page, pageSize = normalize(page, pageSize)
	rows, err := s.gateway.ListByUser(userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing bill payments: %w", err)
	}
	return rows, nil
}

// Invalidate drops any cached first page for the given party.
func (s *Service) Invalidate(ctx context.Context, q Query) {
	if s.cache == nil {
		return
	}
	if key := s.cacheKey(q, 1, defaultPageSize); key != "" {
		_ = s.cache.Delete(ctx, key)
	}
}

// Only plain first-page queries for a single party are cached; filtered or
// deep-paged queries go straight to the database.
func (s *Service) cacheKey(q Query, page, pageSize int) string {
	if s.cache == nil || page != 1 || pageSize != defaultPageSize {
		return ""
	}
	if q.Type != "" || q.From != nil || q.To != nil {
		return ""
	}
	switch {
	case q.UserID != nil && q.ReceiverID == nil:
		return fmt.Sprintf("history:user:%d", *q.UserID)
	case q.ReceiverID != nil && q.UserID == nil:
		return fmt.Sprintf("history:receiver:%d", *q.ReceiverID)
	}
	return ""
}

func normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
