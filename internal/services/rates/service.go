// Package rates resolves a commission or fee percentage for a monetary
// amount from a prioritized set of admin-configured ranges.
package rates

import (
	"context"
	"fmt"

	"tapcash/internal/models"
	"tapcash/internal/repositories"

	"github.com/shopspring/decimal"
)

// Snapshot is an immutable view of the active range settings at one point in
// time. Operations resolve against a snapshot so concurrent resolutions are
// reproducible.
type Snapshot struct {
	ranges []models.RangeSetting
}

// Service resolves tiered percentages.
type Service interface {
	// Snapshot loads the currently active ranges.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Resolve is Snapshot followed by Snapshot.Resolve.
	Resolve(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
}

type service struct {
	settings repositories.SettingsRepository
}

func NewService(settings repositories.SettingsRepository) Service {
	if settings == nil {
		panic("settings repository is required")
	}
	return &service{settings: settings}
}

func (s *service) Snapshot(ctx context.Context) (*Snapshot, error) {
	ranges, err := s.settings.ActiveRangeSettings()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotLoadFailed, err)
	}
	return NewSnapshot(ranges), nil
}

func (s *service) Resolve(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Resolve(amount)
}

// NewSnapshot builds a snapshot from a list of range settings. Inactive
// entries are dropped; order of the input does not matter.
func NewSnapshot(ranges []models.RangeSetting) *Snapshot {
	active := make([]models.RangeSetting, 0, len(ranges))
	for _, r := range ranges {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return &Snapshot{ranges: active}
}

// Resolve picks the percentage for amount: among active ranges where
// minAmount <= amount and (maxAmount unset or amount < maxAmount), the one
// with the lowest priority value wins; ties break to the earliest created
// row. Side-effect free and safe for concurrent use.
func (s *Snapshot) Resolve(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}

	var best *models.RangeSetting
	for i := range s.ranges {
		r := &s.ranges[i]
		if amount.LessThan(r.MinAmount) {
			continue
		}
		if r.MaxAmount != nil && !amount.LessThan(*r.MaxAmount) {
			continue
		}
		if best == nil || betterMatch(r, best) {
			best = r
		}
	}
	if best == nil {
		return decimal.Zero, ErrNoApplicableRange
	}
	return best.Percentage, nil
}

// betterMatch reports whether a should win over b. Earliest-created wins on
// equal priority; id is the final tie break for rows created in the same
// instant.
func betterMatch(a, b *models.RangeSetting) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
