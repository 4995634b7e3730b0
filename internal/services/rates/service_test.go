package rates

import (
	"testing"
	"time"

	"tapcash/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func rangeSetting(id uint, min string, max *string, pct string, priority int, createdAt time.Time) models.RangeSetting {
	r := models.RangeSetting{
		MinAmount:  decimal.RequireFromString(min),
		Percentage: decimal.RequireFromString(pct),
		Priority:   priority,
		IsActive:   true,
	}
	r.Model = gorm.Model{ID: id, CreatedAt: createdAt}
	if max != nil {
		m := decimal.RequireFromString(*max)
		r.MaxAmount = &m
	}
	return r
}

func strPtr(s string) *string { return &s }

func TestSnapshotResolve(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := NewSnapshot([]models.RangeSetting{
		rangeSetting(1, "0", strPtr("1000"), "5", 1, base),
		rangeSetting(2, "1000", nil, "2", 2, base.Add(time.Hour)),
	})

	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr error
	}{
		{name: "inside first range", amount: "500", want: "5"},
		{name: "lower bound inclusive", amount: "0", want: "5"},
		{name: "upper bound exclusive", amount: "999.99", want: "5"},
		{name: "boundary falls into next range", amount: "1000", want: "2"},
		{name: "unbounded upper range", amount: "50000", want: "2"},
		{name: "negative amount", amount: "-1", wantErr: ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snap.Resolve(decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestSnapshotResolveNoApplicableRange(t *testing.T) {
	snap := NewSnapshot([]models.RangeSetting{
		rangeSetting(1, "100", strPtr("200"), "5", 1, time.Now()),
	})

	_, err := snap.Resolve(decimal.NewFromInt(50))
	assert.ErrorIs(t, err, ErrNoApplicableRange)

	_, err = snap.Resolve(decimal.NewFromInt(200))
	assert.ErrorIs(t, err, ErrNoApplicableRange)
}

func TestSnapshotResolveEmpty(t *testing.T) {
	snap := NewSnapshot(nil)
	_, err := snap.Resolve(decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrNoApplicableRange)
}

func TestSnapshotResolvePriorityWins(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Overlapping ranges: the lower priority value must win regardless of
	// input order.
	snap := NewSnapshot([]models.RangeSetting{
		rangeSetting(2, "0", nil, "3", 5, base),
		rangeSetting(1, "0", nil, "7", 1, base.Add(time.Hour)),
	})

	got, err := snap.Resolve(decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(7)))
}

func TestSnapshotResolveTieBreaks(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("equal priority breaks to earliest created", func(t *testing.T) {
		snap := NewSnapshot([]models.RangeSetting{
			rangeSetting(2, "0", nil, "4", 1, base.Add(time.Hour)),
			rangeSetting(1, "0", nil, "6", 1, base),
		})
		got, err := snap.Resolve(decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(6)))
	})

	t.Run("same instant breaks to lowest id", func(t *testing.T) {
		snap := NewSnapshot([]models.RangeSetting{
			rangeSetting(9, "0", nil, "4", 1, base),
			rangeSetting(3, "0", nil, "6", 1, base),
		})
		got, err := snap.Resolve(decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(6)))
	})
}

func TestSnapshotResolveSkipsInactive(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	inactive := rangeSetting(1, "0", nil, "9", 1, base)
	inactive.IsActive = false

	snap := NewSnapshot([]models.RangeSetting{
		inactive,
		rangeSetting(2, "0", nil, "3", 10, base),
	})

	got, err := snap.Resolve(decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(3)))
}

func TestSnapshotResolveDeterministic(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := NewSnapshot([]models.RangeSetting{
		rangeSetting(1, "0", strPtr("1000"), "5", 1, base),
		rangeSetting(2, "500", strPtr("2000"), "2", 1, base.Add(time.Minute)),
		rangeSetting(3, "0", nil, "1", 3, base),
	})

	first, err := snap.Resolve(decimal.NewFromInt(750))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := snap.Resolve(decimal.NewFromInt(750))
		require.NoError(t, err)
		assert.True(t, got.Equal(first))
	}
}
