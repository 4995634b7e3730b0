package split

import (
	"context"
	"testing"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSettings struct {
	gateway     map[string]*models.GatewaySetting
	commissions map[uint][]models.CommissionSetting
}

func (f *fakeSettings) ActiveRangeSettings() ([]models.RangeSetting, error) { return nil, nil }
func (f *fakeSettings) UpsertRangeSetting(*models.RangeSetting) error       { return nil }

func (f *fakeSettings) GatewaySetting(serviceType string) (*models.GatewaySetting, error) {
	if s, ok := f.gateway[serviceType]; ok {
		return s, nil
	}
	return nil, repositories.ErrSettingNotFound
}
func (f *fakeSettings) UpsertGatewaySetting(*models.GatewaySetting) error { return nil }

func (f *fakeSettings) CommissionSettings(receiverID uint) ([]models.CommissionSetting, error) {
	return f.commissions[receiverID], nil
}
func (f *fakeSettings) UpsertCommissionSetting(*models.CommissionSetting) error { return nil }

func (f *fakeSettings) GlobalSettings() (*models.GlobalSettings, error) { return nil, nil }
func (f *fakeSettings) SaveGlobalSettings(*models.GlobalSettings) error { return nil }

type fakeTransferer struct {
	calls   []ledger.TransferRequest
	failIDs map[string]error
}

func (f *fakeTransferer) Transfer(_ context.Context, req ledger.TransferRequest) (*models.Transaction, error) {
	if err, ok := f.failIDs[req.TransactionID]; ok {
		return nil, err
	}
	f.calls = append(f.calls, req)
	return &models.Transaction{TransactionID: req.TransactionID}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		gross        string
		cfg          Config
		wantProvider string
		wantCashback string
		wantPlatform string
		wantErr      error
	}{
		{
			name:  "typical split",
			gross: "10000",
			cfg:   Config{ProviderPct: dec("3"), CashbackPct: dec("1"), PlatformPct: dec("0.5")},
			wantProvider: "300", wantCashback: "100", wantPlatform: "50",
		},
		{
			name:  "zero percentages",
			gross: "10000",
			cfg:   Config{},
			wantProvider: "0", wantCashback: "0", wantPlatform: "0",
		},
		{
			name:  "fractional shares round to cents",
			gross: "999.99",
			cfg:   Config{CashbackPct: dec("1")},
			wantProvider: "0", wantCashback: "10", wantPlatform: "0",
		},
		{
			name:  "zero gross",
			gross: "0",
			cfg:   Config{ProviderPct: dec("3")},
			wantProvider: "0", wantCashback: "0", wantPlatform: "0",
		},
		{
			name:    "negative gross",
			gross:   "-1",
			cfg:     Config{},
			wantErr: ErrInvalidGross,
		},
		{
			name:    "percentage above 100",
			gross:   "100",
			cfg:     Config{CashbackPct: dec("101")},
			wantErr: ErrInvalidPercentageConfig,
		},
		{
			name:    "negative percentage",
			gross:   "100",
			cfg:     Config{PlatformPct: dec("-1")},
			wantErr: ErrInvalidPercentageConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Compute(dec(tt.gross), tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, shares.Provider.Equal(dec(tt.wantProvider)), "provider: %s", shares.Provider)
			assert.True(t, shares.Cashback.Equal(dec(tt.wantCashback)), "cashback: %s", shares.Cashback)
			assert.True(t, shares.Platform.Equal(dec(tt.wantPlatform)), "platform: %s", shares.Platform)
		})
	}
}

func TestComputeSharesNeverExceedGross(t *testing.T) {
	// 100% of gross is allowed; any single share beyond it is not.
	shares, err := Compute(dec("200"), Config{ProviderPct: dec("100")})
	require.NoError(t, err)
	assert.True(t, shares.Provider.Equal(dec("200")))
}

func TestConfigFor(t *testing.T) {
	settings := &fakeSettings{gateway: map[string]*models.GatewaySetting{
		"airtime": {
			ServiceType:                "airtime",
			ProviderSharePercentage:    dec("3"),
			CustomerCashbackPercentage: dec("1"),
			PlatformSharePercentage:    dec("0.5"),
		},
	}}
	svc := NewService(settings, &fakeTransferer{})

	cfg, err := svc.ConfigFor(context.Background(), "airtime")
	require.NoError(t, err)
	assert.True(t, cfg.ProviderPct.Equal(dec("3")))
	assert.True(t, cfg.CashbackPct.Equal(dec("1")))
	assert.True(t, cfg.PlatformPct.Equal(dec("0.5")))

	_, err = svc.ConfigFor(context.Background(), "electricity")
	assert.ErrorIs(t, err, ErrMissingGatewaySetting)
}

func settledGtx(receiverID *uint) *models.GatewayTransaction {
	return &models.GatewayTransaction{
		TransactionID:          "GW-abc",
		UserID:                 7,
		ReceiverID:             receiverID,
		Amount:                 dec("10000"),
		ProviderShareAmount:    dec("300"),
		CustomerCashbackAmount: dec("100"),
		PlatformShareAmount:    dec("50"),
		ProviderShareTxnID:     "GW-abc-PROVIDER",
		CashbackTxnID:          "GW-abc-CASHBACK",
		PlatformShareTxnID:     "GW-abc-PLATFORM",
	}
}

func TestSettle(t *testing.T) {
	receiverID := uint(3)
	transferer := &fakeTransferer{}
	svc := NewService(&fakeSettings{}, transferer)

	err := svc.Settle(context.Background(), settledGtx(&receiverID))
	require.NoError(t, err)
	require.Len(t, transferer.calls, 3)

	byID := map[string]ledger.TransferRequest{}
	for _, call := range transferer.calls {
		byID[call.TransactionID] = call
		assert.Equal(t, models.PartyExternal, call.From.Kind)
	}

	commission := byID["GW-abc-PROVIDER"]
	assert.Equal(t, models.TransactionTypeCommission, commission.Type)
	assert.Equal(t, models.PartyReceiver, commission.To.Kind)
	assert.Equal(t, receiverID, commission.To.ID)
	assert.True(t, commission.Amount.Equal(dec("300")))

	cashback := byID["GW-abc-CASHBACK"]
	assert.Equal(t, models.TransactionTypeCashback, cashback.Type)
	assert.Equal(t, models.PartyUser, cashback.To.Kind)
	assert.Equal(t, uint(7), cashback.To.ID)
	assert.True(t, cashback.Amount.Equal(dec("100")))

	platform := byID["GW-abc-PLATFORM"]
	assert.Equal(t, models.TransactionTypePlatformShare, platform.Type)
	assert.Equal(t, models.PartyAdmin, platform.To.Kind)
	assert.True(t, platform.Amount.Equal(dec("50")))
}

func TestSettleSkipsZeroShares(t *testing.T) {
	transferer := &fakeTransferer{}
	svc := NewService(&fakeSettings{}, transferer)

	gtx := settledGtx(nil)
	gtx.ProviderShareAmount = decimal.Zero
	gtx.PlatformShareAmount = decimal.Zero

	require.NoError(t, svc.Settle(context.Background(), gtx))
	require.Len(t, transferer.calls, 1)
	assert.Equal(t, "GW-abc-CASHBACK", transferer.calls[0].TransactionID)
}

func TestSettleSkipsCommissionWithoutAgent(t *testing.T) {
	transferer := &fakeTransferer{}
	svc := NewService(&fakeSettings{}, transferer)

	// No selling agent: the commission share has nowhere to go.
	require.NoError(t, svc.Settle(context.Background(), settledGtx(nil)))
	require.Len(t, transferer.calls, 2)
	for _, call := range transferer.calls {
		assert.NotEqual(t, "GW-abc-PROVIDER", call.TransactionID)
	}
}

func TestSettleTransferFailure(t *testing.T) {
	receiverID := uint(3)
	transferer := &fakeTransferer{failIDs: map[string]error{
		"GW-abc-CASHBACK": assert.AnError,
	}}
	svc := NewService(&fakeSettings{}, transferer)

	err := svc.Settle(context.Background(), settledGtx(&receiverID))
	assert.ErrorIs(t, err, ErrSettlementTransferFailed)
}

func TestPayoutPlan(t *testing.T) {
	settings := &fakeSettings{commissions: map[uint][]models.CommissionSetting{
		3: {
			{ReceiverID: 3, Phone: "0788000001", Percentage: dec("60")},
			{ReceiverID: 3, Phone: "0788000002", Percentage: dec("40")},
		},
	}}
	svc := NewService(settings, &fakeTransferer{})

	payouts, err := svc.PayoutPlan(context.Background(), 3, dec("1000"))
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.True(t, payouts[0].Amount.Equal(dec("600")))
	assert.True(t, payouts[1].Amount.Equal(dec("400")))
}

func TestPayoutPlanOverAllocated(t *testing.T) {
	settings := &fakeSettings{commissions: map[uint][]models.CommissionSetting{
		3: {
			{ReceiverID: 3, Phone: "0788000001", Percentage: dec("70")},
			{ReceiverID: 3, Phone: "0788000002", Percentage: dec("40")},
		},
	}}
	svc := NewService(settings, &fakeTransferer{})

	_, err := svc.PayoutPlan(context.Background(), 3, dec("1000"))
	assert.ErrorIs(t, err, ErrInvalidPercentageConfig)
}
