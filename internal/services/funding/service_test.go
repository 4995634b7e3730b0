package funding

import (
	"context"
	"testing"

	"tapcash/internal/models"
	"tapcash/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

type stubCharger struct {
	tokenizeErr error
	chargeErr   error
	charged     []decimal.Decimal
}

func (c *stubCharger) Tokenize(card CardDetails) (*CardToken, error) {
	if c.tokenizeErr != nil {
		return nil, c.tokenizeErr
	}
	return &CardToken{Token: "tok_test", CardType: "Visa"}, nil
}

func (c *stubCharger) Charge(tok string, amount decimal.Decimal, currency, description string) (string, error) {
	if c.chargeErr != nil {
		return "", c.chargeErr
	}
	c.charged = append(c.charged, amount)
	return "ch_123", nil
}

type stubLedger struct {
	calls []ledger.TransferRequest
	err   error
}

func (l *stubLedger) Transfer(_ context.Context, req ledger.TransferRequest) (*models.Transaction, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.calls = append(l.calls, req)
	return &models.Transaction{TransactionID: req.TransactionID}, nil
}

func TestCardTopUp(t *testing.T) {
	charger := &stubCharger{}
	l := &stubLedger{}
	svc := NewService(l, charger, "rwf")

	txn, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID: 4,
		Amount: decimal.NewFromInt(500),
		Card:   CardDetails{CardNumber: "tok_visa"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CARD-ch_123", txn.TransactionID)

	require.Len(t, l.calls, 1)
	call := l.calls[0]
	assert.Equal(t, models.PartyExternal, call.From.Kind)
	assert.Equal(t, models.PartyUser, call.To.Kind)
	assert.Equal(t, uint(4), call.To.ID)
	assert.Equal(t, models.TransactionTypeTopUp, call.Type)
	assert.True(t, call.Amount.Equal(decimal.NewFromInt(500)))
}

func TestCardTopUpInvalidAmount(t *testing.T) {
	svc := NewService(&stubLedger{}, &stubCharger{}, "rwf")

	_, err := svc.TopUp(context.Background(), TopUpRequest{UserID: 4, Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCardTopUpDeclinedChargeNeverHitsLedger(t *testing.T) {
	charger := &stubCharger{chargeErr: ErrCardDeclined}
	l := &stubLedger{}
	svc := NewService(l, charger, "rwf")

	_, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID: 4,
		Amount: decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, ErrCardDeclined)
	assert.Empty(t, l.calls)
}

func TestCardTopUpTokenizeFailure(t *testing.T) {
	charger := &stubCharger{tokenizeErr: ErrInvalidCard}
	l := &stubLedger{}
	svc := NewService(l, charger, "rwf")

	_, err := svc.TopUp(context.Background(), TopUpRequest{
		UserID: 4,
		Amount: decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, ErrInvalidCard)
	assert.Empty(t, l.calls)
}

func TestDefaultChargerConfiguresStripeKey(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_funding")

	svc := NewService(&stubLedger{}, nil, "")
	require.IsType(t, &StripeCharger{}, svc.charger)
	assert.Equal(t, "sk_test_funding", stripe.Key)
}

func TestStripeChargerTestTokens(t *testing.T) {
	c := &StripeCharger{}

	tok, err := c.Tokenize(CardDetails{CardNumber: "tok_visa", ExpiryMonth: "12", ExpiryYear: "2030"})
	require.NoError(t, err)
	assert.Equal(t, "tok_visa", tok.Token)
	assert.Equal(t, "Visa", tok.CardType)
	assert.Equal(t, "12/2030", tok.Expiry)

	tok, err = c.Tokenize(CardDetails{CardNumber: "tok_mastercard"})
	require.NoError(t, err)
	assert.Equal(t, "Mastercard", tok.CardType)
}

func TestValidLuhn(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"4242424242424242", true},
		{"4242424242424241", false},
		{"", false},
		{"4242-4242", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, validLuhn(tt.number), tt.number)
	}
}
