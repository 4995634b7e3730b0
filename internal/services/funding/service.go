package funding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/charge"
	"github.com/stripe/stripe-go/v72/token"
)

// CardDetails carries the raw card input for a self-serve wallet top-up.
type CardDetails struct {
	CardNumber  string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
}

// CardToken is the tokenized form of a card, safe to hold and charge.
type CardToken struct {
	Token    string
	CardType string
	Expiry   string
}

// TopUpRequest funds a user wallet from an external card charge.
type TopUpRequest struct {
	UserID uint
	Amount decimal.Decimal
	Card   CardDetails
}

// Charger abstracts the card processor so tests can stub it out.
type Charger interface {
	Tokenize(card CardDetails) (*CardToken, error)
	Charge(tok string, amount decimal.Decimal, currency, description string) (string, error)
}

// Ledger is the slice of the wallet ledger this service needs.
type Ledger interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*models.Transaction, error)
}

// Service funds user wallets from card charges. The charge happens first;
// only a successful charge is recorded as an external inflow on the ledger.
type Service struct {
	ledger   Ledger
	charger  Charger
	currency string
}

// NewService creates the card funding service.
func NewService(l Ledger, charger Charger, currency string) *Service {
	if l == nil {
		panic("ledger service is required")
	}
	if charger == nil {
		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		charger = &StripeCharger{}
	}
	if currency == "" {
		currency = "rwf"
	}
	return &Service{ledger: l, charger: charger, currency: currency}
}

// TopUp tokenizes the card, charges it and credits the user wallet. A charge
// that goes through but fails to record still returns the charge reference in
// the error so it can be reconciled by hand.
func (s *Service) TopUp(ctx context.Context, req TopUpRequest) (*models.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	tok, err := s.charger.Tokenize(req.Card)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("card top-up for user %d", req.UserID)
	chargeID, err := s.charger.Charge(tok.Token, req.Amount, s.currency, desc)
	if err != nil {
		return nil, err
	}

	txn, err := s.ledger.Transfer(ctx, ledger.TransferRequest{
		From:          repositories.External,
		To:            ledger.UserAccount(req.UserID),
		Amount:        req.Amount,
		Type:          models.TransactionTypeTopUp,
		TransactionID: "CARD-" + chargeID,
		Description:   desc,
		Metadata: models.JSON{
			"funding_source": ledger.FundingExternal,
			"charge_id":      chargeID,
			"card_type":      tok.CardType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("charge %s succeeded but crediting wallet failed: %w", chargeID, err)
	}
	return txn, nil
}

// StripeCharger is the production Charger backed by Stripe.
type StripeCharger struct{}

// Tokenize turns raw card details into a Stripe token. Test tokens
// (tok_visa and friends) pass straight through.
func (c *StripeCharger) Tokenize(card CardDetails) (*CardToken, error) {
	if strings.HasPrefix(card.CardNumber, "tok_") {
		return &CardToken{
			Token:    card.CardNumber,
			CardType: testTokenBrand(card.CardNumber),
			Expiry:   fmt.Sprintf("%s/%s", card.ExpiryMonth, card.ExpiryYear),
		}, nil
	}

	if !validLuhn(card.CardNumber) {
		return nil, ErrInvalidCard
	}

	params := &stripe.TokenParams{
		Card: &stripe.CardParams{
			Number:   &card.CardNumber,
			ExpMonth: &card.ExpiryMonth,
			ExpYear:  &card.ExpiryYear,
			CVC:      &card.CVV,
		},
	}
	stripeToken, err := token.New(params)
	if err != nil {
		return nil, fmt.Errorf("card tokenization failed: %w", err)
	}
	return &CardToken{
		Token:    stripeToken.ID,
		CardType: string(stripeToken.Card.Brand),
		Expiry:   fmt.Sprintf("%s/%s", card.ExpiryMonth, card.ExpiryYear),
	}, nil
}

// Charge runs the token against Stripe. Amount is converted to the minor
// currency unit Stripe expects.
func (c *StripeCharger) Charge(tok string, amount decimal.Decimal, currency, description string) (string, error) {
	minor := amount.Mul(decimal.NewFromInt(100)).IntPart()
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(minor),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
	}
	if err := params.SetSource(tok); err != nil {
		return "", fmt.Errorf("setting charge source: %w", err)
	}
	ch, err := charge.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCardDeclined, err)
	}
	return ch.ID, nil
}

func testTokenBrand(tok string) string {
	switch tok {
	case "tok_visa":
		return "Visa"
	case "tok_mastercard":
		return "Mastercard"
	case "tok_amex":
		return "American Express"
	case "tok_discover":
		return "Discover"
	}
	return "Unknown"
}

// Luhn check for real card numbers.
func validLuhn(cardNumber string) bool {
	if cardNumber == "" {
		return false
	}
	var sum int
	double := false
	for i := len(cardNumber) - 1; i >= 0; i-- {
		ch := cardNumber[i]
		if ch < '0' || ch > '9' {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}
