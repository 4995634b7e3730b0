package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tapcash/internal/services/gateway"

	"github.com/shopspring/decimal"
)

// FDI is the secondary provider, used as a fallback and for refund-side
// mobile money transfers.
type FDI struct {
	http *httpClient
}

func NewFDI(baseURL, apiKey string, timeout time.Duration) *FDI {
	return &FDI{http: newHTTPClient(baseURL, apiKey, timeout)}
}

func (f *FDI) Name() string { return "fdi" }

func (f *FDI) Initiate(ctx context.Context, internalID, serviceType, customerPhone string, amount decimal.Decimal) (*gateway.ProviderAck, error) {
	body := map[string]interface{}{
		"trxRef":  internalID,
		"product": serviceType,
		"msisdn":  customerPhone,
		"amount":  amount.String(),
	}

	var out struct {
		TrxRef     string `json:"trxRef"`
		State      string `json:"state"`
		StatusURL  string `json:"statusUrl"`
		RetryAfter int    `json:"retryAfter"`
	}
	if err := f.http.postJSON(ctx, "/v2/payments", body, &out); err != nil {
		return nil, fmt.Errorf("fdi payment: %w", err)
	}
	if out.TrxRef == "" {
		return nil, errors.New("fdi: empty transaction reference")
	}

	return &gateway.ProviderAck{
		ProviderTrxID:  out.TrxRef,
		Status:         out.State,
		PollEndpoint:   out.StatusURL,
		RetryAfterSecs: out.RetryAfter,
	}, nil
}

func (f *FDI) CheckStatus(ctx context.Context, pollEndpoint, providerTrxID string) (*gateway.StatusReport, error) {
	url := pollEndpoint
	if url == "" {
		url = f.http.baseURL + "/v2/payments/" + providerTrxID
	}

	var out struct {
		TrxRef       string `json:"trxRef"`
		GatewayTrxID string `json:"gwRef"`
		State        string `json:"state"`
	}
	if err := f.http.getJSON(ctx, url, &out); err != nil {
		return nil, fmt.Errorf("fdi status: %w", err)
	}

	return &gateway.StatusReport{
		ProviderTrxID:        out.TrxRef,
		GatewayTransactionID: out.GatewayTrxID,
		Status:               out.State,
	}, nil
}

// Transfer pushes money to a mobile wallet; the refund issuer uses it to
// return funds to the customer's phone when required.
func (f *FDI) Transfer(ctx context.Context, refundRef, debitPhone, creditPhone string, amount decimal.Decimal) error {
	body := map[string]interface{}{
		"trxRef":      refundRef,
		"debitMsisdn": debitPhone,
		"msisdn":      creditPhone,
		"amount":      amount.String(),
	}
	return f.http.postJSON(ctx, "/v2/transfers", body, nil)
}
