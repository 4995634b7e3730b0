package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tapcash/internal/services/gateway"

	"github.com/shopspring/decimal"
)

// Efashe is the primary vending provider (airtime, electricity, tv).
type Efashe struct {
	http *httpClient
}

func NewEfashe(baseURL, apiKey string, timeout time.Duration) *Efashe {
	return &Efashe{http: newHTTPClient(baseURL, apiKey, timeout)}
}

func (e *Efashe) Name() string { return "efashe" }

func (e *Efashe) Initiate(ctx context.Context, internalID, serviceType, customerPhone string, amount decimal.Decimal) (*gateway.ProviderAck, error) {
	body := map[string]interface{}{
		"trxId":         internalID,
		"verticalId":    serviceType,
		"customerPhone": customerPhone,
		"amount":        amount.String(),
		"deliveryMethod": map[string]string{
			"id": "direct_topup",
		},
	}

	var out struct {
		Data struct {
			TrxID        string `json:"trxId"`
			Status       string `json:"status"`
			PollEndpoint string `json:"pollEndpoint"`
			RetryAfter   int    `json:"retryAfterSecs"`
		} `json:"data"`
	}
	if err := e.http.postJSON(ctx, "/vend/execute", body, &out); err != nil {
		return nil, fmt.Errorf("efashe execute: %w", err)
	}
	if out.Data.TrxID == "" {
		return nil, errors.New("efashe: empty provider transaction id")
	}

	return &gateway.ProviderAck{
		ProviderTrxID:  out.Data.TrxID,
		Status:         out.Data.Status,
		PollEndpoint:   out.Data.PollEndpoint,
		RetryAfterSecs: out.Data.RetryAfter,
	}, nil
}

func (e *Efashe) CheckStatus(ctx context.Context, pollEndpoint, providerTrxID string) (*gateway.StatusReport, error) {
	url := pollEndpoint
	if url == "" {
		url = e.http.baseURL + "/vend/" + providerTrxID
	}

	var out struct {
		Data struct {
			TrxID        string `json:"trxId"`
			GatewayTrxID string `json:"gatewayTrxId"`
			Status       string `json:"status"`
		} `json:"data"`
	}
	if err := e.http.getJSON(ctx, url, &out); err != nil {
		return nil, fmt.Errorf("efashe status: %w", err)
	}

	return &gateway.StatusReport{
		ProviderTrxID:        out.Data.TrxID,
		GatewayTransactionID: out.Data.GatewayTrxID,
		Status:               out.Data.Status,
	}, nil
}
