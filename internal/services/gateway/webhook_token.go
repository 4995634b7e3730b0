package gateway

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// webhookClaims is the payload of a provider-signed webhook token. The
// issuer names the provider, which decides the verification secret.
type webhookClaims struct {
	ProviderTrxID        string `json:"trxRef"`
	GatewayTransactionID string `json:"gatewayTrxId"`
	Status               string `json:"status"`
	jwt.RegisteredClaims
}

// parseWebhookToken verifies the token against the per-provider secret and
// returns the carried status report plus the provider name.
func parseWebhookToken(token string, secrets map[string]string) (*StatusReport, string, error) {
	claims := &webhookClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		issuer, err := t.Claims.GetIssuer()
		if err != nil || issuer == "" {
			return nil, fmt.Errorf("webhook token has no issuer")
		}
		secret, ok := secrets[issuer]
		if !ok {
			return nil, fmt.Errorf("no webhook secret for provider %q", issuer)
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, "", ErrInvalidWebhookToken
	}
	if claims.ProviderTrxID == "" || claims.Status == "" {
		return nil, "", ErrInvalidWebhookToken
	}

	return &StatusReport{
		ProviderTrxID:        claims.ProviderTrxID,
		GatewayTransactionID: claims.GatewayTransactionID,
		Status:               claims.Status,
	}, claims.Issuer, nil
}
