// Package paygateway implements the payment provider adapter.
package paygateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/game-market/internal/domain"
	"github.com/go-petr/game-market/pkg/moneypkg"
)

const requestTimeout = 10 * time.Second

// Client talks to the payment provider over HTTP and verifies its webhook
// signatures.
type Client struct {
	baseURL    string
	webhookKey []byte
	httpClient *http.Client
}

// NewClient returns a gateway client for the given provider base URL.
func NewClient(baseURL, webhookKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		webhookKey: []byte(webhookKey),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type createChargeRequest struct {
	OrderID  uuid.UUID `json:"order_id"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
}

type createChargeResponse struct {
	Reference string `json:"reference"`
}

// CreateCharge asks the provider to charge the order total and returns the
// provider's reference for the charge.
func (c *Client) CreateCharge(ctx context.Context, orderID uuid.UUID, amount moneypkg.Money) (string, error) {
	l := zerolog.Ctx(ctx)

	body, err := json.Marshal(createChargeRequest{
		OrderID:  orderID,
		Amount:   amount.Amount,
		Currency: amount.Currency,
	})
	if err != nil {
		l.Error().Err(err).Send()
		return "", domain.ErrPaymentGateway
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		l.Error().Err(err).Send()
		return "", domain.ErrPaymentGateway
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.Error().Err(err).Send()
		return "", domain.ErrPaymentGateway
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		l.Error().Int("status_code", resp.StatusCode).Msg("create charge rejected")
		return "", domain.ErrPaymentGateway
	}

	var chargeResp createChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&chargeResp); err != nil {
		l.Error().Err(err).Send()
		return "", domain.ErrPaymentGateway
	}

	if chargeResp.Reference == "" {
		l.Error().Msg("create charge returned empty reference")
		return "", domain.ErrPaymentGateway
	}

	return chargeResp.Reference, nil
}

type refundChargeRequest struct {
	Reference string `json:"reference"`
}

// RefundCharge asks the provider to refund a previously succeeded charge.
func (c *Client) RefundCharge(ctx context.Context, providerRef string) error {
	l := zerolog.Ctx(ctx)

	body, err := json.Marshal(refundChargeRequest{Reference: providerRef})
	if err != nil {
		l.Error().Err(err).Send()
		return domain.ErrPaymentGateway
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refunds", bytes.NewReader(body))
	if err != nil {
		l.Error().Err(err).Send()
		return domain.ErrPaymentGateway
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.ErrPaymentGateway
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.Error().Int("status_code", resp.StatusCode).Msg("refund rejected")
		return domain.ErrPaymentGateway
	}

	return nil
}

// VerifySignature checks the webhook payload against its hex encoded
// HMAC-SHA256 signature using the shared webhook key.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, c.webhookKey)
	mac.Write(payload)

	return hmac.Equal(sig, mac.Sum(nil))
}

// Sign computes the hex encoded HMAC-SHA256 signature of the payload. The
// provider does the same on its side; tests use it to build valid callbacks.
func (c *Client) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, c.webhookKey)
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}
