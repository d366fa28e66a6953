// Package openweb3 is a client for the Openweb3 WalletPay API and the
// verifier for its signed webhook deliveries.
package openweb3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the hosted WalletPay endpoint.
const DefaultBaseURL = "https://api.wallet-pay.openweb3.io"

// Money is a currency/amount pair as WalletPay represents it: the amount
// is a decimal string, never a float.
type Money struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// Order is a WalletPay payment order.
type Order struct {
	ID        string            `json:"id"`
	UID       string            `json:"uid"`
	Status    string            `json:"status"`
	WalletID  string            `json:"wallet_id,omitempty"`
	PayURL    string            `json:"pay_url,omitempty"`
	Amount    Money             `json:"amount"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

// CreateOrderRequest describes a new payment order.
type CreateOrderRequest struct {
	UID      string            `json:"uid"`
	Amount   Money             `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Client calls the WalletPay REST API with a tenant's key pair.
type Client struct {
	baseURL        string
	publishableKey string
	secretKey      string
	httpClient     *http.Client
	logger         zerolog.Logger
}

// ValidateKeys rejects an unusable key pair before it is persisted in a
// configuration entry.
func ValidateKeys(secretKey, publishableKey string) error {
	if secretKey == "" || publishableKey == "" {
		return errors.New("openweb3: both secret key and publishable key are required")
	}
	return nil
}

// NewClient builds a WalletPay client. baseURL may be empty to use the
// hosted endpoint.
func NewClient(publishableKey, secretKey, baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:        baseURL,
		publishableKey: publishableKey,
		secretKey:      secretKey,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger.With().Str("component", "openweb3_client").Logger(),
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.publishableKey)
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("openweb3: %s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("openweb3: unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("openweb3: decode response: %w", err)
		}
	}
	return nil
}

// CreateOrder opens a new payment order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", req, &order); err != nil {
		return nil, err
	}
	c.logger.Debug().Str("order_uid", order.UID).Msg("created walletpay order")
	return &order, nil
}

// GetOrder fetches an order by its uid.
func (c *Client) GetOrder(ctx context.Context, uid string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+uid, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
