package openweb3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Order webhook event types delivered by WalletPay.
const (
	EventOrderPaid    = "order.paid"
	EventOrderExpired = "order.expired"
	EventOrderFailed  = "order.failed"
)

// OrderEventPayload is the order snapshot carried by every order event.
type OrderEventPayload struct {
	ID            string            `json:"id"`
	UID           string            `json:"uid"`
	UserID        string            `json:"user_id"`
	WalletID      string            `json:"wallet_id,omitempty"`
	Amount        Money             `json:"amount"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	FailedMessage string            `json:"failed_message,omitempty"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

// OrderEvent is a verified webhook delivery.
type OrderEvent struct {
	Type    string            `json:"type"`
	Payload OrderEventPayload `json:"payload"`
}

// Signature scheme: HMAC-SHA256 over "{id}.{timestamp}.{body}" with the
// endpoint secret, base64-encoded, delivered as "v1,<sig>" entries in the
// webhook-signature header alongside webhook-id and webhook-timestamp.
const (
	headerID        = "webhook-id"
	headerTimestamp = "webhook-timestamp"
	headerSignature = "webhook-signature"

	signatureVersion = "v1"
	secretPrefix     = "whsec_"
	tolerance        = 5 * time.Minute
)

var (
	ErrMissingSignature = errors.New("openweb3: missing webhook signature headers")
	ErrBadSignature     = errors.New("openweb3: webhook signature mismatch")
	ErrStaleTimestamp   = errors.New("openweb3: webhook timestamp outside tolerance")
)

// WebhookVerifier validates signed deliveries from WalletPay.
type WebhookVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewWebhookVerifier parses the endpoint secret, with or without its
// "whsec_" prefix (the remainder is base64).
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	trimmed := strings.TrimPrefix(secret, secretPrefix)
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("openweb3: decode webhook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("openweb3: empty webhook secret")
	}
	return &WebhookVerifier{secret: key, now: time.Now}, nil
}

// Verify checks headers against body and decodes the event.
func (v *WebhookVerifier) Verify(body []byte, header http.Header) (*OrderEvent, error) {
	msgID := header.Get(headerID)
	msgTimestamp := header.Get(headerTimestamp)
	msgSignature := header.Get(headerSignature)
	if msgID == "" || msgTimestamp == "" || msgSignature == "" {
		return nil, ErrMissingSignature
	}

	ts, err := strconv.ParseInt(msgTimestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("openweb3: parse webhook timestamp: %w", err)
	}
	if d := v.now().Sub(time.Unix(ts, 0)); d > tolerance || d < -tolerance {
		return nil, ErrStaleTimestamp
	}

	expected := v.sign(msgID, msgTimestamp, body)
	if !signatureListContains(msgSignature, expected) {
		return nil, ErrBadSignature
	}

	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("openweb3: decode webhook event: %w", err)
	}
	return &event, nil
}

func (v *WebhookVerifier) sign(msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signatureListContains scans the space-separated "version,signature"
// entries for a constant-time match on our version.
func signatureListContains(headerValue, expected string) bool {
	for _, entry := range strings.Fields(headerValue) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != signatureVersion {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}
