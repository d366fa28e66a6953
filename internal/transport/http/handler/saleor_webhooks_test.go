package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

const initializeBody = `{
  "transaction": {"id": "tx-123"},
  "action": {"actionType": "CHARGE", "amount": 42.5, "currency": "USDT"},
  "sourceObject": {"__typename": "Checkout", "id": "chk-1", "channel": {"id": "ch-1"}},
  "data": {"userId": "99281932"}
}`

func postWebhook(handlerFunc http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) domain.TransactionResult {
	t.Helper()
	var result domain.TransactionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestInitializeSession_DecodesSaleorPayload(t *testing.T) {
	svc := &mockPaymentSvc{}
	svc.On("InitializeSession", mock.Anything, mock.MatchedBy(func(e domain.TransactionSessionEvent) bool {
		return e.TransactionID == "tx-123" &&
			e.ActionType == domain.FlowCharge &&
			e.Amount == "42.5" &&
			e.ChannelID == "ch-1" &&
			e.SourceObjectID == "chk-1" &&
			e.SourceType == "Checkout" &&
			e.Data["userId"] == "99281932"
	})).Return(&domain.TransactionResult{Result: domain.ResultChargeActionRequired, Amount: "42.5"}, nil)

	h := NewSaleorWebhookHandler(svc, &mockConfigSource{}, zerolog.Nop())
	rec := postWebhook(h.InitializeSession, initializeBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ResultChargeActionRequired, decodeResult(t, rec).Result)
	svc.AssertExpectations(t)
}

func TestInitializeSession_ServiceErrorBecomesFailureResult(t *testing.T) {
	svc := &mockPaymentSvc{}
	svc.On("InitializeSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("walletpay unreachable"))

	h := NewSaleorWebhookHandler(svc, &mockConfigSource{}, zerolog.Nop())
	rec := postWebhook(h.InitializeSession, initializeBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, domain.ResultChargeFailure, result.Result)
	assert.Contains(t, result.Message, "walletpay unreachable")
}

func TestInitializeSession_RejectsIncompletePayload(t *testing.T) {
	h := NewSaleorWebhookHandler(&mockPaymentSvc{}, &mockConfigSource{}, zerolog.Nop())
	rec := postWebhook(h.InitializeSession, `{"transaction": {"id": ""}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessSession(t *testing.T) {
	svc := &mockPaymentSvc{}
	svc.On("ProcessSession", mock.Anything, mock.Anything).
		Return(&domain.TransactionResult{Result: domain.ResultChargeSuccess}, nil)

	h := NewSaleorWebhookHandler(svc, &mockConfigSource{}, zerolog.Nop())
	rec := postWebhook(h.ProcessSession, initializeBody)
	assert.Equal(t, domain.ResultChargeSuccess, decodeResult(t, rec).Result)
}

func TestPaymentGatewayInitialize_ReturnsPublishableKey(t *testing.T) {
	configs := &mockConfigSource{}
	configs.On("GetConfig", mock.Anything).Return(&domain.AppConfig{
		Configurations:    []domain.ConfigEntry{{ConfigurationID: "cfg-1", PublishableKey: "pk_1", SecretKey: "sk_1"}},
		ChannelToConfigID: map[string]string{"ch-1": "cfg-1"},
	}, nil)

	h := NewSaleorWebhookHandler(&mockPaymentSvc{}, configs, zerolog.Nop())
	rec := postWebhook(h.PaymentGatewayInitialize, initializeBody)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pk_1", body.Data["publishableKey"])
}

func TestPaymentGatewayInitialize_UnmappedChannel(t *testing.T) {
	configs := &mockConfigSource{}
	configs.On("GetConfig", mock.Anything).Return(&domain.AppConfig{}, nil)

	h := NewSaleorWebhookHandler(&mockPaymentSvc{}, configs, zerolog.Nop())
	rec := postWebhook(h.PaymentGatewayInitialize, initializeBody)

	var body struct {
		Data any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Data)
}

func TestActionWebhooks(t *testing.T) {
	svc := &mockPaymentSvc{}
	svc.On("ChargeRequested", mock.Anything).Return(&domain.TransactionResult{Result: domain.ResultChargeFailure})
	svc.On("RefundRequested", mock.Anything).Return(&domain.TransactionResult{Result: domain.ResultRefundFailure})
	svc.On("CancelRequested", mock.Anything).Return(&domain.TransactionResult{Result: domain.ResultCancelFailure})

	h := NewSaleorWebhookHandler(svc, &mockConfigSource{}, zerolog.Nop())
	body := `{"transaction": {"id": "tx-123"}, "action": {"actionType": "REFUND", "amount": 10, "currency": "USDT"}}`

	assert.Equal(t, domain.ResultChargeFailure, decodeResult(t, postWebhook(h.ChargeRequested, body)).Result)
	assert.Equal(t, domain.ResultRefundFailure, decodeResult(t, postWebhook(h.RefundRequested, body)).Result)
	assert.Equal(t, domain.ResultCancelFailure, decodeResult(t, postWebhook(h.CancelRequested, body)).Result)
}
