package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/application/payment"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/pkg/validate"
)

// SaleorWebhookHandler answers the synchronous transaction webhooks Saleor
// delivers while a storefront checkout is paying.
type SaleorWebhookHandler struct {
	svc     payment.Service
	configs payment.ConfigSource
	logger  zerolog.Logger
}

func NewSaleorWebhookHandler(svc payment.Service, configs payment.ConfigSource, logger zerolog.Logger) *SaleorWebhookHandler {
	return &SaleorWebhookHandler{
		svc:     svc,
		configs: configs,
		logger:  logger.With().Str("component", "saleor_webhooks").Logger(),
	}
}

// sessionPayload is the wire shape of the initialize/process session
// webhooks, reduced to the fields this app consumes.
type sessionPayload struct {
	Transaction struct {
		ID string `json:"id"`
	} `json:"transaction"`
	Action struct {
		ActionType string      `json:"actionType"`
		Amount     json.Number `json:"amount"`
		Currency   string      `json:"currency"`
	} `json:"action"`
	SourceObject struct {
		Typename string `json:"__typename"`
		ID       string `json:"id"`
		Channel  struct {
			ID string `json:"id"`
		} `json:"channel"`
	} `json:"sourceObject"`
	Data map[string]any `json:"data"`
}

func decodeSessionEvent(r *http.Request) (domain.TransactionSessionEvent, error) {
	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return domain.TransactionSessionEvent{}, err
	}
	event := domain.TransactionSessionEvent{
		TransactionID:  payload.Transaction.ID,
		ActionType:     payload.Action.ActionType,
		Amount:         payload.Action.Amount.String(),
		Currency:       payload.Action.Currency,
		ChannelID:      payload.SourceObject.Channel.ID,
		SourceObjectID: payload.SourceObject.ID,
		SourceType:     payload.SourceObject.Typename,
		Data:           payload.Data,
	}
	return event, validate.Struct(event)
}

// failureResult converts a service error into the synchronous failure body
// Saleor expects instead of a transport error.
func failureResult(actionType string, err error) *domain.TransactionResult {
	result := domain.ResultChargeFailure
	if actionType == domain.FlowAuthorization {
		result = "AUTHORIZATION_FAILURE"
	}
	return &domain.TransactionResult{Result: result, Message: err.Error()}
}

func (h *SaleorWebhookHandler) InitializeSession(w http.ResponseWriter, r *http.Request) {
	event, err := decodeSessionEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.InitializeSession(r.Context(), event)
	if err != nil {
		h.logger.Error().Err(err).Str("transactionId", event.TransactionID).Msg("initialize session failed")
		writeJSON(w, http.StatusOK, failureResult(event.ActionType, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SaleorWebhookHandler) ProcessSession(w http.ResponseWriter, r *http.Request) {
	event, err := decodeSessionEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.ProcessSession(r.Context(), event)
	if err != nil {
		h.logger.Error().Err(err).Str("transactionId", event.TransactionID).Msg("process session failed")
		writeJSON(w, http.StatusOK, failureResult(event.ActionType, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PaymentGatewayInitialize returns the publishable key for the checkout's
// channel so the storefront can render the gateway.
func (h *SaleorWebhookHandler) PaymentGatewayInitialize(w http.ResponseWriter, r *http.Request) {
	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := h.configs.GetConfig(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("config load failed")
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
		return
	}
	entry := cfg.EntryForChannel(payload.SourceObject.Channel.ID)
	if entry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]string{"publishableKey": entry.PublishableKey},
	})
}

func decodeActionEvent(r *http.Request) (domain.TransactionActionEvent, error) {
	var payload sessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return domain.TransactionActionEvent{}, err
	}
	event := domain.TransactionActionEvent{
		TransactionID: payload.Transaction.ID,
		Amount:        payload.Action.Amount.String(),
		Currency:      payload.Action.Currency,
	}
	return event, validate.Struct(event)
}

func (h *SaleorWebhookHandler) ChargeRequested(w http.ResponseWriter, r *http.Request) {
	event, err := decodeActionEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ChargeRequested(event))
}

func (h *SaleorWebhookHandler) RefundRequested(w http.ResponseWriter, r *http.Request) {
	event, err := decodeActionEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.RefundRequested(event))
}

func (h *SaleorWebhookHandler) CancelRequested(w http.ResponseWriter, r *http.Request) {
	event, err := decodeActionEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.CancelRequested(event))
}
