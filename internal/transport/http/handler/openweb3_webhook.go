package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/application/payment"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/openweb3"
)

// maxWebhookBody caps provider webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// Openweb3WebhookHandler receives signed order events from WalletPay.
type Openweb3WebhookHandler struct {
	verifier *openweb3.WebhookVerifier
	svc      payment.Service
	logger   zerolog.Logger
}

func NewOpenweb3WebhookHandler(verifier *openweb3.WebhookVerifier, svc payment.Service, logger zerolog.Logger) *Openweb3WebhookHandler {
	return &Openweb3WebhookHandler{
		verifier: verifier,
		svc:      svc,
		logger:   logger.With().Str("component", "openweb3_webhook").Logger(),
	}
}

func (h *Openweb3WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	event, err := h.verifier.Verify(body, r.Header)
	if err != nil {
		switch {
		case errors.Is(err, openweb3.ErrMissingSignature):
			writeError(w, http.StatusBadRequest, "missing signature headers")
		case errors.Is(err, openweb3.ErrStaleTimestamp):
			writeError(w, http.StatusBadRequest, "stale timestamp")
		default:
			writeError(w, http.StatusUnauthorized, "invalid signature")
		}
		return
	}

	if err := h.svc.HandleProviderEvent(r.Context(), event); err != nil {
		// The provider retries on non-2xx, which is what we want for
		// transient Saleor failures.
		h.logger.Error().Err(err).Str("type", event.Type).Msg("provider event handling failed")
		writeError(w, http.StatusInternalServerError, "event handling failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
