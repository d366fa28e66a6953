package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/application/account"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/transport/http/middleware"
)

// EmailHandler drives the email binding flow: send a verification code,
// then bind the verified address to the Telegram user's account.
type EmailHandler struct {
	svc    account.Service
	logger zerolog.Logger
}

func NewEmailHandler(svc account.Service, logger zerolog.Logger) *EmailHandler {
	return &EmailHandler{
		svc:    svc,
		logger: logger.With().Str("component", "email_handler").Logger(),
	}
}

type emailRequest struct {
	InitDataRaw string `json:"initDataRaw"`
	Email       string `json:"email"`
	Code        string `json:"code"`
}

func decodeEmailRequest(w http.ResponseWriter, r *http.Request) (*emailRequest, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, "Invalid request body")
		return nil, false
	}
	if req.InitDataRaw == "" {
		writeFailure(w, "Missing initDataRaw parameter")
		return nil, false
	}
	return &req, true
}

func (h *EmailHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		writeFailure(w, "User already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		writeFailure(w, "Verification failed")
	case errors.Is(err, domain.ErrBadRequest):
		writeFailure(w, "Invalid request")
	default:
		h.logger.Error().Err(err).Msg("email operation failed")
		writeFailure(w, "Internal error")
	}
}

func (h *EmailHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEmailRequest(w, r)
	if !ok {
		return
	}
	if err := h.svc.SendVerificationCode(r.Context(), req.InitDataRaw, req.Email); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, nil)
}

func (h *EmailHandler) Bind(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEmailRequest(w, r)
	if !ok {
		return
	}
	platform := middleware.PlatformFromContext(r.Context())
	if err := h.svc.BindEmail(r.Context(), req.InitDataRaw, platform, req.Email, req.Code); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// BindDirect is the legacy bind endpoint that skips code verification.
func (h *EmailHandler) BindDirect(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEmailRequest(w, r)
	if !ok {
		return
	}
	platform := middleware.PlatformFromContext(r.Context())
	if err := h.svc.BindEmailDirect(r.Context(), req.InitDataRaw, platform, req.Email); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, nil)
}
