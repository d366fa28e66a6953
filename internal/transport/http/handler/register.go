package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/apl"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// AppIDResolver resolves the app id an installation token belongs to.
type AppIDResolver interface {
	AppIDForToken(ctx context.Context, token string) (string, error)
}

// RegisterHandler completes app installation: Saleor posts the app token
// here and the handler persists it in the auth-data store.
type RegisterHandler struct {
	store        apl.APL
	resolver     AppIDResolver
	saleorAPIURL string
	logger       zerolog.Logger
}

func NewRegisterHandler(store apl.APL, resolver AppIDResolver, saleorAPIURL string, logger zerolog.Logger) *RegisterHandler {
	return &RegisterHandler{
		store:        store,
		resolver:     resolver,
		saleorAPIURL: saleorAPIURL,
		logger:       logger.With().Str("component", "register").Logger(),
	}
}

func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AuthToken string `json:"auth_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuthToken == "" {
		writeError(w, http.StatusBadRequest, "auth_token required")
		return
	}

	saleorAPIURL := r.Header.Get("saleor-api-url")
	if saleorAPIURL == "" {
		writeError(w, http.StatusBadRequest, "saleor-api-url header required")
		return
	}
	if saleorAPIURL != h.saleorAPIURL {
		writeError(w, http.StatusForbidden, "unknown saleor instance")
		return
	}

	appID, err := h.resolver.AppIDForToken(r.Context(), req.AuthToken)
	if err != nil {
		h.logger.Error().Err(err).Msg("app id resolution failed")
		writeError(w, http.StatusBadGateway, "could not verify app token")
		return
	}

	authData := &domain.AuthData{
		SaleorAPIURL: saleorAPIURL,
		Token:        req.AuthToken,
		AppID:        appID,
	}
	if err := h.store.Set(r.Context(), authData); err != nil {
		h.logger.Error().Err(err).Msg("auth data persistence failed")
		writeError(w, http.StatusInternalServerError, "could not persist auth data")
		return
	}

	h.logger.Info().Str("saleorApiUrl", saleorAPIURL).Str("appId", appID).Msg("app registered")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
