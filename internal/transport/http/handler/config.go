package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/application/payment"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// ConfigHandler exposes the dashboard's configuration CRUD.
type ConfigHandler struct {
	manager *payment.ConfigManager
	logger  zerolog.Logger
}

func NewConfigHandler(manager *payment.ConfigManager, logger zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{
		manager: manager,
		logger:  logger.With().Str("component", "config_handler").Logger(),
	}
}

func (h *ConfigHandler) writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("config operation failed")
		writeError(w, http.StatusInternalServerError, "config operation failed")
	}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.manager.GetConfigObfuscated(r.Context())
	if err != nil {
		h.writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var entry domain.ConfigEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.manager.AddEntry(r.Context(), entry)
	if err != nil {
		h.writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ConfigHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var entry domain.ConfigEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry.ConfigurationID = chi.URLParam(r, "id")
	updated, err := h.manager.UpdateEntry(r.Context(), entry)
	if err != nil {
		h.writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ConfigHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeManagerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConfigHandler) MapChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigurationID string `json:"configurationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.manager.MapChannel(r.Context(), chi.URLParam(r, "channelId"), req.ConfigurationID); err != nil {
		h.writeManagerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
