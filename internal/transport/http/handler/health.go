package handler

import (
	"net/http"

	"github.com/saleor-apps/openweb3-payment/internal/apl"
)

// HealthHandler reports liveness and the health of the auth-data store.
type HealthHandler struct {
	store apl.APL
}

func NewHealthHandler(store apl.APL) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthStatus struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Configured bool   `json:"configured"`
	Error      string `json:"error,omitempty"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Ready: true, Configured: true}

	if ready := h.store.IsReady(r.Context()); !ready.Ready {
		status.Status = "unhealthy"
		status.Ready = false
		if ready.Err != nil {
			status.Error = ready.Err.Error()
		}
	} else if configured := h.store.IsConfigured(r.Context()); !configured.Configured {
		status.Status = "unhealthy"
		status.Configured = false
		if configured.Err != nil {
			status.Error = configured.Err.Error()
		}
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
