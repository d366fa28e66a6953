package handler

import (
	"encoding/json"
	"net/http"
)

// Envelope is the storefront response wrapper. Business failures still
// travel with HTTP 200; the code field carries the outcome.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const (
	codeSuccess = 0
	codeFailure = -1
	// codeAnonymous marks a valid request from a Telegram user with no
	// bound customer account yet.
	codeAnonymous = 200
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: codeSuccess, Message: "success", Data: data})
}

func writeFailure(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, Envelope{Code: codeFailure, Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
