package handler

import (
	"net/http"
	"strings"
)

const appVersion = "1.0.0"

// ManifestHandler serves the app manifest Saleor reads during installation.
type ManifestHandler struct {
	baseURL string
}

func NewManifestHandler(baseURL string) *ManifestHandler {
	return &ManifestHandler{baseURL: strings.TrimRight(baseURL, "/")}
}

type webhookManifest struct {
	Name        string   `json:"name"`
	SyncEvents  []string `json:"syncEvents,omitempty"`
	AsyncEvents []string `json:"asyncEvents,omitempty"`
	Query       string   `json:"query"`
	TargetURL   string   `json:"targetUrl"`
	IsActive    bool     `json:"isActive"`
}

type manifest struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Version               string            `json:"version"`
	About                 string            `json:"about"`
	Permissions           []string          `json:"permissions"`
	AppURL                string            `json:"appUrl"`
	TokenTargetURL        string            `json:"tokenTargetUrl"`
	RequiredSaleorVersion string            `json:"requiredSaleorVersion"`
	HomepageURL           string            `json:"homepageUrl"`
	SupportURL            string            `json:"supportUrl"`
	Webhooks              []webhookManifest `json:"webhooks"`
	Extensions            []any             `json:"extensions"`
}

func (h *ManifestHandler) syncWebhook(name, event, path string) webhookManifest {
	return webhookManifest{
		Name:       name,
		SyncEvents: []string{event},
		Query:      "subscription { event { ... on " + name + " { __typename } } }",
		TargetURL:  h.baseURL + path,
		IsActive:   true,
	}
}

func (h *ManifestHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, manifest{
		ID:                    "app.saleor.openweb3",
		Name:                  "Openweb3",
		Version:               appVersion,
		About:                 "Openweb3 WalletPay payment gateway for Saleor",
		Permissions:           []string{"HANDLE_PAYMENTS"},
		AppURL:                h.baseURL,
		TokenTargetURL:        h.baseURL + "/api/register",
		RequiredSaleorVersion: ">=3.14.0",
		HomepageURL:           "https://github.com/saleor/saleor-app-payment-openweb3",
		SupportURL:            "https://github.com/saleor/saleor-app-payment-openweb3/issues",
		Webhooks: []webhookManifest{
			h.syncWebhook("PaymentGatewayInitializeSession", "PAYMENT_GATEWAY_INITIALIZE_SESSION", "/api/webhooks/saleor/payment-gateway-initialize-session"),
			h.syncWebhook("TransactionInitializeSession", "TRANSACTION_INITIALIZE_SESSION", "/api/webhooks/saleor/transaction-initialize-session"),
			h.syncWebhook("TransactionProcessSession", "TRANSACTION_PROCESS_SESSION", "/api/webhooks/saleor/transaction-process-session"),
			h.syncWebhook("TransactionChargeRequested", "TRANSACTION_CHARGE_REQUESTED", "/api/webhooks/saleor/transaction-charge-requested"),
			h.syncWebhook("TransactionRefundRequested", "TRANSACTION_REFUND_REQUESTED", "/api/webhooks/saleor/transaction-refund-requested"),
			h.syncWebhook("TransactionCancelationRequested", "TRANSACTION_CANCELATION_REQUESTED", "/api/webhooks/saleor/transaction-cancelation-requested"),
		},
		Extensions: []any{},
	})
}
