package domain

// Transaction flow strategies requested by Saleor.
const (
	FlowCharge        = "CHARGE"
	FlowAuthorization = "AUTHORIZATION"
)

// Transaction event results reported back to Saleor.
const (
	ResultChargeActionRequired        = "CHARGE_ACTION_REQUIRED"
	ResultAuthorizationActionRequired = "AUTHORIZATION_ACTION_REQUIRED"
	ResultChargeSuccess               = "CHARGE_SUCCESS"
	ResultChargeFailure               = "CHARGE_FAILURE"
	ResultRefundFailure               = "REFUND_FAILURE"
	ResultCancelFailure               = "CANCEL_FAILURE"
)

// TransactionSessionEvent is the payload shared by the
// TRANSACTION_INITIALIZE_SESSION and TRANSACTION_PROCESS_SESSION webhooks,
// reduced to the fields this app consumes.
type TransactionSessionEvent struct {
	TransactionID  string         `json:"transactionId" validate:"required"`
	ActionType     string         `json:"actionType" validate:"required,oneof=CHARGE AUTHORIZATION"`
	Amount         string         `json:"amount" validate:"required"`
	Currency       string         `json:"currency" validate:"required"`
	ChannelID      string         `json:"channelId" validate:"required"`
	SourceObjectID string         `json:"sourceObjectId"`
	SourceType     string         `json:"sourceType"` // "Checkout" | "Order"
	Data           map[string]any `json:"data"`
}

// TransactionActionEvent is the payload of the charge/refund/cancel
// requested webhooks.
type TransactionActionEvent struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// TransactionResult is the synchronous webhook response body Saleor expects.
type TransactionResult struct {
	PSPReference string         `json:"pspReference,omitempty"`
	Result       string         `json:"result"`
	Amount       string         `json:"amount,omitempty"`
	Message      string         `json:"message,omitempty"`
	ExternalURL  string         `json:"externalUrl,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}
