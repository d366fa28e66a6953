// Package payment maps Saleor transaction webhooks onto WalletPay payment
// orders and reports provider order events back to Saleor.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/openweb3"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/saleor"
)

// orderCurrency is the only settlement currency WalletPay supports.
const orderCurrency = "USDT"

// OrderAPI is the per-tenant WalletPay client surface.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req openweb3.CreateOrderRequest) (*openweb3.Order, error)
	GetOrder(ctx context.Context, uid string) (*openweb3.Order, error)
}

// OrderClientFactory builds an OrderAPI for a tenant's key pair. Each
// configuration entry carries its own keys, so clients cannot be shared.
type OrderClientFactory func(publishableKey, secretKey string) OrderAPI

// TransactionGateway is the subset of the Saleor client used to settle
// transactions after a provider event.
type TransactionGateway interface {
	TransactionCheckoutID(ctx context.Context, transactionID string) (checkoutID, orderID string, err error)
	TransactionProcess(ctx context.Context, transactionID string, data map[string]any) (*saleor.TransactionProcessResult, error)
	CheckoutComplete(ctx context.Context, checkoutID string, metadata []saleor.MetadataInput) (string, error)
}

// ConfigSource resolves the stored app configuration.
type ConfigSource interface {
	GetConfig(ctx context.Context) (*domain.AppConfig, error)
}

type Service interface {
	InitializeSession(ctx context.Context, event domain.TransactionSessionEvent) (*domain.TransactionResult, error)
	ProcessSession(ctx context.Context, event domain.TransactionSessionEvent) (*domain.TransactionResult, error)
	ChargeRequested(event domain.TransactionActionEvent) *domain.TransactionResult
	RefundRequested(event domain.TransactionActionEvent) *domain.TransactionResult
	CancelRequested(event domain.TransactionActionEvent) *domain.TransactionResult
	HandleProviderEvent(ctx context.Context, event *openweb3.OrderEvent) error
}

type service struct {
	configs    ConfigSource
	orders     OrderClientFactory
	saleor     TransactionGateway
	miniAppURL string
	logger     zerolog.Logger
}

func NewService(configs ConfigSource, orders OrderClientFactory, gateway TransactionGateway, miniAppURL string, logger zerolog.Logger) Service {
	return &service{
		configs:    configs,
		orders:     orders,
		saleor:     gateway,
		miniAppURL: miniAppURL,
		logger:     logger.With().Str("component", "payment").Logger(),
	}
}

// entryForChannel resolves the WalletPay key pair mapped to the event's
// channel.
func (s *service) entryForChannel(ctx context.Context, channelID string) (*domain.ConfigEntry, error) {
	cfg, err := s.configs.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	entry := cfg.EntryForChannel(channelID)
	if entry == nil {
		return nil, fmt.Errorf("%w: no configuration mapped to channel %s", domain.ErrNotFound, channelID)
	}
	if err := openweb3.ValidateKeys(entry.SecretKey, entry.PublishableKey); err != nil {
		return nil, fmt.Errorf("payment: channel %s: %w", channelID, err)
	}
	return entry, nil
}

// orderUID is the deterministic WalletPay order id for a transaction, so
// retried webhooks resolve to the same order.
func orderUID(userID, transactionID string) string {
	return userID + "-" + transactionID
}

// resultForStatus maps a WalletPay order status to the Saleor transaction
// event result for the given flow.
func resultForStatus(actionType, status string) string {
	prefix := "CHARGE"
	if actionType == domain.FlowAuthorization {
		prefix = "AUTHORIZATION"
	}
	switch status {
	case "PAID", "COMPLETED":
		return prefix + "_SUCCESS"
	case "EXPIRED", "FAILED":
		return prefix + "_FAILURE"
	default:
		return prefix + "_ACTION_REQUIRED"
	}
}

func (s *service) sessionResult(event domain.TransactionSessionEvent, entry *domain.ConfigEntry, order *openweb3.Order) *domain.TransactionResult {
	redirectURL := s.miniAppURL + "?startapp=Pay_" + order.ID
	return &domain.TransactionResult{
		PSPReference: redirectURL,
		Result:       resultForStatus(event.ActionType, order.Status),
		Amount:       event.Amount,
		Message:      order.WalletID,
		ExternalURL:  order.PayURL,
		Data: map[string]any{
			"paymentIntent":  order,
			"publishableKey": entry.PublishableKey,
			"redirectUrl":    redirectURL,
		},
	}
}

func (s *service) InitializeSession(ctx context.Context, event domain.TransactionSessionEvent) (*domain.TransactionResult, error) {
	entry, err := s.entryForChannel(ctx, event.ChannelID)
	if err != nil {
		return nil, err
	}
	client := s.orders(entry.PublishableKey, entry.SecretKey)

	userID, _ := event.Data["userId"].(string)
	uid := orderUID(userID, event.TransactionID)

	// A retried initialize webhook must reuse the existing order rather
	// than opening a second one.
	order, err := client.GetOrder(ctx, uid)
	if err != nil {
		metadata := map[string]string{
			"transactionId": event.TransactionID,
			"channelId":     event.ChannelID,
		}
		if userID != "" {
			metadata["userId"] = userID
		}
		if platform, ok := event.Data["platform"].(string); ok && platform != "" {
			metadata["platform"] = platform
		}
		switch event.SourceType {
		case "Order":
			metadata["orderId"] = event.SourceObjectID
		default:
			metadata["checkoutId"] = event.SourceObjectID
		}

		order, err = client.CreateOrder(ctx, openweb3.CreateOrderRequest{
			UID:      uid,
			Amount:   openweb3.Money{Currency: orderCurrency, Amount: event.Amount},
			Metadata: metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("payment: create order: %w", err)
		}
	}

	result := s.sessionResult(event, entry, order)
	s.logger.Info().
		Str("transactionId", event.TransactionID).
		Str("orderUid", order.UID).
		Str("result", result.Result).
		Msg("transaction session initialized")
	return result, nil
}

func (s *service) ProcessSession(ctx context.Context, event domain.TransactionSessionEvent) (*domain.TransactionResult, error) {
	entry, err := s.entryForChannel(ctx, event.ChannelID)
	if err != nil {
		return nil, err
	}
	client := s.orders(entry.PublishableKey, entry.SecretKey)

	uid, _ := event.Data["uid"].(string)
	if uid == "" {
		userID, _ := event.Data["userId"].(string)
		uid = orderUID(userID, event.TransactionID)
	}

	order, err := client.GetOrder(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, uid)
	}

	result := s.sessionResult(event, entry, order)
	s.logger.Info().
		Str("transactionId", event.TransactionID).
		Str("orderUid", order.UID).
		Str("result", result.Result).
		Msg("transaction session processed")
	return result, nil
}

// WalletPay orders cannot be captured, refunded or voided through this app,
// so the action webhooks always report failure and the merchant settles
// out of band.

func (s *service) ChargeRequested(event domain.TransactionActionEvent) *domain.TransactionResult {
	s.logger.Warn().Str("transactionId", event.TransactionID).Msg("charge requested, not supported")
	return &domain.TransactionResult{Result: domain.ResultChargeFailure, Amount: event.Amount}
}

func (s *service) RefundRequested(event domain.TransactionActionEvent) *domain.TransactionResult {
	s.logger.Warn().Str("transactionId", event.TransactionID).Msg("refund requested, not supported")
	return &domain.TransactionResult{Result: domain.ResultRefundFailure, Amount: event.Amount}
}

func (s *service) CancelRequested(event domain.TransactionActionEvent) *domain.TransactionResult {
	s.logger.Warn().Str("transactionId", event.TransactionID).Msg("cancel requested, not supported")
	return &domain.TransactionResult{Result: domain.ResultCancelFailure, Amount: event.Amount}
}

func (s *service) HandleProviderEvent(ctx context.Context, event *openweb3.OrderEvent) error {
	switch event.Type {
	case openweb3.EventOrderPaid:
		return s.handleOrderPaid(ctx, event)
	case openweb3.EventOrderExpired:
		s.logger.Info().
			Str("orderId", event.Payload.ID).
			Str("amount", event.Payload.Amount.Amount).
			Msg("order expired")
		return nil
	case openweb3.EventOrderFailed:
		s.logger.Warn().
			Str("orderId", event.Payload.ID).
			Str("failedMessage", event.Payload.FailedMessage).
			Msg("order failed")
		return nil
	default:
		s.logger.Warn().Str("type", event.Type).Msg("unknown provider event type")
		return nil
	}
}

// handleOrderPaid reports the payment to Saleor and completes the checkout
// once the transaction lands in CHARGE_SUCCESS.
func (s *service) handleOrderPaid(ctx context.Context, event *openweb3.OrderEvent) error {
	uid := event.Payload.UID
	parts := strings.SplitN(uid, "-", 2)
	if len(parts) != 2 || parts[1] == "" {
		return fmt.Errorf("%w: malformed order uid %q", domain.ErrBadRequest, uid)
	}
	transactionID := parts[1]

	logger := s.logger.With().Str("transactionId", transactionID).Str("orderUid", uid).Logger()

	checkoutID, orderID, err := s.saleor.TransactionCheckoutID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("payment: resolve transaction: %w", err)
	}

	proc, err := s.saleor.TransactionProcess(ctx, transactionID, map[string]any{"uid": uid})
	if err != nil {
		return fmt.Errorf("payment: process transaction: %w", err)
	}

	if proc.EventType != domain.ResultChargeSuccess {
		logger.Warn().Str("eventType", proc.EventType).Msg("transaction not charged, skipping checkout completion")
		return nil
	}
	if checkoutID == "" {
		// Already an order on the Saleor side, nothing to complete.
		logger.Info().Str("orderId", orderID).Msg("transaction settled")
		return nil
	}

	completedOrderID, err := s.saleor.CheckoutComplete(ctx, checkoutID, []saleor.MetadataInput{
		{Key: "transactionId", Value: transactionID},
		{Key: "checkoutId", Value: checkoutID},
	})
	if err != nil {
		return fmt.Errorf("payment: complete checkout: %w", err)
	}
	logger.Info().Str("checkoutId", checkoutID).Str("orderId", completedOrderID).Msg("checkout completed")
	return nil
}
