package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/saleor-apps/openweb3-payment/internal/application/account"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/openweb3"
)

// --- mocks shared by the handler tests ---

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Authenticate(ctx context.Context, rawInitData, refreshToken string) (*account.AuthResult, error) {
	args := m.Called(ctx, rawInitData, refreshToken)
	if r, _ := args.Get(0).(*account.AuthResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) SendVerificationCode(ctx context.Context, rawInitData, email string) error {
	return m.Called(ctx, rawInitData, email).Error(0)
}

func (m *mockAccountSvc) BindEmail(ctx context.Context, rawInitData, platform, email, code string) error {
	return m.Called(ctx, rawInitData, platform, email, code).Error(0)
}

func (m *mockAccountSvc) BindEmailDirect(ctx context.Context, rawInitData, platform, email string) error {
	return m.Called(ctx, rawInitData, platform, email).Error(0)
}

type mockPaymentSvc struct{ mock.Mock }

func (m *mockPaymentSvc) InitializeSession(ctx context.Context, event domain.TransactionSessionEvent) (*domain.TransactionResult, error) {
	args := m.Called(ctx, event)
	if r, _ := args.Get(0).(*domain.TransactionResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) ProcessSession(ctx context.Context, event domain.TransactionSessionEvent) (*domain.TransactionResult, error) {
	args := m.Called(ctx, event)
	if r, _ := args.Get(0).(*domain.TransactionResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) ChargeRequested(event domain.TransactionActionEvent) *domain.TransactionResult {
	return m.Called(event).Get(0).(*domain.TransactionResult)
}

func (m *mockPaymentSvc) RefundRequested(event domain.TransactionActionEvent) *domain.TransactionResult {
	return m.Called(event).Get(0).(*domain.TransactionResult)
}

func (m *mockPaymentSvc) CancelRequested(event domain.TransactionActionEvent) *domain.TransactionResult {
	return m.Called(event).Get(0).(*domain.TransactionResult)
}

func (m *mockPaymentSvc) HandleProviderEvent(ctx context.Context, event *openweb3.OrderEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockConfigSource struct{ mock.Mock }

func (m *mockConfigSource) GetConfig(ctx context.Context) (*domain.AppConfig, error) {
	args := m.Called(ctx)
	if c, _ := args.Get(0).(*domain.AppConfig); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
