package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
	"github.com/saleor-apps/openweb3-payment/internal/transport/http/middleware"
)

func postEmail(t *testing.T, handlerFunc http.HandlerFunc, body string, platform bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if platform {
		req.Header.Set("platform", "app.saleor.openweb3")
	}
	rec := httptest.NewRecorder()
	middleware.Platform(handlerFunc).ServeHTTP(rec, req)
	return rec
}

func TestSendCode_Success(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("SendVerificationCode", mock.Anything, "raw", "a@example.com").Return(nil)
	h := NewEmailHandler(svc, zerolog.Nop())

	rec := postEmail(t, h.SendCode, `{"initDataRaw":"raw","email":"a@example.com"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, codeSuccess, decodeEnvelope(t, rec).Code)
}

func TestSendCode_BoundEmailFailsInEnvelope(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("SendVerificationCode", mock.Anything, "raw", "a@example.com").
		Return(fmt.Errorf("%w: email is already bound", domain.ErrConflict))
	h := NewEmailHandler(svc, zerolog.Nop())

	rec := postEmail(t, h.SendCode, `{"initDataRaw":"raw","email":"a@example.com"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeFailure, env.Code)
	assert.Equal(t, "User already exists", env.Message)
}

func TestBind_PassesPlatformFromHeader(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("BindEmail", mock.Anything, "raw", "app.saleor.openweb3", "a@example.com", "123456").Return(nil)
	h := NewEmailHandler(svc, zerolog.Nop())

	rec := postEmail(t, h.Bind, `{"initDataRaw":"raw","email":"a@example.com","code":"123456"}`, true)
	assert.Equal(t, codeSuccess, decodeEnvelope(t, rec).Code)
	svc.AssertExpectations(t)
}

func TestBind_WrongCode(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("BindEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: invalid verification code", domain.ErrUnauthorized))
	h := NewEmailHandler(svc, zerolog.Nop())

	rec := postEmail(t, h.Bind, `{"initDataRaw":"raw","email":"a@example.com","code":"000000"}`, true)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeFailure, env.Code)
	assert.Equal(t, "Verification failed", env.Message)
}

func TestBindDirect_SkipsCode(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("BindEmailDirect", mock.Anything, "raw", "app.saleor.openweb3", "a@example.com").Return(nil)
	h := NewEmailHandler(svc, zerolog.Nop())

	rec := postEmail(t, h.BindDirect, `{"initDataRaw":"raw","email":"a@example.com"}`, true)
	assert.Equal(t, codeSuccess, decodeEnvelope(t, rec).Code)
	svc.AssertExpectations(t)
}

func TestPlatformMiddleware_RejectsUnknownPlatform(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewEmailHandler(svc, zerolog.Nop())

	rec := postEmail(t, h.SendCode, `{"initDataRaw":"raw","email":"a@example.com"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, codeFailure, env.Code)
	assert.Equal(t, "Invalid platform", env.Message)
	svc.AssertNotCalled(t, "SendVerificationCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlatformMiddleware_StoresValueInContext(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.PlatformFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("platform", "app.saleor.openweb3")
	middleware.Platform(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "app.saleor.openweb3", got)
}
