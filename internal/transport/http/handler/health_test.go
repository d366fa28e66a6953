package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleor-apps/openweb3-payment/internal/apl"
	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

type stubAPL struct {
	ready      apl.ReadyResult
	configured apl.ConfiguredResult
}

func (s *stubAPL) Get(context.Context, string) (*domain.AuthData, error) { return nil, nil }
func (s *stubAPL) Set(context.Context, *domain.AuthData) error { return nil }
func (s *stubAPL) Delete(context.Context, string) error { return nil }
func (s *stubAPL) GetAll(context.Context) ([]domain.AuthData, error) { return nil, nil }
func (s *stubAPL) IsReady(context.Context) apl.ReadyResult { return s.ready }
func (s *stubAPL) IsConfigured(context.Context) apl.ConfiguredResult { return s.configured }
func (s *stubAPL) Close() error { return nil }

func getHealth(store apl.APL) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewHealthHandler(store).Check(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec
}

func TestHealth_OK(t *testing.T) {
	store := &stubAPL{
		ready:      apl.ReadyResult{Ready: true},
		configured: apl.ConfiguredResult{Configured: true},
	}
	rec := getHealth(store)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealth_NotReady(t *testing.T) {
	store := &stubAPL{
		ready: apl.ReadyResult{Ready: false, Err: errors.New("dial tcp: connection refused")},
	}
	rec := getHealth(store)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHealth_NotConfigured(t *testing.T) {
	store := &stubAPL{
		ready:      apl.ReadyResult{Ready: true},
		configured: apl.ConfiguredResult{Configured: false, Err: errors.New("ping failed")},
	}
	rec := getHealth(store)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ping failed")
}
