package apl

import (
	"context"
	"sync"
	"time"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// MemoryAPL is an in-memory APL for development and tests. It honors the
// same contract as RedisAPL, including per-record expiry when a TTL is set.
type MemoryAPL struct {
	mux  sync.RWMutex
	data map[string]memoryRecord
	ttl  time.Duration
	now  func() time.Time
}

type memoryRecord struct {
	data      domain.AuthData
	expiresAt time.Time // zero when no TTL
}

var _ APL = (*MemoryAPL)(nil)

// NewMemoryAPL creates an empty store. ttl of 0 disables expiry.
func NewMemoryAPL(ttl time.Duration) *MemoryAPL {
	return &MemoryAPL{
		data: map[string]memoryRecord{},
		ttl:  ttl,
		now:  time.Now,
	}
}

func (a *MemoryAPL) Get(_ context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	a.mux.RLock()
	rec, ok := a.data[saleorAPIURL]
	a.mux.RUnlock()
	if !ok {
		return nil, nil
	}
	if !rec.expiresAt.IsZero() && a.now().After(rec.expiresAt) {
		a.mux.Lock()
		delete(a.data, saleorAPIURL)
		a.mux.Unlock()
		return nil, nil
	}
	data := rec.data
	return &data, nil
}

func (a *MemoryAPL) Set(_ context.Context, data *domain.AuthData) error {
	rec := memoryRecord{data: *data}
	if a.ttl > 0 {
		rec.expiresAt = a.now().Add(a.ttl)
	}
	a.mux.Lock()
	a.data[data.SaleorAPIURL] = rec
	a.mux.Unlock()
	return nil
}

func (a *MemoryAPL) Delete(_ context.Context, saleorAPIURL string) error {
	a.mux.Lock()
	delete(a.data, saleorAPIURL)
	a.mux.Unlock()
	return nil
}

func (a *MemoryAPL) GetAll(_ context.Context) ([]domain.AuthData, error) {
	now := a.now()
	a.mux.Lock()
	defer a.mux.Unlock()
	out := make([]domain.AuthData, 0, len(a.data))
	for url, rec := range a.data {
		if !rec.expiresAt.IsZero() && now.After(rec.expiresAt) {
			delete(a.data, url)
			continue
		}
		out = append(out, rec.data)
	}
	return out, nil
}

func (a *MemoryAPL) IsReady(_ context.Context) ReadyResult {
	return ReadyResult{Ready: true}
}

func (a *MemoryAPL) IsConfigured(_ context.Context) ConfiguredResult {
	return ConfiguredResult{Configured: true}
}

func (a *MemoryAPL) Close() error { return nil }
