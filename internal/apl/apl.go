// Package apl implements the authentication persistence layer: keyed storage
// of per-tenant Saleor auth data behind a pluggable contract, with Redis,
// file and in-memory backends.
package apl

import (
	"context"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// ReadyResult reports backend connectivity without a round trip.
type ReadyResult struct {
	Ready bool
	Err   error
}

// ConfiguredResult reports the outcome of a live configuration probe.
type ConfiguredResult struct {
	Configured bool
	Err        error
}

// APL is the persistence contract for tenant auth data. Get returns
// (nil, nil) when no record exists; absence is not an error. IsReady and
// IsConfigured never return through a panic or error value — failures are
// carried inside the result.
type APL interface {
	Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error)
	Set(ctx context.Context, data *domain.AuthData) error
	Delete(ctx context.Context, saleorAPIURL string) error
	GetAll(ctx context.Context) ([]domain.AuthData, error)
	IsReady(ctx context.Context) ReadyResult
	IsConfigured(ctx context.Context) ConfiguredResult
	Close() error
}
