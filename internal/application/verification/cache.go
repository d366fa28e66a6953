// Package verification issues and redeems the short-lived codes used to
// bind an email address to a platform user. Codes live only in process
// memory; a restart drops all pending codes, which is acceptable for a
// ten-minute confirmation window.
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

const (
	codeTTL       = 10 * time.Minute
	sweepInterval = 60 * time.Second
)

// CodeCache maps emails to pending verification codes and evicts expired
// entries in the background. Construct one per process and share it; there
// is no ambient singleton.
type CodeCache struct {
	mu      sync.Mutex
	entries map[string]domain.VerificationCode

	now    func() time.Time
	logger zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// Option customizes a CodeCache, mainly so tests can control time.
type Option func(*CodeCache)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *CodeCache) { c.now = now }
}

// NewCodeCache creates the cache and starts its sweep loop. interval <= 0
// selects the default of one minute. Call Stop for orderly shutdown; the
// sweep is never restarted after that.
func NewCodeCache(logger zerolog.Logger, interval time.Duration, opts ...Option) *CodeCache {
	if interval <= 0 {
		interval = sweepInterval
	}
	c := &CodeCache{
		entries: make(map[string]domain.VerificationCode),
		now:     time.Now,
		logger:  logger.With().Str("component", "verification_cache").Logger(),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweepLoop(interval)
	return c
}

// IssueCode stores a fresh 6-digit code for email owned by userID, valid
// for ten minutes. Any pending code for that email is discarded, even one
// owned by a different user — the last requester wins.
func (c *CodeCache) IssueCode(email, userID string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	entry := domain.VerificationCode{
		Code:      code,
		UserID:    userID,
		ExpiresAt: c.now().Add(codeTTL),
	}
	c.mu.Lock()
	c.entries[email] = entry
	c.mu.Unlock()
	return code, nil
}

// VerifyCode reports whether a pending entry for email matches both code
// and userID and has not expired. An expired entry is evicted as a side
// effect; a wrong code or wrong owner leaves the entry in place, so the
// real owner can still redeem it until it expires.
func (c *CodeCache) VerifyCode(email, code, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[email]
	if !ok {
		return false
	}
	if c.now().After(entry.ExpiresAt) {
		delete(c.entries, email)
		return false
	}
	return entry.UserID == userID && entry.Code == code
}

// Remove evicts the entry for email unconditionally. Callers invoke it
// right after a successful VerifyCode to make the code single-use.
func (c *CodeCache) Remove(email string) {
	c.mu.Lock()
	delete(c.entries, email)
	c.mu.Unlock()
}

// Stop ends the sweep loop. An already-fired sweep finishes its pass.
func (c *CodeCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *CodeCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep evicts every expired entry so codes nobody redeems cannot
// accumulate.
func (c *CodeCache) sweep() {
	now := c.now()
	c.mu.Lock()
	evicted := 0
	for email, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, email)
			evicted++
		}
	}
	c.mu.Unlock()
	if evicted > 0 {
		c.logger.Debug().Int("evicted", evicted).Msg("swept expired verification codes")
	}
}

// generateCode draws a uniform 6-digit decimal code from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
