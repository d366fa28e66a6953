package apl

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// DefaultKeyPrefix namespaces auth keys so several apps can share one Redis.
const DefaultKeyPrefix = "saleor:auth:"

const repairTimeout = 5 * time.Second

// RedisConfig configures a RedisAPL instance.
type RedisConfig struct {
	// URL is the connection string, redis:// or rediss:// for TLS. Required.
	URL string
	// Password overrides any password embedded in URL.
	Password string
	// KeyPrefix is prepended to every key; the index set lives at
	// KeyPrefix + "index". Defaults to DefaultKeyPrefix.
	KeyPrefix string
	// TTL, when positive, expires every record that long after each write.
	TTL time.Duration
	// TLS forces encryption on or off regardless of the URL scheme.
	// When nil the scheme decides.
	TLS *bool
	// InsecureSkipVerify accepts self-signed certificates. Leave false in
	// production.
	InsecureSkipVerify bool

	Logger zerolog.Logger
}

// RedisAPL stores auth data in Redis: one JSON value per tenant at
// {prefix}{saleorApiUrl}, plus a set of all tenant URLs at {prefix}index so
// GetAll does not need a keyspace scan. The value and its index membership
// are written in one transactional pipeline; a crash between dispatch and
// execution can still leave them inconsistent, which GetAll repairs lazily.
type RedisAPL struct {
	client    *redis.Client
	keyPrefix string
	indexKey  string
	ttl       time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	dialErr error
	closed  bool
}

var _ APL = (*RedisAPL)(nil)

// NewRedisAPL validates cfg, builds the client and returns the store.
// A missing URL is a construction-time error, not a deferred one.
func NewRedisAPL(cfg RedisConfig) (*RedisAPL, error) {
	if cfg.URL == "" {
		return nil, errors.New("apl: redis URL is required")
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("apl: parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}

	// Bounded retries with capped backoff, matching the connection policy
	// of the hosted deployments this replaces (min(attempt*50ms, 2s)).
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 50 * time.Millisecond
	opt.MaxRetryBackoff = 2 * time.Second

	useTLS := opt.TLSConfig != nil
	if cfg.TLS != nil {
		useTLS = *cfg.TLS
	}
	if useTLS {
		opt.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}
	} else {
		opt.TLSConfig = nil
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger.With().Str("component", "redis_apl").Logger()

	a := &RedisAPL{
		keyPrefix: prefix,
		indexKey:  prefix + "index",
		ttl:       cfg.TTL,
		logger:    logger,
	}
	client := redis.NewClient(opt)
	client.AddHook(&dialStateHook{apl: a})
	a.client = client

	if useTLS {
		logger.Info().Msg("redis client initialized with TLS enabled")
	}
	return a, nil
}

// dialStateHook records the outcome of connection attempts so IsReady can
// report state without issuing a command.
type dialStateHook struct {
	apl *RedisAPL
}

func (h *dialStateHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		h.apl.setDialErr(err)
		if err != nil {
			h.apl.logger.Warn().Err(err).Str("addr", addr).Msg("redis connection attempt failed")
		}
		return conn, err
	}
}

func (h *dialStateHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *dialStateHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (a *RedisAPL) setDialErr(err error) {
	a.mu.Lock()
	a.dialErr = err
	a.mu.Unlock()
}

func (a *RedisAPL) key(saleorAPIURL string) string {
	return a.keyPrefix + saleorAPIURL
}

// Get reads the record for saleorAPIURL. Absence yields (nil, nil);
// an undecodable stored value is an error for the caller to handle.
func (a *RedisAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	raw, err := a.client.Get(ctx, a.key(saleorAPIURL)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var data domain.AuthData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("apl: decode auth data for %s: %w", saleorAPIURL, err)
	}
	return &data, nil
}

// Set writes the record and its index membership in one transactional
// pipeline. An existing record for the same URL is fully replaced.
func (a *RedisAPL) Set(ctx context.Context, data *domain.AuthData) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("apl: encode auth data for %s: %w", data.SaleorAPIURL, err)
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, a.key(data.SaleorAPIURL), value, a.ttl)
	pipe.SAdd(ctx, a.indexKey, data.SaleorAPIURL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	a.logger.Info().Str("saleor_api_url", data.SaleorAPIURL).Msg("stored auth data")
	return nil
}

// Delete removes the record and its index membership. Deleting an absent
// record is a no-op.
func (a *RedisAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	pipe := a.client.TxPipeline()
	pipe.Del(ctx, a.key(saleorAPIURL))
	pipe.SRem(ctx, a.indexKey, saleorAPIURL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	a.logger.Info().Str("saleor_api_url", saleorAPIURL).Msg("deleted auth data")
	return nil
}

// GetAll returns every stored record: one SMEMBERS on the index, then a
// single MGET for all values. Index members without a backing value (a
// record expired or lost without its index entry) are repaired out of the
// index in the background; values that fail to decode are purged entirely.
// Both anomalies are excluded from the result and logged, never surfaced
// as errors.
func (a *RedisAPL) GetAll(ctx context.Context) ([]domain.AuthData, error) {
	urls, err := a.client.SMembers(ctx, a.indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return []domain.AuthData{}, nil
	}

	keys := make([]string, len(urls))
	for i, u := range urls {
		keys[i] = a.key(u)
	}
	values, err := a.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]domain.AuthData, 0, len(urls))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// In the index but no value behind it.
			a.logger.Warn().Str("saleor_api_url", urls[i]).Msg("dangling index entry, scheduling repair")
			a.repairIndex(urls[i])
			continue
		}
		var data domain.AuthData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			a.logger.Warn().Err(err).Str("saleor_api_url", urls[i]).Msg("undecodable auth data, purging record")
			if delErr := a.Delete(ctx, urls[i]); delErr != nil {
				a.logger.Warn().Err(delErr).Str("saleor_api_url", urls[i]).Msg("failed to purge undecodable record")
			}
			continue
		}
		out = append(out, data)
	}
	return out, nil
}

// repairIndex removes a dangling member without blocking the read that
// found it. SREM of an absent member is a no-op, so concurrent repairs of
// the same member cannot fail each other.
func (a *RedisAPL) repairIndex(saleorAPIURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), repairTimeout)
		defer cancel()
		if err := a.client.SRem(ctx, a.indexKey, saleorAPIURL).Err(); err != nil {
			a.logger.Warn().Err(err).Str("saleor_api_url", saleorAPIURL).Msg("index repair failed")
		}
	}()
}

// IsReady reports connection state from the last observed dial outcome;
// it never issues a command.
func (a *RedisAPL) IsReady(_ context.Context) ReadyResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ReadyResult{Ready: false, Err: errors.New("apl: redis client is closed")}
	}
	if a.dialErr != nil {
		return ReadyResult{Ready: false, Err: fmt.Errorf("apl: redis connection not ready: %w", a.dialErr)}
	}
	return ReadyResult{Ready: true}
}

// IsConfigured probes the backend with a PING.
func (a *RedisAPL) IsConfigured(ctx context.Context) ConfiguredResult {
	if err := a.client.Ping(ctx).Err(); err != nil {
		a.logger.Warn().Err(err).Msg("redis ping failed")
		return ConfiguredResult{Configured: false, Err: err}
	}
	return ConfiguredResult{Configured: true}
}

// Close releases the connection pool. A second Close reports the pool as
// already closed but leaves no corrupted state behind.
func (a *RedisAPL) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return a.client.Close()
}
