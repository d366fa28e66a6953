package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/saleor-apps/openweb3-payment/internal/apl"
	"github.com/saleor-apps/openweb3-payment/internal/application/verification"
	"github.com/saleor-apps/openweb3-payment/internal/config"
	jwtinfra "github.com/saleor-apps/openweb3-payment/internal/infrastructure/jwt"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/openweb3"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/saleor"
	"github.com/saleor-apps/openweb3-payment/internal/infrastructure/smtp"
	transporthttp "github.com/saleor-apps/openweb3-payment/internal/transport/http"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := newAuthStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth-data store initialization failed")
	}
	defer store.Close()

	jwtProvider, err := jwtinfra.NewProvider(cfg.TelegramBotToken, 24*time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("jwt provider initialization failed")
	}

	var verifier *openweb3.WebhookVerifier
	if cfg.Openweb3WebhookSecret != "" {
		verifier, err = openweb3.NewWebhookVerifier(cfg.Openweb3WebhookSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("webhook verifier initialization failed")
		}
	} else {
		logger.Warn().Msg("OPENWEB3_WEBHOOK_SECRET unset, provider webhooks will be rejected")
		verifier, _ = openweb3.NewWebhookVerifier("whsec_disabled")
	}

	codes := verification.NewCodeCache(logger, 0)
	defer codes.Stop()

	deps := &transporthttp.Deps{
		Store:           store,
		Saleor:          saleor.NewClient(cfg.SaleorAPIURL, cfg.SaleorAdminEmail, cfg.SaleorAdminPassword, logger),
		Mailer:          smtp.NewMailer(cfg),
		Codes:           codes,
		JWTProvider:     jwtProvider,
		WebhookVerifier: verifier,
		Logger:          logger,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Str("apl", cfg.APL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

// newAuthStore picks the auth-data backend from configuration.
func newAuthStore(cfg *config.Config, logger zerolog.Logger) (apl.APL, error) {
	switch cfg.APL {
	case "redis":
		var ttl time.Duration
		if cfg.RedisTTLSeconds > 0 {
			ttl = time.Duration(cfg.RedisTTLSeconds) * time.Second
		}
		return apl.NewRedisAPL(apl.RedisConfig{
			URL:                cfg.RedisURL,
			Password:           cfg.RedisPassword,
			KeyPrefix:          cfg.RedisKeyPrefix,
			TTL:                ttl,
			TLS:                cfg.RedisTLS,
			InsecureSkipVerify: cfg.RedisTLSInsecure,
			Logger:             logger,
		})
	case "memory":
		return apl.NewMemoryAPL(0), nil
	default:
		return apl.NewFileAPL(cfg.AuthFilePath), nil
	}
}
