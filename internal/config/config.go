package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort    string
	AppEnv     string
	AppBaseURL string
	LogLevel   string

	// APL selects the auth-data backend: "file", "redis" or "memory".
	APL          string
	AuthFilePath string

	RedisURL         string
	RedisPassword    string
	RedisKeyPrefix   string
	RedisTTLSeconds  int
	RedisTLS         *bool // nil = decide from the URL scheme
	RedisTLSInsecure bool

	SaleorAPIURL        string
	SaleorAdminEmail    string
	SaleorAdminPassword string
	SaleorUserPassword  string // secret prefix for derived customer passwords
	SessionDomain       string

	TelegramBotToken   string
	TelegramMiniAppURL string

	Openweb3BaseURL       string
	Openweb3WebhookSecret string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:    getEnv("APP_PORT", "3000"),
		AppEnv:     getEnv("APP_ENV", "development"),
		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		APL:          getEnv("APL", "file"),
		AuthFilePath: getEnv("AUTH_FILE_PATH", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisKeyPrefix:   getEnv("REDIS_KEY_PREFIX", ""),
		RedisTTLSeconds:  getEnvInt("REDIS_TTL", 0),
		RedisTLS:         getEnvBoolPtr("REDIS_TLS"),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),

		SaleorAPIURL:        getEnv("SALEOR_API_URL", ""),
		SaleorAdminEmail:    getEnv("SALEOR_ADMIN_EMAIL", ""),
		SaleorAdminPassword: getEnv("SALEOR_ADMIN_PASSWORD", ""),
		SaleorUserPassword:  getEnv("SALEOR_USER_PASSWORD", ""),
		SessionDomain:       getEnv("SALEOR_SESSION_DOMAIN", "localhost"),

		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramMiniAppURL: getEnv("TELEGRAM_MINIAPP_URL", ""),

		Openweb3BaseURL:       getEnv("OPENWEB3_BASE_URL", ""),
		Openweb3WebhookSecret: getEnv("OPENWEB3_WEBHOOK_SECRET", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}
}

// Validate reports missing required values. These are contract violations
// surfaced at startup, never deferred to first use.
func (c *Config) Validate() error {
	var missing []string
	if c.SaleorAPIURL == "" {
		missing = append(missing, "SALEOR_API_URL")
	}
	if c.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.APL == "redis" && c.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	switch c.APL {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown APL %q (expected file, redis or memory)", c.APL)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvBoolPtr(key string) *bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return &b
		}
	}
	return nil
}
