// Package config loads the POS engine configuration from the environment.
// Delivery zones, fulfillment slots and surcharge tiers live here so the
// computation packages never carry hardcoded store data.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Checkout session behaviour.
	SessionTTL     time.Duration
	ParkTTL        time.Duration
	IdempotencyTTL time.Duration
	LockTTL        time.Duration

	// Catalog read path.
	CatalogCacheTTL     time.Duration
	CatalogDefaultPage  int
	CatalogDefaultLimit int
	CatalogMaxLimit     int

	// Delivery surcharge tiers: areas listed as near pay NearCharge, every
	// other area pays FarCharge.
	DeliveryNearAreas  []string
	DeliveryNearCharge float64
	DeliveryFarCharge  float64

	// FulfillmentSlots is the pickable time-slot list shown at the terminal.
	// Empty means any free-text slot is accepted.
	FulfillmentSlots []string

	// SupervisorPINHash is the argon2id hash gating custom unit prices.
	// Empty disables custom pricing entirely. Generate with cmd/tools/pinhash.
	SupervisorPINHash string

	// Collaborator endpoints. An empty OrderServiceURL selects the local
	// submitter; an empty CouponServiceURL selects the local rules table.
	OrderServiceURL    string
	OrderServiceAPIKey string
	OrderNumberPrefix  string
	CouponServiceURL   string
	CouponServiceKey   string
	DirectoryURL       string
	DirectoryAPIKey    string
	AttachmentsURL     string
	AttachmentsAPIKey  string
	PrinterURL         string
	CollaboratorTimeout time.Duration

	// Pay-by-link signing.
	PaylinkSecret  string
	PaylinkBaseURL string
	PaylinkTTL     time.Duration

	// Optional AMQP fan-out for production floor displays.
	AMQPURL string

	// Rate limiting on mutation routes.
	RateLimitWindow time.Duration
	RateLimitMax    int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		SessionTTL:     parseDuration(k.String("CHECKOUT_SESSION_TTL"), "12h"),
		ParkTTL:        parseDuration(k.String("PARK_TTL"), "24h"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "15m"),
		LockTTL:        parseDuration(k.String("SESSION_LOCK_TTL"), "15s"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogDefaultPage:  parseInt(k.String("CATALOG_DEFAULT_PAGE"), 1),
		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 50),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 200),

		DeliveryNearAreas:  splitAndTrim(k.String("DELIVERY_NEAR_AREAS")),
		DeliveryNearCharge: parseFloat(k.String("DELIVERY_NEAR_CHARGE"), 10),
		DeliveryFarCharge:  parseFloat(k.String("DELIVERY_FAR_CHARGE"), 30),

		FulfillmentSlots: splitAndTrim(k.String("FULFILLMENT_SLOTS")),

		SupervisorPINHash: strings.TrimSpace(k.String("SUPERVISOR_PIN_HASH")),

		OrderServiceURL:     strings.TrimSpace(k.String("ORDER_SERVICE_URL")),
		OrderServiceAPIKey:  strings.TrimSpace(k.String("ORDER_SERVICE_API_KEY")),
		OrderNumberPrefix:   valueOrDefault(k.String("ORDER_NUMBER_PREFIX"), "PC"),
		CouponServiceURL:    strings.TrimSpace(k.String("COUPON_SERVICE_URL")),
		CouponServiceKey:    strings.TrimSpace(k.String("COUPON_SERVICE_API_KEY")),
		DirectoryURL:        strings.TrimSpace(k.String("CUSTOMER_DIRECTORY_URL")),
		DirectoryAPIKey:     strings.TrimSpace(k.String("CUSTOMER_DIRECTORY_API_KEY")),
		AttachmentsURL:      strings.TrimSpace(k.String("ATTACHMENT_STORE_URL")),
		AttachmentsAPIKey:   strings.TrimSpace(k.String("ATTACHMENT_STORE_API_KEY")),
		PrinterURL:          strings.TrimSpace(k.String("PRINTER_SIDECAR_URL")),
		CollaboratorTimeout: parseDuration(k.String("COLLABORATOR_TIMEOUT"), "5s"),

		PaylinkSecret:  k.String("PAYLINK_SECRET"),
		PaylinkBaseURL: valueOrDefault(k.String("PAYLINK_BASE_URL"), "https://pay.petalcrumb.example"),
		PaylinkTTL:     parseDuration(k.String("PAYLINK_TTL"), "24h"),

		AMQPURL: strings.TrimSpace(k.String("AMQP_URL")),

		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    int64(parseInt(k.String("RATE_LIMIT_MAX"), 240)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
