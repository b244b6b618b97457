// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DefaultAdminAPIKey is the development admin key. Validate rejects it in production.
const DefaultAdminAPIKey = "admin-123"

// Config holds all application configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv            string        // Application environment (dev, staging, prod)
	HTTPAddr          string        // HTTP server bind address (e.g., ":8080")
	MetricsAddr       string        // Metrics server bind address
	AdminAPIKey       string        // Bearer key for admin operations (catalog reload)
	AdminAPIKeyHash   string        // bcrypt hash of the admin key; overrides AdminAPIKey
	CatalogSource     string        // embedded, file, memory, sqlite or postgres
	CatalogPath       string        // Catalog file for CatalogSource=file
	CatalogWatch      bool          // Reload the catalog file when it changes
	DatabaseDSN       string        // SQLite path or PostgreSQL connection string
	ReportMode        string        // off, template or llm
	LLMMockMode       bool          // Force the template report even in llm mode
	LLMAPIKey         string        // API key for the chat-completions endpoint
	LLMBaseURL        string        // Base URL of an OpenAI-compatible API
	LLMModel          string        // Model name sent with each request
	LLMTimeout        time.Duration // Per-request timeout for LLM calls
	RateLimitPerIP    int           // Assessments per minute per client IP
	LogLevel          string        // zerolog level name
	LogFormat         string        // json or console
	LogFile           string        // Rotated log file; stdout when empty
	OTLPEndpoint      string        // OTLP/HTTP trace endpoint; tracing disabled when empty
	CORSAllowedOrigin string        // Browser origin allowed to call the API
	WebhookURLs       []string      // Endpoints notified when the catalog changes
	WebhookSecret     string        // HMAC secret for webhook signatures
	WebhookMaxRetries int           // Retries per webhook delivery
	WebhookTimeout    time.Duration // Per-attempt webhook timeout
	AuditQueueSize    int           // Buffered admin audit events
}

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
// Returns a Config struct with all values populated (either from env or defaults).
//
// Load does NOT validate configuration constraints (e.g., file source requires
// CATALOG_PATH). Use Validate() to check them.
func Load() (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = viperInstance.ReadInConfig()    // Ignore error - .env is optional
	viperInstance.AutomaticEnv()        // Read from environment variables
	_ = viperInstance.BindEnv("LLM_API_KEY", "LLM_API_KEY", "OPENAI_API_KEY")

	setConfigDefaults(viperInstance)

	return &Config{
		AppEnv:            viperInstance.GetString("APP_ENV"),
		HTTPAddr:          viperInstance.GetString("APP_HTTP_ADDR"),
		MetricsAddr:       viperInstance.GetString("METRICS_ADDR"),
		AdminAPIKey:       viperInstance.GetString("ADMIN_API_KEY"),
		AdminAPIKeyHash:   viperInstance.GetString("ADMIN_API_KEY_HASH"),
		CatalogSource:     viperInstance.GetString("CATALOG_SOURCE"),
		CatalogPath:       viperInstance.GetString("CATALOG_PATH"),
		CatalogWatch:      viperInstance.GetBool("CATALOG_WATCH"),
		DatabaseDSN:       viperInstance.GetString("DB_DSN"),
		ReportMode:        viperInstance.GetString("REPORT_MODE"),
		LLMMockMode:       viperInstance.GetBool("LLM_MOCK_MODE"),
		LLMAPIKey:         viperInstance.GetString("LLM_API_KEY"),
		LLMBaseURL:        viperInstance.GetString("LLM_BASE_URL"),
		LLMModel:          viperInstance.GetString("LLM_MODEL"),
		LLMTimeout:        viperInstance.GetDuration("LLM_TIMEOUT"),
		RateLimitPerIP:    viperInstance.GetInt("RATE_LIMIT_PER_IP"),
		LogLevel:          viperInstance.GetString("LOG_LEVEL"),
		LogFormat:         viperInstance.GetString("LOG_FORMAT"),
		LogFile:           viperInstance.GetString("LOG_FILE"),
		OTLPEndpoint:      viperInstance.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSAllowedOrigin: viperInstance.GetString("CORS_ALLOWED_ORIGIN"),
		WebhookURLs:       splitList(viperInstance.GetString("CATALOG_WEBHOOK_URLS")),
		WebhookSecret:     viperInstance.GetString("CATALOG_WEBHOOK_SECRET"),
		WebhookMaxRetries: viperInstance.GetInt("WEBHOOK_MAX_RETRIES"),
		WebhookTimeout:    viperInstance.GetDuration("WEBHOOK_TIMEOUT"),
		AuditQueueSize:    viperInstance.GetInt("AUDIT_QUEUE_SIZE"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
// These defaults are suitable for local development but should be overridden in production.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("ADMIN_API_KEY", DefaultAdminAPIKey) // Change in production!
	v.SetDefault("CATALOG_SOURCE", "embedded")
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("CATALOG_WATCH", false)
	v.SetDefault("DB_DSN", "")
	v.SetDefault("REPORT_MODE", "template")
	v.SetDefault("LLM_MOCK_MODE", false)
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173")
	v.SetDefault("CATALOG_WEBHOOK_URLS", "")
	v.SetDefault("CATALOG_WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_MAX_RETRIES", 3)
	v.SetDefault("WEBHOOK_TIMEOUT", "5s")
	v.SetDefault("AUDIT_QUEUE_SIZE", 256)
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction reports whether AppEnv names a production deployment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns the first failure as a ValidationError.
//
// Validation Rules:
//  1. CatalogSource must be one of: embedded, file, memory, sqlite, postgres
//  2. CatalogSource=file requires CatalogPath
//  3. CatalogSource=sqlite|postgres requires DatabaseDSN
//  4. CatalogWatch is only allowed with CatalogSource=file
//  5. ReportMode must be one of: off, template, llm
//  6. HTTPAddr and MetricsAddr must be non-empty
//  7. RateLimitPerIP and LLMTimeout must be positive
//  8. LogLevel must be a zerolog level; LogFormat json or console
//  9. Webhook URLs must be absolute http(s) URLs; retries non-negative; timeout positive
//
// In production (AppEnv prod/production) the default admin key is rejected.
func (c *Config) Validate() error {
	switch c.CatalogSource {
	case "embedded", "file", "memory", "sqlite", "postgres":
	default:
		return ValidationError{
			Field:   "CATALOG_SOURCE",
			Message: fmt.Sprintf("must be one of embedded, file, memory, sqlite, postgres; got '%s'", c.CatalogSource),
		}
	}

	if c.CatalogSource == "file" && c.CatalogPath == "" {
		return ValidationError{
			Field:   "CATALOG_PATH",
			Message: "catalog path is required when CATALOG_SOURCE=file",
		}
	}

	if (c.CatalogSource == "sqlite" || c.CatalogSource == "postgres") && c.DatabaseDSN == "" {
		return ValidationError{
			Field:   "DB_DSN",
			Message: fmt.Sprintf("database DSN is required when CATALOG_SOURCE=%s", c.CatalogSource),
		}
	}

	if c.CatalogWatch && c.CatalogSource != "file" {
		return ValidationError{
			Field:   "CATALOG_WATCH",
			Message: "catalog watching requires CATALOG_SOURCE=file",
		}
	}

	switch c.ReportMode {
	case "off", "template", "llm":
	default:
		return ValidationError{
			Field:   "REPORT_MODE",
			Message: fmt.Sprintf("must be 'off', 'template' or 'llm', got '%s'", c.ReportMode),
		}
	}

	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "APP_HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}

	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}

	if c.RateLimitPerIP <= 0 {
		return ValidationError{
			Field:   "RATE_LIMIT_PER_IP",
			Message: fmt.Sprintf("must be positive, got %d", c.RateLimitPerIP),
		}
	}

	if c.LLMTimeout <= 0 {
		return ValidationError{
			Field:   "LLM_TIMEOUT",
			Message: "must be a positive duration such as 30s",
		}
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("unknown log level '%s'", c.LogLevel),
		}
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return ValidationError{
			Field:   "LOG_FORMAT",
			Message: fmt.Sprintf("must be 'json' or 'console', got '%s'", c.LogFormat),
		}
	}

	for _, raw := range c.WebhookURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ValidationError{
				Field:   "CATALOG_WEBHOOK_URLS",
				Message: fmt.Sprintf("invalid webhook URL '%s'", raw),
			}
		}
	}

	if c.WebhookMaxRetries < 0 {
		return ValidationError{
			Field:   "WEBHOOK_MAX_RETRIES",
			Message: fmt.Sprintf("must not be negative, got %d", c.WebhookMaxRetries),
		}
	}

	if len(c.WebhookURLs) > 0 && c.WebhookTimeout <= 0 {
		return ValidationError{
			Field:   "WEBHOOK_TIMEOUT",
			Message: "must be a positive duration such as 5s",
		}
	}

	if c.AdminAPIKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(c.AdminAPIKeyHash)); err != nil {
			return ValidationError{
				Field:   "ADMIN_API_KEY_HASH",
				Message: fmt.Sprintf("not a bcrypt hash: %v", err),
			}
		}
		return nil
	}

	if c.IsProduction() && c.AdminAPIKey == DefaultAdminAPIKey {
		return ValidationError{
			Field:   "ADMIN_API_KEY",
			Message: "default admin API key 'admin-123' is not allowed in production",
		}
	}

	return nil
}
