// Package config loads and validates environment-driven configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/folioapp/api/pkg/logger"
)

// Environment constants
const (
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name  string
	Env   string
	Debug bool

	// SiteURL is the public origin, used to build absolute redirect URLs.
	SiteURL string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// AuthConfig holds session verification configuration.
type AuthConfig struct {
	// PublicKey is the PEM-encoded key session tokens are verified against.
	PublicKey string
	// SecretKey is the backend API key for the auth provider.
	SecretKey string
	// SignInURL is where unauthenticated requests are redirected.
	SignInURL string
	// DashboardURL is where authenticated non-admin requests land.
	DashboardURL string
}

// LLMConfig holds chat backend configuration.
type LLMConfig struct {
	Provider      string // "claude" or "ollama"
	AnthropicKey  string
	Model         string
	OllamaBaseURL string
	MaxTokens     int
	Timeout       time.Duration
	MaxRetries    int
}

// DatabaseConfig holds the optional Postgres connection.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the optional Redis connection for rate limiting.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// RateLimitConfig holds the server-wide per-IP limiter settings.
type RateLimitConfig struct {
	Enabled         bool
	RequestsPerSec  float64
	Burst           int
	CleanupInterval time.Duration
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "folio-api"),
			Env:     getEnv("APP_ENV", "development"),
			Debug:   getEnvBool("APP_DEBUG", false),
			SiteURL: getEnv("SITE_URL", "http://localhost:3000"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodySize:     getEnvInt64("SERVER_MAX_BODY_SIZE", 1<<20),
		},
		Auth: AuthConfig{
			PublicKey:    getEnv("AUTH_PUBLIC_KEY", ""),
			SecretKey:    getEnv("AUTH_SECRET_KEY", ""),
			SignInURL:    getEnv("AUTH_SIGN_IN_URL", "/sign-in"),
			DashboardURL: getEnv("AUTH_DASHBOARD_URL", "/dashboard"),
		},
		LLM: LLMConfig{
			Provider:      getEnv("LLM_PROVIDER", "claude"),
			AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
			Model:         getEnv("LLM_MODEL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			MaxTokens:     getEnvInt("LLM_MAX_TOKENS", 1024),
			Timeout:       getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			MaxRetries:    getEnvInt("LLM_MAX_RETRIES", 2),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
			MaxAge:         getEnvInt("CORS_MAX_AGE", 86400),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSec:  getEnvFloat("RATE_LIMIT_RPS", 100),
			Burst:           getEnvInt("RATE_LIMIT_BURST", 200),
			CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP", 1*time.Minute),
		},
	}
}

// Violation describes a single invalid or missing configuration value.
type Violation struct {
	Path   string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Reason)
}

// Violations checks the whole configuration and returns every problem
// found, not just the first. Callers decide whether the result is fatal.
func (c *Config) Violations() []Violation {
	var violations []Violation

	add := func(path, reason string) {
		violations = append(violations, Violation{Path: path, Reason: reason})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("SERVER_PORT", fmt.Sprintf("invalid port %d", c.Server.Port))
	}

	if c.Auth.PublicKey == "" {
		add("AUTH_PUBLIC_KEY", "is required")
	} else if !strings.Contains(c.Auth.PublicKey, "BEGIN PUBLIC KEY") {
		add("AUTH_PUBLIC_KEY", "must be a PEM-encoded public key")
	}
	if c.Auth.SecretKey == "" {
		add("AUTH_SECRET_KEY", "is required")
	}

	switch c.LLM.Provider {
	case "claude":
		// the API key is optional: without it the chat endpoint is
		// disabled instead of blocking startup
	case "ollama":
		if c.LLM.OllamaBaseURL == "" {
			add("OLLAMA_BASE_URL", "is required when LLM_PROVIDER=ollama")
		}
	default:
		add("LLM_PROVIDER", fmt.Sprintf("unknown provider %q (must be claude or ollama)", c.LLM.Provider))
	}

	if c.Database.URL != "" && !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		add("DATABASE_URL", "must be a postgres:// URL")
	}

	if level := strings.ToLower(c.Log.Level); level != "" {
		switch level {
		case "debug", "info", "warn", "warning", "error":
		default:
			add("LOG_LEVEL", fmt.Sprintf("invalid level %q", c.Log.Level))
		}
	}

	if c.RateLimit.RequestsPerSec <= 0 {
		add("RATE_LIMIT_RPS", "must be positive")
	}

	return violations
}

// Validate logs every violation and returns an error only in production.
// In development the service starts anyway so the frontend can be worked
// on without a full credential set.
func (c *Config) Validate(log *logger.Logger) error {
	violations := c.Violations()
	if len(violations) == 0 {
		return nil
	}

	for _, v := range violations {
		if c.IsProduction() {
			log.Error("invalid configuration", "path", v.Path, "reason", v.Reason)
		} else {
			log.Warn("invalid configuration", "path", v.Path, "reason", v.Reason)
		}
	}

	if c.IsProduction() {
		return fmt.Errorf("config: %d violation(s) in production environment", len(violations))
	}
	return nil
}

// IsProduction returns true when running in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
