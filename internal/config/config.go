package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/darkodi/url-diet/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	App       AppConfig
	RateLimit RateLimitConfig
	Analytics AnalyticsConfig
	CORS      CORSConfig
	Metrics   MetricsConfig
	Log       logger.Config
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds metadata store settings
type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite3"
	DSN    string
}

// RedisConfig holds lookup store and rate counter settings
type RedisConfig struct {
	URL     string
	Backend string // "redis" or "memory"
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL           string
	Environment       string // "development", "production", "testing"
	ClientIPHeader    string
	StoreTimeout      time.Duration
	KeyMaxAttempts    int
	ReconcileInterval time.Duration // 0 disables the sweep
}

// RateLimitConfig holds shorten-path throttling settings
type RateLimitConfig struct {
	Enabled  bool
	PerHour  int
	FailOpen bool
}

// AnalyticsConfig holds redirect logging settings
type AnalyticsConfig struct {
	Workers   int
	QueueSize int
}

// CORSConfig holds the cross-origin policy
type CORSConfig struct {
	AllowedOrigins []string
	DefaultOrigin  string
}

// MetricsConfig holds the admin listener settings
type MetricsConfig struct {
	Addr string // empty disables the listener
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; real environment wins.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			DSN:    getEnv("DB_DSN", "./data/links.db"),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Backend: getEnv("LOOKUP_BACKEND", "redis"),
		},
		App: AppConfig{
			BaseURL:           getEnv("BASE_URL", ""),
			Environment:       getEnv("ENVIRONMENT", "development"),
			ClientIPHeader:    getEnv("CLIENT_IP_HEADER", "CF-Connecting-IP"),
			StoreTimeout:      getDurationEnv("STORE_TIMEOUT", 5*time.Second),
			KeyMaxAttempts:    getIntEnv("KEY_MAX_ATTEMPTS", 5),
			ReconcileInterval: getDurationEnv("RECONCILE_INTERVAL", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
			PerHour:  getIntEnv("RATE_LIMIT_PER_HOUR", 60),
			FailOpen: getBoolEnv("RATE_LIMIT_FAIL_OPEN", false),
		},
		Analytics: AnalyticsConfig{
			Workers:   getIntEnv("ANALYTICS_WORKERS", 4),
			QueueSize: getIntEnv("ANALYTICS_QUEUE_SIZE", 1024),
		},
		CORS: CORSConfig{
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{
				"https://url.diet",
				"https://www.url.diet",
				"https://url-diet.pages.dev",
				"https://*.url-diet.pages.dev",
			}),
			DefaultOrigin: getEnv("CORS_DEFAULT_ORIGIN", "https://url.diet"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ":9090"),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	// Set default BaseURL if not provided
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")
	cfg.Log.Environment = cfg.App.Environment

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN cannot be empty")
	}

	switch c.Redis.Backend {
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis URL cannot be empty when LOOKUP_BACKEND=redis")
		}
	case "memory":
		if c.IsProduction() {
			return errors.New("memory lookup backend is not allowed in production")
		}
	default:
		return fmt.Errorf("invalid lookup backend: %s (must be redis or memory)", c.Redis.Backend)
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.App.StoreTimeout <= 0 {
		return errors.New("store timeout must be positive")
	}
	if c.App.KeyMaxAttempts < 1 {
		return fmt.Errorf("invalid key max attempts: %d (must be >= 1)", c.App.KeyMaxAttempts)
	}
	if c.RateLimit.Enabled && c.RateLimit.PerHour < 1 {
		return fmt.Errorf("invalid rate limit: %d per hour (must be >= 1)", c.RateLimit.PerHour)
	}
	if c.Analytics.Workers < 1 || c.Analytics.QueueSize < 1 {
		return errors.New("analytics workers and queue size must be >= 1")
	}
	if c.CORS.DefaultOrigin == "" {
		return errors.New("CORS default origin cannot be empty")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
