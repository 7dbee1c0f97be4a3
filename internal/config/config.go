// Package config provides configuration management for the git activity hook.
// It handles loading and validation of environment variables, an optional .env file
// and an optional YAML file carrying the user directory seed.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultPort              = "8080"
	DefaultLogLevel          = "info"
	DefaultGitBaseURL        = "https://repo.daou.co.kr"
	DefaultDBDriver          = DriverSQLite
	DefaultDBDSN             = "git-activity.db"
	DefaultRateLimit         = 20.0
	DefaultRateBurst         = 40
	DefaultUserCacheSize     = 1000
	DefaultUserCacheTTL      = 300
	DefaultTracingSampleRate = 1.0
	DefaultEnvironment       = "production"
	DefaultReloadInterval    = 30
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// UserSeed is a directory entry loaded from the YAML config file
type UserSeed struct {
	ID    int64  `yaml:"id"`
	Login string `yaml:"login"`
	Mail  string `yaml:"mail"`
}

// Config holds all configuration for the application
type Config struct {
	Port       string `yaml:"port"`
	GitBaseURL string `yaml:"git_base_url"`
	LogLevel   string `yaml:"log_level"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	UserCacheSize int           `yaml:"user_cache_size"`
	UserCacheTTL  time.Duration `yaml:"-"`

	OTLPEndpoint      string  `yaml:"otlp_endpoint"`
	TracingConsole    bool    `yaml:"tracing_console"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`
	Environment       string  `yaml:"environment"`

	Users []UserSeed `yaml:"users"`

	// ConfigPath is the YAML file the config was read from, if any
	ConfigPath     string        `yaml:"-"`
	ReloadInterval time.Duration `yaml:"-"`
}

// Default returns a configuration populated with default values only
func Default() *Config {
	return &Config{
		Port:              DefaultPort,
		GitBaseURL:        DefaultGitBaseURL,
		LogLevel:          DefaultLogLevel,
		DBDriver:          DefaultDBDriver,
		DBDSN:             DefaultDBDSN,
		RateLimit:         DefaultRateLimit,
		RateBurst:         DefaultRateBurst,
		UserCacheSize:     DefaultUserCacheSize,
		UserCacheTTL:      DefaultUserCacheTTL * time.Second,
		TracingSampleRate: DefaultTracingSampleRate,
		Environment:       DefaultEnvironment,
		ReloadInterval:    DefaultReloadInterval * time.Second,
	}
}

// Load loads configuration from the YAML file named by CONFIG_PATH (if any)
// and then from environment variables, which take precedence.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// It's okay if .env file doesn't exist - we'll use environment variables
		_ = err // explicitly ignore the error
	}

	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile builds a configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigPath = path
	}

	applyEnv(cfg)

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.GitBaseURL = getEnv("GIT_BASE_URL", cfg.GitBaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DBDriver = strings.ToLower(getEnv("DB_DRIVER", cfg.DBDriver))
	cfg.DBDSN = getEnv("DB_DSN", cfg.DBDSN)
	cfg.RateLimit = parseFloatEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = parseIntEnv("RATE_BURST", cfg.RateBurst)
	cfg.UserCacheSize = parseIntEnv("USER_CACHE_SIZE", cfg.UserCacheSize)
	if ttl := parseIntEnv("USER_CACHE_TTL_SECONDS", -1); ttl >= 0 {
		cfg.UserCacheTTL = time.Duration(ttl) * time.Second
	}
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.TracingConsole = parseBoolEnv("TRACING_CONSOLE", cfg.TracingConsole)
	cfg.TracingSampleRate = parseFloatEnv("TRACING_SAMPLE_RATE", cfg.TracingSampleRate)
	cfg.Environment = getEnv("SERVICE_ENVIRONMENT", cfg.Environment)
	if interval := parseIntEnv("CONFIG_RELOAD_INTERVAL_SECONDS", -1); interval >= 0 {
		cfg.ReloadInterval = time.Duration(interval) * time.Second
	}
}

// validate checks if all configuration fields hold usable values
func (c *Config) validate() error {
	// Validate port is a valid number
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	u, err := url.Parse(c.GitBaseURL)
	if err != nil {
		return fmt.Errorf("GIT_BASE_URL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("GIT_BASE_URL must be an http(s) URL, got %q", c.GitBaseURL)
	}

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT and RATE_BURST must be positive")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATE must be between 0 and 1")
	}

	return nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseIntEnv parses an integer environment variable with a fallback value
func parseIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseFloatEnv parses a float environment variable with a fallback value
func parseFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseBoolEnv parses a boolean environment variable with a fallback value
func parseBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
