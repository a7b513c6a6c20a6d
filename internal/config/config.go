package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"spendview/internal/core"
)

// FileEnv names the variable holding an optional config file path.
const FileEnv = "SPENDVIEW_CONFIG"

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// REST backend
	BackendURL     string
	BackendTimeout time.Duration

	// Per-session display settings cache; 0 disables it
	SettingsCacheTTL time.Duration

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string

	// Logging
	LogLevel  string
	LogFormat string

	// Display currency until the user's settings are loaded
	DefaultCurrency core.Currency
}

// fileConfig is the on-disk shape. Durations are strings like "10s".
type fileConfig struct {
	Port               string `yaml:"port" toml:"port" json:"port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	BackendURL         string `yaml:"backend_url" toml:"backend_url" json:"backend_url"`
	BackendTimeout     string `yaml:"backend_timeout" toml:"backend_timeout" json:"backend_timeout"`
	SettingsCacheTTL   string `yaml:"settings_cache_ttl" toml:"settings_cache_ttl" json:"settings_cache_ttl"`
	AMQPURL            string `yaml:"amqp_url" toml:"amqp_url" json:"amqp_url"`
	AMQPExchange       string `yaml:"amqp_exchange" toml:"amqp_exchange" json:"amqp_exchange"`
	LogLevel           string `yaml:"log_level" toml:"log_level" json:"log_level"`
	LogFormat          string `yaml:"log_format" toml:"log_format" json:"log_format"`
	DefaultCurrency    string `yaml:"default_currency" toml:"default_currency" json:"default_currency"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		BackendURL:         "http://localhost:8000",
		BackendTimeout:     10 * time.Second,
		SettingsCacheTTL:   30 * time.Second,
		AMQPExchange:       "spendview",
		LogLevel:           "info",
		LogFormat:          "text",
		DefaultCurrency:    core.INR,
	}
}

// Load starts from Default, applies the file named by SPENDVIEW_CONFIG if
// set, then lets environment variables override both.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		fc, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := fc.apply(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.BackendURL = getEnv("BACKEND_URL", cfg.BackendURL)
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", cfg.BackendTimeout)
	cfg.SettingsCacheTTL = getEnvDuration("SETTINGS_CACHE_TTL", cfg.SettingsCacheTTL)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	cfg.DefaultCurrency = core.Currency(strings.ToUpper(getEnv("DEFAULT_CURRENCY", string(cfg.DefaultCurrency))))

	return cfg, nil
}

// readFile decodes a .yaml, .yml, .toml or .json config file.
func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}
	return &fc, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.RateLimitPerMinute != 0 {
		cfg.RateLimitPerMinute = fc.RateLimitPerMinute
	}
	if fc.BackendURL != "" {
		cfg.BackendURL = fc.BackendURL
	}
	if fc.BackendTimeout != "" {
		d, err := time.ParseDuration(fc.BackendTimeout)
		if err != nil {
			return fmt.Errorf("invalid backend_timeout %q: %w", fc.BackendTimeout, err)
		}
		cfg.BackendTimeout = d
	}
	if fc.SettingsCacheTTL != "" {
		d, err := time.ParseDuration(fc.SettingsCacheTTL)
		if err != nil {
			return fmt.Errorf("invalid settings_cache_ttl %q: %w", fc.SettingsCacheTTL, err)
		}
		cfg.SettingsCacheTTL = d
	}
	if fc.AMQPURL != "" {
		cfg.AMQPURL = fc.AMQPURL
	}
	if fc.AMQPExchange != "" {
		cfg.AMQPExchange = fc.AMQPExchange
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(fc.LogLevel)
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = strings.ToLower(fc.LogFormat)
	}
	if fc.DefaultCurrency != "" {
		cfg.DefaultCurrency = core.Currency(strings.ToUpper(fc.DefaultCurrency))
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate backend
	if c.BackendURL == "" {
		errors = append(errors, "backend URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.BackendURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid backend URL '%s': %v", c.BackendURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid backend URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid backend URL '%s': missing host", c.BackendURL))
	}

	if c.BackendTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be at least 1 second", c.BackendTimeout))
	} else if c.BackendTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must be at most 2 minutes", c.BackendTimeout))
	}

	if c.SettingsCacheTTL < 0 || c.SettingsCacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid settings cache TTL %v: must be between 0 and 1 hour", c.SettingsCacheTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 10000 per minute", c.RateLimitPerMinute))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if !c.DefaultCurrency.Valid() {
		errors = append(errors, fmt.Sprintf("invalid default currency '%s': must be one of INR, USD, EUR, GBP", c.DefaultCurrency))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
