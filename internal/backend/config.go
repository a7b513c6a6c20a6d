package backend

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"spendview/internal/config"
	"spendview/internal/core"
)

// Config holds configuration for backend creation
type Config struct {
	BaseURL string
	Timeout time.Duration

	// DefaultCurrency is shown for users without stored settings.
	DefaultCurrency core.Currency

	// Event publishing is optional
	AMQPURL      string
	AMQPExchange string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		BaseURL:      appConfig.BackendURL,
		Timeout:      appConfig.BackendTimeout,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,

		DefaultCurrency: appConfig.DefaultCurrency,
	}
	return c, c.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("backend base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base URL: %q", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("backend timeout must not be negative: %s", c.Timeout)
	}
	if c.DefaultCurrency != "" && !c.DefaultCurrency.Valid() {
		return fmt.Errorf("invalid default currency: %q", c.DefaultCurrency)
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return errors.New("AMQP exchange is required when AMQP URL is set")
	}
	return nil
}

// Defaults returns the display settings for users without stored settings.
func (c Config) Defaults() core.Settings {
	d := core.DefaultSettings()
	if c.DefaultCurrency.Valid() {
		d.Currency = c.DefaultCurrency
	}
	return d
}
