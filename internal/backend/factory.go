package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendview/internal/amqp"
	"spendview/internal/backend/rest"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the REST client and, when a broker is configured, the
// AMQP publisher. A broker that cannot be reached degrades to a no-op publisher.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	client, err := rest.NewClient(config.BaseURL,
		rest.WithTimeout(config.Timeout),
		rest.WithDefaultSettings(config.Defaults()))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST client: %w", err)
	}

	result := &BackendResult{
		Backend:   client,
		Publisher: amqp.NopPublisher{},
	}

	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange)
			result.Publisher = amqpClient
			result.Cleanup = amqpClient.Close
		}
	}

	f.logger.InfoContext(ctx, "Initialized REST backend",
		"base_url", config.BaseURL,
		"timeout", client.Timeout(),
		"events_enabled", result.Cleanup != nil)

	return result, nil
}
