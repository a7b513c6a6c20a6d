// Package cli holds the spendview command tree and the initialization
// shared by its subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendview/internal/backend"
	"spendview/internal/backend/rest"
	"spendview/internal/config"
	applog "spendview/internal/log"
)

// Credential environment variables read when the flags are empty.
const (
	SessionEnv = "SPENDVIEW_SESSION"
	CSRFEnv    = "SPENDVIEW_CSRF"
)

// SetupLogger builds the application logger from cfg and makes it the
// slog default.
func SetupLogger(cfg *config.Config, out io.Writer) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: applog.ComponentCLI,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateBackend builds the backend for cfg through factory.
func CreateBackend(ctx context.Context, factory backend.Factory, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := factory.CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return result, nil
}

// ResolveCredentials prefers explicit flag values and falls back to the
// SPENDVIEW_SESSION and SPENDVIEW_CSRF variables.
func ResolveCredentials(session, csrf string) rest.Credentials {
	if session == "" {
		session = os.Getenv(SessionEnv)
	}
	if csrf == "" {
		csrf = os.Getenv(CSRFEnv)
	}
	return rest.Credentials{SessionID: session, CSRFToken: csrf}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals or when
// parent is done, and a channel that closes once cleanup has run.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown, "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Shutdown requested", applog.FieldOperation, applog.OpShutdown)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
