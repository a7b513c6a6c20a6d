package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"spendview/internal/cache"
	"spendview/internal/core"
	apphttp "spendview/internal/http"
	applog "spendview/internal/log"
	"spendview/internal/services"
	"spendview/internal/worker"
)

const (
	shutdownTimeout   = 30 * time.Second
	settingsCacheSize = 1024
)

func (a *App) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *App) runServe(ctx context.Context) error {
	e, err := a.setup()
	if err != nil {
		return err
	}
	logger := e.logger

	result, err := CreateBackend(ctx, a.factory, e.cfg)
	if err != nil {
		return err
	}

	var (
		opts     []services.Option
		sweeper  *cache.Manager
		settings *cache.LRUCache[core.Settings]
	)
	if ttl := e.cfg.SettingsCacheTTL; ttl > 0 {
		settings = cache.NewLRUCache[core.Settings](settingsCacheSize, ttl)
		sweeper = cache.NewManager(logger.Logger)
		sweeper.Register(settings)
		sweeper.StartCleanup(ttl)
		opts = append(opts, services.WithSettingsCache(settings))
	}
	tracker := newTracker(result, e, opts...)
	srv, err := apphttp.NewServer(":"+e.cfg.Port, tracker, apphttp.Options{
		RateLimitPerMinute: e.cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		if sweeper != nil {
			sweeper.Stop()
		}
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownCtx, done := GracefulShutdown(ctx, logger, shutdownTimeout, func(c context.Context) {
		if err := srv.Shutdown(c); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if sweeper != nil {
			sweeper.Stop()
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", applog.FieldError, err)
			}
		}
	})

	if settings != nil && e.cfg.AMQPURL != "" {
		a.startEventWorker(shutdownCtx, e, settings)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting spendview server",
			applog.FieldOperation, applog.OpStartup,
			"port", e.cfg.Port,
			"backend_url", e.cfg.BackendURL,
			"events_enabled", result.Cleanup != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", applog.FieldError, err, "port", e.cfg.Port)
			serveErr <- err
			cancel()
		}
	}()

	WaitForShutdown(shutdownCtx, done)

	select {
	case err := <-serveErr:
		return err
	default:
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// startEventWorker purges the settings cache on settings events from any
// instance. Without a broker connection the cache relies on its TTL.
func (a *App) startEventWorker(ctx context.Context, e *env, settings worker.Purger) {
	dial := a.dial
	if dial == nil {
		dial = dialAMQP
	}
	source, err := dial(e.cfg.AMQPURL, e.cfg.AMQPExchange)
	if err != nil {
		e.logger.Warn("Event worker disabled", applog.FieldError, err)
		return
	}
	w := worker.NewEventWorker(source, settings, e.logger)
	go func() {
		defer source.Close()
		if err := w.Run(ctx); err != nil {
			e.logger.Warn("Event worker stopped", applog.FieldError, err)
		}
	}()
}
