// Package worker runs background consumers of mutation events.
package worker

import (
	"context"
	"errors"
	"sync/atomic"

	"spendview/internal/amqp"
	applog "spendview/internal/log"
)

// SettingsPattern matches every settings mutation.
const SettingsPattern = "settings.*"

// Source delivers mutation events matching a routing key pattern.
type Source interface {
	Consume(ctx context.Context, pattern string, handler func(amqp.MutationEvent) error) error
}

// Purger drops every cached entry.
type Purger interface {
	Purge() int
}

// EventWorker keeps this instance's settings cache coherent with changes
// saved through any instance sharing the exchange.
type EventWorker struct {
	source   Source
	settings Purger
	logger   *applog.Logger

	handled atomic.Int64
	purged  atomic.Int64
}

func NewEventWorker(source Source, settings Purger, logger *applog.Logger) *EventWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &EventWorker{
		source:   source,
		settings: settings,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Run consumes settings events until ctx is done. A cancelled context is
// a clean stop and returns nil.
func (w *EventWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Event worker started", "pattern", SettingsPattern)
	err := w.source.Consume(ctx, SettingsPattern, func(ev amqp.MutationEvent) error {
		w.HandleEvent(ctx, ev)
		return nil
	})
	if err == nil || errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "Event worker stopped", "handled", w.handled.Load())
		return nil
	}
	return err
}

// HandleEvent purges cached settings after a settings mutation. Other
// events are ignored.
func (w *EventWorker) HandleEvent(ctx context.Context, ev amqp.MutationEvent) {
	w.handled.Add(1)
	if ev.Entity != amqp.EntitySettings {
		return
	}
	n := w.settings.Purge()
	w.purged.Add(int64(n))
	w.logger.DebugContext(ctx, "Settings cache purged",
		applog.FieldOperation, string(ev.Operation),
		"entries", n)
}

// Handled is the number of events received.
func (w *EventWorker) Handled() int64 { return w.handled.Load() }

// Purged is the number of cache entries dropped.
func (w *EventWorker) Purged() int64 { return w.purged.Load() }
