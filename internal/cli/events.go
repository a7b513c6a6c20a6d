package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spendview/internal/amqp"
	applog "spendview/internal/log"
)

// EventSource streams mutation events.
type EventSource interface {
	Consume(ctx context.Context, pattern string, handler func(amqp.MutationEvent) error) error
	Close() error
}

// Dialer opens an EventSource on a broker exchange.
type Dialer func(url, exchange string) (EventSource, error)

// WithDialer replaces the broker dialer.
func WithDialer(d Dialer) Option {
	return func(a *App) { a.dial = d }
}

func dialAMQP(url, exchange string) (EventSource, error) {
	return amqp.NewClient(url, exchange)
}

var errNoBroker = errors.New("AMQP_URL is not set; events need a broker")

// Routing key colours by operation.
var (
	createdKey = color.New(color.FgGreen, color.Bold).SprintFunc()
	deletedKey = color.New(color.FgRed, color.Bold).SprintFunc()
	changedKey = color.New(color.FgCyan).SprintFunc()
)

func (a *App) newEventsCommand() *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail mutation events from the broker",
		Long:  "Bind a private queue to the events exchange and print one line per event until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runEvents(cmd.Context(), pattern)
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "#", "Routing key pattern, e.g. expense.* or *.deleted")
	return cmd
}

func (a *App) runEvents(ctx context.Context, pattern string) error {
	e, err := a.setup()
	if err != nil {
		return err
	}
	if e.cfg.AMQPURL == "" {
		return errNoBroker
	}

	dial := a.dial
	if dial == nil {
		dial = dialAMQP
	}
	source, err := dial(e.cfg.AMQPURL, e.cfg.AMQPExchange)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			e.logger.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	ctx, done := GracefulShutdown(ctx, e.logger, shutdownTimeout, nil)
	e.logger.Info("Listening for events", applog.FieldExchange, e.cfg.AMQPExchange, "pattern", pattern)

	err = source.Consume(ctx, pattern, func(ev amqp.MutationEvent) error {
		printEvent(a.out, ev)
		return nil
	})
	cancel()
	<-done
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printEvent(out io.Writer, ev amqp.MutationEvent) {
	var key string
	switch ev.Operation {
	case amqp.OpDeleted:
		key = deletedKey(ev.RoutingKey())
	case amqp.OpCreated:
		key = createdKey(ev.RoutingKey())
	default:
		key = changedKey(ev.RoutingKey())
	}
	stamp := ev.At.Local().Format("2006-01-02 15:04:05")
	if ev.ID != 0 {
		fmt.Fprintf(out, "%s  %s  id=%d\n", stamp, key, ev.ID)
		return
	}
	fmt.Fprintf(out, "%s  %s\n", stamp, key)
}
