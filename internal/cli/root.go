package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spendview/internal/backend"
	"spendview/internal/backend/rest"
	"spendview/internal/config"
	"spendview/internal/core"
	applog "spendview/internal/log"
	"spendview/internal/services"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// App is the spendview command tree and the dependencies its commands share.
type App struct {
	root    *cobra.Command
	factory backend.Factory
	dial    Dialer
	out     io.Writer
	logOut  io.Writer

	session string
	csrf    string
}

// Option customizes an App.
type Option func(*App)

// WithFactory replaces the backend factory.
func WithFactory(f backend.Factory) Option {
	return func(a *App) { a.factory = f }
}

// WithOutput sends command output and logs to out.
func WithOutput(out io.Writer) Option {
	return func(a *App) {
		a.out = out
		a.logOut = out
	}
}

// NewApp builds the command tree.
func NewApp(opts ...Option) *App {
	app := &App{out: os.Stdout, logOut: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}

	root := &cobra.Command{
		Use:           "spendview",
		Short:         "Expense tracking client for the spendview REST API",
		Long:          "Serve the spendview web interface, or query the backend from the terminal.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.out)
	root.SetErr(app.out)
	root.SetVersionTemplate(`{{printf "spendview version: %s\n" .Version}}`)

	root.PersistentFlags().StringVar(&app.session, "session", "", "Backend sessionid cookie (default $"+SessionEnv+")")
	root.PersistentFlags().StringVar(&app.csrf, "csrf", "", "Backend csrftoken cookie (default $"+CSRFEnv+")")

	root.AddCommand(
		app.newServeCommand(),
		app.newSummaryCommand(),
		app.newExportCommand(),
		app.newEventsCommand(),
	)
	app.root = root
	return app
}

// Execute runs the command named by args.
func (a *App) Execute(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

// Execute is the main entry point called from main.go.
func Execute() {
	LoadEnvFile()
	if err := NewApp().Execute(context.Background(), os.Args[1:]); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every command starts from: validated config and a logger.
type env struct {
	cfg    *config.Config
	logger *applog.Logger
}

func (a *App) setup() (*env, error) {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogger(cfg, a.logOut)
	if err != nil {
		return nil, err
	}
	if a.factory == nil {
		a.factory = backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend))
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// tracker connects to the backend and returns a tracker plus the context
// carrying the CLI's credentials.
func (a *App) tracker(ctx context.Context, e *env) (*services.Tracker, context.Context, func(), error) {
	result, err := CreateBackend(ctx, a.factory, e.cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				e.logger.Warn("Cleanup failed", applog.FieldError, err)
			}
		}
	}
	ctx = rest.WithCredentials(ctx, ResolveCredentials(a.session, a.csrf))
	return newTracker(result, e), ctx, cleanup, nil
}

func newTracker(result *backend.BackendResult, e *env, opts ...services.Option) *services.Tracker {
	defaults := core.DefaultSettings()
	defaults.Currency = e.cfg.DefaultCurrency
	opts = append([]services.Option{services.WithDefaultSettings(defaults)}, opts...)
	return services.NewTracker(result.Backend, result.Publisher, e.logger, opts...)
}
