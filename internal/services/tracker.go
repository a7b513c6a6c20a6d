// Package services assembles view data from the backend and runs the
// mutations the forms submit.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spendview/internal/amqp"
	"spendview/internal/backend"
	"spendview/internal/backend/rest"
	"spendview/internal/cache"
	"spendview/internal/charts"
	"spendview/internal/core"
	applog "spendview/internal/log"
)

// RecentLimit is how many expenses the dashboard lists.
const RecentLimit = 5

// Tracker orchestrates reads for the six views and mutations with their events.
type Tracker struct {
	backend   backend.Backend
	publisher amqp.Publisher
	logger    *applog.Logger
	events    *applog.StructuredLogger
	settingsC cache.Cache[core.Settings]
	defaults  core.Settings
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithSettingsCache keeps display settings per backend session in c.
// Requests without a session are never cached.
func WithSettingsCache(c cache.Cache[core.Settings]) Option {
	return func(t *Tracker) { t.settingsC = c }
}

// WithDefaultSettings sets the display settings used when the user's
// settings are missing or cannot be read.
func WithDefaultSettings(s core.Settings) Option {
	return func(t *Tracker) { t.defaults = s.Normalize() }
}

// NewTracker wires a backend with an optional publisher. A nil publisher
// drops events.
func NewTracker(b backend.Backend, publisher amqp.Publisher, logger *applog.Logger, opts ...Option) *Tracker {
	if publisher == nil {
		publisher = amqp.NopPublisher{}
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentTracker)
	t := &Tracker{
		backend:   b,
		publisher: publisher,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		defaults:  core.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type (
	DashboardData struct {
		Summary  core.ExpenseSummary
		Recent   []core.Expense
		Budgets  []core.BudgetStatus
		Settings core.Settings
	}

	ExpensesData struct {
		Expenses []core.Expense
		Filter   core.ExpenseFilter
		Total    float64
		Settings core.Settings
	}

	AnalyticsData struct {
		Analytics core.Analytics
		Weeks     []core.WeeklyTotal
		Charts    charts.Set
		Range     core.DateRange
		Settings  core.Settings
	}

	// BudgetRow joins a budget with its server-computed status.
	BudgetRow struct {
		Budget core.Budget
		Status core.BudgetStatus
	}

	BudgetsData struct {
		Rows     []BudgetRow
		Settings core.Settings
	}

	GoalsData struct {
		Goals    []core.Goal
		Settings core.Settings
	}

	SettingsData struct {
		Settings   core.Settings
		Currencies []core.Currency
		Themes     []core.Theme
	}
)

// Dashboard fetches expenses, budget status and settings concurrently.
func (t *Tracker) Dashboard(ctx context.Context, now time.Time) (DashboardData, error) {
	var (
		expenses []core.Expense
		status   []core.BudgetStatus
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = t.backend.ListExpenses(gctx, core.ExpenseFilter{})
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		status, err = t.backend.BudgetStatus(gctx)
		if err != nil {
			return fmt.Errorf("budget status: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		settings = t.settings(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardData{}, err
	}

	return DashboardData{
		Summary:  core.Summarize(expenses, now),
		Recent:   core.Recent(expenses, RecentLimit),
		Budgets:  status,
		Settings: settings,
	}, nil
}

// Expenses returns the filtered expenses, newest first.
func (t *Tracker) Expenses(ctx context.Context, filter core.ExpenseFilter) (ExpensesData, error) {
	var (
		expenses []core.Expense
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = t.backend.ListExpenses(gctx, filter)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		settings = t.settings(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ExpensesData{}, err
	}

	sorted := core.SortByDateDesc(expenses)
	var total float64
	for _, e := range sorted {
		total += e.Amount
	}
	return ExpensesData{Expenses: sorted, Filter: filter, Total: total, Settings: settings}, nil
}

// Analytics returns the aggregates for r along with the chart configurations.
func (t *Tracker) Analytics(ctx context.Context, r core.DateRange) (AnalyticsData, error) {
	var (
		a        core.Analytics
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = t.backend.Analytics(gctx, r)
		if err != nil {
			return fmt.Errorf("analytics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		settings = t.settings(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return AnalyticsData{}, err
	}

	return AnalyticsData{
		Analytics: a,
		Weeks:     a.SortedWeeks(),
		Charts:    charts.NewSet(a, settings.Theme),
		Range:     r,
		Settings:  settings,
	}, nil
}

// Budgets returns every budget joined with its status.
func (t *Tracker) Budgets(ctx context.Context) (BudgetsData, error) {
	var (
		budgets  []core.Budget
		status   []core.BudgetStatus
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = t.backend.ListBudgets(gctx)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		status, err = t.backend.BudgetStatus(gctx)
		if err != nil {
			return fmt.Errorf("budget status: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		settings = t.settings(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return BudgetsData{}, err
	}

	byID := make(map[int64]core.BudgetStatus, len(status))
	for _, s := range status {
		byID[s.ID] = s
	}
	rows := make([]BudgetRow, 0, len(budgets))
	for _, b := range budgets {
		s, ok := byID[b.ID]
		if !ok {
			s = core.BudgetStatus{ID: b.ID, Category: b.Category, Limit: b.Limit, Remaining: b.Limit}
		}
		rows = append(rows, BudgetRow{Budget: b, Status: s})
	}
	return BudgetsData{Rows: rows, Settings: settings}, nil
}

// Goals returns every savings goal.
func (t *Tracker) Goals(ctx context.Context) (GoalsData, error) {
	var (
		goals    []core.Goal
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = t.backend.ListGoals(gctx)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		settings = t.settings(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return GoalsData{}, err
	}
	return GoalsData{Goals: goals, Settings: settings}, nil
}

// Settings returns the stored settings and the allowed choices. Unlike the
// other views, a failed settings read is an error here.
func (t *Tracker) Settings(ctx context.Context) (SettingsData, error) {
	s, err := t.backend.Settings(ctx)
	if err != nil {
		return SettingsData{}, fmt.Errorf("settings: %w", err)
	}
	s = s.NormalizeWith(t.defaults)
	t.cacheSettings(ctx, s)
	return SettingsData{
		Settings:   s,
		Currencies: core.Currencies(),
		Themes:     core.Themes(),
	}, nil
}

// DisplaySettings returns the user's settings, or the defaults when they
// cannot be read.
func (t *Tracker) DisplaySettings(ctx context.Context) core.Settings {
	return t.settings(ctx)
}

// settings never fails: views keep rendering with default currency and theme.
func (t *Tracker) settings(ctx context.Context) core.Settings {
	key := settingsKey(ctx)
	if t.settingsC != nil && key != "" {
		if s, ok := t.settingsC.Get(key); ok {
			return s
		}
	}
	s, err := t.backend.Settings(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.logger.WarnContext(ctx, "Failed to load settings, using defaults", applog.FieldError, err.Error())
		}
		return t.defaults
	}
	s = s.NormalizeWith(t.defaults)
	t.cacheSettings(ctx, s)
	return s
}

func (t *Tracker) cacheSettings(ctx context.Context, s core.Settings) {
	if key := settingsKey(ctx); t.settingsC != nil && key != "" {
		t.settingsC.Set(key, s)
	}
}

func settingsKey(ctx context.Context) string {
	return rest.CredentialsFrom(ctx).SessionID
}

// Ping checks that the backend answers.
func (t *Tracker) Ping(ctx context.Context) error {
	_, err := t.backend.Settings(ctx)
	return err
}

// ExportExpenses returns the filtered expenses, newest first, for export.
func (t *Tracker) ExportExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, core.Settings, error) {
	data, err := t.Expenses(ctx, filter)
	if err != nil {
		return nil, core.Settings{}, err
	}
	return data.Expenses, data.Settings, nil
}
