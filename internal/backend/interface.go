package backend

import (
	"context"

	"spendview/internal/amqp"
	"spendview/internal/core"
)

// ExpenseStore covers /api/expenses/.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

// BudgetStore covers /api/budgets/ and /api/budget-status/.
type BudgetStore interface {
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error
	BudgetStatus(ctx context.Context) ([]core.BudgetStatus, error)
}

// GoalStore covers /api/goals/.
type GoalStore interface {
	ListGoals(ctx context.Context) ([]core.Goal, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	CreateGoal(ctx context.Context, in core.GoalInput) (core.Goal, error)
	UpdateGoal(ctx context.Context, id int64, in core.GoalInput) (core.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error
}

// SettingsStore covers /api/settings/.
type SettingsStore interface {
	Settings(ctx context.Context) (core.Settings, error)
	UpdateSettings(ctx context.Context, s core.Settings) (core.Settings, error)
}

// AnalyticsReader covers /api/analytics/.
type AnalyticsReader interface {
	Analytics(ctx context.Context, r core.DateRange) (core.Analytics, error)
}

// Backend represents every operation the views need from the REST API.
type Backend interface {
	ExpenseStore
	BudgetStore
	GoalStore
	SettingsStore
	AnalyticsReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend, the mutation publisher and an optional cleanup function.
type BackendResult struct {
	Backend   Backend
	Publisher amqp.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
