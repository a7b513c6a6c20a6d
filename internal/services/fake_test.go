package services

import (
	"context"
	"sync"

	"spendview/internal/amqp"
	"spendview/internal/core"
)

// fakeBackend is an in-memory backend.Backend.
type fakeBackend struct {
	mu sync.Mutex

	expenses []core.Expense
	budgets  []core.Budget
	status   []core.BudgetStatus
	goals    map[int64]core.Goal
	settings core.Settings
	analytic core.Analytics

	err         error
	settingsErr   error
	settingsCalls int

	lastFilter core.ExpenseFilter
	lastRange  core.DateRange
	goalWrites []core.GoalInput
	deleted    []int64
}

func (f *fakeBackend) ListExpenses(_ context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.expenses, f.err
}

func (f *fakeBackend) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	for _, e := range f.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, errNotFound
}

func (f *fakeBackend) CreateExpense(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	if f.err != nil {
		return core.Expense{}, f.err
	}
	return core.Expense{ID: 42, Amount: in.Amount, Category: in.Category, Currency: in.Currency}, nil
}

func (f *fakeBackend) UpdateExpense(_ context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	return core.Expense{ID: id, Amount: in.Amount, Category: in.Category}, f.err
}

func (f *fakeBackend) DeleteExpense(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeBackend) ListBudgets(context.Context) ([]core.Budget, error) { return f.budgets, f.err }

func (f *fakeBackend) CreateBudget(_ context.Context, in core.BudgetInput) (core.Budget, error) {
	return core.Budget{ID: 7, Category: in.Category, Limit: in.Limit, Period: in.Period}, f.err
}

func (f *fakeBackend) DeleteBudget(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeBackend) BudgetStatus(context.Context) ([]core.BudgetStatus, error) {
	return f.status, f.err
}

func (f *fakeBackend) ListGoals(context.Context) ([]core.Goal, error) {
	var out []core.Goal
	for _, g := range f.goals {
		out = append(out, g)
	}
	return out, f.err
}

func (f *fakeBackend) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	g, ok := f.goals[id]
	if !ok {
		return core.Goal{}, errNotFound
	}
	return g, nil
}

func (f *fakeBackend) CreateGoal(_ context.Context, in core.GoalInput) (core.Goal, error) {
	return core.Goal{ID: 3, Name: in.Name, TargetAmount: in.TargetAmount}, f.err
}

func (f *fakeBackend) UpdateGoal(_ context.Context, id int64, in core.GoalInput) (core.Goal, error) {
	if f.err != nil {
		return core.Goal{}, f.err
	}
	f.goalWrites = append(f.goalWrites, in)
	g := core.Goal{ID: id, Name: in.Name, TargetAmount: in.TargetAmount, CurrentAmount: in.CurrentAmount, Deadline: in.Deadline, Currency: in.Currency}
	f.goals[id] = g
	return g, nil
}

func (f *fakeBackend) DeleteGoal(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeBackend) Settings(context.Context) (core.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settingsCalls++
	return f.settings, f.settingsErr
}

func (f *fakeBackend) UpdateSettings(_ context.Context, s core.Settings) (core.Settings, error) {
	if f.err != nil {
		return core.Settings{}, f.err
	}
	f.settings = s
	return s, nil
}

func (f *fakeBackend) Analytics(_ context.Context, r core.DateRange) (core.Analytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRange = r
	return f.analytic, f.err
}

type recordingPublisher struct {
	events []amqp.MutationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e amqp.MutationEvent) error {
	p.events = append(p.events, e)
	return p.err
}
