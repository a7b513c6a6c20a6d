package services

import (
	"context"
	"fmt"

	"spendview/internal/amqp"
	"spendview/internal/core"
	applog "spendview/internal/log"
)

func (t *Tracker) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := t.backend.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	t.published(ctx, amqp.EntityExpense, amqp.OpCreated, e.ID)
	return e, nil
}

func (t *Tracker) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := t.backend.UpdateExpense(ctx, id, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	t.published(ctx, amqp.EntityExpense, amqp.OpUpdated, id)
	return e, nil
}

// Expense reads one expense, for the edit form.
func (t *Tracker) Expense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := t.backend.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (t *Tracker) DeleteExpense(ctx context.Context, id int64) error {
	if err := t.backend.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	t.published(ctx, amqp.EntityExpense, amqp.OpDeleted, id)
	return nil
}

func (t *Tracker) CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := t.backend.CreateBudget(ctx, in)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	t.published(ctx, amqp.EntityBudget, amqp.OpCreated, b.ID)
	return b, nil
}

func (t *Tracker) DeleteBudget(ctx context.Context, id int64) error {
	if err := t.backend.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	t.published(ctx, amqp.EntityBudget, amqp.OpDeleted, id)
	return nil
}

func (t *Tracker) CreateGoal(ctx context.Context, in core.GoalInput) (core.Goal, error) {
	if err := in.Validate(); err != nil {
		return core.Goal{}, err
	}
	g, err := t.backend.CreateGoal(ctx, in)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	t.published(ctx, amqp.EntityGoal, amqp.OpCreated, g.ID)
	return g, nil
}

// ContributeToGoal adds amount to the goal's current amount. The goal is read
// first and written back whole, so concurrent contributions can overwrite
// each other.
func (t *Tracker) ContributeToGoal(ctx context.Context, id int64, amount float64) (core.Goal, error) {
	if !core.ValidAmount(amount) {
		return core.Goal{}, core.ErrInvalidAmount
	}
	g, err := t.backend.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	in := core.FromGoal(g)
	in.CurrentAmount = float64(core.Cents(g.CurrentAmount)+core.Cents(amount)) / 100
	if !in.Currency.Valid() {
		in.Currency = t.defaults.Currency
	}
	if in.CurrentAmount > core.MaxAmount {
		return core.Goal{}, core.ErrInvalidAmount
	}
	updated, err := t.backend.UpdateGoal(ctx, id, in)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	t.published(ctx, amqp.EntityGoal, amqp.OpContributed, id)
	return updated, nil
}

func (t *Tracker) DeleteGoal(ctx context.Context, id int64) error {
	if err := t.backend.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	t.published(ctx, amqp.EntityGoal, amqp.OpDeleted, id)
	return nil
}

func (t *Tracker) SaveSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	if err := s.Validate(); err != nil {
		return core.Settings{}, err
	}
	saved, err := t.backend.UpdateSettings(ctx, s)
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	saved = saved.NormalizeWith(t.defaults)
	t.cacheSettings(ctx, saved)
	t.published(ctx, amqp.EntitySettings, amqp.OpUpdated, saved.ID)
	return saved, nil
}

// published logs the mutation and announces it. A failed publish never
// fails the mutation: the backend already accepted it.
func (t *Tracker) published(ctx context.Context, entity amqp.Entity, op amqp.Operation, id int64) {
	t.events.LogMutation(ctx, string(entity), string(op), id)

	event := amqp.NewMutationEvent(entity, op, id)
	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.WarnContext(ctx, "Failed to publish mutation event",
			applog.FieldEntity, string(entity),
			applog.FieldEntityID, id,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err.Error())
	}
}
