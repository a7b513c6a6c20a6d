package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"spendview/internal/core"
)

const (
	expensesPath     = "/api/expenses/"
	budgetsPath      = "/api/budgets/"
	budgetStatusPath = "/api/budget-status/"
	goalsPath        = "/api/goals/"
	settingsPath     = "/api/settings/"
	analyticsPath    = "/api/analytics/"
)

func detailPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}

func filterQuery(f core.ExpenseFilter) url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if !f.StartDate.IsZero() {
		q.Set("start_date", f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		q.Set("end_date", f.EndDate.String())
	}
	return q
}

func rangeQuery(r core.DateRange) url.Values {
	return filterQuery(core.ExpenseFilter{StartDate: r.Start, EndDate: r.End})
}

// ListExpenses returns the caller's expenses matching filter.
func (c *Client) ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.getJSON(ctx, expensesPath, filterQuery(filter), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var out core.Expense
	err := c.getJSON(ctx, detailPath(expensesPath, id), nil, &out)
	return out, err
}

func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := c.send(ctx, http.MethodPost, expensesPath, in, &out)
	return out, err
}

func (c *Client) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	err := c.send(ctx, http.MethodPut, detailPath(expensesPath, id), in, &out)
	return out, err
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, detailPath(expensesPath, id), nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	if err := c.getJSON(ctx, budgetsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	var out core.Budget
	err := c.send(ctx, http.MethodPost, budgetsPath, in, &out)
	return out, err
}

func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, detailPath(budgetsPath, id), nil, nil)
}

// BudgetStatus returns the server-computed spend per budget.
func (c *Client) BudgetStatus(ctx context.Context) ([]core.BudgetStatus, error) {
	var out []core.BudgetStatus
	if err := c.getJSON(ctx, budgetStatusPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListGoals(ctx context.Context) ([]core.Goal, error) {
	var out []core.Goal
	if err := c.getJSON(ctx, goalsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	var out core.Goal
	err := c.getJSON(ctx, detailPath(goalsPath, id), nil, &out)
	return out, err
}

func (c *Client) CreateGoal(ctx context.Context, in core.GoalInput) (core.Goal, error) {
	var out core.Goal
	err := c.send(ctx, http.MethodPost, goalsPath, in, &out)
	return out, err
}

func (c *Client) UpdateGoal(ctx context.Context, id int64, in core.GoalInput) (core.Goal, error) {
	var out core.Goal
	err := c.send(ctx, http.MethodPut, detailPath(goalsPath, id), in, &out)
	return out, err
}

func (c *Client) DeleteGoal(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, detailPath(goalsPath, id), nil, nil)
}

// Settings returns the caller's settings. The endpoint has been seen to
// answer with a single object or with a list; the first list element wins
// and an empty answer yields the defaults.
func (c *Client) Settings(ctx context.Context) (core.Settings, error) {
	body, err := c.get(ctx, settingsPath, nil)
	if err != nil {
		return core.Settings{}, err
	}
	return c.decodeSettings(body)
}

func (c *Client) decodeSettings(body []byte) (core.Settings, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return c.defaults, nil
	}
	if body[0] == '[' {
		var list []core.Settings
		if err := json.Unmarshal(body, &list); err != nil {
			return core.Settings{}, fmt.Errorf("rest: parsing settings list: %w", err)
		}
		if len(list) == 0 {
			return c.defaults, nil
		}
		return list[0].NormalizeWith(c.defaults), nil
	}
	var s core.Settings
	if err := json.Unmarshal(body, &s); err != nil {
		return core.Settings{}, fmt.Errorf("rest: parsing settings: %w", err)
	}
	return s.NormalizeWith(c.defaults), nil
}

func (c *Client) UpdateSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	var out core.Settings
	if err := c.send(ctx, http.MethodPut, settingsPath, s, &out); err != nil {
		return core.Settings{}, err
	}
	return out.NormalizeWith(c.defaults), nil
}

// Analytics returns totals and breakdowns for the expenses in r.
func (c *Client) Analytics(ctx context.Context, r core.DateRange) (core.Analytics, error) {
	var out core.Analytics
	err := c.getJSON(ctx, analyticsPath, rangeQuery(r), &out)
	return out, err
}
