package core

import (
	"errors"
	"math"
	"strings"
)

// ErrLabelTooLong rejects categories and names over maxLabelLength.
var ErrLabelTooLong = errors.New("value too long (max 100 characters)")

const maxLabelLength = 100

// ExpenseInput is the body sent to POST/PUT /api/expenses/.
type ExpenseInput struct {
	Amount             float64    `json:"amount"`
	Category           string     `json:"category"`
	Notes              string     `json:"notes"`
	IsRecurring        bool       `json:"is_recurring"`
	RecurringFrequency *Frequency `json:"recurring_frequency"`
	Currency           Currency   `json:"currency"`
}

// BudgetInput is the body sent to POST /api/budgets/.
type BudgetInput struct {
	Category string   `json:"category"`
	Limit    float64  `json:"limit"`
	Period   Period   `json:"period"`
	Currency Currency `json:"currency"`
}

// GoalInput is the body sent to POST/PUT /api/goals/.
type GoalInput struct {
	Name          string   `json:"name"`
	TargetAmount  float64  `json:"target_amount"`
	CurrentAmount float64  `json:"current_amount"`
	Deadline      Day      `json:"deadline"`
	Currency      Currency `json:"currency"`
}

// NewExpenseInput builds an expense body. An empty frequency means the
// expense is not recurring.
func NewExpenseInput(amount float64, category, notes string, freq Frequency, cur Currency) ExpenseInput {
	in := ExpenseInput{
		Amount:   amount,
		Category: strings.TrimSpace(category),
		Notes:    strings.TrimSpace(notes),
		Currency: cur,
	}
	if freq != "" {
		f := freq
		in.IsRecurring = true
		in.RecurringFrequency = &f
	}
	return in
}

// FromExpense converts a stored expense back into an update body.
func FromExpense(e Expense) ExpenseInput {
	return NewExpenseInput(e.Amount, e.Category, e.Notes, e.RecurringFrequency, e.Currency)
}

func (in ExpenseInput) Validate() error {
	if !ValidAmount(in.Amount) {
		return ErrInvalidAmount
	}
	if err := validateLabel(in.Category, ErrEmptyCategory); err != nil {
		return err
	}
	if in.RecurringFrequency != nil && !in.RecurringFrequency.Valid() {
		return ErrInvalidFrequency
	}
	if !in.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}

func (in BudgetInput) Validate() error {
	if !ValidAmount(in.Limit) {
		return ErrInvalidAmount
	}
	if err := validateLabel(in.Category, ErrEmptyCategory); err != nil {
		return err
	}
	if !in.Period.Valid() {
		return ErrInvalidPeriod
	}
	if !in.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}

func (in GoalInput) Validate() error {
	if err := validateLabel(in.Name, ErrEmptyName); err != nil {
		return err
	}
	if !ValidAmount(in.TargetAmount) || in.CurrentAmount < 0 || in.CurrentAmount > MaxAmount || math.IsNaN(in.CurrentAmount) {
		return ErrInvalidAmount
	}
	if in.Deadline.IsZero() {
		return ErrInvalidDeadline
	}
	if !in.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}

// FromGoal converts a stored goal back into an update body.
func FromGoal(g Goal) GoalInput {
	return GoalInput{
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Deadline:      g.Deadline,
		Currency:      g.Currency,
	}
}

func (s Settings) Validate() error {
	if !s.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !s.Theme.Valid() {
		return ErrInvalidTheme
	}
	return nil
}

func validateLabel(s string, empty error) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return empty
	}
	if len(s) > maxLabelLength {
		return ErrLabelTooLong
	}
	return nil
}

// IsValidation reports whether err is one of the input validation errors.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrEmptyCategory, ErrEmptyName, ErrInvalidFrequency,
		ErrInvalidPeriod, ErrInvalidCurrency, ErrInvalidTheme, ErrInvalidDeadline,
		ErrLabelTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
