package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestDayJSON(t *testing.T) {
	var g Goal
	if err := json.Unmarshal([]byte(`{"name":"Car","deadline":"2026-03-01"}`), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := g.Deadline.String(); got != "2026-03-01" {
		t.Fatalf("deadline = %q", got)
	}

	var empty Goal
	if err := json.Unmarshal([]byte(`{"deadline":null}`), &empty); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !empty.Deadline.IsZero() {
		t.Fatalf("expected zero deadline")
	}
	b, _ := json.Marshal(GoalInput{Name: "x", Deadline: NewDay(2025, 12, 31)})
	if !strings.Contains(string(b), `"deadline":"2025-12-31"`) {
		t.Fatalf("marshal: %s", b)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T10:30:00Z", time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"2025-01-02T10:30:00.123456Z", time.Date(2025, 1, 2, 10, 30, 0, 123456000, time.UTC)},
		{"2025-01-02T10:30:00.5", time.Date(2025, 1, 2, 10, 30, 0, 500000000, time.UTC)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: got %v want %v", tc.in, got.Time, tc.want)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExpenseDecodesNullableFields(t *testing.T) {
	body := `{"id":7,"amount":12.5,"category":"Food","notes":null,"date":"2025-04-01T08:00:00Z","is_recurring":false,"recurring_frequency":null,"currency":"USD"}`
	var e Expense
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.ID != 7 || e.Notes != "" || e.RecurringFrequency != "" || e.Currency != USD {
		t.Fatalf("unexpected expense: %+v", e)
	}
	if e.Date.CalendarDay() != NewDay(2025, 4, 1) {
		t.Fatalf("day = %v", e.Date.CalendarDay())
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := NewExpenseInput(10, " Food ", "", Weekly, EUR)
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !good.IsRecurring || *good.RecurringFrequency != Weekly || good.Category != "Food" {
		t.Fatalf("unexpected input: %+v", good)
	}

	cases := []struct {
		in   ExpenseInput
		want error
	}{
		{NewExpenseInput(0, "Food", "", "", INR), ErrInvalidAmount},
		{NewExpenseInput(1, "  ", "", "", INR), ErrEmptyCategory},
		{NewExpenseInput(1, "Food", "", "hourly", INR), ErrInvalidFrequency},
		{NewExpenseInput(1, "Food", "", "", "JPY"), ErrInvalidCurrency},
	}
	for i, tc := range cases {
		if err := tc.in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v want %v", i, err, tc.want)
		}
	}
	if err := NewExpenseInput(1, strings.Repeat("x", 101), "", "", INR).Validate(); err == nil {
		t.Fatalf("expected error for long category")
	}
}

func TestNonRecurringExpenseSendsNullFrequency(t *testing.T) {
	b, err := json.Marshal(NewExpenseInput(3, "Bus", "", "", INR))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"recurring_frequency":null`) || !strings.Contains(string(b), `"is_recurring":false`) {
		t.Fatalf("body: %s", b)
	}
}

func TestBudgetAndGoalInputValidate(t *testing.T) {
	if err := (BudgetInput{Category: "Rent", Limit: 500, Period: MonthlyPeriod, Currency: INR}).Validate(); err != nil {
		t.Fatalf("budget: %v", err)
	}
	if err := (BudgetInput{Category: "Rent", Limit: 500, Period: "weekly", Currency: INR}).Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("budget period: %v", err)
	}
	if err := (BudgetInput{Category: "Rent", Limit: -1, Period: MonthlyPeriod, Currency: INR}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("budget limit: %v", err)
	}

	goal := GoalInput{Name: "Bike", TargetAmount: 300, Deadline: NewDay(2026, 1, 1), Currency: GBP}
	if err := goal.Validate(); err != nil {
		t.Fatalf("goal: %v", err)
	}
	noDeadline := goal
	noDeadline.Deadline = Day{}
	if err := noDeadline.Validate(); !errors.Is(err, ErrInvalidDeadline) {
		t.Fatalf("goal deadline: %v", err)
	}
	noName := goal
	noName.Name = ""
	if err := noName.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("goal name: %v", err)
	}
}

func TestSettingsNormalizeAndValidate(t *testing.T) {
	s := Settings{}.Normalize()
	if s != DefaultSettings() {
		t.Fatalf("normalize = %+v", s)
	}
	if err := (Settings{Currency: USD, Theme: "blue"}).Validate(); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("theme: %v", err)
	}
	if got := USD.Symbol(); got != "$" {
		t.Fatalf("symbol = %q", got)
	}
	if got := Currency("CHF").Symbol(); got != "CHF " {
		t.Fatalf("fallback symbol = %q", got)
	}
}

func TestIsValidation(t *testing.T) {
	long := ExpenseInput{Amount: 1, Category: strings.Repeat("x", maxLabelLength+1), Currency: INR}
	err := long.Validate()
	if !errors.Is(err, ErrLabelTooLong) {
		t.Fatalf("Validate() = %v, want ErrLabelTooLong", err)
	}

	cases := []struct {
		err  error
		want bool
	}{
		{err, true},
		{ErrInvalidDeadline, true},
		{fmt.Errorf("create goal: %w", ErrEmptyName), true},
		{errors.New("backend unreachable"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := IsValidation(c.err); got != c.want {
			t.Errorf("IsValidation(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
