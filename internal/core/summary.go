package core

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// BudgetLevel classifies how close a budget is to its limit.
type BudgetLevel string

const (
	LevelOK       BudgetLevel = "ok"
	LevelWarning  BudgetLevel = "warning"
	LevelExceeded BudgetLevel = "exceeded"
)

// warningPercentage is the spend share above which a budget is flagged.
const warningPercentage = 80

// ExpenseSummary holds the dashboard aggregates of an expense list.
type ExpenseSummary struct {
	Total      float64
	Count      int
	Average    float64
	MonthTotal float64
}

// CategoryTotal is one row of the analytics category breakdown.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// DailyTotal is one point of the analytics daily trend.
type DailyTotal struct {
	Date  Day     `json:"date"`
	Total float64 `json:"total"`
}

// WeeklyTotal is a weekly_breakdown entry keyed by ISO week number.
type WeeklyTotal struct {
	Week  int
	Total float64
}

// Analytics is the payload of GET /api/analytics/.
type Analytics struct {
	Total             float64            `json:"total"`
	Count             int                `json:"count"`
	Average           float64            `json:"average"`
	CategoryBreakdown []CategoryTotal    `json:"category_breakdown"`
	DailyTrend        []DailyTotal       `json:"daily_trend"`
	WeeklyBreakdown   map[string]float64 `json:"weekly_breakdown"`
}

// Summarize computes total, count, average and the current-month total in a
// single pass. The month total uses now's month and year in now's location.
func Summarize(expenses []Expense, now time.Time) ExpenseSummary {
	var s ExpenseSummary
	year, month := now.Year(), now.Month()
	for _, e := range expenses {
		s.Total += e.Amount
		s.Count++
		d := e.Date.In(now.Location())
		if d.Year() == year && d.Month() == month {
			s.MonthTotal += e.Amount
		}
	}
	if s.Count > 0 {
		s.Average = s.Total / float64(s.Count)
	}
	return s
}

// SortByDateDesc returns a copy of expenses ordered newest first. Ties keep
// their original order.
func SortByDateDesc(expenses []Expense) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// Recent returns up to n newest expenses, newest first.
func Recent(expenses []Expense, n int) []Expense {
	if n <= 0 {
		return nil
	}
	sorted := SortByDateDesc(expenses)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Level reports the colour band of the budget card.
func (b BudgetStatus) Level() BudgetLevel {
	switch {
	case b.IsExceeded:
		return LevelExceeded
	case b.Percentage > warningPercentage:
		return LevelWarning
	default:
		return LevelOK
	}
}

// BarWidth is the progress bar fill in percent, clamped to [0, 100].
func (b BudgetStatus) BarWidth() float64 {
	return clampPercent(b.Percentage)
}

// Progress is the saved share of the target in percent; 0 for a non-positive target.
func (g Goal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return g.CurrentAmount / g.TargetAmount * 100
}

// BarWidth is the progress bar fill in percent, clamped to [0, 100].
func (g Goal) BarWidth() float64 {
	return clampPercent(g.Progress())
}

// Remaining is how much is still missing to reach the target.
func (g Goal) Remaining() float64 {
	return math.Max(g.TargetAmount-g.CurrentAmount, 0)
}

// Reached reports whether the target has been met.
func (g Goal) Reached() bool {
	return g.TargetAmount > 0 && g.CurrentAmount >= g.TargetAmount
}

// SortedWeeks returns the weekly breakdown ordered by week number. Keys that
// are not integers are skipped.
func (a Analytics) SortedWeeks() []WeeklyTotal {
	weeks := make([]WeeklyTotal, 0, len(a.WeeklyBreakdown))
	for k, v := range a.WeeklyBreakdown {
		w, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		weeks = append(weeks, WeeklyTotal{Week: w, Total: v})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Week < weeks[j].Week })
	return weeks
}

func clampPercent(p float64) float64 {
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ExpenseFilter narrows GET /api/expenses/. Zero fields are not sent.
type ExpenseFilter struct {
	Category  string
	StartDate Day
	EndDate   Day
}

// DateRange bounds GET /api/analytics/. Zero ends are open.
type DateRange struct {
	Start Day
	End   Day
}

// Empty reports whether the filter has no criteria.
func (f ExpenseFilter) Empty() bool {
	return f.Category == "" && f.StartDate.IsZero() && f.EndDate.IsZero()
}
