package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"

	Dark  Theme = "dark"
	Light Theme = "light"

	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"

	MonthlyPeriod Period = "monthly"
	YearlyPeriod  Period = "yearly"
)

// DayLayout is the wire format used by the backend for calendar dates.
const DayLayout = "2006-01-02"

type (
	Currency  string
	Theme     string
	Frequency string
	Period    string

	// Day is a calendar date without time of day, encoded as YYYY-MM-DD.
	Day struct {
		time.Time
	}

	// Timestamp is a backend date-time. Naive values are read as UTC.
	Timestamp struct {
		time.Time
	}

	Expense struct {
		ID                 int64     `json:"id"`
		Amount             float64   `json:"amount"`
		Category           string    `json:"category"`
		Notes              string    `json:"notes"`
		Date               Timestamp `json:"date"`
		IsRecurring        bool      `json:"is_recurring"`
		RecurringFrequency Frequency `json:"recurring_frequency"`
		Currency           Currency  `json:"currency"`
	}

	Budget struct {
		ID       int64    `json:"id"`
		Category string   `json:"category"`
		Limit    float64  `json:"limit"`
		Period   Period   `json:"period"`
		Currency Currency `json:"currency"`
	}

	// BudgetStatus is the server-computed spend of a budget's category.
	BudgetStatus struct {
		ID         int64   `json:"id"`
		Category   string  `json:"category"`
		Limit      float64 `json:"limit"`
		Spent      float64 `json:"spent"`
		Remaining  float64 `json:"remaining"`
		Percentage float64 `json:"percentage"`
		IsExceeded bool    `json:"is_exceeded"`
	}

	Goal struct {
		ID            int64    `json:"id"`
		Name          string   `json:"name"`
		TargetAmount  float64  `json:"target_amount"`
		CurrentAmount float64  `json:"current_amount"`
		Deadline      Day      `json:"deadline"`
		Currency      Currency `json:"currency"`
	}

	Settings struct {
		ID       int64    `json:"id,omitempty"`
		Currency Currency `json:"currency"`
		Theme    Theme    `json:"theme"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidFrequency = errors.New("invalid recurring frequency")
	ErrInvalidPeriod    = errors.New("invalid budget period")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidTheme     = errors.New("invalid theme")
	ErrInvalidDeadline  = errors.New("invalid deadline")
)

// DefaultSettings mirrors the backend defaults for a user without a settings row.
func DefaultSettings() Settings {
	return Settings{Currency: INR, Theme: Dark}
}

// NewDay creates a Day from year, month, day
func NewDay(year, month, day int) Day {
	return Day{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, err
	}
	return Day{Time: t}, nil
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DayLayout))
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) == "null" {
		*d = Day{}
		return nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Day{}
		return nil
	}
	// Accept full timestamps too; only the calendar part is kept.
	if len(s) > len(DayLayout) {
		s = s[:len(DayLayout)]
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	DayLayout,
}

// ParseTimestamp accepts RFC 3339, naive ISO date-times and plain dates.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{Time: t}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Timestamp{}, firstErr
}

// CalendarDay returns the calendar date of the timestamp.
func (t Timestamp) CalendarDay() Day {
	if t.IsZero() {
		return Day{}
	}
	return NewDay(t.Year(), int(t.Month()), t.Day())
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (c Currency) Valid() bool {
	switch c {
	case INR, USD, EUR, GBP:
		return true
	}
	return false
}

// Symbol returns the display symbol, falling back to the ISO code.
func (c Currency) Symbol() string {
	switch c {
	case INR:
		return "₹"
	case USD:
		return "$"
	case EUR:
		return "€"
	case GBP:
		return "£"
	}
	return string(c) + " "
}

// Label is the human readable option text used in the settings form.
func (c Currency) Label() string {
	switch c {
	case INR:
		return "₹ Indian Rupee"
	case USD:
		return "$ US Dollar"
	case EUR:
		return "€ Euro"
	case GBP:
		return "£ British Pound"
	}
	return string(c)
}

func Currencies() []Currency {
	return []Currency{INR, USD, EUR, GBP}
}

func (t Theme) Valid() bool {
	return t == Dark || t == Light
}

func Themes() []Theme {
	return []Theme{Dark, Light}
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func (p Period) Valid() bool {
	return p == MonthlyPeriod || p == YearlyPeriod
}

// Label returns the period caption shown on budget cards.
func (p Period) Label() string {
	if p == YearlyPeriod {
		return "Yearly Budget"
	}
	return "Monthly Budget"
}

// Normalize fills empty fields with defaults so rendering never sees blanks.
func (s Settings) Normalize() Settings {
	return s.NormalizeWith(DefaultSettings())
}

// NormalizeWith fills unknown currency and theme values from defaults.
func (s Settings) NormalizeWith(defaults Settings) Settings {
	if !s.Currency.Valid() {
		s.Currency = defaults.Currency
	}
	if !s.Theme.Valid() {
		s.Theme = defaults.Theme
	}
	return s
}
