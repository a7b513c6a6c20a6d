// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Form bodies and query strings are turned into core inputs and filters here
// so handlers only deal with typed values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendview/internal/core"
)

// maxBodyBytes caps form and JSON bodies.
const maxBodyBytes = 64 << 10

// errBadRequest marks input that could not be parsed at all.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads at most maxBodyBytes once and stores them for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Bool reads checkbox-style values: on, true, 1 or yes.
func (p *RequestBodyParser) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body, mapping failures to errBadRequest.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return nil, badRequest("invalid request body")
	}
	return p, nil
}

// ParseExpenseForm builds an expense body. The currency falls back to cur
// when the form does not carry one.
func ParseExpenseForm(p *RequestBodyParser, cur core.Currency) (core.ExpenseInput, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.ExpenseInput{}, err
	}
	var freq core.Frequency
	if p.Bool("is_recurring") {
		freq = core.Frequency(p.Get("recurring_frequency"))
		if freq == "" {
			freq = core.Monthly
		}
	}
	if c := core.Currency(strings.ToUpper(p.Get("currency"))); c != "" {
		cur = c
	}
	in := core.NewExpenseInput(amount, p.Get("category"), p.Get("notes"), freq, cur)
	return in, in.Validate()
}

// ParseBudgetForm builds a budget body. Period defaults to monthly.
func ParseBudgetForm(p *RequestBodyParser, cur core.Currency) (core.BudgetInput, error) {
	limit, err := core.ParseAmount(p.Get("limit"))
	if err != nil {
		return core.BudgetInput{}, err
	}
	period := core.Period(p.Get("period"))
	if period == "" {
		period = core.MonthlyPeriod
	}
	in := core.BudgetInput{Category: p.Get("category"), Limit: limit, Period: period, Currency: cur}
	return in, in.Validate()
}

// ParseGoalForm builds a goal body. An empty current amount means zero.
func ParseGoalForm(p *RequestBodyParser, cur core.Currency) (core.GoalInput, error) {
	target, err := core.ParseAmount(p.Get("target_amount"))
	if err != nil {
		return core.GoalInput{}, err
	}
	var current float64
	if v := p.Get("current_amount"); v != "" && !isZero(v) {
		if current, err = core.ParseAmount(v); err != nil {
			return core.GoalInput{}, err
		}
	}
	deadline, err := core.ParseDay(p.Get("deadline"))
	if err != nil {
		return core.GoalInput{}, core.ErrInvalidDeadline
	}
	in := core.GoalInput{Name: p.Get("name"), TargetAmount: target, CurrentAmount: current, Deadline: deadline, Currency: cur}
	return in, in.Validate()
}

func isZero(s string) bool {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return err == nil && f == 0
}

// ParseSettingsForm reads currency and theme.
func ParseSettingsForm(p *RequestBodyParser) (core.Settings, error) {
	s := core.Settings{
		Currency: core.Currency(strings.ToUpper(p.Get("currency"))),
		Theme:    core.Theme(strings.ToLower(p.Get("theme"))),
	}
	return s, s.Validate()
}

// ParseExpenseFilter reads category, start and end from a query string.
func ParseExpenseFilter(q url.Values) (core.ExpenseFilter, error) {
	r, err := ParseDateRange(q)
	if err != nil {
		return core.ExpenseFilter{}, err
	}
	return core.ExpenseFilter{
		Category:  sanitizeInput(q.Get("category")),
		StartDate: r.Start,
		EndDate:   r.End,
	}, nil
}

// ParseDateRange reads optional start and end dates (YYYY-MM-DD).
func ParseDateRange(q url.Values) (core.DateRange, error) {
	var r core.DateRange
	var err error
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		if r.Start, err = core.ParseDay(v); err != nil {
			return r, badRequest("invalid start date %q", v)
		}
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		if r.End, err = core.ParseDay(v); err != nil {
			return r, badRequest("invalid end date %q", v)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start.Time) {
		return r, badRequest("end date is before start date")
	}
	return r, nil
}

// pathID reads the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
