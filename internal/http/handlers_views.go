package http

import (
	"errors"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"spendview/internal/charts"
	"spendview/internal/core"
	applog "spendview/internal/log"
	"spendview/internal/views"
)

type shellPage struct {
	Nav      []views.NavItem
	Active   views.View
	Settings core.Settings
}

// viewPage is what every view partial receives.
type viewPage struct {
	View views.View
	Data any
	Now  time.Time
}

// viewErrorPage feeds the inline placeholder shown when a view cannot load.
type viewErrorPage struct {
	View    views.View
	Message string
	Query   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	active := s.router.Resolve(r.URL.Query().Get("view"))
	data := shellPage{
		Nav:      s.router.Nav(string(active.Name)),
		Active:   active,
		Settings: s.tracker.DisplaySettings(r.Context()),
	}
	s.render(w, r, http.StatusOK, "index", data)
}

// handleView renders one of the six view partials. A view whose data cannot
// be loaded still answers 200 with an inline placeholder so the shell swaps it.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.router.Lookup(r.PathValue("view"))
	if !ok {
		ErrorResponse(http.StatusNotFound, "Unknown view").Write(w)
		return
	}

	data, err := s.viewData(r, v.Name)
	if err != nil {
		s.renderViewError(w, r, v, err)
		return
	}
	s.render(w, r, http.StatusOK, v.Partial, viewPage{View: v, Data: data, Now: s.now()})
}

func (s *Server) viewData(r *http.Request, name views.Name) (any, error) {
	ctx := r.Context()
	q := r.URL.Query()
	switch name {
	case views.Dashboard:
		return s.tracker.Dashboard(ctx, s.now())
	case views.Expenses:
		filter, err := ParseExpenseFilter(q)
		if err != nil {
			return nil, err
		}
		return s.tracker.Expenses(ctx, filter)
	case views.Analytics:
		rng, err := ParseDateRange(q)
		if err != nil {
			return nil, err
		}
		return s.tracker.Analytics(ctx, rng)
	case views.Budgets:
		return s.tracker.Budgets(ctx)
	case views.Goals:
		return s.tracker.Goals(ctx)
	case views.Settings:
		return s.tracker.Settings(ctx)
	}
	return nil, errors.New("unhandled view " + string(name))
}

func (s *Server) renderViewError(w http.ResponseWriter, r *http.Request, v views.View, err error) {
	f := classify(err)
	atomic.AddInt64(&s.metrics.viewFailures, 1)
	s.structured.LogViewFailure(r.Context(), string(v.Name), err, f.errorType)

	s.render(w, r, http.StatusOK, "view_error", viewErrorPage{
		View:    v,
		Message: f.message,
		Query:   r.URL.RawQuery,
	})
}

// handleAnalyticsCharts returns the Chart.js configurations for the range.
func (s *Server) handleAnalyticsCharts(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, applog.OpRead)
		return
	}
	data, err := s.tracker.Analytics(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, applog.OpRead)
		return
	}
	body, err := data.Charts.JSON()
	if err != nil {
		s.writeError(w, r, err, applog.OpRender)
		return
	}
	NewHTMXResponse().JSON(body).Write(w)
}

type editPage struct {
	Expense     core.Expense
	Frequencies []core.Frequency
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err, applog.OpRead)
		return
	}
	e, err := s.tracker.Expense(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "expense_edit", editPage{
		Expense:     e,
		Frequencies: []core.Frequency{core.Daily, core.Weekly, core.Monthly},
	})
}

// chartsJSON embeds the chart set in the analytics partial, so entering the
// view costs one backend round. encoding/json escapes <, > and &, which keeps
// user labels from closing the script element.
func chartsJSON(set charts.Set) (template.JS, error) {
	body, err := set.JSON()
	if err != nil {
		return "", err
	}
	return template.JS(body), nil
}
