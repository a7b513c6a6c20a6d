package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"spendview/internal/backend/rest"
	"spendview/internal/core"
	applog "spendview/internal/log"
	"spendview/internal/services"
)

type fakeBackend struct {
	mu       sync.Mutex
	reads    map[string]int
	err      error
	settings core.Settings
	expenses []core.Expense
	goals    map[int64]core.Goal
	created  []core.ExpenseInput
	creds    []rest.Credentials
}

func (f *fakeBackend) seen(ctx context.Context) {
	f.mu.Lock()
	f.creds = append(f.creds, rest.CredentialsFrom(ctx))
	f.mu.Unlock()
}

func (f *fakeBackend) ListExpenses(ctx context.Context, _ core.ExpenseFilter) ([]core.Expense, error) {
	f.seen(ctx)
	return f.expenses, f.err
}

func (f *fakeBackend) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	for _, e := range f.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, rest.ErrNotFound
}

func (f *fakeBackend) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	f.seen(ctx)
	if f.err != nil {
		return core.Expense{}, f.err
	}
	f.mu.Lock()
	f.created = append(f.created, in)
	f.mu.Unlock()
	return core.Expense{ID: 10, Amount: in.Amount, Category: in.Category}, nil
}

func (f *fakeBackend) UpdateExpense(_ context.Context, id int64, in core.ExpenseInput) (core.Expense, error) {
	return core.Expense{ID: id, Amount: in.Amount}, f.err
}

func (f *fakeBackend) DeleteExpense(context.Context, int64) error { return f.err }

func (f *fakeBackend) ListBudgets(context.Context) ([]core.Budget, error) {
	return []core.Budget{{ID: 1, Category: "Food", Limit: 100, Period: core.MonthlyPeriod}}, f.err
}

func (f *fakeBackend) CreateBudget(_ context.Context, in core.BudgetInput) (core.Budget, error) {
	return core.Budget{ID: 2, Category: in.Category}, f.err
}

func (f *fakeBackend) DeleteBudget(context.Context, int64) error { return f.err }

func (f *fakeBackend) BudgetStatus(context.Context) ([]core.BudgetStatus, error) {
	return []core.BudgetStatus{{ID: 1, Category: "Food", Limit: 100, Spent: 120, Percentage: 120, IsExceeded: true}}, f.err
}

func (f *fakeBackend) ListGoals(context.Context) ([]core.Goal, error) {
	var out []core.Goal
	for _, g := range f.goals {
		out = append(out, g)
	}
	return out, f.err
}

func (f *fakeBackend) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	if g, ok := f.goals[id]; ok {
		return g, nil
	}
	return core.Goal{}, rest.ErrNotFound
}

func (f *fakeBackend) CreateGoal(_ context.Context, in core.GoalInput) (core.Goal, error) {
	return core.Goal{ID: 5, Name: in.Name}, f.err
}

func (f *fakeBackend) UpdateGoal(_ context.Context, id int64, in core.GoalInput) (core.Goal, error) {
	return core.Goal{ID: id, Name: in.Name, TargetAmount: in.TargetAmount, CurrentAmount: in.CurrentAmount}, f.err
}

func (f *fakeBackend) DeleteGoal(context.Context, int64) error { return f.err }

func (f *fakeBackend) Settings(context.Context) (core.Settings, error) {
	return f.settings, f.err
}

func (f *fakeBackend) UpdateSettings(_ context.Context, s core.Settings) (core.Settings, error) {
	return s, f.err
}

func (f *fakeBackend) read(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reads == nil {
		f.reads = map[string]int{}
	}
	f.reads[endpoint]++
}

func (f *fakeBackend) Analytics(context.Context, core.DateRange) (core.Analytics, error) {
	f.read("analytics")
	return core.Analytics{
		Total:             30,
		Count:             2,
		CategoryBreakdown: []core.CategoryTotal{{Category: f.expenses[0].Category, Total: 30, Count: 2}},
		WeeklyBreakdown:   map[string]float64{"23": 30},
	}, f.err
}

func newFake() *fakeBackend {
	return &fakeBackend{
		settings: core.Settings{Currency: core.EUR, Theme: core.Light},
		expenses: []core.Expense{
			{ID: 1, Amount: 12.5, Category: "Food", Notes: "lunch", Date: core.Timestamp{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}},
			{ID: 2, Amount: 1200, Category: "Rent", Date: core.Timestamp{Time: time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)}},
		},
		goals: map[int64]core.Goal{
			7: {ID: 7, Name: "Bike", TargetAmount: 100, CurrentAmount: 90, Deadline: core.NewDay(2030, 1, 1), Currency: core.EUR},
		},
	}
}

func newTestServer(t *testing.T, b *fakeBackend, opts Options) *Server {
	t.Helper()
	logger := applog.New(applog.Config{Level: slog.LevelError, Output: &bytes.Buffer{}})
	opts.Logger = logger
	srv, err := NewServer(":0", services.NewTracker(b, nil, logger), opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.now = func() time.Time { return time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, form url.Values, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, m := range mutate {
		m(req)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func triggers(t *testing.T, rr *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := rr.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatalf("HX-Trigger header not set (status %d, body %q)", rr.Code, rr.Body.String())
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	return out
}

func TestIndexRendersShell(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/?view=goals", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`class="theme-light"`, `hx-get="/ui/goals"`, "Dashboard", "Settings", `nav-link active`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id not set")
	}
}

func TestIndexUnknownViewFallsBackToDashboard(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/?view=nope", nil)
	if !strings.Contains(rr.Body.String(), `hx-get="/ui/dashboard"`) {
		t.Fatalf("expected dashboard preselected")
	}
}

func TestViewPartials(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	cases := map[string][]string{
		"dashboard": {"Recent expenses", "€1,212.50", "level-exceeded", "dashboard:refresh from:body"},
		"expenses":  {"Rent", "€1,200.00", "lunch", "/expenses/1/delete", "format=pdf"},
		"analytics": {"categoryChart", `<script type="application/json" class="chart-data">`, "Week 23", "2 transactions"},
		"budgets":   {"Monthly Budget", "120.0%", "width: 100.0%"},
		"goals":     {"Bike", "90%", "/goals/7/contribute"},
		"settings":  {"Euro", `value="light" selected`},
	}
	for view, wants := range cases {
		t.Run(view, func(t *testing.T) {
			rr := do(srv, http.MethodGet, "/ui/"+view, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			for _, want := range wants {
				if !strings.Contains(rr.Body.String(), want) {
					t.Errorf("%s partial missing %q", view, want)
				}
			}
		})
	}

	if rr := do(srv, http.MethodGet, "/ui/reports", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown view status=%d, want 404", rr.Code)
	}
}

func TestViewFailureRendersPlaceholder(t *testing.T) {
	b := newFake()
	b.err = errors.New("dial tcp: connection refused")
	srv := newTestServer(t, b, Options{})

	rr := do(srv, http.MethodGet, "/ui/expenses?category=Food", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200 so the shell swaps the placeholder", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Could not load Expenses") || !strings.Contains(body, "Retry") {
		t.Fatalf("placeholder missing: %s", body)
	}

	metrics := do(srv, http.MethodGet, "/metrics", nil).Body.String()
	if !strings.Contains(metrics, "view_failures_total 1") {
		t.Errorf("view failure not counted:\n%s", metrics)
	}
}

func TestBadFilterRendersPlaceholder(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/ui/analytics?start=yesterday", nil)
	if !strings.Contains(rr.Body.String(), "invalid start date") {
		t.Fatalf("expected parse message, got %s", rr.Body.String())
	}
}

func TestCreateExpense(t *testing.T) {
	b := newFake()
	srv := newTestServer(t, b, Options{})

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"abc"}, "category": {"Food"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid amount status=%d, want 422", rr.Code)
	}
	if _, ok := triggers(t, rr)["show-notification"]; !ok {
		t.Error("error notification missing")
	}

	for _, amount := range []string{"1e400", "1e3", "NaN"} {
		rr = do(srv, http.MethodPost, "/expenses", url.Values{"amount": {amount}, "category": {"Food"}})
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("amount %q status=%d, want 422", amount, rr.Code)
		}
	}
	if len(b.created) != 0 {
		t.Fatalf("invalid amounts reached the backend: %+v", b.created)
	}

	rr = do(srv, http.MethodPost, "/expenses", url.Values{"amount": {"12,50"}, "category": {""}})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Category is required") {
		t.Fatalf("empty category status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = do(srv, http.MethodPost, "/expenses", url.Values{
		"amount":              {"12,50"},
		"category":            {"Food"},
		"is_recurring":        {"on"},
		"recurring_frequency": {"weekly"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%q", rr.Code, rr.Body.String())
	}
	tr := triggers(t, rr)
	for _, want := range []string{"form:reset", "show-notification", "dashboard:refresh", "expenses:refresh", "analytics:refresh", "budgets:refresh"} {
		if _, ok := tr[want]; !ok {
			t.Errorf("HX-Trigger missing %q", want)
		}
	}
	if _, ok := tr["goals:refresh"]; ok {
		t.Error("expense mutation must not refresh goals")
	}

	in := b.created[0]
	if in.Amount != 12.5 || in.Currency != core.EUR || in.RecurringFrequency == nil || *in.RecurringFrequency != core.Weekly {
		t.Errorf("unexpected input %+v", in)
	}
}

func TestMutationForwardsCredentialsAndChecksCSRF(t *testing.T) {
	b := newFake()
	srv := newTestServer(t, b, Options{})
	form := url.Values{"amount": {"5"}, "category": {"Coffee"}}
	cookies := func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: rest.SessionCookie, Value: "sess"})
		r.AddCookie(&http.Cookie{Name: rest.CSRFCookie, Value: "tok"})
	}

	rr := do(srv, http.MethodPost, "/expenses", form, cookies, func(r *http.Request) {
		r.Header.Set(rest.CSRFHeader, "other")
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("mismatched token status=%d, want 403", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/expenses", form, cookies, func(r *http.Request) {
		r.Header.Set(rest.CSRFHeader, "tok")
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	last := b.creds[len(b.creds)-1]
	if last.SessionID != "sess" || last.CSRFToken != "tok" {
		t.Errorf("credentials not forwarded: %+v", last)
	}
}

func TestBackendErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{rest.ErrUnauthorized, http.StatusUnauthorized},
		{rest.ErrMissingCSRFToken, http.StatusUnauthorized},
		{rest.ErrNotFound, http.StatusNotFound},
		{&rest.ValidationError{Fields: map[string][]string{"amount": {"too big"}}}, http.StatusUnprocessableEntity},
		{&rest.StatusError{Method: "DELETE", Path: "/api/goals/1/", Code: 500}, http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusBadGateway},
		{fmt.Errorf("list: %w", rest.ErrResponseTooLarge), http.StatusBadGateway},
	}
	for _, tc := range cases {
		b := newFake()
		b.err = tc.err
		srv := newTestServer(t, b, Options{})

		rr := do(srv, http.MethodDelete, "/goals/1/delete", nil)
		if rr.Code != tc.want {
			t.Errorf("%v: status=%d, want %d", tc.err, rr.Code, tc.want)
		}
		if !strings.Contains(rr.Body.String(), `class="error"`) {
			t.Errorf("%v: error fragment missing", tc.err)
		}
		if errors.Is(tc.err, rest.ErrResponseTooLarge) && !strings.Contains(rr.Body.String(), "more data") {
			t.Errorf("oversized response shown as %q", rr.Body.String())
		}
	}
}

func TestDeleteRoutesAcceptPostAndDelete(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		rr := do(srv, method, "/budgets/1/delete", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", method, rr.Code)
		}
		tr := triggers(t, rr)
		if _, ok := tr["budgets:refresh"]; !ok {
			t.Errorf("%s: budgets:refresh missing", method)
		}
	}
	if rr := do(srv, http.MethodGet, "/budgets/1/delete", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status=%d, want 405", rr.Code)
	}
	if rr := do(srv, http.MethodPost, "/budgets/abc/delete", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status=%d, want 400", rr.Code)
	}
}

func TestContributeToGoal(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodPost, "/goals/7/contribute", url.Values{"amount": {"10"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if !strings.Contains(string(triggers(t, rr)["show-notification"]), "Bike reached!") {
		t.Errorf("unexpected notification %s", triggers(t, rr)["show-notification"])
	}

	rr = do(srv, http.MethodPost, "/goals/99/contribute", url.Values{"amount": {"10"}})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing goal status=%d", rr.Code)
	}
}

func TestSaveSettingsRefreshesEverything(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodPost, "/settings", url.Values{"currency": {"usd"}, "theme": {"dark"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	tr := triggers(t, rr)
	for _, view := range []string{"dashboard", "expenses", "analytics", "budgets", "goals", "settings"} {
		if _, ok := tr[view+":refresh"]; !ok {
			t.Errorf("missing %s:refresh", view)
		}
	}
	if !strings.Contains(string(tr["theme:changed"]), `"dark"`) {
		t.Errorf("theme:changed = %s", tr["theme:changed"])
	}

	rr = do(srv, http.MethodPost, "/settings", url.Values{"currency": {"JPY"}, "theme": {"dark"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown currency status=%d", rr.Code)
	}
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/export?format=csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "expenses_2025-06-30.csv") {
		t.Errorf("Content-Disposition = %q", got)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if lines[0] != "Date,Category,Amount,Notes" || lines[1] != "2025-06-03,Rent,1200.00," {
		t.Errorf("csv = %q", lines)
	}

	if rr := do(srv, http.MethodGet, "/export?format=pdf", nil); rr.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("pdf content type = %q", rr.Header().Get("Content-Type"))
	}
	if rr := do(srv, http.MethodGet, "/export?format=xml", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown format status=%d", rr.Code)
	}
}

func TestAnalyticsCharts(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/ui/analytics/charts?start=2025-06-01", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var set map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, id := range []string{"categoryChart", "trendChart", "weeklyChart"} {
		if _, ok := set[id]; !ok {
			t.Errorf("missing %s", id)
		}
	}
	if !strings.Contains(string(set["weeklyChart"]), "Week 23") {
		t.Errorf("weekly labels: %s", set["weeklyChart"])
	}
}

func TestAnalyticsViewEmbedsCharts(t *testing.T) {
	b := newFake()
	b.expenses[0].Category = "</script><b>x"
	srv := newTestServer(t, b, Options{})

	rr := do(srv, http.MethodGet, "/ui/analytics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if n := b.reads["analytics"]; n != 1 {
		t.Errorf("analytics read %d times, want 1", n)
	}
	body := rr.Body.String()
	start := strings.Index(body, `class="chart-data">`)
	if start < 0 {
		t.Fatalf("chart data block missing: %s", body)
	}
	end := strings.Index(body[start:], "</script>")
	if end < 0 {
		t.Fatalf("chart data block not closed: %s", body)
	}
	raw := body[start+len(`class="chart-data">`) : start+end]
	var set map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("embedded charts are not JSON: %v\n%s", err, raw)
	}
	if _, ok := set["trendChart"]; !ok {
		t.Errorf("trendChart missing from %s", raw)
	}
}

func TestEditExpenseForm(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/ui/expenses/1/edit", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `hx-post="/expenses/1"`) {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if rr := do(srv, http.MethodGet, "/ui/expenses/42/edit", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing expense status=%d", rr.Code)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	b := newFake()
	srv := newTestServer(t, b, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}

	b.err = rest.ErrUnauthorized
	if rr := do(srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusOK {
		t.Errorf("readyz with auth error status=%d, want 200", rr.Code)
	}
	b.err = errors.New("connection refused")
	if rr := do(srv, http.MethodGet, "/readyz", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with dead backend status=%d", rr.Code)
	}

	body := do(srv, http.MethodGet, "/metrics", nil).Body.String()
	for _, want := range []string{"http_requests_total", `mutations_total{entity="expense"} 0`, "uptime_seconds"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{RateLimitPerMinute: 1})
	form := url.Values{"amount": {"5"}, "category": {"Coffee"}}

	if rr := do(srv, http.MethodPost, "/expenses", form); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := do(srv, http.MethodPost, "/expenses", form)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("Retry-After missing")
	}
	if rr := do(srv, http.MethodGet, "/ui/dashboard", nil); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	if rr := do(srv, http.MethodGet, "/.env", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, newFake(), Options{})

	rr := do(srv, http.MethodGet, "/static/app.js", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "X-CSRFToken") {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}
