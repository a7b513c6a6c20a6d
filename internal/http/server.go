package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"spendview/internal/backend/rest"
	applog "spendview/internal/log"
	"spendview/internal/middleware/ratelimit"
	"spendview/internal/middleware/security"
	"spendview/internal/middleware/trace"
	"spendview/internal/services"
	"spendview/internal/views"
	appweb "spendview/web"
)

// Options tune the server's middleware.
type Options struct {
	RateLimitPerMinute int
	Logger             *applog.Logger
}

// Server serves the shell page, view partials, form handlers and exports.
type Server struct {
	http.Server
	tracker    *services.Tracker
	router     *views.Router
	templates  *template.Template
	logger     *applog.Logger
	structured *applog.StructuredLogger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	metrics  *appMetrics
	now      func() time.Time

	shutdownOnce sync.Once
}

// appMetrics counts what the operational endpoints report.
type appMetrics struct {
	uptime       time.Time
	mutations    map[string]*int64
	viewFailures int64
	exports      int64
}

func newAppMetrics() *appMetrics {
	m := &appMetrics{uptime: time.Now(), mutations: map[string]*int64{}}
	for _, entity := range []string{"expense", "budget", "goal", "settings"} {
		m.mutations[entity] = new(int64)
	}
	return m
}

func (m *appMetrics) mutated(entity string) {
	if c, ok := m.mutations[entity]; ok {
		atomic.AddInt64(c, 1)
	}
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(addr string, tracker *services.Tracker, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	t, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		tracker:    tracker,
		router:     views.NewRouter(),
		templates:  t,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
		detector:   security.NewDetector(),
		limiter:    ratelimit.NewLimiter(limitCfg),
		metrics:    newAppMetrics(),
		now:        time.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/{view}", s.handleView)
	mux.HandleFunc("GET /ui/analytics/charts", s.handleAnalyticsCharts)
	mux.HandleFunc("GET /ui/expenses/{id}/edit", s.handleEditExpenseForm)

	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)
	mux.HandleFunc("DELETE /expenses/{id}/delete", s.handleDeleteExpense)

	mux.HandleFunc("POST /budgets", s.handleCreateBudget)
	mux.HandleFunc("POST /budgets/{id}/delete", s.handleDeleteBudget)
	mux.HandleFunc("DELETE /budgets/{id}/delete", s.handleDeleteBudget)

	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("POST /goals/{id}/contribute", s.handleContributeGoal)
	mux.HandleFunc("POST /goals/{id}/delete", s.handleDeleteGoal)
	mux.HandleFunc("DELETE /goals/{id}/delete", s.handleDeleteGoal)

	mux.HandleFunc("POST /settings", s.handleSaveSettings)
	mux.HandleFunc("GET /export", s.handleExport)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = credentialsMiddleware(handler)
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// credentialsMiddleware forwards the browser's backend session to the REST
// client. On mutations the X-CSRFToken header must match the csrftoken cookie.
func credentialsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := rest.CredentialsFromRequest(r)
		if isMutating(r.Method) && creds.CSRFToken != "" {
			header := r.Header.Get(rest.CSRFHeader)
			if subtle.ConstantTimeCompare([]byte(header), []byte(creds.CSRFToken)) != 1 {
				applog.FromContext(r.Context()).WarnContext(r.Context(), "CSRF token mismatch",
					applog.FieldPath, r.URL.Path,
					applog.FieldErrorType, applog.ErrorTypeAuth)
				Failure(http.StatusForbidden, "Security token mismatch. Reload the page.").Write(w)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(rest.WithCredentials(r.Context(), creds)))
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	Failure(http.StatusTooManyRequests, "Too many changes. Try again in a minute.").Write(w)
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
