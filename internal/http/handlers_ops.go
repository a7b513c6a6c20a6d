package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"spendview/internal/backend/rest"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.uptime).String(),
	})
}

// handleReady checks templates and that the backend answers. A 401/403 from
// the backend still proves it is up.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.tracker.Ping(ctx); err != nil && !errors.Is(err, rest.ErrUnauthorized) {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()
	uptime := time.Since(s.metrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_errors_total HTTP responses by error class\n")
	fmt.Fprintf(w, "# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total{class=\"4xx\"} %d\n", traceMetrics.ClientErrors)
	fmt.Fprintf(w, "http_errors_total{class=\"5xx\"} %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_ms Mean response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_ms gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_ms %.3f\n\n", float64(traceMetrics.AverageResponseTime().Microseconds())/1000)

	fmt.Fprintf(w, "# HELP mutations_total Mutations accepted by the backend\n")
	fmt.Fprintf(w, "# TYPE mutations_total counter\n")
	entities := make([]string, 0, len(s.metrics.mutations))
	for entity := range s.metrics.mutations {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	for _, entity := range entities {
		fmt.Fprintf(w, "mutations_total{entity=%q} %d\n", entity, atomic.LoadInt64(s.metrics.mutations[entity]))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP view_failures_total Views rendered as an error placeholder\n")
	fmt.Fprintf(w, "# TYPE view_failures_total counter\n")
	fmt.Fprintf(w, "view_failures_total %d\n\n", atomic.LoadInt64(&s.metrics.viewFailures))

	fmt.Fprintf(w, "# HELP exports_total Expense exports served\n")
	fmt.Fprintf(w, "# TYPE exports_total counter\n")
	fmt.Fprintf(w, "exports_total %d\n\n", atomic.LoadInt64(&s.metrics.exports))

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP invalid_ip_attempts_total Unparseable client addresses\n")
	fmt.Fprintf(w, "# TYPE invalid_ip_attempts_total counter\n")
	fmt.Fprintf(w, "invalid_ip_attempts_total %d\n\n", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
