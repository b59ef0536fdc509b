package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady loads the configured dataset to verify the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.svc == nil {
		checks["dataset"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if opts, err := s.svc.Years(ctx, ""); err != nil {
		checks["dataset"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]any{"status": "ok", "years": len(opts.Years)}
	}

	uploads := 0
	if s.uploads != nil {
		uploads = s.uploads.Len()
	}
	checks["uploads"] = map[string]any{"entries": uploads, "status": "ok"}
	checks["chart_cache"] = map[string]any{"entries": s.charts.Size(), "status": "ok"}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients(), "status": "ok"}
	if s.publisher != nil {
		checks["imports"] = "ok"
	} else {
		checks["imports"] = "not_configured"
	}

	NewResponse().
		Status(httpStatus).
		JSON(map[string]any{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	uploads := 0
	if s.uploads != nil {
		uploads = s.uploads.Len()
	}

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_failed_total", "counter", "HTTP requests answered with a 5xx status", traceMetrics.FailedRequests)
	metric("http_response_time_microseconds", "gauge", "Moving average of the response time", traceMetrics.AverageResponseTime)
	metric("dataset_uploads_total", "counter", "Datasets uploaded since start", atomic.LoadInt64(&s.appMetrics.uploads))
	metric("dataset_uploads_stored", "gauge", "Uploaded datasets currently held", uploads)
	metric("import_requests_total", "counter", "Import requests published", atomic.LoadInt64(&s.appMetrics.imports))
	metric("chart_cache_hits_total", "counter", "Chart cache hits", atomic.LoadInt64(&s.appMetrics.chartHits))
	metric("chart_cache_misses_total", "counter", "Chart cache misses", atomic.LoadInt64(&s.appMetrics.chartMisses))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
