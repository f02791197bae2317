package http

import (
	"fmt"
	"net/http"
	"time"

	applog "healthdash/internal/log"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once a dataset is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
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

	snap, err := s.dataset.Snapshot()
	if err != nil {
		checks["dataset"] = "not_loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]interface{}{
			"status":    "ok",
			"source":    snap.Info.Source,
			"import_id": snap.Info.ImportID,
			"records":   snap.Table.Len(),
			"loaded_at": snap.Info.LoadedAt.UTC().Format(time.RFC3339),
		}
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	if httpStatus != http.StatusOK {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Readiness check failed", "checks", checks)
	}
	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	records, loaded := 0, 0
	if snap, err := s.dataset.Snapshot(); err == nil {
		records, loaded = snap.Table.Len(), 1
	}

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value interface{}) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_ms", "gauge", "Average response time in milliseconds", traceMetrics.AverageResponseTime.Milliseconds())
	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	metric("rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("dataset_loaded", "gauge", "1 when a dataset is loaded", loaded)
	metric("dataset_records", "gauge", "Records in the loaded dataset", records)

	fmt.Fprintf(w, "# HELP view_cache_hits_total View cache hits\n# TYPE view_cache_hits_total counter\n")
	for _, c := range s.viewCaches() {
		hits, _ := c.stats()
		fmt.Fprintf(w, "view_cache_hits_total{view=%q} %d\n", c.name, hits)
	}
	fmt.Fprintf(w, "\n# HELP view_cache_misses_total View cache misses\n# TYPE view_cache_misses_total counter\n")
	for _, c := range s.viewCaches() {
		_, misses := c.stats()
		fmt.Fprintf(w, "view_cache_misses_total{view=%q} %d\n", c.name, misses)
	}
	fmt.Fprintf(w, "\n# HELP view_cache_entries Current view cache entries\n# TYPE view_cache_entries gauge\n")
	for _, c := range s.viewCaches() {
		fmt.Fprintf(w, "view_cache_entries{view=%q} %d\n", c.name, c.size())
	}
}

type namedCache struct {
	name  string
	stats func() (uint64, uint64)
	size  func() int
}

func (s *Server) viewCaches() []namedCache {
	return []namedCache{
		{"map", s.mapCache.Stats, s.mapCache.Size},
		{"top", s.topCache.Stats, s.topCache.Size},
		{"trend", s.trendCache.Stats, s.trendCache.Size},
	}
}
