package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

var startedAt = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startedAt).Round(time.Second).String(),
	})
}

// handleReady runs every readiness check with a shared deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, r, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics prints counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	lines := map[string]int64{
		"ledger_mutations_total":        atomic.LoadInt64(&s.metrics.mutations),
		"ledger_mutations_failed_total": atomic.LoadInt64(&s.metrics.mutationsFailed),
		"ledger_checkins_total":         atomic.LoadInt64(&s.metrics.checkIns),
		"ledger_checkins_failed_total":  atomic.LoadInt64(&s.metrics.checkInsFailed),
		"http_requests_total":           s.tracer.Metrics().TotalRequests,
		"http_response_time_avg_us":     s.tracer.Metrics().AverageResponseTime.Microseconds(),
		"security_suspicious_total":     s.detector.SuspiciousCount(),
		"uptime_seconds":                int64(time.Since(startedAt).Seconds()),
	}
	if s.limiter != nil {
		m := s.limiter.Metrics()
		lines["rate_limit_rejected_total"] = m.Rejected
		lines["rate_limit_clients"] = int64(m.Clients)
	}

	keys := make([]string, 0, len(lines))
	for k := range lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, k := range keys {
		fmt.Fprintf(w, "%s %d\n", k, lines[k])
	}
}
