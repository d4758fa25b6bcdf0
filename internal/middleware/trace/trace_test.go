package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"pointsledger/internal/log"
)

func TestHandlerLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf, Component: log.ComponentHTTP})

	m := NewMiddleware(func(*http.Request) string { return "203.0.113.9" })
	h := middleware.RequestID(log.Middleware(logger, nil)(m.Handler(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/attendance", nil))

	out := buf.String()
	for _, want := range []string{
		"HTTP request started",
		"HTTP request completed",
		"level=WARN",
		"status_code=409",
		"client_ip=203.0.113.9",
		"request_id=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if got := m.Metrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestLevelFor(t *testing.T) {
	tests := map[int]slog.Level{
		200: slog.LevelInfo,
		404: slog.LevelWarn,
		503: slog.LevelError,
	}
	for status, want := range tests {
		if got := levelFor(status); got != want {
			t.Errorf("levelFor(%d) = %v, want %v", status, got, want)
		}
	}
}
