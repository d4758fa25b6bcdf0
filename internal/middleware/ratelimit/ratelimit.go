package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pointsledger/internal/log"
)

// Limiter counts requests per client in fixed one-minute windows.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	now     func() time.Time
	logger  *log.Logger

	limit      int
	staleAfter time.Duration

	hits         int64
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type window struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// StaleAfter drops clients idle for longer than this.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		StaleAfter:        10 * time.Minute,
	}
}

// NewLimiter starts a limiter with its cleanup goroutine. Call Stop to end it.
func NewLimiter(cfg Config, logger *log.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if logger == nil {
		logger = log.Discard()
	}
	l := &Limiter{
		clients:     make(map[string]*window),
		now:         time.Now,
		logger:      logger.WithComponent(log.ComponentRateLimit),
		limit:       cfg.RequestsPerMinute,
		staleAfter:  cfg.StaleAfter,
		stopCleanup: make(chan struct{}),
	}
	go l.runCleanup(cfg.CleanupInterval)
	return l
}

// Allow records one request from client and reports whether it is within
// the limit.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[client]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.clients[client] = &window{start: now, requests: 1}
		return true
	}
	w.requests++
	if w.requests > l.limit {
		atomic.AddInt64(&l.hits, 1)
		return false
	}
	return true
}

func (l *Limiter) runCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := l.removeStale(); n > 0 {
				l.logger.Debug("Rate limiter cleanup", "removed", n)
			}
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) removeStale() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.staleAfter)
	removed := 0
	for client, w := range l.clients {
		if w.start.Before(cutoff) {
			delete(l.clients, client)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() { close(l.stopCleanup) })
}

// Metrics for the readiness report.
type Metrics struct {
	Rejected int64
	Clients  int
}

func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	clients := len(l.clients)
	l.mu.Unlock()
	return Metrics{Rejected: atomic.LoadInt64(&l.hits), Clients: clients}
}

// Middleware rejects over-limit requests with 429. onLimit, when set,
// writes the response instead of the plain-text default.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r)
			if l.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, ip,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
