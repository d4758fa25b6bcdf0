package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pointsledger/internal/cache"
	"pointsledger/internal/core"
	"pointsledger/internal/ledger"
	"pointsledger/internal/log"
	"pointsledger/internal/middleware/ratelimit"
	"pointsledger/internal/middleware/security"
	"pointsledger/internal/middleware/trace"
)

// Ledger is the write side used by the handlers.
type Ledger interface {
	Mutate(ctx context.Context, policy string, mut core.Mutation) (ledger.Result, error)
	CheckIn(ctx context.Context, subjectID string) (ledger.CheckInResult, error)
	ActiveEvent(ctx context.Context) (core.Event, error)
}

// Roster is the read side used by the handlers.
type Roster interface {
	Actors(ctx context.Context, policy string) ([]string, error)
	Balance(ctx context.Context, policy, name string) (core.Actor, error)
	Students(ctx context.Context) ([]string, error)
	Cache() cache.Cleaner
}

// Check is one readiness probe, e.g. a store read or a database ping.
type Check func(ctx context.Context) error

// Options configures NewServer.
type Options struct {
	Addr        string
	CORSOrigins []string
	// RateLimitPerMin limits POSTs per client; 0 disables the limiter.
	RateLimitPerMin   int
	LegacyStatusCodes bool
	ReadyChecks       map[string]Check
	Logger            *log.Logger
}

type Server struct {
	http.Server

	ledger Ledger
	roster Roster
	legacy bool
	checks map[string]Check
	logger *log.Logger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	janitor  *cache.Janitor
	metrics  *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, l Ledger, ro Roster) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:   l,
		roster:   ro,
		legacy:   opts.LegacyStatusCodes,
		checks:   opts.ReadyChecks,
		logger:   logger,
		detector: security.NewDetector(logger),
		janitor:  cache.NewJanitor(logger),
		metrics:  newAppMetrics(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP)
	if opts.RateLimitPerMin > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMin}, logger)
	}
	s.janitor.Register(ro.Cache())
	s.janitor.Start(10 * time.Minute)

	s.Handler = s.routes(opts.CORSOrigins)
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger, func(r *http.Request) string { return middleware.GetReqID(r.Context()) }))
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	// Writes are rate limited; reads are not.
	writes := func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, r, http.StatusTooManyRequests,
					statusBody{Status: statusError, Message: "Rate limit exceeded. Please try again later."})
			}))
		}
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			writes(r)
			r.Post("/points", s.handlePoints(""))
			r.Post("/attendance", s.handleAttendance)
		})
		r.Post("/balance", s.handleBalance(""))
		r.Get("/actors", s.handleActors)
		r.Get("/students", s.handleStudents)
		r.Get("/attendance/active", s.handleActiveEvent)
	})

	// Paths the existing front-end calls.
	r.Route("/.netlify/functions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			writes(r)
			r.Post("/manage-points", s.handlePoints(ledger.PolicyRA))
			r.Post("/log-attendance", s.handleAttendance)
		})
		r.Post("/get-excor-balance", s.handleBalance(ledger.PolicyEXCOR))
		r.Get("/get-ras", s.handleActorsOf(ledger.PolicyRA))
		r.Get("/get-students", s.handleStudents)
	})
	return r
}

// Shutdown stops the background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
