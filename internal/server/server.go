package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/internal/otel"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxBodyBytes = 10 << 20
)

// Server exposes sanitization over HTTP.
type Server struct {
	router       *chi.Mux
	sanitizer    *sanitizer.Sanitizer
	recorder     *ledger.Recorder
	store        *ledger.Store
	limiter      *RateLimiter
	apiKeys      []string
	maxBodyBytes int64
	seeded       bool
	startTime    time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithLedger records every successful run and enables GET /v1/runs.
func WithLedger(store *ledger.Store) Option {
	return func(s *Server) {
		s.store = store
		s.recorder = ledger.NewRecorder(store)
	}
}

// WithRateLimiter limits authenticated requests.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithMaxBodyBytes caps request documents.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

// WithSeeded marks runs in the ledger as produced by a seeded generator.
func WithSeeded(seeded bool) Option {
	return func(s *Server) { s.seeded = seeded }
}

// NewServer builds a Server. With no API keys the API is open.
func NewServer(san *sanitizer.Sanitizer, apiKeys []string, opts ...Option) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		sanitizer:    san,
		apiKeys:      apiKeys,
		maxBodyBytes: defaultMaxBodyBytes,
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/v1/sanitize", s.handleSanitize)
		r.Post("/v1/scan", s.handleScan)
		if s.store != nil {
			r.Get("/v1/runs", s.handleRunsList)
			r.Get("/v1/runs/{id}/verify", s.handleRunVerify)
		}
	})
	return r
}
