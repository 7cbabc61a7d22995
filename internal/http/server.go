// Package http exposes the lookup API, the refresh and change event triggers
// and the operational endpoints.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/config"
	"github.com/andygrunwald/fuelprices/internal/lookup"
	"github.com/andygrunwald/fuelprices/internal/memo"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/notifier"
	"github.com/andygrunwald/fuelprices/internal/queue"
	"github.com/andygrunwald/fuelprices/internal/scheduler"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

// Fetcher fetches every fuel type and reports per fuel type fetch state.
type Fetcher interface {
	FetchAll(ctx context.Context) error
	Status() map[models.FuelType]models.FetchStatus
}

// Reconciler rebuilds the hot store tiers of every fuel type.
type Reconciler interface {
	ReconcileAll(ctx context.Context) error
}

// Store is a storage backend reported on /status.
type Store struct {
	Driver string
	Pinger storage.Pinger
}

// Deps holds everything the handlers depend on. Scheduler, Stores and
// Gatherer are optional.
type Deps struct {
	Config     config.HTTPConfig
	Lookup     *lookup.Service
	Memo       *memo.Cache
	Fetcher    Fetcher
	Reconciler Reconciler
	Notifier   notifier.Handler
	Runner     *queue.Runner
	Scheduler  *scheduler.Scheduler
	Stores     map[string]Store
	Gatherer   prometheus.Gatherer
	Logger     zerolog.Logger
}

// Server represents the HTTP server of the fuel price service.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	deps      Deps
	logger    zerolog.Logger
	startTime time.Time
	hostStats func(ctx context.Context) (*models.SystemStatus, error)
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		logger:    deps.Logger.With().Str("component", "http").Logger(),
		startTime: time.Now(),
		hostStats: hostStats,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         deps.Config.Addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(deps.Config.ReadTimeout, 10*time.Second),
		WriteTimeout: orDefault(deps.Config.WriteTimeout, 30*time.Second),
		IdleTimeout:  orDefault(deps.Config.IdleTimeout, 60*time.Second),
	}

	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(orDefault(s.deps.Config.WriteTimeout, 30*time.Second)))

	origins := s.deps.Config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleGetPrices)
	s.router.Get("/prices/all", s.handleGetAllPrices)
	s.router.Post("/refresh", s.handleRefresh)
	s.router.Post("/events/price-change", s.handlePriceChange)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
