// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assettrack-notifier/internal/common/config"
	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/common/observability"
	expirationscan "assettrack-notifier/internal/jobs/expiration-scan"
	weeklydigest "assettrack-notifier/internal/jobs/weekly-digest"
)

// ScanRunner executes one expiration scan.
type ScanRunner interface {
	Run(ctx context.Context) *expirationscan.Result
}

// DigestRunner executes one weekly digest.
type DigestRunner interface {
	Run(ctx context.Context) *weeklydigest.Result
}

// Locker serializes job invocations across instances.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// Alerter publishes a run-failure summary to the ops channel. Optional.
type Alerter interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the job trigger endpoints. Both triggers are invoked by
// an external scheduler; the server itself never schedules anything.
type Server struct {
	cfg    *config.Config
	scan   ScanRunner
	digest DigestRunner
	locks  Locker
	alerts Alerter
	obs    *observability.Observability
	db     Pinger
	log    logger.Logger
	router chi.Router
	server *http.Server
}

func New(cfg *config.Config, scan ScanRunner, digest DigestRunner, locks Locker, db Pinger, log logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		scan:   scan,
		digest: digest,
		locks:  locks,
		db:     db,
		log:    log,
		router: chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.GetDuration(cfg.Server.RequestTimeout) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// WithAlerter attaches the failure alert publisher.
func (s *Server) WithAlerter(alerts Alerter) *Server {
	s.alerts = alerts
	return s
}

// WithObservability attaches the OpenTelemetry run recorder.
func (s *Server) WithObservability(obs *observability.Observability) *Server {
	s.obs = obs
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(config.GetDuration(s.cfg.Server.RequestTimeout)))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/jobs", func(r chi.Router) {
		r.Post("/expiration-scan", s.handleExpirationScan)
		r.Post("/weekly-digest", s.handleWeeklyDigest)
	})
}

// ListenAndServe starts the server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening", map[string]interface{}{
		"addr": s.server.Addr,
	})
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
