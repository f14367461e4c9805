// Package monitor exposes the optional observability endpoint served
// alongside long-running pipelines.
package monitor

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medialift/internal/catalog"
	"medialift/internal/database"
	"medialift/internal/logging"
	"medialift/internal/metrics"
)

// degradedLatency marks a slow catalog probe as degraded rather than down
const degradedLatency = 200 * time.Millisecond

// checkTimeout caps each dependency probe on /healthz
const checkTimeout = 10 * time.Second

// Pinger reports remote reachability; the remote client implements it
type Pinger interface {
	Ping(ctx context.Context) bool
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status string           `json:"status"`
	DB     DependencyStatus `json:"db"`
	Remote DependencyStatus `json:"remote"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// Server serves /healthz, /metrics, and /api/stats while a run is active.
// Pinger and Metrics may be nil; a nil pinger reports the remote check as
// disabled without affecting the overall status.
type Server struct {
	app     *fiber.App
	manager *database.DatabaseManager
	store   *catalog.Store
	pinger  Pinger
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewServer creates the monitor server and registers its routes
func NewServer(manager *database.DatabaseManager, store *catalog.Store, pinger Pinger, m *metrics.Metrics, logger *logging.Logger) *Server {
	app := fiber.New(fiber.Config{
		ServerHeader:          "Medialift",
		AppName:               "Medialift Monitor",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	server := &Server{
		app:     app,
		manager: manager,
		store:   store,
		pinger:  pinger,
		metrics: m,
		logger:  logger,
	}

	app.Get("/healthz", server.health)
	app.Get("/metrics", server.promMetrics())
	app.Get("/api/stats", server.stats)

	return server
}

// Start listens on addr and blocks until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("listen", addr).Msg("Monitor endpoint listening")
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// health reports catalog and remote reachability with per-dependency latency
func (s *Server) health(c *fiber.Ctx) error {
	dbStatus := s.checkCatalog(c.Context())
	remoteStatus := s.checkRemote(c.Context())

	status := "ok"
	if dbStatus.Status == "down" || remoteStatus.Status == "down" {
		status = "down"
	} else if dbStatus.Status == "degraded" {
		status = "degraded"
	}

	if status == "ok" {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
	c.Set("Cache-Control", "no-store")

	return c.JSON(HealthResponse{
		Status: status,
		DB:     dbStatus,
		Remote: remoteStatus,
	})
}

// checkCatalog probes the catalog connection, reconnecting if needed
func (s *Server) checkCatalog(ctx context.Context) DependencyStatus {
	probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := s.manager.EnsureConnection(probeCtx)
	latency := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "down"
	case latency > degradedLatency:
		status = "degraded"
	}
	s.setHealthGauge("database", err == nil)

	return DependencyStatus{Status: status, LatencyMs: latency.Milliseconds()}
}

// checkRemote probes the asset server through the client's endpoint fallback
func (s *Server) checkRemote(ctx context.Context) DependencyStatus {
	if s.pinger == nil {
		return DependencyStatus{Status: "disabled"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	reachable := s.pinger.Ping(probeCtx)
	latency := time.Since(start)

	status := "ok"
	if !reachable {
		status = "down"
	}
	s.setHealthGauge("remote", reachable)

	return DependencyStatus{Status: status, LatencyMs: latency.Milliseconds()}
}

func (s *Server) setHealthGauge(dependency string, up bool) {
	if s.metrics == nil {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	s.metrics.HealthStatus.WithLabelValues(dependency).Set(value)
}

// stats returns the catalog statistics as JSON
func (s *Server) stats(c *fiber.Ctx) error {
	stats, err := s.store.GetStats(c.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to compute catalog stats")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute catalog stats"})
	}
	return c.JSON(stats)
}

// promMetrics returns a Fiber handler for Prometheus metrics
func (s *Server) promMetrics() fiber.Handler {
	handler := promhttp.Handler()

	return func(c *fiber.Ctx) error {
		reqURL, err := url.ParseRequestURI(string(c.Request().URI().RequestURI()))
		if err != nil {
			return fiber.ErrBadRequest
		}

		req := &http.Request{
			Method: c.Method(),
			URL:    reqURL,
			Header: make(http.Header),
		}
		c.Request().Header.VisitAll(func(key, value []byte) {
			req.Header.Set(string(key), string(value))
		})

		handler.ServeHTTP(&fiberResponseWriter{c: c, header: make(http.Header)}, req)
		return nil
	}
}

// fiberResponseWriter implements http.ResponseWriter for a Fiber context
type fiberResponseWriter struct {
	c      *fiber.Ctx
	header http.Header
}

func (w *fiberResponseWriter) Header() http.Header {
	return w.header
}

func (w *fiberResponseWriter) Write(data []byte) (int, error) {
	return w.c.Write(data)
}

func (w *fiberResponseWriter) WriteHeader(statusCode int) {
	for key, values := range w.header {
		for _, value := range values {
			w.c.Set(key, value)
		}
	}
	w.c.Status(statusCode)
}
