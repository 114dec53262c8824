// Package http exposes the webhook endpoint that feeds the dispatch queue,
// plus health, activity and metrics endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/activity"
	"github.com/fyrsmithlabs/dvc-connector/internal/config"
	"github.com/fyrsmithlabs/dvc-connector/internal/dispatch"
	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
	"github.com/fyrsmithlabs/dvc-connector/internal/metrics"
)

// Enqueuer accepts sync requests for background handling.
type Enqueuer interface {
	Enqueue(src dispatch.SourceRequest) error
}

// ActivityLister reports recent requests.
type ActivityLister interface {
	LogList() []activity.Entry
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// WebhookSecret, when set, is required to sign every webhook body.
	WebhookSecret config.Secret

	// RateLimit and RateBurst bound webhook requests per client IP.
	RateLimit float64
	RateBurst int

	// BodyLimit caps webhook bodies, in echo's size notation.
	BodyLimit string

	// Registry receives the HTTP metrics and is served on /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry

	// Metrics counts rejected requests. May be nil.
	Metrics *metrics.Metrics
}

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	queue    Enqueuer
	activity ActivityLister
	logger   *logging.Logger
	config   *Config
	limiter  *ipLimiter
	metrics  *metrics.Metrics
}

// NewServer creates a new HTTP server.
func NewServer(queue Enqueuer, lister ActivityLister, logger *logging.Logger, cfg *Config) (*Server, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "1M"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpLogger := logger.Named("http")
	e.StdLogger = zap.NewStdLog(httpLogger.Underlying())

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			httpLogger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("remote_ip", c.RealIP()),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(cfg.Registry).MetricsMiddleware())

	s := &Server{
		echo:     e,
		queue:    queue,
		activity: lister,
		logger:   httpLogger,
		config:   cfg,
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateBurst),
		metrics:  cfg.Metrics,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{})))

	s.echo.POST("/webhook", s.handleWebhook, s.rateLimit, middleware.BodyLimit(s.config.BodyLimit))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/activity", s.handleActivity)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleActivity lists requests received within the retention window.
func (s *Server) handleActivity(c echo.Context) error {
	entries := []activity.Entry{}
	if s.activity != nil {
		entries = s.activity.LogList()
	}
	return c.JSON(http.StatusOK, entries)
}

// rateLimit rejects clients that exceed their per-IP budget.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		if !s.limiter.allow(ip) {
			s.logger.Warn(c.Request().Context(), "rate limit exceeded", zap.String("ip", ip))
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
