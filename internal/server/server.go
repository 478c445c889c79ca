// Package server assembles the dashboard HTTP server: routes, middleware and
// the push channel endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/pulseboard/internal/domain"
	"github.com/alanyoungcy/pulseboard/internal/server/handler"
	"github.com/alanyoungcy/pulseboard/internal/server/middleware"
	"github.com/alanyoungcy/pulseboard/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string

	// RateLimiter is optional; when nil /dashboard is not rate limited.
	RateLimiter     domain.RateLimiter
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Dashboard *handler.DashboardHandler
}

// Server is the dashboard HTTP + websocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			Handler:           NewHandler(cfg, handlers, hub, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// NewHandler builds the routed, middleware-wrapped handler tree.
func NewHandler(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	var dashboard http.Handler = http.HandlerFunc(handlers.Dashboard.GetDashboard)
	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		dashboard = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateLimitWindow, logger)(dashboard)
	}
	mux.Handle("GET /dashboard", middleware.Metrics("/dashboard")(dashboard))

	if hub != nil {
		mux.Handle("GET /ws", middleware.Metrics("/ws")(http.HandlerFunc(hub.HandleWS)))
	}

	mux.HandleFunc("GET /healthz", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", handler.NotFound)

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
