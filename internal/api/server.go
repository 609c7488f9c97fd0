// Package api serves backtests, run history and pair listings over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	handler "github.com/newthinker/swingsim/internal/api/handler/api"
	"github.com/newthinker/swingsim/internal/api/job"
	"github.com/newthinker/swingsim/internal/api/middleware"
	"github.com/newthinker/swingsim/internal/api/response"
	"github.com/newthinker/swingsim/internal/app"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/logger"
	"github.com/newthinker/swingsim/internal/metrics"
	"go.uber.org/zap"
)

// Server represents the HTTP server for SwingSim
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
	startedAt  time.Time
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string // empty disables authentication
	MetricsPath string // empty disables the metrics endpoint
	JobTTL      time.Duration
	MaxJobs     int
}

// Dependencies holds the services the handlers use.
type Dependencies struct {
	App     *app.App
	Metrics *metrics.Registry // optional
	Jobs    *job.Store        // created from Config when nil
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, log *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "api server requires an app")
	}
	if deps.App.History() == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "api server requires a history store")
	}
	if deps.Jobs == nil {
		deps.Jobs = job.NewStore(cfg.MaxJobs, cfg.JobTTL)
	}
	log = logger.Named(log, "api")

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:    log,
		mux:       mux,
		deps:      deps,
		startedAt: time.Now(),
	}

	s.setupRoutes(cfg)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	s.httpServer.Handler = metrics.LoggingMiddleware(log)(h)

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	var gauge handler.JobsGauge
	var authRec middleware.AuthRecorder
	if s.deps.Metrics != nil {
		gauge = s.deps.Metrics
		authRec = s.deps.Metrics
	}
	auth := middleware.NewAuth(cfg.APIKey, s.logger, authRec)
	protect := func(fn http.HandlerFunc) http.Handler { return auth.Wrap(fn) }
	backtests := handler.NewBacktestHandler(s.deps.Jobs, s.deps.App, gauge, s.logger)
	runs := handler.NewRunsHandler(s.deps.App.History(), s.deps.App.Archive())
	pairs := handler.NewPairsHandler(s.deps.App)
	watchlist := handler.NewWatchlistHandler(s.deps.App)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.Handle("POST /api/backtest", protect(backtests.Create))
	s.mux.Handle("GET /api/backtest", protect(backtests.List))
	s.mux.Handle("GET /api/backtest/{id}", protect(backtests.GetStatus))

	s.mux.Handle("GET /api/runs", protect(runs.List))
	s.mux.Handle("GET /api/runs/{id}", protect(runs.Get))

	s.mux.Handle("GET /api/pairs", protect(pairs.List))

	s.mux.Handle("GET /api/watchlist", protect(watchlist.List))
	s.mux.Handle("POST /api/watchlist", protect(watchlist.Add))
	s.mux.Handle("DELETE /api/watchlist/{pair}", protect(watchlist.Remove))

	if s.deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, s.deps.Metrics.Handler())
	}

	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, core.Errorf(core.ErrNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
		"jobs":   s.deps.Jobs.Active(),
		"app":    s.deps.App.Stats(),
	})
}
