// Package api exposes cross analysis over HTTP.
//
// Routes:
//
//	POST /api/v1/analyze   analyze the JSON snapshot in the request body
//	GET  /api/v1/analyze   analyze the configured snapshot store
//	GET  /health           liveness
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/deskops/mailtriage/internal/config"
	"github.com/deskops/mailtriage/internal/deduplication"
	"github.com/deskops/mailtriage/internal/storage"
)

// Server serves the analysis API
type Server struct {
	analyzer deduplication.Deduplicator
	source   storage.Source
	cfg      config.ServerConfig
	version  string
	limiter  *RateLimiter
	echo     *echo.Echo
}

// NewServer creates a server. source may be nil, in which case
// GET /api/v1/analyze answers 503.
func NewServer(analyzer deduplication.Deduplicator, source storage.Source, cfg config.ServerConfig, version string) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s := &Server{
		analyzer: analyzer,
		source:   source,
		cfg:      cfg,
		version:  version,
		limiter:  NewRateLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
	s.echo = s.routes()
	return s, nil
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("[API] %s %s -> %d (%v): %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			log.Printf("[API] %s %s -> %d (%v)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/health", s.handleHealth)

	v1 := e.Group("/api/v1", s.limiter.Middleware())
	v1.POST("/analyze", s.handleAnalyzeBody)
	v1.GET("/analyze", s.handleAnalyzeStore)

	return e
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleAnalyzeBody(c echo.Context) error {
	req := c.Request()
	body := http.MaxBytesReader(c.Response(), req.Body, s.cfg.MaxBodyBytes)

	snap, err := storage.ReadSnapshot(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "snapshot too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return s.analyze(c, snap)
}

func (s *Server) handleAnalyzeStore(c echo.Context) error {
	if s.source == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no snapshot store configured")
	}
	snap, err := storage.LoadSnapshot(c.Request().Context(), s.source)
	if err != nil {
		log.Printf("[API] Failed to load snapshot: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to load snapshot")
	}
	return s.analyze(c, snap)
}

func (s *Server) analyze(c echo.Context, snap *storage.Snapshot) error {
	result, err := s.analyzer.CrossAnalyze(c.Request().Context(), snap.Emails, snap.Tickets)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[API] Listening on %s", s.cfg.Addr)
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.limiter.RunCleanup(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Printf("[API] Shutting down (timeout %v)", s.cfg.ShutdownTimeout())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("[API] Server stopped")
	return nil
}
