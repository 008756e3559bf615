// Package server exposes the explorer over HTTP.
//
// All endpoints take and return JSON except /upload (multipart form) and the
// file downloads. Sessions are addressed by the session_id field and bound to
// the client's address and user agent.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vegasq/tablescope/internal/config"
	"github.com/vegasq/tablescope/internal/explorer"
	"github.com/vegasq/tablescope/internal/reader"
)

// Server is the HTTP API.
type Server struct {
	cfg        *config.Config
	explorer   *explorer.Explorer
	readerOpts reader.Options
	pool       *ants.Pool
	router     *gin.Engine
	logger     *slog.Logger
}

// New builds the router and the ingest worker pool.
func New(cfg *config.Config, ex *explorer.Explorer, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(cfg.Upload.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v any) {
			logger.Error("server: ingest worker panic", "panic", fmt.Sprint(v))
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest pool: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		explorer:   ex,
		readerOpts: cfg.ReaderOptions(),
		pool:       pool,
		logger:     logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestMetrics())
	router.Use(requestLogger(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	if s.cfg.Server.RateLimit > 0 {
		api.Use(NewRateLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst).Middleware())
	}
	api.POST("/upload", s.upload)
	api.POST("/fetch", s.fetch)
	api.POST("/analyze_column", s.analyzeColumn)
	api.POST("/delete_session", s.deleteSession)
	api.POST("/export", s.export)
	api.POST("/get_parquet", s.getParquet)

	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close releases the ingest worker pool.
func (s *Server) Close() error {
	return s.pool.ReleaseTimeout(s.cfg.Server.ShutdownTimeout)
}
