// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the web front end: an HTML shell with the Dashboard,
// Workflow, Optional Functions, Configuration and Logs pages, the JSON
// API those pages call, and the health and metrics endpoints.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pdiddy/irca-engine/internal/health"
	"github.com/pdiddy/irca-engine/internal/metrics"
	"github.com/pdiddy/irca-engine/internal/workflow"
)

//go:embed static/index.html
var staticFiles embed.FS

var page = template.Must(template.ParseFS(staticFiles, "static/index.html"))

// Server serves the front end over one workflow controller.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	ctrl       *workflow.Controller
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New builds the router. metrics may be nil, in which case /metrics is
// not served.
func New(ctrl *workflow.Controller, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:  gin.New(),
		ctrl:    ctrl,
		metrics: m,
		logger:  logger,
	}
	s.router.Use(gin.Recovery(), s.logRequests())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.index)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.router.GET("/readyz", s.ready)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/dashboard", s.getDashboard)
		api.GET("/months", s.listMonths)
		api.GET("/session", s.getSession)
		api.POST("/session", s.updateSession)
		api.POST("/steps/:step", s.executeStep)
		api.POST("/workflow/run", s.runWorkflow)
		api.POST("/workflow/reset", s.resetWorkflow)
		api.POST("/photos/verify", s.verifyPhotos)
		api.GET("/config", s.getConfig)
		api.GET("/health", s.getHealth)
		api.GET("/logs", s.getLogs)
		api.GET("/reports", s.getReports)
		api.GET("/download", s.download)
		api.POST("/package", s.packageReports)
	}
}

// logRequests logs one line per request.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) index(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	data := struct {
		PowerBIURL string
	}{PowerBIURL: s.ctrl.Config().Server.PowerBIURL}
	if err := page.Execute(c.Writer, data); err != nil {
		s.logger.Error("rendering page", zap.Error(err))
	}
}

func (s *Server) ready(c *gin.Context) {
	rep := health.Run(s.ctrl.Config())
	if !rep.Healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "issues": rep.Issues})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Run listens on addr until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", addr))
		errc <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
