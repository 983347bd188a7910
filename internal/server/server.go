// Package server exposes the reconciliation outputs over HTTP for external
// reporting collaborators. It serves the result set of the run that just
// finished plus the persisted run history.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openfiscal/estoque-veiculos/internal/config"
	"github.com/openfiscal/estoque-veiculos/internal/fiscal"
	"github.com/openfiscal/estoque-veiculos/internal/pipeline"
	"github.com/openfiscal/estoque-veiculos/internal/repository"
)

// ResultSet is the in-memory bundle served by the API.
type ResultSet struct {
	Lifecycle []pipeline.LifecycleRecord `json:"estoque"`
	Monthly   []fiscal.MonthlySummaryRow `json:"resumo_mensal"`
	Quarterly []fiscal.QuarterlyTaxRow   `json:"apuracao_trimestral"`
	KPIs      fiscal.KPISet              `json:"kpis"`
	Alerts    []pipeline.Alert           `json:"alertas"`
}

// Server serves reconciliation results as JSON.
type Server struct {
	cfg     config.ServerConfig
	results ResultSet
	runs    *repository.RunRepository
	logger  *zap.Logger
}

// New creates a result API server. runs may be nil when persistence is
// disabled; the /runs endpoint then reports an empty list.
func New(cfg config.ServerConfig, results ResultSet, runs *repository.RunRepository, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, results: results, runs: runs, logger: logger}
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("Result API listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("result API failed: %w", err)
	}
	return nil
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "estoque-veiculos",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/estoque", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.results.Lifecycle)
		})
		api.GET("/resumo-mensal", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.results.Monthly)
		})
		api.GET("/apuracao", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.results.Quarterly)
		})
		api.GET("/kpis", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.results.KPIs)
		})
		api.GET("/alertas", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.results.Alerts)
		})
		api.GET("/runs", s.handleRuns)
	}

	return router
}

func (s *Server) handleRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusOK, []repository.Run{})
		return
	}
	runs, err := s.runs.ListRuns(20)
	if err != nil {
		s.logger.Error("Failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
