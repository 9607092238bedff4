// Package server wires the HTTP surface: chat, streaming chat, the
// admin-gated data refresh and the reporting endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acu-chatbot/internal/analytics"
	"acu-chatbot/internal/common/config"
	"acu-chatbot/internal/common/logger"
	"acu-chatbot/internal/router"
	"acu-chatbot/internal/scrape"
	"acu-chatbot/internal/session"
)

// Observer receives per-turn telemetry alongside the prometheus metrics.
// *observability.Observability satisfies it.
type Observer interface {
	RecordMessage(ctx context.Context, tier string)
	RecordDuration(ctx context.Context, duration time.Duration, tier string)
}

// Server carries the request-path dependencies.
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	server   *http.Server
	router   *router.Router
	manager  *scrape.Manager
	history  *session.HistoryStore // nil when persistence is disabled
	recorder *analytics.Recorder
	obs      Observer // nil disables the OTel pipeline
	limiter  *rateLimiter
	logger   logger.Logger
}

func New(
	cfg *config.Config,
	chatRouter *router.Router,
	manager *scrape.Manager,
	history *session.HistoryStore,
	recorder *analytics.Recorder,
	obs Observer,
	log logger.Logger,
) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		router:   chatRouter,
		manager:  manager,
		history:  history,
		recorder: recorder,
		obs:      obs,
		limiter:  newRateLimiter(cfg.Server.RatePerMinute),
		logger:   log,
	}

	s.registerMiddlewares()
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerMiddlewares() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestIDMiddleware())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(s.corsMiddleware())
}

// requestIDMiddleware tags every request so log lines across the answer
// path can be correlated.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(s.rateLimitMiddleware())
	{
		api.POST("/chat", s.handleChat)
		api.POST("/chat/stream", s.handleChatStream)
		api.POST("/update-data", s.requireAdminToken(), s.handleUpdateData)
		api.GET("/analytics/summary", s.requireAdminToken(), s.handleAnalyticsSummary)
		api.GET("/analytics/recent", s.requireAdminToken(), s.handleAnalyticsRecent)
	}
}

// Start blocks serving until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server starting", map[string]interface{}{
		"address": s.cfg.Server.Address,
	})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Engine exposes the handler for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"client":     c.ClientIP(),
			"request_id": c.GetString("request_id"),
		})
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    s.cfg.App.Name,
		"version": s.cfg.App.Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
