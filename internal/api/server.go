package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safe-ro/safe-ro/internal/history"
	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/metrics"
	"github.com/safe-ro/safe-ro/internal/pipeline"
	"github.com/safe-ro/safe-ro/internal/properties"
)

// RunLister is the read side of the run history.
type RunLister interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     properties.Config
	runner  *pipeline.Runner
	history RunLister
	engine  *gin.Engine
}

// New constructs a server with routes and middleware. history may be nil.
func New(cfg properties.Config, runner *pipeline.Runner, history RunLister) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(metrics.Middleware())

	server := &Server{cfg: cfg, runner: runner, history: history, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the SAFE-RO API"})
	})
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", metrics.Handler())

	protected := s.engine.Group("/")
	if s.cfg.APIBearerToken != "" {
		protected.Use(bearerAuthMiddleware(s.cfg.APIBearerToken))
	}
	protected.POST("/ndvi", s.handleNDVI)
	protected.POST("/flood", s.handleFlood)
	protected.POST("/fires", s.handleFires)
	protected.POST("/pipeline", s.handlePipeline)
	protected.GET("/history", s.handleHistory)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
