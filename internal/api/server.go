package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dropworks/drop-admin/internal/auth"
	"github.com/dropworks/drop-admin/internal/config"
	"github.com/dropworks/drop-admin/internal/logger"
	"github.com/dropworks/drop-admin/internal/telemetry"
)

// requestIDHeader carries the per-request correlation id.
const requestIDHeader = "X-Request-ID"

// NewRouter builds the gin engine with all routes and middleware wired.
func NewRouter(cfg *config.Config, h *Handlers, jwtManager *auth.JWTManager, log logger.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())
	router.Use(requestLogger(log))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))
	router.POST("/login", h.Login)

	urls := router.Group("/urls")
	urls.Use(auth.Middleware(jwtManager))
	{
		urls.GET("", h.ListRecords)
		urls.PUT("/:id", h.UpdateStage)
		urls.DELETE("/:id", h.DeleteRecord)
		urls.POST("/extract", h.TriggerExtraction)
	}

	return router
}

// requestIDMiddleware attaches a request id to every response, reusing
// the caller's when present.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// corsMiddleware adds CORS headers for the admin frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger logs each request with method, path, status, and duration.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("client_ip", c.ClientIP()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", c.Writer.Header().Get(requestIDHeader)),
		)
	}
}
