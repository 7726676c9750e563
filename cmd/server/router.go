package main

import (
	"context"
	"net/http"
	"time"

	"github.com/campuslink/backend/internal/config"
	"github.com/campuslink/backend/internal/container"
	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/handlers"
	"github.com/campuslink/backend/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(cfg *config.Config, c *container.Container, h *handlers.Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.OTelEnabled {
		r.Use(middleware.TracingMiddleware(serviceName))
		r.Use(middleware.SpanAttributesMiddleware())
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	// Compression would break the upgrade handshake.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws"})))

	r.GET("/health", healthHandler(c))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Avoid handing a typed nil to the limiter when Redis is off.
	var counter middleware.WindowCounter
	if redisClient := c.Cache(); redisClient != nil {
		counter = redisClient
	}
	limit := func(scope string) gin.HandlerFunc {
		return middleware.RedisRateLimitMiddleware(counter, scope, cfg.RateLimitPerMinute, time.Minute)
	}

	ws := c.WebSocket()
	api := r.Group("/api/v1")
	{
		public := api.Group("", limit("public"))
		h.RegisterPublicRoutes(public)

		// The socket authenticates itself from the query token.
		api.GET("/ws", ws.HandleWebSocket)

		protected := api.Group("", middleware.Auth(c.Auth()), limit("api"))
		h.RegisterProtectedRoutes(protected)
		protected.GET("/ws/metrics", ws.HandleMetrics)
	}

	return r
}

func healthHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok"}
		status := http.StatusOK
		if err := database.Health(checkCtx, c.DB()); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if redisClient := c.Cache(); redisClient != nil {
			checks["redis"] = "ok"
			// Redis is optional; a failure degrades but does not fail health.
			if err := redisClient.Ping(checkCtx); err != nil {
				checks["redis"] = err.Error()
			}
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		ctx.JSON(status, gin.H{
			"status":    state,
			"checks":    checks,
			"timestamp": time.Now().UTC(),
		})
	}
}
