package api

import (
	"context"

	"github.com/apnedoctors/minirag/internal/api/handlers"
	"github.com/apnedoctors/minirag/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	AllowedOrigins []string
	// RateLimit is requests per minute per IP on POST endpoints. Zero disables it.
	RateLimit int
}

// NewRouter registers every route. ctx bounds the rate limiter's cleanup goroutine.
func NewRouter(ctx context.Context, h *handlers.SymptomHandler, config RouterConfig, logger *logrus.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(config.AllowedOrigins))

	limit := middleware.NewRateLimiter(ctx, config.RateLimit).RateLimit()

	router.GET("/", h.HandleRoot)
	router.GET("/health", h.HandleHealth)
	router.GET("/disclaimer", h.HandleDisclaimer)
	router.POST("/ask", limit, h.HandleAsk)
	router.POST("/feedback", limit, h.HandleFeedback)

	// paths used by the web frontend
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.HandleHealth)
		v1.GET("/disclaimer", h.HandleDisclaimer)
		v1.POST("/symptoms/analyze", limit, h.HandleAsk)
		v1.POST("/feedback", limit, h.HandleFeedback)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
