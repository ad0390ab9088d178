package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/api/middleware"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/tracing"
)

// RouterConfig selects optional middleware
type RouterConfig struct {
	CORS      middleware.CORSConfig
	RateLimit *middleware.RateLimitConfig // nil disables limiting
}

// NewRouter builds the gin engine. stream serves GET /stream and may be
// nil to leave the route out.
func NewRouter(cfg RouterConfig, h *Handlers, stream gin.HandlerFunc, metrics *monitoring.Metrics, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("HTTP handler panic",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))

	router.Use(tracing.HTTPMiddleware(logger))
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}
	router.Use(middleware.CORS(cfg.CORS))
	if cfg.RateLimit != nil {
		router.Use(middleware.RateLimit(*cfg.RateLimit))
	}

	router.GET("/health", h.Health)
	router.GET("/apps", h.ListApps)
	router.POST("/apps/:id/start", h.StartApp)

	if stream != nil {
		router.GET("/stream", stream)
	}

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
		router.GET("/metrics/summary", h.Summary)
	}

	return router
}
