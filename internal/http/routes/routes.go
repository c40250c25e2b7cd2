package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/watermark-tool/internal/http/handlers"
	"github.com/phambaophuc/watermark-tool/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsPath = "/metrics"

type Router struct {
	watermarkHandler *handlers.WatermarkHandler
	logger           *zap.Logger
	gatherer         prometheus.Gatherer
	maxBodySize      int64
}

// NewRouter wires the HTTP surface. A nil gatherer serves the default
// Prometheus registry.
func NewRouter(
	watermarkHandler *handlers.WatermarkHandler,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
	maxBodySize int64,
) *Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Router{
		watermarkHandler: watermarkHandler,
		logger:           logger,
		gatherer:         gatherer,
		maxBodySize:      maxBodySize,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger, metricsPath))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	router.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.watermarkHandler.HealthCheck)
		v1.GET("/stats", r.watermarkHandler.GetStats)
		v1.GET("/results/:id", r.watermarkHandler.GetResult)

		watermark := v1.Group("/watermark")
		watermark.Use(middleware.MaxBodySize(r.maxBodySize), middleware.RequireJSON())
		{
			watermark.POST("", r.watermarkHandler.ApplyWatermark)
			watermark.POST("/jobs", r.watermarkHandler.SubmitJob)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Watermark tool is running",
		})
	})

	return router
}
