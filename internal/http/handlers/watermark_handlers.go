package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/watermark-tool/internal/metrics"
	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/phambaophuc/watermark-tool/internal/services/processor"
	"go.uber.org/zap"
)

type Applier interface {
	Apply(params models.WatermarkParameters) *models.CompositeResult
}

type ResultStore interface {
	SaveResult(ctx context.Context, stored *models.StoredResult) error
	GetResult(ctx context.Context, id string) (*models.StoredResult, error)
	ArchiveResult(ctx context.Context, result *models.CompositeResult) (string, error)
	HealthCheck(ctx context.Context) map[string]string
	GetCacheStats(ctx context.Context) (map[string]interface{}, error)
}

type JobQueue interface {
	PublishRequest(ctx context.Context, params models.WatermarkParameters) (string, error)
	GetQueueStats() (map[string]interface{}, error)
	HealthCheck() string
}

type WatermarkHandler struct {
	compositor Applier
	store      ResultStore
	queue      JobQueue
	observer   metrics.Observer
	logger     *zap.Logger
	archive    bool
}

type Option func(*WatermarkHandler)

// WithStore enables result persistence. Store and queue are optional; the
// endpoints needing them answer 503 without.
func WithStore(store ResultStore, archive bool) Option {
	return func(h *WatermarkHandler) {
		h.store = store
		h.archive = archive
	}
}

func WithQueue(queue JobQueue) Option {
	return func(h *WatermarkHandler) {
		h.queue = queue
	}
}

func WithObserver(observer metrics.Observer) Option {
	return func(h *WatermarkHandler) {
		if observer != nil {
			h.observer = observer
		}
	}
}

func NewWatermarkHandler(compositor Applier, logger *zap.Logger, opts ...Option) *WatermarkHandler {
	h := &WatermarkHandler{
		compositor: compositor,
		observer:   metrics.NopObserver{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// === MAIN API ENDPOINTS ===

// ApplyWatermark runs the pipeline synchronously and answers with the result
// itself: 200 on success, 400 on an INVALID_INPUT result.
func (h *WatermarkHandler) ApplyWatermark(c *gin.Context) {
	params, ok := h.bindParameters(c)
	if !ok {
		return
	}

	start := time.Now()
	result := h.compositor.Apply(params)
	h.observer.RecordApply(metrics.SourceHTTP, result.Status, time.Since(start))

	h.storeResult(c.Request.Context(), result)

	if !result.Succeeded() {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WatermarkHandler) SubmitJob(c *gin.Context) {
	if h.queue == nil {
		h.respondError(c, http.StatusServiceUnavailable, "Queue service not available")
		return
	}

	params, ok := h.bindParameters(c)
	if !ok {
		return
	}

	if err := processor.ValidateParameters(params); err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	messageID, err := h.queue.PublishRequest(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("Failed to enqueue request", zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "Failed to enqueue request")
		return
	}

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Data: models.JobAccepted{
			MessageID: messageID,
			Status:    "queued",
		},
	})
}

func (h *WatermarkHandler) GetResult(c *gin.Context) {
	if h.store == nil {
		h.respondError(c, http.StatusServiceUnavailable, "Result store not available")
		return
	}

	id := c.Param("id")
	stored, err := h.store.GetResult(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load result", zap.String("id", id), zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to load result")
		return
	}
	if stored == nil {
		h.respondError(c, http.StatusNotFound, "Result not found")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    stored,
	})
}

// HealthCheck
func (h *WatermarkHandler) HealthCheck(c *gin.Context) {
	services := map[string]string{
		"redis":    statusNotConfigured,
		"supabase": statusNotConfigured,
		"rabbitmq": statusNotConfigured,
	}
	if h.store != nil {
		for name, status := range h.store.HealthCheck(c.Request.Context()) {
			services[name] = status
		}
	}
	if h.queue != nil {
		services["rabbitmq"] = h.queue.HealthCheck()
	}

	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == statusHealthy,
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

func (h *WatermarkHandler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now(),
	}

	if h.store != nil {
		cacheStats, err := h.store.GetCacheStats(c.Request.Context())
		if err != nil {
			h.logger.Error("Failed to get cache stats", zap.Error(err))
		} else {
			stats["cache"] = cacheStats
		}
	}

	if h.queue != nil {
		queueStats, err := h.queue.GetQueueStats()
		if err != nil {
			h.logger.Error("Failed to get queue stats", zap.Error(err))
		} else {
			stats["queue"] = queueStats
		}
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    stats,
	})
}
