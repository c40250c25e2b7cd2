package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/watermark-tool/internal/models"
	"go.uber.org/zap"
)

const (
	statusHealthy       = "healthy"
	statusUnhealthy     = "unhealthy"
	statusNotConfigured = "not configured"
)

// === REQUEST PARSING ===

func (h *WatermarkHandler) bindParameters(c *gin.Context) (models.WatermarkParameters, bool) {
	var params models.WatermarkParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return params, false
		}

		h.respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return params, false
	}
	return params, true
}

// === RESPONSE HANDLING ===

func (h *WatermarkHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// === STORAGE OPERATIONS ===

func (h *WatermarkHandler) storeResult(ctx context.Context, result *models.CompositeResult) {
	if h.store == nil {
		return
	}

	stored := &models.StoredResult{
		Result:   result,
		StoredAt: time.Now(),
	}

	if h.archive && result.Succeeded() {
		url, err := h.store.ArchiveResult(ctx, result)
		if err != nil {
			h.logger.Warn("Failed to archive output image", zap.Error(err))
		} else {
			stored.ArchiveURL = url
		}
	}

	if err := h.store.SaveResult(ctx, stored); err != nil {
		h.logger.Warn("Failed to store result",
			zap.String("message_id", result.MessageID),
			zap.Error(err))
	}
}

// === UTILITY METHODS ===

func (h *WatermarkHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != statusHealthy && status != statusNotConfigured {
			return statusUnhealthy
		}
	}
	return statusHealthy
}
