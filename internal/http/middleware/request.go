package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects request bodies that are not application/json.
func RequireJSON() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodGet || ctx.Request.ContentLength == 0 {
			ctx.Next()
			return
		}

		mediaType, _, err := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
		if err != nil || mediaType != "application/json" {
			ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"success": false,
				"error":   "Content-Type must be application/json",
			})
			return
		}

		ctx.Next()
	}
}

// MaxBodySize caps how many bytes a handler may read from the request body.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limit > 0 && ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)
		}
		ctx.Next()
	}
}
