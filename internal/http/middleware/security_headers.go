package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders adds security headers. Responses may carry user images, so
// nothing is cached.
func SecurityHeaders() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("X-Frame-Options", "DENY")
		ctx.Header("X-Content-Type-Options", "nosniff")
		ctx.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		ctx.Header("Referrer-Policy", "no-referrer")
		ctx.Header("Cache-Control", "no-store")
		ctx.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		ctx.Next()
	}
}
