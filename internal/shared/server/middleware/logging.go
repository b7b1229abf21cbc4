package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/shared/telemetry"
)

// Logging emits one structured line per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if documentID := c.GetString("documentId"); documentID != "" {
			fields["document_id"] = documentID
		}
		if uploadID := c.GetString("uploadId"); uploadID != "" {
			fields["upload_id"] = uploadID
		}
		telemetry.Info("request.complete", fields)
	}
}
