package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/shared/server/respond"
	"securelink-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope. Nothing is
// written when the handler already started the response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.Error("panic", map[string]any{
				"request_id":  RequestIDFromContext(c),
				"user_id":     UserIDFromContext(c),
				"document_id": c.GetString("documentId"),
				"error":       rec,
				"stack":       string(debug.Stack()),
				"route":       c.FullPath(),
				"method":      c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.", nil)
		}()
		c.Next()
	}
}
