package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/shared/server/respond"
)

// InternalToken guards service-to-service endpoints with a shared secret in
// X-Internal-Token. An empty secret closes the endpoint entirely.
func InternalToken(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			respond.Error(c, http.StatusServiceUnavailable, "not_configured", "internal endpoint disabled", nil)
			return
		}
		got := strings.TrimSpace(c.GetHeader("X-Internal-Token"))
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid internal token", nil)
			return
		}
		c.Next()
	}
}
