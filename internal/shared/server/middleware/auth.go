package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	principalKey = "principal"
)

// ErrUnauthenticated is returned by an Authenticator for a missing, invalid or revoked token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal is the caller identity attached to an authenticated request.
type Principal struct {
	UID       string
	Email     string
	Verified  bool
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// Authenticator resolves a bearer token into a Principal.
type Authenticator func(ctx context.Context, token string) (Principal, error)

// Auth requires a valid bearer token. Websocket upgrades may pass the token as
// the access_token query parameter since browsers cannot set headers on them.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		principal, err := authn(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			respond.Error(c, http.StatusBadGateway, "auth_unavailable", "could not verify session", nil)
			return
		}

		c.Set(userIDKey, principal.UID)
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireVerified rejects sessions whose email has not been verified.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "User not authenticated. Please login again.", nil)
			return
		}
		if !principal.Verified {
			respond.Error(c, http.StatusForbidden, "email_not_verified", "Please verify your email before logging in.", nil)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		return token, token != ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		token := strings.TrimSpace(c.Query("access_token"))
		return token, token != ""
	}
	return "", false
}

// PrincipalFromContext returns the identity set by Auth.
func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	if c == nil {
		return Principal{}, false
	}
	val, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := val.(Principal)
	return p, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
