package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"securelink-backend/internal/documents"
	"securelink-backend/internal/identity"
	"securelink-backend/internal/services/health"
	"securelink-backend/internal/shared/config"
	"securelink-backend/internal/shared/metrics"
	"securelink-backend/internal/shared/server/middleware"
	"securelink-backend/internal/shared/server/respond"
	localstore "securelink-backend/internal/shared/storage/object/local"
	"securelink-backend/internal/utility"
)

// Rate limit groups.
const (
	rateGroupDefault = "DEFAULT"
	rateGroupUploads = "UPLOADS"
	rateGroupPolling = "POLLING"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config        config.Config
	Authenticator middleware.Authenticator
	Identity      *identity.Handler
	Google        *identity.GoogleHandler
	Stream        *identity.StreamHandler
	Documents     *documents.Handler
	Utility       *utility.Handler
	// Files serves signed local-store URLs; set only for the local backend.
	Files     gin.HandlerFunc
	Health    *health.Service
	RateLimit *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	if deps.Files != nil {
		r.GET(localstore.FilesRoute+"/*key", deps.Files)
	}

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.Health))
	api.GET("/metrics", metrics.Handler())

	if deps.Identity != nil {
		deps.Identity.RegisterPublicRoutes(api)
	}
	if deps.Google != nil {
		deps.Google.RegisterRoutes(api)
	}
	if deps.Utility != nil {
		internal := api.Group("")
		internal.Use(middleware.InternalToken(deps.Config.InternalToken))
		deps.Utility.RegisterRoutes(internal)
	}

	if deps.Authenticator == nil {
		return r
	}
	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Authenticator))
	if deps.Identity != nil {
		deps.Identity.RegisterRoutes(protected)
	}
	if deps.Stream != nil {
		deps.Stream.RegisterRoutes(protected)
	}

	if deps.Documents != nil {
		verified := protected.Group("")
		verified.Use(
			middleware.RequireVerified(),
			middleware.RateLimit(rateLimitConfig(deps.RateLimit)),
		)
		deps.Documents.RegisterRoutes(verified)
	}

	return r
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		report := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
}

func rateLimitConfig(limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		Limiter:      limiter,
		GroupFor:     rateGroupFor,
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: 5, Burst: 20},
			rateGroupUploads: {Rate: 0.5, Burst: 5},
			rateGroupPolling: {Rate: 10, Burst: 30},
		},
	}
}

func rateGroupFor(c *gin.Context) string {
	switch {
	case c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/uploads/:uploadId":
		return rateGroupPolling
	case c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/documents",
		c.Request.Method == http.MethodPut && c.FullPath() == "/api/v1/documents/:id/file":
		return rateGroupUploads
	default:
		return rateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
