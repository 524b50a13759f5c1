package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/config"
	"github.com/KimiAn12/StartUpIdea/internal/shared/health"
	"github.com/KimiAn12/StartUpIdea/internal/shared/metrics"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/middleware"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/respond"
)

const (
	rateGroupAI      = "AI"
	rateGroupPolling = "POLLING"
)

// RouteRegistrar attaches a feature's routes to a group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps are the collaborators the HTTP surface is assembled from.
type RouterDeps struct {
	Config    config.Config
	Tokens    middleware.TokenVerifier
	Limiter   middleware.Limiter
	Health    *health.Service
	Auth      RouteRegistrar
	Documents RouteRegistrar
	AI        RouteRegistrar
}

// publicPaths bypass bearer authentication.
var publicPaths = []string{
	"/api/auth/signin",
	"/api/auth/signup",
	"/api/health",
	"/metrics",
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Tokens, publicPaths...),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		payload, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})

	if deps.Auth != nil {
		deps.Auth.RegisterRoutes(api.Group("/auth"))
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api.Group("/documents"))
	}
	if deps.AI != nil {
		ai := api.Group("/ai")
		ai.Use(middleware.RateLimit(aiRateLimit(deps)))
		deps.AI.RegisterRoutes(ai)
	}

	return r
}

func aiRateLimit(deps RouterDeps) middleware.RateLimitConfig {
	perMinute := deps.Config.AIRequestsPerMinute
	rules := map[string]middleware.RateLimitRule{}
	if perMinute > 0 {
		burst := max(5, perMinute/3)
		rules[rateGroupAI] = middleware.RateLimitRule{Rate: float64(perMinute) / 60.0, Burst: burst}
		// Reads are polled by clients waiting on async analyses.
		rules[rateGroupPolling] = middleware.RateLimitRule{Rate: float64(perMinute) / 10.0, Burst: burst * 4}
	}
	return middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: rateGroupAI,
		Limiter:      deps.Limiter,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet {
				return rateGroupPolling
			}
			return rateGroupAI
		},
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
