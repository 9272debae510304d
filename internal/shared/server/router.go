package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/auth"
	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/coaching"
	"fitflow-backend/internal/notifications"
	"fitflow-backend/internal/services/health"
	"fitflow-backend/internal/shared/config"
	"fitflow-backend/internal/shared/metrics"
	"fitflow-backend/internal/shared/server/middleware"
	"fitflow-backend/internal/shared/server/respond"
	"fitflow-backend/internal/vision"
)

// Rate limit groups.
const (
	groupDefault = "DEFAULT"
	groupPolling = "POLLING"
	groupModel   = "MODEL"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config        config.Config
	Health        *health.Service
	CheckIns      *checkins.Handler
	Coaching      *coaching.Handler
	Notifications *notifications.Handler
	Vision        *vision.Handler
	GoogleLogin   *auth.GoogleLogin
	// Limiter overrides the shared token buckets, mainly for tests.
	Limiter *middleware.RateLimiter
}

// DefaultRateLimits are the per-principal token bucket rules by group.
var DefaultRateLimits = map[string]middleware.RateLimitRule{
	groupDefault: {Rate: 2, Burst: 20},
	groupPolling: {Rate: 5, Burst: 30},
	groupModel:   {Rate: 0.2, Burst: 5},
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

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil, deps.Config.LogStore)
	}
	r.GET("/metrics", metrics.Handler())

	public := r.Group("/api/v1")
	public.GET("/health", func(c *gin.Context) {
		st := healthSvc.Check(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	if deps.GoogleLogin != nil {
		deps.GoogleLogin.RegisterRoutes(public)
	}

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        DefaultRateLimits,
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.Limiter,
		}),
	)
	registerMeRoutes(api)
	if deps.CheckIns != nil {
		deps.CheckIns.RegisterRoutes(api)
	}
	if deps.Coaching != nil {
		deps.Coaching.RegisterRoutes(api)
	}
	if deps.Notifications != nil {
		deps.Notifications.RegisterRoutes(api)
	}
	if deps.Vision != nil {
		deps.Vision.RegisterRoutes(api)
	}

	return r
}

// rateLimitGroup puts run polling in a looser bucket and model-backed calls in a tighter one.
func rateLimitGroup(c *gin.Context) string {
	path := c.FullPath()
	switch c.Request.Method {
	case http.MethodGet:
		switch path {
		case "/api/v1/coaching/runs/:id", "/api/v1/notifications", "/api/v1/notifications/ws":
			return groupPolling
		}
	case http.MethodPost:
		switch path {
		case "/api/v1/coaching/runs", "/api/v1/coaching/runs/:id/feedback", "/api/v1/coaching/workout-plan",
			"/api/v1/vision/physique", "/api/v1/vision/progress", "/api/v1/vision/form",
			"/api/v1/vision/plan", "/api/v1/vision/physique/plan":
			return groupModel
		}
	}
	return groupDefault
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
