package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/zapdoc-api/internal/config"
	"github.com/jwalitptl/zapdoc-api/internal/handler"
	"github.com/jwalitptl/zapdoc-api/internal/handler/prometheus"
	"github.com/jwalitptl/zapdoc-api/internal/middleware"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	appvalidator "github.com/jwalitptl/zapdoc-api/pkg/validator"
)

type RouterConfig struct {
	Mode         string
	MaxBodyBytes int64
	HSTS         bool
	RateLimit    config.RateLimitConfig
	CORS         config.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	metrics  *prometheus.Handler
	handlers []handler.Handler
	config   RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	config RouterConfig,
	handlers ...handler.Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		appvalidator.Register(v)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.SecurityHeaders(config.HSTS),
		middleware.CORS(config.CORS),
	)
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}
	if config.RateLimit.Enabled {
		global := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(config.RateLimit.RequestsPerSecond),
			Burst: config.RateLimit.Burst,
		})
		engine.Use(global.RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		metrics:  metrics,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.metrics.Handler())

	guards := handler.Guards{
		Authenticate: r.auth.Authenticate(),
		AdminOnly:    r.auth.RequireRole("Forbidden: Admins only", model.RoleAdmin),
		AuthLimit:    r.authLimit(),
	}

	api := r.engine.Group("/api")
	for _, h := range r.handlers {
		h.RegisterRoutes(api, guards)
	}
}

// authLimit throttles credential endpoints per client, counted per minute.
func (r *Router) authLimit() gin.HandlerFunc {
	if !r.config.RateLimit.Enabled || r.config.RateLimit.AuthPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	perMinute := r.config.RateLimit.AuthPerMinute
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  rate.Limit(float64(perMinute) / 60),
		Burst: perMinute,
	})
	return limiter.RateLimit()
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
