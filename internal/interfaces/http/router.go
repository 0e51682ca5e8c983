package http

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/orris-inc/offramp/docs"
	"github.com/orris-inc/offramp/internal/infrastructure/metrics"
	"github.com/orris-inc/offramp/internal/interfaces/http/middleware"
	"github.com/orris-inc/offramp/internal/interfaces/http/routes"
)

// Router owns the gin engine and the container behind it.
type Router struct {
	*Container
}

// NewRouter wires the container and returns a router ready for SetupRoutes.
func NewRouter(c *Container) *Router {
	return &Router{Container: c}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CustomLogger(r.log, metrics.Settlement()))
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.SecurityHeaders())
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.engine.GET("/health", r.hdlrs.healthHandler.HealthCheck)
	r.engine.GET("/version", r.hdlrs.healthHandler.Version)
	r.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	routes.SetupWebhookRoutes(r.engine, &routes.WebhookRouteConfig{
		WebhookHandler: r.hdlrs.webhookHandler,
		MaxBodyBytes:   r.cfg.Webhook.MaxBodyBytes,
	})

	routes.SetupIntentRoutes(r.engine, &routes.IntentRouteConfig{
		IntentHandler:  r.hdlrs.intentHandler,
		AuthMiddleware: r.authMiddleware,
		RateLimiter:    r.intentRateLimiter,
	})

	routes.SetupAdminRoutes(r.engine, &routes.AdminRouteConfig{
		SettlementHandler: r.hdlrs.adminSettlementHandler,
		AuthMiddleware:    r.authMiddleware,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
