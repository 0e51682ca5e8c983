package routes

import (
	"github.com/gin-gonic/gin"

	settlementHandlers "github.com/orris-inc/offramp/internal/interfaces/http/handlers/settlement"
	"github.com/orris-inc/offramp/internal/interfaces/http/middleware"
)

// IntentRouteConfig holds dependencies for sell intent routes.
type IntentRouteConfig struct {
	IntentHandler  *settlementHandlers.IntentHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

// SetupIntentRoutes configures sell intent routes.
func SetupIntentRoutes(engine *gin.Engine, cfg *IntentRouteConfig) {
	intents := engine.Group("/api/v1/intents")
	intents.Use(cfg.AuthMiddleware.RequireAuth())
	{
		intents.POST("", cfg.RateLimiter.Limit(), cfg.IntentHandler.CreateIntent)
		intents.GET("/:id", cfg.IntentHandler.GetIntent)
		intents.POST("/:id/cancel", cfg.IntentHandler.CancelIntent)
		intents.PUT("/:id/payout-destination", cfg.IntentHandler.SetPayoutDestination)
	}
}
