package routes

import (
	"github.com/gin-gonic/gin"

	settlementHandlers "github.com/orris-inc/offramp/internal/interfaces/http/handlers/settlement"
	"github.com/orris-inc/offramp/internal/interfaces/http/middleware"
)

// WebhookRouteConfig holds dependencies for provider webhook routes.
type WebhookRouteConfig struct {
	WebhookHandler *settlementHandlers.WebhookHandler
	MaxBodyBytes   int64
}

// SetupWebhookRoutes configures the signed provider callbacks. They carry
// HMAC signatures instead of bearer tokens.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	webhooks := engine.Group("/api/v1/webhooks")
	webhooks.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	{
		webhooks.POST("/deposits/:provider", cfg.WebhookHandler.HandleDeposit)
		webhooks.POST("/payouts", cfg.WebhookHandler.HandlePayoutCallback)
	}
}
