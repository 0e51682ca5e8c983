package routes

import (
	"github.com/gin-gonic/gin"

	adminHandlers "github.com/orris-inc/offramp/internal/interfaces/http/handlers/admin"
	"github.com/orris-inc/offramp/internal/interfaces/http/middleware"
	"github.com/orris-inc/offramp/internal/shared/authorization"
)

// AdminRouteConfig holds dependencies for operator routes.
type AdminRouteConfig struct {
	SettlementHandler *adminHandlers.SettlementHandler
	AuthMiddleware    *middleware.AuthMiddleware
}

// SetupAdminRoutes configures operator-only settlement routes.
func SetupAdminRoutes(engine *gin.Engine, cfg *AdminRouteConfig) {
	admin := engine.Group("/api/v1/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth())
	admin.Use(authorization.RequireAdmin())
	{
		admin.GET("/settlements", cfg.SettlementHandler.ListSettlements)
		admin.POST("/settlements/:intent_id/retry", cfg.SettlementHandler.RetrySettlement)
		admin.GET("/unmatched-deposits", cfg.SettlementHandler.ListUnmatched)
	}
}
