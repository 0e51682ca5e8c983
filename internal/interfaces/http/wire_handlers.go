package http

import (
	"context"

	"github.com/orris-inc/offramp/internal/interfaces/http/handlers"
	adminHandlers "github.com/orris-inc/offramp/internal/interfaces/http/handlers/admin"
	settlementHandlers "github.com/orris-inc/offramp/internal/interfaces/http/handlers/settlement"
	"github.com/orris-inc/offramp/internal/interfaces/http/middleware"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	healthHandler          *handlers.HealthHandler
	webhookHandler         *settlementHandlers.WebhookHandler
	intentHandler          *settlementHandlers.IntentHandler
	adminSettlementHandler *adminHandlers.SettlementHandler
}

// ============================================================
// Section 3: Handlers and Middlewares
// ============================================================

func (c *Container) initHandlers() {
	log := c.log
	ucs := c.ucs

	checks := map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := c.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if c.redis != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return c.redis.Ping(ctx).Err()
		})
	}

	c.hdlrs = &allHandlers{
		healthHandler: handlers.NewHealthHandler(checks, log),
		webhookHandler: settlementHandlers.NewWebhookHandler(
			c.depositParsers,
			c.payoutParser,
			ucs.handleDepositUC,
			ucs.handlePayoutUC,
			c.clock,
			log,
		),
		intentHandler: settlementHandlers.NewIntentHandler(
			ucs.createIntentUC,
			ucs.getIntentUC,
			ucs.cancelIntentUC,
			ucs.setDestUC,
			log,
		),
		adminSettlementHandler: adminHandlers.NewSettlementHandler(
			ucs.listSettlementsUC,
			ucs.retrySettlementUC,
			log,
		),
	}

	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, log)
	c.intentRateLimiter = middleware.NewRateLimiter(
		c.redis,
		"create_intent",
		c.cfg.Settlement.IntentRateLimit,
		c.cfg.Settlement.IntentRateWindow,
		log,
	)
}
