package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orris-inc/offramp/internal/application/settlement/locking"
	appnotification "github.com/orris-inc/offramp/internal/application/settlement/notification"
	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/infrastructure/auth"
	"github.com/orris-inc/offramp/internal/infrastructure/config"
	"github.com/orris-inc/offramp/internal/infrastructure/notification"
	"github.com/orris-inc/offramp/internal/infrastructure/provider"
	"github.com/orris-inc/offramp/internal/infrastructure/scheduler"
	"github.com/orris-inc/offramp/internal/infrastructure/webhook"
	"github.com/orris-inc/offramp/internal/interfaces/http/middleware"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	shareddb "github.com/orris-inc/offramp/internal/shared/db"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// Container holds all infrastructure components, repositories, use cases,
// handlers and background services. It wires everything together and
// provides Shutdown for graceful termination.
type Container struct {
	// Core infrastructure
	engine    *gin.Engine
	db        *gorm.DB
	cfg       *config.Config
	log       logger.Interface
	redis     *redis.Client
	clock     biztime.Clock
	txManager *shareddb.TransactionManager

	repos *repositories
	ucs   *allUseCases
	hdlrs *allHandlers

	// Middlewares
	authMiddleware    *middleware.AuthMiddleware
	intentRateLimiter *middleware.RateLimiter

	// Outbound services
	jwtSvc         *auth.JWTService
	oracle         pricing.PriceOracle
	quoter         pricing.SellQuoter
	swapClient     *provider.SwapClient
	payoutClient   *provider.PayoutClient
	depositParsers *webhook.DepositParsers
	payoutParser   *webhook.PayoutCallbackParser
	locker         locking.DeliveryLocker
	alerter        appnotification.OperatorAlerter
	notifier       appnotification.Sink
	natsSink       *notification.NATSSink

	settlementScheduler *scheduler.SettlementScheduler
}

// NewContainer creates a Container with all dependencies wired together.
func NewContainer(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		clock:  biztime.SystemClock(),
	}

	// Section 1: Infrastructure - Redis, Repositories, Outbound clients
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Section 2: Settlement - Matching, Ledger, Use Cases
	c.initUseCases()

	// Section 3: Handlers and Middlewares
	c.initHandlers()

	// Section 4: Background sweeps
	c.settlementScheduler = scheduler.NewSettlementScheduler(
		c.ucs.expireIntentUC,
		c.ucs.reconcileUC,
		scheduler.SettlementSchedulerConfig{
			ExpireInterval:    cfg.Settlement.ExpireInterval,
			ReconcileInterval: cfg.Settlement.ReconcileInterval,
		},
		log,
	)

	return c, nil
}

// Scheduler returns the expiry and reconciliation sweeps. Callers decide
// whether this process runs them.
func (c *Container) Scheduler() *scheduler.SettlementScheduler {
	return c.settlementScheduler
}

// Shutdown stops background work and releases outbound connections.
func (c *Container) Shutdown() {
	if c.settlementScheduler != nil {
		c.settlementScheduler.Stop()
	}

	if c.natsSink != nil {
		c.natsSink.Close()
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
