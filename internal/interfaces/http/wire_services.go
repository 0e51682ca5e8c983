package http

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/application/settlement/locking"
	appnotification "github.com/orris-inc/offramp/internal/application/settlement/notification"
	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/infrastructure/auth"
	"github.com/orris-inc/offramp/internal/infrastructure/cache"
	"github.com/orris-inc/offramp/internal/infrastructure/config"
	"github.com/orris-inc/offramp/internal/infrastructure/exchangerate"
	"github.com/orris-inc/offramp/internal/infrastructure/notification"
	"github.com/orris-inc/offramp/internal/infrastructure/provider"
	"github.com/orris-inc/offramp/internal/infrastructure/webhook"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	sharedConfig "github.com/orris-inc/offramp/internal/shared/config"
	shareddb "github.com/orris-inc/offramp/internal/shared/db"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

const payoutProviderID = "payout"

// ============================================================
// Section 1: Infrastructure - Redis, Repositories, Basic Services
// ============================================================

// initInfrastructure initializes Redis, repositories and every outbound
// client the settlement flow depends on.
func (c *Container) initInfrastructure() error {
	cfg := c.cfg
	log := c.log

	c.redis = initRedis(cfg, log)
	c.repos = newRepositories(c.db, c.clock, log)
	c.txManager = shareddb.NewTransactionManager(c.db)
	c.jwtSvc = auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.AccessTTL, c.clock)

	oracle, err := newPriceOracle(cfg, c.clock, log)
	if err != nil {
		return err
	}
	c.oracle = oracle
	c.quoter = exchangerate.NewSellQuoter(oracle, exchangerate.FeeSchedule{
		SpreadBps: cfg.Pricing.SpreadBps,
		FlatFee:   decimal.RequireFromString(cfg.Pricing.FlatFee),
	}, c.clock)

	c.swapClient = provider.NewSwapClient(
		clientConfig("swap", cfg.Providers.Swap),
		newTokenProvider(cfg.Providers.Swap),
		log.Named("swap_client"),
	)
	c.payoutClient = provider.NewPayoutClient(
		clientConfig(payoutProviderID, cfg.Providers.Payout),
		newTokenProvider(cfg.Providers.Payout),
		log.Named("payout_client"),
	)

	c.depositParsers = webhook.NewDepositParsers(cfg.Webhook.CustodySecret, cfg.Webhook.NowPaymentsSecret)
	c.payoutParser = webhook.NewPayoutCallbackParser(payoutProviderID, cfg.Webhook.PayoutSecret)
	if len(c.depositParsers.Providers()) == 0 {
		log.Warnw("no deposit webhook secret configured, deposit webhooks will be rejected")
	}

	c.locker = locking.NopLocker()
	if c.redis != nil {
		c.locker = cache.NewDeliveryLock(c.redis, cfg.Settlement.DeliveryLockTTL, cfg.Settlement.DeliveryLockWait, log)
	}

	c.alerter = newOperatorAlerter(cfg, c.redis, log)
	c.notifier = c.newSettlementSink()

	return nil
}

func initRedis(cfg *config.Config, log logger.Interface) *redis.Client {
	if !cfg.Redis.Enabled {
		log.Warnw("redis disabled, delivery locks and rate limits are off")
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Locks and rate limits fail open.
		log.Warnw("failed to connect to Redis, continuing without it", "address", cfg.Redis.GetAddr(), "error", err)
	} else {
		log.Infow("Redis connection established successfully", "address", cfg.Redis.GetAddr())
	}

	return redisClient
}

func newPriceOracle(cfg *config.Config, clock biztime.Clock, log logger.Interface) (pricing.PriceOracle, error) {
	if cfg.Pricing.Source == "static" {
		log.Warnw("using static price table, quotes will not follow the market")
		return exchangerate.NewStaticOracle(cfg.Pricing.StaticPrices)
	}
	return exchangerate.NewCoinGeckoOracle(exchangerate.CoinGeckoConfig{
		BaseURL:     cfg.Pricing.BaseURL,
		APIKey:      cfg.Pricing.APIKey,
		CacheTTL:    cfg.Pricing.CacheTTL,
		MaxCacheAge: cfg.Pricing.MaxCacheAge,
		Timeout:     cfg.Pricing.Timeout,
	}, clock, log), nil
}

func clientConfig(providerID string, p sharedConfig.ProviderClientConfig) provider.ClientConfig {
	return provider.ClientConfig{
		ProviderID: providerID,
		BaseURL:    p.BaseURL,
		Timeout:    p.Timeout,
		RatePerSec: p.RatePerSec,
		Burst:      p.Burst,
	}
}

func newTokenProvider(p sharedConfig.ProviderClientConfig) *provider.TokenProvider {
	if p.TokenURL == "" {
		return nil
	}
	return provider.NewTokenProvider(p.TokenURL, p.ClientID, p.ClientSecret, p.Scopes)
}

// newOperatorAlerter emails operators when SMTP is configured and falls back
// to the log otherwise.
func newOperatorAlerter(cfg *config.Config, redisClient *redis.Client, log logger.Interface) appnotification.OperatorAlerter {
	if !cfg.Email.Enabled {
		return notification.NewLogAlerter(log)
	}

	var gate notification.AlertGate
	if redisClient != nil {
		gate = cache.NewAlertDeduplicator(redisClient)
	}

	recipients := splitAddresses(cfg.Email.OperatorsEmail)
	masked := make([]string, 0, len(recipients))
	for _, addr := range recipients {
		masked = append(masked, utils.MaskEmail(addr))
	}
	log.Infow("operator alerts enabled", "recipients", masked)

	return notification.NewEmailAlerter(notification.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.FromAddress,
		FromName: cfg.Email.FromName,
		To:       recipients,
	}, gate, cfg.Settlement.AlertDeduplicationTTL, log)
}

func (c *Container) newSettlementSink() appnotification.Sink {
	if !c.cfg.NATS.Enabled {
		return notification.NopSink{}
	}

	sink, err := notification.NewNATSSink(c.cfg.NATS.URL, c.cfg.NATS.Subject, c.log)
	if err != nil {
		c.log.Warnw("failed to connect to NATS, settlement notifications disabled", "url", c.cfg.NATS.URL, "error", err)
		return notification.NopSink{}
	}
	c.natsSink = sink
	return sink
}

func splitAddresses(raw string) []string {
	var out []string
	for _, addr := range strings.Split(raw, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
