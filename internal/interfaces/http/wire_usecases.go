package http

import (
	"github.com/shopspring/decimal"

	appledger "github.com/orris-inc/offramp/internal/application/ledger"
	"github.com/orris-inc/offramp/internal/application/matching"
	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	"github.com/orris-inc/offramp/internal/infrastructure/metrics"
)

// allUseCases holds all use case instances used by the application.
type allUseCases struct {
	// Intents
	createIntentUC *usecases.CreateIntentUseCase
	getIntentUC    *usecases.GetIntentUseCase
	cancelIntentUC *usecases.CancelIntentUseCase
	setDestUC      *usecases.SetPayoutDestinationUseCase
	expireIntentUC *usecases.ExpireIntentsUseCase

	// Settlement
	settler         *usecases.Settler
	handleDepositUC *usecases.HandleDepositUseCase
	handlePayoutUC  *usecases.HandlePayoutCallbackUseCase
	reconcileUC     *usecases.ReconcileSettlementsUseCase

	// Admin
	listSettlementsUC *usecases.ListSettlementsUseCase
	retrySettlementUC *usecases.RetrySettlementUseCase
}

// ============================================================
// Section 2: Settlement - Matching, Ledger, Use Cases
// ============================================================

func (c *Container) initUseCases() {
	cfg := c.cfg
	log := c.log
	repos := c.repos
	recorder := metrics.Settlement()

	balances := appledger.NewBalanceLedger(repos.balanceRepo, log)
	matcher := matching.NewDepositMatcher(
		repos.intentRepo,
		c.oracle,
		decimal.RequireFromString(cfg.Settlement.ToleranceUSD),
		c.clock,
		log,
	)

	settler := usecases.NewSettler(
		repos.intentRepo,
		repos.recordRepo,
		balances,
		c.txManager,
		c.swapClient,
		c.payoutClient,
		c.clock,
		log,
	)
	settler.SetNotifier(c.notifier)
	settler.SetAlerter(c.alerter)
	settler.SetMetrics(recorder)

	handleDepositUC := usecases.NewHandleDepositUseCase(
		matcher,
		c.quoter,
		repos.intentRepo,
		repos.recordRepo,
		repos.unmatchedRepo,
		balances,
		c.txManager,
		settler,
		c.clock,
		log,
	)
	handleDepositUC.SetLocker(c.locker)
	handleDepositUC.SetMetrics(recorder)
	handleDepositUC.SetAnomalyRatio(decimal.RequireFromString(cfg.Settlement.AnomalyRatio))

	expireIntentUC := usecases.NewExpireIntentsUseCase(repos.intentRepo, c.clock, log)
	expireIntentUC.SetMetrics(recorder)

	reconcileUC := usecases.NewReconcileSettlementsUseCase(
		repos.recordRepo,
		settler,
		c.payoutClient,
		usecases.ReconcileConfig{
			StaleSwapAfter:  cfg.Settlement.StaleSwapAfter,
			PayoutPollAfter: cfg.Settlement.PayoutPollAfter,
			BatchSize:       cfg.Settlement.ReconcileBatchSize,
		},
		c.clock,
		log,
	)

	c.ucs = &allUseCases{
		createIntentUC:    usecases.NewCreateIntentUseCase(repos.intentRepo, c.quoter, cfg.Settlement.IntentTTL, c.clock, log),
		getIntentUC:       usecases.NewGetIntentUseCase(repos.intentRepo, repos.recordRepo, log),
		cancelIntentUC:    usecases.NewCancelIntentUseCase(repos.intentRepo, c.clock, log),
		setDestUC:         usecases.NewSetPayoutDestinationUseCase(repos.intentRepo, repos.recordRepo, c.txManager, c.clock, log),
		expireIntentUC:    expireIntentUC,
		settler:           settler,
		handleDepositUC:   handleDepositUC,
		handlePayoutUC:    usecases.NewHandlePayoutCallbackUseCase(repos.recordRepo, settler, log),
		reconcileUC:       reconcileUC,
		listSettlementsUC: usecases.NewListSettlementsUseCase(repos.recordRepo, repos.unmatchedRepo, log),
		retrySettlementUC: usecases.NewRetrySettlementUseCase(repos.recordRepo, settler, reconcileUC, log),
	}
}
