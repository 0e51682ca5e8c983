package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/goroutine"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// BatchJob processes one batch and returns how many items it touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

type Reconciler interface {
	Execute(ctx context.Context) (*usecases.ReconcileSummary, error)
}

type SettlementSchedulerConfig struct {
	ExpireInterval    time.Duration
	ReconcileInterval time.Duration
	// RunTimeout bounds a single sweep.
	RunTimeout time.Duration
}

// SettlementScheduler runs the intent expiry and reconciliation sweeps.
type SettlementScheduler struct {
	expireJob  BatchJob
	reconciler Reconciler
	cfg        SettlementSchedulerConfig
	logger     logger.Interface
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewSettlementScheduler(expireJob BatchJob, reconciler Reconciler, cfg SettlementSchedulerConfig, log logger.Interface) *SettlementScheduler {
	if cfg.ExpireInterval <= 0 {
		cfg.ExpireInterval = time.Minute
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 2 * time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &SettlementScheduler{
		expireJob:  expireJob,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     log.Named("settlement_scheduler"),
		stopChan:   make(chan struct{}),
	}
}

// Start launches both loops and returns immediately.
func (s *SettlementScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting settlement scheduler",
		"expire_interval", s.cfg.ExpireInterval,
		"reconcile_interval", s.cfg.ReconcileInterval,
	)

	s.wg.Add(2)
	goroutine.SafeGo(s.logger, "intent-expiry", func() {
		defer s.wg.Done()
		s.loop(ctx, "intent expiry", s.cfg.ExpireInterval, s.ExpireOnce)
	})
	goroutine.SafeGo(s.logger, "settlement-reconcile", func() {
		defer s.wg.Done()
		s.loop(ctx, "reconciliation", s.cfg.ReconcileInterval, s.ReconcileOnce)
	})
}

// Stop signals both loops and waits for an in-flight sweep to finish.
func (s *SettlementScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *SettlementScheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("scheduler loop stopped due to context cancellation", "loop", name)
			return
		case <-s.stopChan:
			s.logger.Infow("scheduler loop stopped", "loop", name)
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
			run(runCtx)
			cancel()
		}
	}
}

func (s *SettlementScheduler) ExpireOnce(ctx context.Context) {
	start := biztime.NowUTC()
	count, err := s.expireJob.Execute(ctx)
	if err != nil {
		s.logger.Errorw("failed to expire intents", "error", err, "duration", time.Since(start))
		return
	}
	if count > 0 {
		s.logger.Infow("pending intents expired", "count", count, "duration", time.Since(start))
	}
}

func (s *SettlementScheduler) ReconcileOnce(ctx context.Context) {
	start := biztime.NowUTC()
	summary, err := s.reconciler.Execute(ctx)
	if err != nil {
		s.logger.Errorw("reconciliation sweep failed", "error", err, "duration", time.Since(start))
		return
	}
	if *summary != (usecases.ReconcileSummary{}) {
		s.logger.Infow("reconciliation sweep finished",
			"stale_swaps_released", summary.StaleSwapsReleased,
			"advanced", summary.Advanced,
			"settled", summary.Settled,
			"payouts_polled", summary.PayoutsPolled,
			"failed", summary.Failed,
			"duration", time.Since(start),
		)
	}
}
