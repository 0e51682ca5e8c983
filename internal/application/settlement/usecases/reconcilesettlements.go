package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/orris-inc/offramp/internal/application/settlement/provider"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

const (
	defaultStaleSwapAfter  = 5 * time.Minute
	defaultPayoutPollAfter = 10 * time.Minute
	defaultReconcileBatch  = 50
)

type ReconcileConfig struct {
	StaleSwapAfter  time.Duration
	PayoutPollAfter time.Duration
	BatchSize       int
}

// ReconcileSummary counts what one sweep did.
type ReconcileSummary struct {
	StaleSwapsReleased int `json:"stale_swaps_released"`
	Advanced           int `json:"advanced"`
	Settled            int `json:"settled"`
	PayoutsPolled      int `json:"payouts_polled"`
	Failed             int `json:"failed"`
}

// ReconcileSettlementsUseCase retries what a crashed or failed delivery left
// behind. It never retries a failed payout; that needs an operator.
type ReconcileSettlementsUseCase struct {
	records settlement.Repository
	settler *Settler
	payout  provider.PayoutGateway
	cfg     ReconcileConfig
	clock   biztime.Clock
	logger  logger.Interface
}

func NewReconcileSettlementsUseCase(
	records settlement.Repository,
	settler *Settler,
	payout provider.PayoutGateway,
	cfg ReconcileConfig,
	clock biztime.Clock,
	log logger.Interface,
) *ReconcileSettlementsUseCase {
	if cfg.StaleSwapAfter <= 0 {
		cfg.StaleSwapAfter = defaultStaleSwapAfter
	}
	if cfg.PayoutPollAfter <= 0 {
		cfg.PayoutPollAfter = defaultPayoutPollAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultReconcileBatch
	}
	return &ReconcileSettlementsUseCase{
		records: records,
		settler: settler,
		payout:  payout,
		cfg:     cfg,
		clock:   clock,
		logger:  log.Named("reconcile_settlements"),
	}
}

func (uc *ReconcileSettlementsUseCase) Execute(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{}
	now := uc.clock.Now()
	staleCutoff := now.Add(-uc.cfg.StaleSwapAfter)

	// A SWAPPING record this old belongs to a worker that died mid-call.
	stale, err := uc.records.ListStale(ctx, []vo.SettlementState{vo.SettlementStateSwapping}, staleCutoff, uc.cfg.BatchSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list stale swaps")
	}
	for _, rec := range stale {
		if err := uc.releaseStaleSwap(ctx, rec); err != nil {
			summary.Failed++
			continue
		}
		summary.StaleSwapsReleased++
		outcome, err := uc.settler.Advance(ctx, rec)
		uc.tally(summary, outcome, err)
	}

	pending, err := uc.records.ListStale(ctx, []vo.SettlementState{
		vo.SettlementStateCredited,
		vo.SettlementStateSwapFailed,
		vo.SettlementStateSwapped,
	}, staleCutoff, uc.cfg.BatchSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list pending settlements")
	}
	for _, rec := range pending {
		outcome, err := uc.settler.Advance(ctx, rec)
		uc.tally(summary, outcome, err)
	}

	requested, err := uc.records.ListStale(ctx, []vo.SettlementState{vo.SettlementStatePayoutRequested}, now.Add(-uc.cfg.PayoutPollAfter), uc.cfg.BatchSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list requested payouts")
	}
	for _, rec := range requested {
		summary.PayoutsPolled++
		outcome, err := uc.PollPayout(ctx, rec)
		if outcome == OutcomeSettled {
			summary.Settled++
		}
		if err != nil {
			summary.Failed++
		}
	}

	uc.logger.Infow("reconciliation sweep finished",
		"stale_swaps_released", summary.StaleSwapsReleased,
		"advanced", summary.Advanced,
		"settled", summary.Settled,
		"payouts_polled", summary.PayoutsPolled,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (uc *ReconcileSettlementsUseCase) tally(summary *ReconcileSummary, outcome Outcome, err error) {
	if err != nil {
		summary.Failed++
		return
	}
	summary.Advanced++
	if outcome == OutcomeSettled {
		summary.Settled++
	}
}

func (uc *ReconcileSettlementsUseCase) releaseStaleSwap(ctx context.Context, rec *settlement.Record) error {
	now := uc.clock.Now()
	result := vo.ProviderResult{
		Status:         vo.ProviderCallFailed,
		ErrorCode:      "stale_claim",
		ErrorMessage:   "swap claim expired without a recorded result",
		IdempotencyKey: rec.SwapIdempotencyKey(),
		RecordedAt:     now,
	}
	if err := rec.FailSwap(result, now); err != nil {
		return err
	}
	if err := uc.records.Update(ctx, rec); err != nil {
		if !errors.Is(err, settlement.ErrVersionConflict) {
			uc.logger.Errorw("failed to release stale swap", "intent_id", rec.IntentID(), "error", err)
		}
		return err
	}
	uc.logger.Warnw("released stale swap claim", "intent_id", rec.IntentID(), "attempt", rec.SwapAttempts())
	return nil
}

// PollPayout asks the provider for the status of the current payout attempt
// and finalizes the record when the answer is definitive.
func (uc *ReconcileSettlementsUseCase) PollPayout(ctx context.Context, rec *settlement.Record) (Outcome, error) {
	if rec.State() != vo.SettlementStatePayoutRequested {
		return "", apperrors.NewConflictError("payout is not awaiting a result", string(rec.State()))
	}
	reference := ""
	if rec.PayoutResult() != nil {
		reference = rec.PayoutResult().Reference
	}

	result, err := uc.payout.PayoutStatus(ctx, reference, rec.PayoutIdempotencyKey())
	if err != nil {
		uc.logger.Warnw("payout status lookup failed", "intent_id", rec.IntentID(), "error", err)
		return OutcomePayoutPending, nil
	}
	if result.IdempotencyKey == "" {
		result.IdempotencyKey = rec.PayoutIdempotencyKey()
	}
	if result.RecordedAt.IsZero() {
		result.RecordedAt = uc.clock.Now()
	}

	switch result.Status {
	case vo.ProviderCallSucceeded, vo.ProviderCallFailed:
		outcome, err := uc.settler.FinalizePayout(ctx, rec, result)
		if err != nil && apperrors.IsProviderError(err) {
			return outcome, nil
		}
		return outcome, err
	default:
		return OutcomePayoutPending, nil
	}
}
