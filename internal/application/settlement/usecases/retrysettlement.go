package usecases

import (
	"context"
	"errors"

	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type RetrySettlementResult struct {
	IntentID string  `json:"intent_id"`
	Outcome  Outcome `json:"outcome"`
	State    string  `json:"state"`
}

// RetrySettlementUseCase is the operator entry point for a stuck settlement.
// A failed swap is retried with its original key; a failed payout gets a new
// attempt and key, reusing the funds reserved by the first attempt.
type RetrySettlementUseCase struct {
	records    settlement.Repository
	settler    *Settler
	reconciler *ReconcileSettlementsUseCase
	logger     logger.Interface
}

func NewRetrySettlementUseCase(records settlement.Repository, settler *Settler, reconciler *ReconcileSettlementsUseCase, log logger.Interface) *RetrySettlementUseCase {
	return &RetrySettlementUseCase{
		records:    records,
		settler:    settler,
		reconciler: reconciler,
		logger:     log.Named("retry_settlement"),
	}
}

func (uc *RetrySettlementUseCase) Execute(ctx context.Context, intentID, operator string) (*RetrySettlementResult, error) {
	rec, err := uc.records.GetByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, settlement.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("settlement not found", intentID)
		}
		return nil, apperrors.NewInternalError("failed to load settlement")
	}

	uc.logger.Infow("operator retry requested",
		"intent_id", intentID,
		"state", rec.State(),
		"operator", operator,
	)

	if rec.State() == vo.SettlementStateSwapped && rec.Destination() == nil {
		return nil, apperrors.NewValidationError("settlement has no payout destination", "set one on the intent first")
	}

	var outcome Outcome
	switch rec.State() {
	case vo.SettlementStateCredited, vo.SettlementStateSwapFailed, vo.SettlementStateSwapped:
		outcome, err = uc.settler.Advance(ctx, rec)
	case vo.SettlementStatePayoutFailed:
		outcome, err = uc.settler.RetryPayout(ctx, rec)
	case vo.SettlementStatePayoutRequested:
		outcome, err = uc.reconciler.PollPayout(ctx, rec)
	case vo.SettlementStateSwapping:
		return nil, apperrors.NewConflictError("swap in progress", "wait for the reconciliation sweep to release it")
	case vo.SettlementStatePayoutSuccess:
		return nil, apperrors.NewConflictError("settlement already completed")
	default:
		return nil, apperrors.NewInternalError("unknown settlement state", string(rec.State()))
	}
	if err != nil {
		return nil, err
	}

	return &RetrySettlementResult{IntentID: intentID, Outcome: outcome, State: rec.State().String()}, nil
}
