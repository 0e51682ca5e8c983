package usecases

import (
	"context"
	"errors"

	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// PayoutCallback is a verified asynchronous payout status report.
type PayoutCallback struct {
	IdempotencyKey string
	Reference      string
	Result         vo.ProviderResult
}

type PayoutCallbackResult struct {
	Outcome  Outcome `json:"outcome"`
	IntentID string  `json:"intent_id"`
	State    string  `json:"state"`
}

// HandlePayoutCallbackUseCase matches a callback to its settlement by
// idempotency key, falling back to the provider reference.
type HandlePayoutCallbackUseCase struct {
	records settlement.Repository
	settler *Settler
	logger  logger.Interface
}

func NewHandlePayoutCallbackUseCase(records settlement.Repository, settler *Settler, log logger.Interface) *HandlePayoutCallbackUseCase {
	return &HandlePayoutCallbackUseCase{
		records: records,
		settler: settler,
		logger:  log.Named("payout_callback"),
	}
}

func (uc *HandlePayoutCallbackUseCase) Execute(ctx context.Context, cb PayoutCallback) (*PayoutCallbackResult, error) {
	if cb.IdempotencyKey == "" && cb.Reference == "" {
		return nil, apperrors.NewValidationError("callback carries neither idempotency key nor reference")
	}

	rec, err := uc.find(ctx, cb)
	if err != nil {
		return nil, err
	}
	log := uc.logger.With("intent_id", rec.IntentID(), "settlement_id", rec.ID())

	// A callback for an earlier attempt must not close the current one.
	if cb.IdempotencyKey != "" && cb.IdempotencyKey != rec.PayoutIdempotencyKey() {
		log.Warnw("callback for superseded payout attempt ignored", "idempotency_key", cb.IdempotencyKey)
		return &PayoutCallbackResult{Outcome: OutcomeDuplicate, IntentID: rec.IntentID(), State: rec.State().String()}, nil
	}

	if rec.State() != vo.SettlementStatePayoutRequested {
		log.Infow("payout callback replayed, record already past request", "state", rec.State())
		return &PayoutCallbackResult{Outcome: OutcomeDuplicate, IntentID: rec.IntentID(), State: rec.State().String()}, nil
	}

	result := cb.Result
	if result.IdempotencyKey == "" {
		result.IdempotencyKey = rec.PayoutIdempotencyKey()
	}
	if result.Reference == "" {
		result.Reference = cb.Reference
	}

	if result.Status == vo.ProviderCallPending {
		log.Infow("payout still processing", "provider_status", result.ProviderStatus)
		return &PayoutCallbackResult{Outcome: OutcomePayoutPending, IntentID: rec.IntentID(), State: rec.State().String()}, nil
	}

	outcome, err := uc.settler.FinalizePayout(ctx, rec, result)
	if err != nil && !apperrors.IsProviderError(err) {
		return nil, err
	}
	return &PayoutCallbackResult{Outcome: outcome, IntentID: rec.IntentID(), State: rec.State().String()}, nil
}

func (uc *HandlePayoutCallbackUseCase) find(ctx context.Context, cb PayoutCallback) (*settlement.Record, error) {
	if cb.IdempotencyKey != "" {
		rec, err := uc.records.GetByPayoutIdempotencyKey(ctx, cb.IdempotencyKey)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, settlement.ErrRecordNotFound) {
			return nil, apperrors.NewInternalError("failed to look up settlement")
		}
	}
	if cb.Reference != "" {
		rec, err := uc.records.GetByPayoutReference(ctx, cb.Reference)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, settlement.ErrRecordNotFound) {
			return nil, apperrors.NewInternalError("failed to look up settlement")
		}
	}
	uc.logger.Warnw("payout callback for unknown settlement",
		"idempotency_key", cb.IdempotencyKey,
		"reference", cb.Reference,
	)
	return nil, apperrors.NewNotFoundError("settlement not found for payout callback")
}
