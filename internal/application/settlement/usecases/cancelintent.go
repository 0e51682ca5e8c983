package usecases

import (
	"context"
	"errors"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type CancelIntentUseCase struct {
	intents intent.Repository
	clock   biztime.Clock
	logger  logger.Interface
}

func NewCancelIntentUseCase(intents intent.Repository, clock biztime.Clock, log logger.Interface) *CancelIntentUseCase {
	return &CancelIntentUseCase{
		intents: intents,
		clock:   clock,
		logger:  log.Named("cancel_intent"),
	}
}

func (uc *CancelIntentUseCase) Execute(ctx context.Context, owner, intentID string) (*dto.IntentDTO, error) {
	si, err := uc.intents.GetByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, intent.ErrIntentNotFound) {
			return nil, apperrors.NewNotFoundError("sell intent not found", intentID)
		}
		return nil, apperrors.NewInternalError("failed to load sell intent")
	}

	switch err := si.CheckCancellableBy(owner); {
	case errors.Is(err, intent.ErrNotIntentOwner):
		// Same answer as a missing intent so ids cannot be enumerated.
		return nil, apperrors.NewNotFoundError("sell intent not found", intentID)
	case errors.Is(err, intent.ErrIntentNotActive):
		return nil, apperrors.NewConflictError("sell intent can no longer be cancelled", si.Status().String())
	}

	won, err := uc.intents.TransitionStatus(ctx, si.ID(), intentvo.IntentStatusPending, intentvo.IntentStatusCancelled)
	if err != nil {
		uc.logger.Errorw("failed to cancel sell intent", "intent_id", si.ID(), "error", err)
		return nil, apperrors.NewInternalError("failed to cancel sell intent")
	}
	if !won {
		return nil, apperrors.NewConflictError("sell intent changed state, cancel rejected")
	}
	if err := si.ApplyStatus(intentvo.IntentStatusCancelled, uc.clock.Now()); err != nil {
		return nil, apperrors.NewInternalError("failed to apply cancellation", err.Error())
	}

	uc.logger.Infow("sell intent cancelled", "intent_id", si.ID(), "owner", owner)
	return dto.ToIntentDTO(si), nil
}
