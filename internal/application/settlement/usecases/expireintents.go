package usecases

import (
	"context"

	"github.com/orris-inc/offramp/internal/application/settlement/metrics"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

const expireBatchSize = 200

// ExpireIntentsUseCase closes pending intents whose quote window has passed.
// A deposit confirming concurrently wins or loses on the same conditional
// update, so an intent is never both expired and confirmed.
type ExpireIntentsUseCase struct {
	intents intent.Repository
	metrics metrics.Recorder
	clock   biztime.Clock
	logger  logger.Interface
}

func NewExpireIntentsUseCase(intents intent.Repository, clock biztime.Clock, log logger.Interface) *ExpireIntentsUseCase {
	return &ExpireIntentsUseCase{
		intents: intents,
		metrics: metrics.Nop(),
		clock:   clock,
		logger:  log.Named("expire_intents"),
	}
}

func (uc *ExpireIntentsUseCase) SetMetrics(m metrics.Recorder) {
	if m != nil {
		uc.metrics = m
	}
}

func (uc *ExpireIntentsUseCase) Execute(ctx context.Context) (int, error) {
	expired, err := uc.intents.ListExpired(ctx, uc.clock.Now(), expireBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, si := range expired {
		won, err := uc.intents.TransitionStatus(ctx, si.ID(), intentvo.IntentStatusPending, intentvo.IntentStatusExpired)
		if err != nil {
			uc.logger.Errorw("failed to expire intent", "intent_id", si.ID(), "error", err)
			continue
		}
		if won {
			count++
		}
	}

	if count > 0 {
		uc.metrics.IntentsExpired(count)
		uc.logger.Infow("expired sell intents", "count", count)
	}
	return count, nil
}
