package settlement

import (
	"context"
	"net/http"
	"time"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	"github.com/orris-inc/offramp/internal/domain/deposit"
)

type depositParser interface {
	Parse(provider string, header http.Header, body []byte, receivedAt time.Time) (deposit.Event, error)
}

type payoutCallbackParser interface {
	Parse(header http.Header, body []byte, receivedAt time.Time) (usecases.PayoutCallback, error)
}

type handleDepositUseCase interface {
	Execute(ctx context.Context, ev deposit.Event) (*usecases.DepositResult, error)
}

type handlePayoutCallbackUseCase interface {
	Execute(ctx context.Context, cb usecases.PayoutCallback) (*usecases.PayoutCallbackResult, error)
}

type createIntentUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateIntentCommand) (*dto.IntentDTO, error)
}

type getIntentUseCase interface {
	Execute(ctx context.Context, owner, intentID string, isAdmin bool) (*usecases.IntentView, error)
}

type cancelIntentUseCase interface {
	Execute(ctx context.Context, owner, intentID string) (*dto.IntentDTO, error)
}

type setPayoutDestinationUseCase interface {
	Execute(ctx context.Context, cmd usecases.SetPayoutDestinationCommand) (*dto.IntentDTO, error)
}
