package intent

import (
	"context"
	"time"

	vo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

// MatchQuery selects the intent a deposit may settle.
type MatchQuery struct {
	Network        asset.Network
	DepositAddress string
	Asset          asset.Code
	Now            time.Time
}

type Repository interface {
	Create(ctx context.Context, si *SellIntent) error
	GetByID(ctx context.Context, id string) (*SellIntent, error)

	// FindNewestPending returns the most recently created pending, unexpired
	// intent for the query, or nil when there is none. Older pending intents
	// at the same address are never returned.
	FindNewestPending(ctx context.Context, q MatchQuery) (*SellIntent, error)

	// TransitionStatus performs a conditional update from -> to and reports
	// whether this call won the transition.
	TransitionStatus(ctx context.Context, id string, from, to vo.IntentStatus) (bool, error)

	// SetPayoutDestination stores dest while the intent still holds status and
	// reports whether the row was updated.
	SetPayoutDestination(ctx context.Context, id string, status vo.IntentStatus, dest vo.PayoutDestination) (bool, error)

	// ListExpired returns pending intents whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*SellIntent, error)
}
