package settlement

import (
	"context"
	"time"

	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

type ListFilter struct {
	States []vo.SettlementState
	Owner  string
	Offset int
	Limit  int
}

type Repository interface {
	// Create fails with ErrRecordExists when the intent already has a record.
	Create(ctx context.Context, r *Record) error

	// Update persists a mutated record only if nobody else changed it since it
	// was loaded, failing with ErrVersionConflict otherwise.
	Update(ctx context.Context, r *Record) error

	GetByIntentID(ctx context.Context, intentID string) (*Record, error)
	GetByObservedTx(ctx context.Context, network asset.Network, txHash string) (*Record, error)
	GetByPayoutIdempotencyKey(ctx context.Context, key string) (*Record, error)
	GetByPayoutReference(ctx context.Context, reference string) (*Record, error)

	// ListStale returns records in one of states whose last update is before
	// cutoff, oldest first. SWAPPED records without a payout destination are
	// left out: nothing can advance them until a destination is attached.
	ListStale(ctx context.Context, states []vo.SettlementState, cutoff time.Time, limit int) ([]*Record, error)
	List(ctx context.Context, filter ListFilter) ([]*Record, int64, error)
}

type UnmatchedDepositRepository interface {
	// Save stores the entry and reports false when the deposit was already recorded.
	Save(ctx context.Context, d *UnmatchedDeposit) (bool, error)

	// GetByDelivery fails with ErrUnmatchedNotFound unless this on-chain
	// deposit was already recorded for triage.
	GetByDelivery(ctx context.Context, network asset.Network, txHash, address string) (*UnmatchedDeposit, error)
	List(ctx context.Context, offset, limit int) ([]*UnmatchedDeposit, int64, error)
}
