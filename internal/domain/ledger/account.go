// Package ledger defines per-owner, per-asset balances and the atomic
// operations that move them.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Account balances are integers of the asset's minor unit.
type Account struct {
	Owner     string
	Asset     asset.Code
	Available int64
	Pending   int64
	Settled   int64
	UpdatedAt time.Time
}

// OperationKind names a balance movement.
//
//	credit:  available += amount
//	debit:   available -= amount (requires available >= amount)
//	reserve: available -= amount, pending += amount (requires available >= amount)
//	release: pending -= amount, available += amount (requires pending >= amount)
//	commit:  pending -= amount, settled += amount (requires pending >= amount)
type OperationKind string

const (
	OperationCredit  OperationKind = "credit"
	OperationDebit   OperationKind = "debit"
	OperationReserve OperationKind = "reserve"
	OperationRelease OperationKind = "release"
	OperationCommit  OperationKind = "commit"
)

func (k OperationKind) IsValid() bool {
	switch k {
	case OperationCredit, OperationDebit, OperationReserve, OperationRelease, OperationCommit:
		return true
	default:
		return false
	}
}

// Operation is one balance movement. A non-empty IdempotencyKey makes the
// operation apply at most once.
type Operation struct {
	Kind           OperationKind
	Owner          string
	Asset          asset.Code
	Amount         int64
	IdempotencyKey string
	Reference      string
}

// Repository applies operations as single conditional updates on the store.
type Repository interface {
	// Apply returns the account after the operation and whether it was
	// applied. A replayed idempotency key returns applied=false and the
	// current balance without changing it.
	Apply(ctx context.Context, op Operation) (*Account, bool, error)

	// GetAccount returns a zero account when none exists yet.
	GetAccount(ctx context.Context, owner string, assetCode asset.Code) (*Account, error)
}
