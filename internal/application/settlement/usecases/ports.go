package usecases

import (
	"context"

	"github.com/shopspring/decimal"

	appledger "github.com/orris-inc/offramp/internal/application/ledger"
	"github.com/orris-inc/offramp/internal/application/matching"
	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

// TransactionRunner runs fn inside one database transaction.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BalanceLedger is the part of the ledger the settlement flow moves funds with.
type BalanceLedger interface {
	Credit(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*appledger.Balance, error)
	Reserve(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*appledger.Balance, error)
	Commit(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*appledger.Balance, error)
}

type DepositMatcher interface {
	Match(ctx context.Context, ev deposit.Event) (*matching.Result, error)
}
