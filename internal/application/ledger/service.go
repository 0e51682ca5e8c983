// Package ledger exposes the balance ledger to the rest of the application.
// Amounts enter as decimals and are converted to integer minor units before
// they reach the store.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/domain/ledger"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// Balance is an account with amounts in major units.
type Balance struct {
	Owner     string
	Asset     asset.Code
	Available decimal.Decimal
	Pending   decimal.Decimal
	Settled   decimal.Decimal
}

type BalanceLedger struct {
	repo   ledger.Repository
	logger logger.Interface
}

func NewBalanceLedger(repo ledger.Repository, log logger.Interface) *BalanceLedger {
	return &BalanceLedger{
		repo:   repo,
		logger: log.Named("ledger"),
	}
}

// Credit adds amount to available.
func (l *BalanceLedger) Credit(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*Balance, error) {
	return l.apply(ctx, ledger.OperationCredit, owner, assetCode, amount, idempotencyKey)
}

// Debit removes amount from available, failing with an insufficient funds error
// when available is lower than amount.
func (l *BalanceLedger) Debit(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*Balance, error) {
	return l.apply(ctx, ledger.OperationDebit, owner, assetCode, amount, idempotencyKey)
}

// Reserve moves amount from available to pending.
func (l *BalanceLedger) Reserve(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*Balance, error) {
	return l.apply(ctx, ledger.OperationReserve, owner, assetCode, amount, idempotencyKey)
}

// Release moves amount from pending back to available.
func (l *BalanceLedger) Release(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*Balance, error) {
	return l.apply(ctx, ledger.OperationRelease, owner, assetCode, amount, idempotencyKey)
}

// Commit moves amount from pending to settled.
func (l *BalanceLedger) Commit(ctx context.Context, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*Balance, error) {
	return l.apply(ctx, ledger.OperationCommit, owner, assetCode, amount, idempotencyKey)
}

func (l *BalanceLedger) GetBalance(ctx context.Context, owner string, assetCode asset.Code) (*Balance, error) {
	if !assetCode.IsValid() {
		return nil, apperrors.NewValidationError("unsupported asset", string(assetCode))
	}
	account, err := l.repo.GetAccount(ctx, owner, assetCode)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load balance")
	}
	return toBalance(account), nil
}

func (l *BalanceLedger) apply(ctx context.Context, kind ledger.OperationKind, owner string, assetCode asset.Code, amount decimal.Decimal, idempotencyKey string) (*Balance, error) {
	if owner == "" {
		return nil, apperrors.NewValidationError("owner is required")
	}
	if !assetCode.IsValid() {
		return nil, apperrors.NewValidationError("unsupported asset", string(assetCode))
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError(ledger.ErrInvalidAmount.Error(), amount.String())
	}
	minor, err := assetCode.ToMinorUnits(amount)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid amount", err.Error())
	}

	account, applied, err := l.repo.Apply(ctx, ledger.Operation{
		Kind:           kind,
		Owner:          owner,
		Asset:          assetCode,
		Amount:         minor,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, apperrors.NewInsufficientFundsError(
				fmt.Sprintf("insufficient %s balance for %s", assetCode, kind), amount.String())
		}
		l.logger.Errorw("ledger operation failed",
			"kind", kind,
			"owner", owner,
			"asset", assetCode,
			"error", err,
		)
		return nil, apperrors.NewInternalError("ledger operation failed")
	}

	if !applied {
		l.logger.Infow("ledger operation replayed, no change",
			"kind", kind,
			"owner", owner,
			"asset", assetCode,
			"idempotency_key", idempotencyKey,
		)
	} else {
		l.logger.Debugw("ledger operation applied",
			"kind", kind,
			"owner", owner,
			"asset", assetCode,
			"amount", amount.String(),
		)
	}

	return toBalance(account), nil
}

func toBalance(a *ledger.Account) *Balance {
	return &Balance{
		Owner:     a.Owner,
		Asset:     a.Asset,
		Available: a.Asset.FromMinorUnits(a.Available),
		Pending:   a.Asset.FromMinorUnits(a.Pending),
		Settled:   a.Asset.FromMinorUnits(a.Settled),
	}
}
