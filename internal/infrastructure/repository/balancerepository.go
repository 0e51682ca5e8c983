package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orris-inc/offramp/internal/domain/ledger"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/db"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// BalanceRepositoryImpl implements ledger.Repository. Every movement is one
// conditional UPDATE; balances are never read and written back.
type BalanceRepositoryImpl struct {
	db     *gorm.DB
	clock  biztime.Clock
	logger logger.Interface
}

func NewBalanceRepository(database *gorm.DB, clock biztime.Clock, log logger.Interface) ledger.Repository {
	return &BalanceRepositoryImpl{db: database, clock: clock, logger: log}
}

var errOperationReplayed = errors.New("ledger operation already applied")

func (r *BalanceRepositoryImpl) Apply(ctx context.Context, op ledger.Operation) (*ledger.Account, bool, error) {
	if !op.Kind.IsValid() {
		return nil, false, fmt.Errorf("unknown ledger operation: %s", op.Kind)
	}
	if op.Amount <= 0 {
		return nil, false, ledger.ErrInvalidAmount
	}

	err := db.GetTxFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if op.IdempotencyKey != "" {
			record := mappers.LedgerOperationToModel(op)
			record.CreatedAt = r.clock.Now()
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
			if res.Error != nil {
				return fmt.Errorf("failed to record ledger operation: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return errOperationReplayed
			}
		}
		return r.move(tx, op)
	})

	switch {
	case errors.Is(err, errOperationReplayed):
		account, gerr := r.GetAccount(ctx, op.Owner, op.Asset)
		return account, false, gerr
	case err != nil:
		return nil, false, err
	}

	account, err := r.GetAccount(ctx, op.Owner, op.Asset)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

func (r *BalanceRepositoryImpl) move(tx *gorm.DB, op ledger.Operation) error {
	now := r.clock.Now()

	if op.Kind == ledger.OperationCredit {
		account := &models.BalanceAccountModel{
			Owner:     op.Owner,
			Asset:     op.Asset.String(),
			Available: op.Amount,
			UpdatedAt: now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner"}, {Name: "asset"}},
			DoUpdates: clause.Assignments(map[string]any{
				"available":  gorm.Expr("balance_accounts.available + ?", op.Amount),
				"updated_at": now,
			}),
		}).Create(account).Error
	}

	var guard string
	var updates map[string]any
	switch op.Kind {
	case ledger.OperationDebit:
		guard = "available >= ?"
		updates = map[string]any{"available": gorm.Expr("available - ?", op.Amount)}
	case ledger.OperationReserve:
		guard = "available >= ?"
		updates = map[string]any{
			"available": gorm.Expr("available - ?", op.Amount),
			"pending":   gorm.Expr("pending + ?", op.Amount),
		}
	case ledger.OperationRelease:
		guard = "pending >= ?"
		updates = map[string]any{
			"pending":   gorm.Expr("pending - ?", op.Amount),
			"available": gorm.Expr("available + ?", op.Amount),
		}
	case ledger.OperationCommit:
		guard = "pending >= ?"
		updates = map[string]any{
			"pending": gorm.Expr("pending - ?", op.Amount),
			"settled": gorm.Expr("settled + ?", op.Amount),
		}
	}
	updates["updated_at"] = now

	res := tx.Model(&models.BalanceAccountModel{}).
		Where("owner = ? AND asset = ? AND "+guard, op.Owner, op.Asset.String(), op.Amount).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to apply %s: %w", op.Kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return ledger.ErrInsufficientFunds
	}
	return nil
}

func (r *BalanceRepositoryImpl) GetAccount(ctx context.Context, owner string, assetCode asset.Code) (*ledger.Account, error) {
	var model models.BalanceAccountModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("owner = ? AND asset = ?", owner, assetCode.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ledger.Account{Owner: owner, Asset: assetCode}, nil
		}
		return nil, fmt.Errorf("failed to get balance account: %w", err)
	}
	return mappers.BalanceAccountToDomain(&model), nil
}
