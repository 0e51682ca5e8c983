package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
	"github.com/orris-inc/offramp/internal/shared/db"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// SettlementRepositoryImpl implements settlement.Repository on gorm.
type SettlementRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewSettlementRepository(database *gorm.DB, log logger.Interface) settlement.Repository {
	return &SettlementRepositoryImpl{db: database, logger: log}
}

func (r *SettlementRepositoryImpl) Create(ctx context.Context, rec *settlement.Record) error {
	model, err := mappers.SettlementRecordToModel(rec)
	if err != nil {
		return err
	}
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return settlement.ErrRecordExists
		}
		r.logger.Errorw("failed to create settlement record", "intent_id", model.IntentID, "error", err)
		return fmt.Errorf("failed to create settlement record: %w", err)
	}
	return nil
}

// Update writes the record only if the stored version is the one it was read at.
func (r *SettlementRepositoryImpl) Update(ctx context.Context, rec *settlement.Record) error {
	model, err := mappers.SettlementRecordToModel(rec)
	if err != nil {
		return err
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SettlementRecordModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"state":                  model.State,
			"bank_code":              model.BankCode,
			"account_number":         model.AccountNumber,
			"account_name":           model.AccountName,
			"swap_idempotency_key":   model.SwapIdempotencyKey,
			"swap_attempts":          model.SwapAttempts,
			"swap_result":            model.SwapResult,
			"payout_idempotency_key": model.PayoutIdempotencyKey,
			"payout_reference":       model.PayoutReference,
			"payout_attempts":        model.PayoutAttempts,
			"payout_result":          model.PayoutResult,
			"last_error":             model.LastError,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update settlement record", "intent_id", model.IntentID, "error", result.Error)
		return fmt.Errorf("failed to update settlement record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return settlement.ErrVersionConflict
	}

	r.logger.Debugw("settlement record updated", "intent_id", model.IntentID, "state", model.State, "version", model.Version)
	return nil
}

func (r *SettlementRepositoryImpl) first(ctx context.Context, query string, args ...any) (*settlement.Record, error) {
	var model models.SettlementRecordModel
	if err := db.GetTxFromContext(ctx, r.db).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return mappers.SettlementRecordToDomain(&model)
}

func (r *SettlementRepositoryImpl) GetByIntentID(ctx context.Context, intentID string) (*settlement.Record, error) {
	return r.first(ctx, "intent_id = ?", intentID)
}

func (r *SettlementRepositoryImpl) GetByObservedTx(ctx context.Context, network asset.Network, txHash string) (*settlement.Record, error) {
	return r.first(ctx, "network = ? AND observed_tx_hash = ?", network.String(), txHash)
}

func (r *SettlementRepositoryImpl) GetByPayoutIdempotencyKey(ctx context.Context, key string) (*settlement.Record, error) {
	if key == "" {
		return nil, settlement.ErrRecordNotFound
	}
	return r.first(ctx, "payout_idempotency_key = ?", key)
}

func (r *SettlementRepositoryImpl) GetByPayoutReference(ctx context.Context, reference string) (*settlement.Record, error) {
	if reference == "" {
		return nil, settlement.ErrRecordNotFound
	}
	return r.first(ctx, "payout_reference = ?", reference)
}

func (r *SettlementRepositoryImpl) ListStale(ctx context.Context, states []vo.SettlementState, cutoff time.Time, limit int) ([]*settlement.Record, error) {
	if len(states) == 0 {
		return nil, nil
	}
	var list []models.SettlementRecordModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("state IN ? AND updated_at < ?", stateStrings(states), cutoff).
		Where("NOT (state = ? AND account_number IS NULL)", vo.SettlementStateSwapped.String()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale settlements: %w", err)
	}
	return mappers.SettlementRecordsToDomain(list)
}

func (r *SettlementRepositoryImpl) List(ctx context.Context, filter settlement.ListFilter) ([]*settlement.Record, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.SettlementRecordModel{})
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", stateStrings(filter.States))
	}
	if filter.Owner != "" {
		query = query.Where("owner = ?", filter.Owner)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	var list []models.SettlementRecordModel
	if err := query.Order("updated_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list settlements: %w", err)
	}
	records, err := mappers.SettlementRecordsToDomain(list)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func stateStrings(states []vo.SettlementState) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, s.String())
	}
	return out
}

// UnmatchedDepositRepositoryImpl implements settlement.UnmatchedDepositRepository.
type UnmatchedDepositRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUnmatchedDepositRepository(database *gorm.DB, log logger.Interface) settlement.UnmatchedDepositRepository {
	return &UnmatchedDepositRepositoryImpl{db: database, logger: log}
}

// Save inserts the entry once per (network, tx hash, address); a redelivery
// reports false.
func (r *UnmatchedDepositRepositoryImpl) Save(ctx context.Context, d *settlement.UnmatchedDeposit) (bool, error) {
	model := mappers.UnmatchedDepositToModel(d)
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(onConflictDoNothing("network", "tx_hash", "address")).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to save unmatched deposit", "tx_hash", d.TxHash, "error", result.Error)
		return false, fmt.Errorf("failed to save unmatched deposit: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *UnmatchedDepositRepositoryImpl) GetByDelivery(ctx context.Context, network asset.Network, txHash, address string) (*settlement.UnmatchedDeposit, error) {
	var model models.UnmatchedDepositModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("network = ? AND tx_hash = ? AND address = ?", network.String(), txHash, address).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlement.ErrUnmatchedNotFound
		}
		return nil, fmt.Errorf("failed to get unmatched deposit: %w", err)
	}
	return mappers.UnmatchedDepositToDomain(&model), nil
}

func (r *UnmatchedDepositRepositoryImpl) List(ctx context.Context, offset, limit int) ([]*settlement.UnmatchedDeposit, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.UnmatchedDepositModel{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count unmatched deposits: %w", err)
	}

	var list []models.UnmatchedDepositModel
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list unmatched deposits: %w", err)
	}
	out := make([]*settlement.UnmatchedDeposit, 0, len(list))
	for i := range list {
		out = append(out, mappers.UnmatchedDepositToDomain(&list[i]))
	}
	return out, total, nil
}
