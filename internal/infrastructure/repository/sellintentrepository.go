package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/offramp/internal/domain/intent"
	vo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/db"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// SellIntentRepositoryImpl implements intent.Repository on gorm.
type SellIntentRepositoryImpl struct {
	db     *gorm.DB
	clock  biztime.Clock
	logger logger.Interface
}

func NewSellIntentRepository(database *gorm.DB, clock biztime.Clock, log logger.Interface) intent.Repository {
	return &SellIntentRepositoryImpl{db: database, clock: clock, logger: log}
}

func (r *SellIntentRepositoryImpl) Create(ctx context.Context, si *intent.SellIntent) error {
	model := mappers.SellIntentToModel(si)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create sell intent", "intent_id", model.ID, "error", err)
		return fmt.Errorf("failed to create sell intent: %w", err)
	}
	return nil
}

func (r *SellIntentRepositoryImpl) GetByID(ctx context.Context, id string) (*intent.SellIntent, error) {
	var model models.SellIntentModel
	if err := db.GetTxFromContext(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, intent.ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to get sell intent: %w", err)
	}
	return mappers.SellIntentToDomain(&model)
}

func (r *SellIntentRepositoryImpl) FindNewestPending(ctx context.Context, q intent.MatchQuery) (*intent.SellIntent, error) {
	var model models.SellIntentModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("network = ? AND deposit_address = ? AND asset = ? AND status = ? AND expires_at > ?",
			q.Network.String(), q.DepositAddress, q.Asset.String(), vo.IntentStatusPending.String(), q.Now).
		Order("created_at DESC").
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pending sell intent: %w", err)
	}
	return mappers.SellIntentToDomain(&model)
}

// TransitionStatus is a compare-and-swap on status; the row is touched only
// while it still holds from.
func (r *SellIntentRepositoryImpl) TransitionStatus(ctx context.Context, id string, from, to vo.IntentStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, fmt.Errorf("invalid intent transition %s -> %s", from, to)
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SellIntentModel{}).
		Where("id = ? AND status = ?", id, from.String()).
		Updates(map[string]any{
			"status":     to.String(),
			"version":    gorm.Expr("version + 1"),
			"updated_at": r.clock.Now(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to transition sell intent", "intent_id", id, "from", from, "to", to, "error", result.Error)
		return false, fmt.Errorf("failed to transition sell intent: %w", result.Error)
	}

	won := result.RowsAffected == 1
	if won {
		r.logger.Infow("sell intent status changed", "intent_id", id, "from", from, "to", to)
	}
	return won, nil
}

// SetPayoutDestination is conditional on status so a destination never lands
// on an intent that completed or closed in the meantime.
func (r *SellIntentRepositoryImpl) SetPayoutDestination(ctx context.Context, id string, status vo.IntentStatus, dest vo.PayoutDestination) (bool, error) {
	bankCode, accountNumber, accountName := dest.BankCode(), dest.AccountNumber(), dest.AccountName()
	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SellIntentModel{}).
		Where("id = ? AND status = ?", id, status.String()).
		Updates(map[string]any{
			"bank_code":      bankCode,
			"account_number": accountNumber,
			"account_name":   accountName,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     r.clock.Now(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to set payout destination", "intent_id", id, "error", result.Error)
		return false, fmt.Errorf("failed to set payout destination: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *SellIntentRepositoryImpl) ListExpired(ctx context.Context, now time.Time, limit int) ([]*intent.SellIntent, error) {
	var list []models.SellIntentModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND expires_at <= ?", vo.IntentStatusPending.String(), now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired sell intents: %w", err)
	}
	return mappers.SellIntentsToDomain(list)
}
