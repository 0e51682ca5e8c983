package usecases

import (
	"context"
	"errors"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

var errIntentChanged = errors.New("sell intent changed concurrently")

type SetPayoutDestinationCommand struct {
	Owner         string
	IntentID      string
	BankCode      string
	AccountNumber string
	AccountName   string
}

// SetPayoutDestinationUseCase attaches or replaces the bank account an intent
// pays out to. When the deposit has already been credited the settlement
// record is updated in the same transaction, so a swapped settlement waiting
// for a destination is picked up by the next reconciliation sweep.
type SetPayoutDestinationUseCase struct {
	intents intent.Repository
	records settlement.Repository
	tx      TransactionRunner
	clock   biztime.Clock
	logger  logger.Interface
}

func NewSetPayoutDestinationUseCase(
	intents intent.Repository,
	records settlement.Repository,
	tx TransactionRunner,
	clock biztime.Clock,
	log logger.Interface,
) *SetPayoutDestinationUseCase {
	return &SetPayoutDestinationUseCase{
		intents: intents,
		records: records,
		tx:      tx,
		clock:   clock,
		logger:  log.Named("set_payout_destination"),
	}
}

func (uc *SetPayoutDestinationUseCase) Execute(ctx context.Context, cmd SetPayoutDestinationCommand) (*dto.IntentDTO, error) {
	dest, err := intentvo.NewPayoutDestination(cmd.BankCode, cmd.AccountNumber, cmd.AccountName)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid payout destination", err.Error())
	}

	si, err := uc.intents.GetByID(ctx, cmd.IntentID)
	if err != nil {
		if errors.Is(err, intent.ErrIntentNotFound) {
			return nil, apperrors.NewNotFoundError("sell intent not found", cmd.IntentID)
		}
		return nil, apperrors.NewInternalError("failed to load sell intent")
	}

	switch err := si.CheckDestinationChangeableBy(cmd.Owner); {
	case errors.Is(err, intent.ErrNotIntentOwner):
		return nil, apperrors.NewNotFoundError("sell intent not found", cmd.IntentID)
	case errors.Is(err, intent.ErrIntentSettled):
		return nil, apperrors.NewConflictError("payout destination can no longer change", si.Status().String())
	}

	now := uc.clock.Now()
	var rec *settlement.Record
	err = uc.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = uc.records.GetByIntentID(txCtx, si.ID())
		switch {
		case err == nil:
			if err := rec.AttachDestination(dest, now); err != nil {
				return err
			}
			if err := uc.records.Update(txCtx, rec); err != nil {
				return err
			}
		case errors.Is(err, settlement.ErrRecordNotFound):
			rec = nil
		default:
			return err
		}

		updated, err := uc.intents.SetPayoutDestination(txCtx, si.ID(), si.Status(), dest)
		if err != nil {
			return err
		}
		if !updated {
			return errIntentChanged
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrDestinationLocked):
			return nil, apperrors.NewConflictError("payout destination can no longer change", err.Error())
		case errors.Is(err, errIntentChanged), errors.Is(err, settlement.ErrVersionConflict):
			return nil, apperrors.NewConflictError("sell intent changed, retry the update")
		}
		uc.logger.Errorw("failed to set payout destination", "intent_id", si.ID(), "error", err)
		return nil, apperrors.NewInternalError("failed to set payout destination")
	}
	si.ApplyPayoutDestination(dest, now)

	fields := []any{
		"intent_id", si.ID(),
		"owner", cmd.Owner,
		"account_number", utils.MaskAccountNumber(dest.AccountNumber()),
	}
	if rec != nil {
		fields = append(fields, "settlement_state", rec.State())
	}
	uc.logger.Infow("payout destination set", fields...)

	return dto.ToIntentDTO(si), nil
}
