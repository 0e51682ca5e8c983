package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orris-inc/offramp/internal/application/settlement/idempotency"
	"github.com/orris-inc/offramp/internal/application/settlement/metrics"
	"github.com/orris-inc/offramp/internal/application/settlement/notification"
	"github.com/orris-inc/offramp/internal/application/settlement/provider"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// Outcome is how far a settlement got during one pass.
type Outcome string

const (
	OutcomeAcknowledged  Outcome = "acknowledged"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeInProgress    Outcome = "in_progress"
	OutcomeSwapFailed    Outcome = "swap_failed"
	OutcomeSwapped       Outcome = "swapped"
	OutcomePayoutPending Outcome = "payout_pending"
	OutcomePayoutFailed  Outcome = "payout_failed"
	OutcomeSettled       Outcome = "settled"
)

const notifyTimeout = 5 * time.Second

// Settler drives a credited settlement record through swap and payout. Every
// step is claimed with a versioned update before the provider is called, so
// two workers never run the same step for the same record.
type Settler struct {
	intents  intent.Repository
	records  settlement.Repository
	ledger   BalanceLedger
	tx       TransactionRunner
	swap     provider.SwapGateway
	payout   provider.PayoutGateway
	notifier notification.Sink
	alerter  notification.OperatorAlerter
	metrics  metrics.Recorder
	clock    biztime.Clock
	logger   logger.Interface
}

func NewSettler(
	intents intent.Repository,
	records settlement.Repository,
	ledger BalanceLedger,
	tx TransactionRunner,
	swap provider.SwapGateway,
	payout provider.PayoutGateway,
	clock biztime.Clock,
	log logger.Interface,
) *Settler {
	return &Settler{
		intents: intents,
		records: records,
		ledger:  ledger,
		tx:      tx,
		swap:    swap,
		payout:  payout,
		metrics: metrics.Nop(),
		clock:   clock,
		logger:  log.Named("settler"),
	}
}

// SetNotifier sets the user notification sink (optional).
func (s *Settler) SetNotifier(n notification.Sink) {
	s.notifier = n
}

// SetAlerter sets the operator alert channel (optional).
func (s *Settler) SetAlerter(a notification.OperatorAlerter) {
	s.alerter = a
}

func (s *Settler) SetMetrics(m metrics.Recorder) {
	if m != nil {
		s.metrics = m
	}
}

// Advance moves the record forward as far as it can go without operator
// action. Provider calls run on a context detached from the caller so an
// inbound request going away cannot abandon a step halfway.
func (s *Settler) Advance(ctx context.Context, rec *settlement.Record) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)

	for {
		switch rec.State() {
		case vo.SettlementStateCredited, vo.SettlementStateSwapFailed:
			if outcome, err := s.runSwap(ctx, rec); err != nil || outcome != "" {
				return outcome, err
			}
		case vo.SettlementStateSwapped:
			if rec.Destination() == nil {
				s.logger.Warnw("swap done but intent has no payout destination", "intent_id", rec.IntentID())
				return OutcomeSwapped, nil
			}
			return s.runPayout(ctx, rec)
		case vo.SettlementStateSwapping:
			return OutcomeInProgress, nil
		case vo.SettlementStatePayoutRequested:
			return OutcomePayoutPending, nil
		case vo.SettlementStatePayoutFailed:
			return OutcomePayoutFailed, nil
		case vo.SettlementStatePayoutSuccess:
			return OutcomeSettled, nil
		default:
			return "", apperrors.NewInternalError("unknown settlement state", string(rec.State()))
		}
	}
}

// RetryPayout starts a new payout attempt for a record in PAYOUT_FAILED.
func (s *Settler) RetryPayout(ctx context.Context, rec *settlement.Record) (Outcome, error) {
	if rec.State() != vo.SettlementStatePayoutFailed {
		return "", apperrors.NewConflictError("payout retry requires a failed payout", string(rec.State()))
	}
	return s.runPayout(context.WithoutCancel(ctx), rec)
}

// runSwap returns an empty outcome when the swap succeeded and the caller
// should keep advancing.
func (s *Settler) runSwap(ctx context.Context, rec *settlement.Record) (Outcome, error) {
	log := s.logger.With("intent_id", rec.IntentID(), "settlement_id", rec.ID())
	amount := rec.SwapAmount()
	key := idempotency.SwapKey(rec.IntentID(), amount)

	if err := rec.BeginSwap(key, s.clock.Now()); err != nil {
		return "", apperrors.NewConflictError("cannot start swap", err.Error())
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return s.lostClaim(log, "swap", err)
	}
	s.metrics.SettlementTransition(string(rec.State()))

	started := time.Now()
	result, err := s.swap.Swap(ctx, provider.SwapRequest{
		SourceAsset:    rec.Asset(),
		TargetCurrency: rec.ReceiveCurrency(),
		Amount:         amount,
		IdempotencyKey: key,
		Reference:      rec.IntentID(),
	})
	result = normalizeResult(result, key, err, s.clock.Now())
	s.metrics.ProviderCall("swap", string(result.Status), time.Since(started))

	if err != nil || !result.Succeeded() {
		if ferr := rec.FailSwap(result, s.clock.Now()); ferr != nil {
			return "", apperrors.NewInternalError("failed to record swap failure", ferr.Error())
		}
		if uerr := s.records.Update(ctx, rec); uerr != nil {
			log.Errorw("failed to persist swap failure", "error", uerr)
			return "", apperrors.NewInternalError("failed to persist swap failure")
		}
		s.metrics.SettlementTransition(string(rec.State()))
		s.reportProviderFailure(ctx, rec, "swap", rec.SwapAttempts(), result)

		log.Errorw("swap failed after credit",
			"attempt", rec.SwapAttempts(),
			"error_code", result.ErrorCode,
			"error", result.ErrorMessage,
		)
		return OutcomeSwapFailed, apperrors.NewProviderError("swap failed", rec.LastError())
	}

	if err := rec.CompleteSwap(result, s.clock.Now()); err != nil {
		return "", apperrors.NewInternalError("failed to record swap", err.Error())
	}
	if err := s.records.Update(ctx, rec); err != nil {
		log.Errorw("failed to persist swap success", "error", err)
		return "", apperrors.NewInternalError("failed to persist swap success")
	}
	s.metrics.SettlementTransition(string(rec.State()))
	log.Infow("swap completed", "amount", amount.String(), "asset", rec.Asset())
	return "", nil
}

func (s *Settler) runPayout(ctx context.Context, rec *settlement.Record) (Outcome, error) {
	log := s.logger.With("intent_id", rec.IntentID(), "settlement_id", rec.ID())
	amount := rec.PayoutAmount()
	key := idempotency.PayoutKey(rec.IntentID(), amount, rec.PayoutAttempts()+1)

	// Funds are reserved once per intent; a retried payout finds them already pending.
	err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.Reserve(txCtx, rec.Owner(), rec.ReceiveCurrency(), amount, idempotency.ReserveKey(rec.IntentID())); err != nil {
			return err
		}
		if err := rec.RequestPayout(key, s.clock.Now()); err != nil {
			return err
		}
		return s.records.Update(txCtx, rec)
	})
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrVersionConflict):
			return s.lostClaim(log, "payout", err)
		case errors.Is(err, settlement.ErrMissingDestination):
			return "", apperrors.NewValidationError("settlement has no payout destination")
		case errors.Is(err, settlement.ErrInvalidTransition):
			return "", apperrors.NewConflictError("cannot request payout", err.Error())
		case apperrors.IsAppError(err):
			return "", err
		default:
			log.Errorw("failed to request payout", "error", err)
			return "", apperrors.NewInternalError("failed to request payout")
		}
	}
	s.metrics.SettlementTransition(string(rec.State()))

	dest := rec.Destination()
	started := time.Now()
	result, err := s.payout.Payout(ctx, provider.PayoutRequest{
		Destination:    *dest,
		Amount:         amount,
		Currency:       rec.ReceiveCurrency(),
		IdempotencyKey: key,
		Reference:      rec.IntentID(),
		Narration:      fmt.Sprintf("Sale of %s %s", rec.SwapAmount().String(), rec.Asset()),
	})
	result = normalizeResult(result, key, err, s.clock.Now())
	s.metrics.ProviderCall("payout", string(result.Status), time.Since(started))

	switch {
	case errors.Is(err, provider.ErrOutcomeUnknown):
		// The provider may have accepted the payout. Keep the attempt open and
		// let status polling or the callback settle it.
		log.Warnw("payout outcome unknown, awaiting status", "error", err)
		result.Status = vo.ProviderCallPending
		return s.acceptPayout(ctx, rec, result)
	case err != nil || result.Failed():
		return s.FinalizePayout(ctx, rec, result)
	case result.Succeeded():
		return s.FinalizePayout(ctx, rec, result)
	default:
		return s.acceptPayout(ctx, rec, result)
	}
}

func (s *Settler) acceptPayout(ctx context.Context, rec *settlement.Record, result vo.ProviderResult) (Outcome, error) {
	if err := rec.AcceptPayout(result, s.clock.Now()); err != nil {
		return "", apperrors.NewInternalError("failed to record payout acceptance", err.Error())
	}
	if err := s.records.Update(ctx, rec); err != nil {
		s.logger.Errorw("failed to persist payout acceptance", "intent_id", rec.IntentID(), "error", err)
		return "", apperrors.NewInternalError("failed to persist payout acceptance")
	}
	return OutcomePayoutPending, nil
}

// FinalizePayout closes a PAYOUT_REQUESTED record with a definitive provider
// result. Success commits the reserved funds and completes the intent in the
// same transaction; failure leaves the funds pending for an operator.
func (s *Settler) FinalizePayout(ctx context.Context, rec *settlement.Record, result vo.ProviderResult) (Outcome, error) {
	log := s.logger.With("intent_id", rec.IntentID(), "settlement_id", rec.ID())
	now := s.clock.Now()

	if !result.Succeeded() {
		if result.Status != vo.ProviderCallFailed {
			return "", apperrors.NewInternalError("payout result is not final", string(result.Status))
		}
		if err := rec.FailPayout(result, now); err != nil {
			return "", apperrors.NewConflictError("cannot fail payout", err.Error())
		}
		if err := s.records.Update(ctx, rec); err != nil {
			if errors.Is(err, settlement.ErrVersionConflict) {
				return s.lostClaim(log, "payout failure", err)
			}
			log.Errorw("failed to persist payout failure", "error", err)
			return "", apperrors.NewInternalError("failed to persist payout failure")
		}
		s.metrics.SettlementTransition(string(rec.State()))
		s.reportProviderFailure(ctx, rec, "payout", rec.PayoutAttempts(), result)
		s.notify(ctx, rec, notification.OutcomePayoutFailed, rec.LastError())

		log.Errorw("payout failed after swap, operator action required",
			"attempt", rec.PayoutAttempts(),
			"error_code", result.ErrorCode,
			"error", result.ErrorMessage,
		)
		return OutcomePayoutFailed, apperrors.NewProviderError("payout failed", rec.LastError())
	}

	err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := rec.CompletePayout(result, now); err != nil {
			return err
		}
		if err := s.records.Update(txCtx, rec); err != nil {
			return err
		}
		if _, err := s.ledger.Commit(txCtx, rec.Owner(), rec.ReceiveCurrency(), rec.PayoutAmount(), idempotency.CommitKey(rec.IntentID())); err != nil {
			return err
		}
		won, err := s.intents.TransitionStatus(txCtx, rec.IntentID(), intentvo.IntentStatusConfirmed, intentvo.IntentStatusCompleted)
		if err != nil {
			return err
		}
		if !won {
			log.Warnw("intent was not in confirmed state at payout completion")
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrVersionConflict):
			return s.lostClaim(log, "payout completion", err)
		case errors.Is(err, settlement.ErrInvalidTransition):
			return "", apperrors.NewConflictError("cannot complete payout", err.Error())
		case apperrors.IsAppError(err):
			return "", err
		default:
			log.Errorw("failed to complete payout", "error", err)
			return "", apperrors.NewInternalError("failed to complete payout")
		}
	}
	s.metrics.SettlementTransition(string(rec.State()))
	s.notify(ctx, rec, notification.OutcomePayoutSucceeded, "")

	log.Infow("settlement completed",
		"payout_amount", rec.PayoutAmount().String(),
		"currency", rec.ReceiveCurrency(),
		"quoted_receive", rec.QuotedReceiveAmount().String(),
		"receive_delta", rec.ReceiveDelta().String(),
	)
	return OutcomeSettled, nil
}

// lostClaim handles a versioned update that lost to a concurrent writer.
func (s *Settler) lostClaim(log logger.Interface, step string, err error) (Outcome, error) {
	if errors.Is(err, settlement.ErrVersionConflict) {
		log.Infow("settlement step claimed by another worker", "step", step)
		return OutcomeInProgress, nil
	}
	log.Errorw("failed to claim settlement step", "step", step, "error", err)
	return "", apperrors.NewInternalError("failed to claim settlement step")
}

func (s *Settler) reportProviderFailure(ctx context.Context, rec *settlement.Record, stage string, attempt int, result vo.ProviderResult) {
	code := result.ErrorCode
	if code == "" {
		code = "unknown"
	}
	s.metrics.ProviderFailure(stage, code)

	if s.alerter == nil {
		return
	}
	amount := rec.SwapAmount()
	currency := rec.Asset().String()
	if stage == "payout" {
		amount = rec.PayoutAmount()
		currency = rec.ReceiveCurrency().String()
	}

	alertCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.alerter.AlertProviderFailure(alertCtx, notification.OperatorAlert{
		IntentID:     rec.IntentID(),
		SettlementID: rec.ID(),
		Stage:        stage,
		State:        rec.State().String(),
		Attempt:      attempt,
		ErrorCode:    result.ErrorCode,
		ErrorMessage: result.ErrorMessage,
		Amount:       amount,
		Currency:     currency,
		OccurredAt:   s.clock.Now(),
	}); err != nil {
		s.logger.Warnw("failed to send operator alert", "intent_id", rec.IntentID(), "stage", stage, "error", err)
	}
}

func (s *Settler) notify(ctx context.Context, rec *settlement.Record, outcome notification.Outcome, reason string) {
	if s.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifySettlement(notifyCtx, notification.SettlementNotification{
		IntentID:        rec.IntentID(),
		Owner:           rec.Owner(),
		Outcome:         outcome,
		Asset:           rec.Asset().String(),
		DepositAmount:   rec.ObservedAmount(),
		ReceiveCurrency: rec.ReceiveCurrency().String(),
		ReceiveAmount:   rec.PayoutAmount(),
		Reason:          reason,
		OccurredAt:      s.clock.Now(),
	}); err != nil {
		s.logger.Warnw("failed to notify owner", "intent_id", rec.IntentID(), "outcome", outcome, "error", err)
	}
}

// normalizeResult fills in what the gateway could not: the key, the time and
// a failure status when the call returned an error.
func normalizeResult(result vo.ProviderResult, key string, callErr error, now time.Time) vo.ProviderResult {
	if result.IdempotencyKey == "" {
		result.IdempotencyKey = key
	}
	if result.RecordedAt.IsZero() {
		result.RecordedAt = now
	}
	if callErr != nil {
		result.Status = vo.ProviderCallFailed
		if result.ErrorMessage == "" {
			result.ErrorMessage = callErr.Error()
		}
	}
	if result.Status == "" {
		result.Status = vo.ProviderCallFailed
	}
	return result
}
