package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/application/matching"
	"github.com/orris-inc/offramp/internal/application/settlement/idempotency"
	"github.com/orris-inc/offramp/internal/application/settlement/locking"
	"github.com/orris-inc/offramp/internal/application/settlement/metrics"
	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// DefaultAnomalyRatio flags deposits deviating more than 20% from the quote.
var DefaultAnomalyRatio = decimal.RequireFromString("0.2")

var (
	errClaimLost    = errors.New("intent claimed by a concurrent delivery")
	errUnsettleable = errors.New("deposit cannot be settled")
)

type DepositResult struct {
	Outcome      Outcome `json:"outcome"`
	IntentID     string  `json:"intent_id,omitempty"`
	SettlementID string  `json:"settlement_id,omitempty"`
	State        string  `json:"state,omitempty"`
}

// HandleDepositUseCase turns a deposit notification into a credited
// settlement and drives it through swap and payout.
type HandleDepositUseCase struct {
	matcher      DepositMatcher
	quoter       pricing.SellQuoter
	intents      intent.Repository
	records      settlement.Repository
	unmatched    settlement.UnmatchedDepositRepository
	ledger       BalanceLedger
	tx           TransactionRunner
	settler      *Settler
	locker       locking.DeliveryLocker
	metrics      metrics.Recorder
	anomalyRatio decimal.Decimal
	clock        biztime.Clock
	logger       logger.Interface
}

func NewHandleDepositUseCase(
	matcher DepositMatcher,
	quoter pricing.SellQuoter,
	intents intent.Repository,
	records settlement.Repository,
	unmatched settlement.UnmatchedDepositRepository,
	ledger BalanceLedger,
	tx TransactionRunner,
	settler *Settler,
	clock biztime.Clock,
	log logger.Interface,
) *HandleDepositUseCase {
	return &HandleDepositUseCase{
		matcher:      matcher,
		quoter:       quoter,
		intents:      intents,
		records:      records,
		unmatched:    unmatched,
		ledger:       ledger,
		tx:           tx,
		settler:      settler,
		locker:       locking.NopLocker(),
		metrics:      metrics.Nop(),
		anomalyRatio: DefaultAnomalyRatio,
		clock:        clock,
		logger:       log.Named("handle_deposit"),
	}
}

func (uc *HandleDepositUseCase) SetLocker(l locking.DeliveryLocker) {
	if l != nil {
		uc.locker = l
	}
}

func (uc *HandleDepositUseCase) SetMetrics(m metrics.Recorder) {
	if m != nil {
		uc.metrics = m
	}
}

func (uc *HandleDepositUseCase) SetAnomalyRatio(ratio decimal.Decimal) {
	if ratio.IsPositive() {
		uc.anomalyRatio = ratio
	}
}

func (uc *HandleDepositUseCase) Execute(ctx context.Context, ev deposit.Event) (*DepositResult, error) {
	result, err := uc.execute(ctx, ev)
	outcome := "error"
	if result != nil {
		outcome = string(result.Outcome)
	} else if appErr := apperrors.GetAppError(err); appErr != nil {
		outcome = string(appErr.Type)
	}
	uc.metrics.DepositReceived(ev.Provider, outcome)
	return result, err
}

func (uc *HandleDepositUseCase) execute(ctx context.Context, ev deposit.Event) (*DepositResult, error) {
	if err := ev.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid deposit event", err.Error())
	}

	log := uc.logger.With(
		"provider", ev.Provider,
		"network", ev.Network,
		"tx_hash", ev.TxHash,
	)

	switch ev.Finality {
	case deposit.FinalityPending:
		log.Infow("deposit not final yet, acknowledged", "status", ev.RawStatus)
		return &DepositResult{Outcome: OutcomeAcknowledged}, nil
	case deposit.FinalityFailed:
		log.Warnw("deposit reported failed by provider, ignored", "status", ev.RawStatus)
		return &DepositResult{Outcome: OutcomeIgnored}, nil
	}

	release, err := uc.locker.Acquire(ctx, "deposit:"+ev.DeliveryKey())
	if err != nil {
		log.Warnw("delivery lock unavailable, relying on conditional updates", "error", err)
	} else {
		defer release()
	}

	if existing, err := uc.records.GetByObservedTx(ctx, ev.Network, ev.TxHash); err == nil {
		log.Infow("duplicate delivery, deposit already settled", "intent_id", existing.IntentID(), "state", existing.State())
		return duplicateResult(existing), nil
	} else if !errors.Is(err, settlement.ErrRecordNotFound) {
		log.Errorw("failed to check for existing settlement", "error", err)
		return nil, apperrors.NewInternalError("failed to check for existing settlement")
	}

	// A triaged deposit stays with the operator; matching it again would pay
	// it out against whatever intent now holds the address.
	if entry, err := uc.unmatched.GetByDelivery(ctx, ev.Network, ev.TxHash, ev.NormalizedAddress()); err == nil {
		log.Infow("duplicate delivery, deposit already recorded for triage", "reason", entry.Reason)
		return &DepositResult{Outcome: OutcomeDuplicate}, nil
	} else if !errors.Is(err, settlement.ErrUnmatchedNotFound) {
		log.Errorw("failed to check unmatched deposits", "error", err)
		return nil, apperrors.NewInternalError("failed to check unmatched deposits")
	}

	match, err := uc.matcher.Match(ctx, ev)
	if err != nil {
		log.Errorw("deposit matching failed", "error", err)
		return nil, apperrors.NewInternalError("deposit matching failed")
	}
	if !match.Matched {
		return uc.handleUnmatched(ctx, ev, match)
	}

	si := match.Intent
	log = log.With("intent_id", si.ID())

	// Recompute from the observed amount; the quoted receive amount is kept for audit only.
	quote, err := uc.quoter.GetSellQuote(ctx, si.Asset(), si.ReceiveCurrency(), ev.Amount)
	if err != nil {
		log.Warnw("failed to recompute sell quote", "error", err)
		if errors.Is(err, pricing.ErrPriceUnavailable) {
			return nil, apperrors.NewPriceUnavailableError("price unavailable for settlement", si.Asset().String())
		}
		return nil, apperrors.NewInternalError("failed to recompute sell quote")
	}

	anomaly := uc.isAnomalous(ev.Amount, si.QuotedSellAmount())
	if anomaly {
		uc.metrics.DepositAnomaly(si.Asset().String())
		log.Warnw("deposit amount deviates from quote beyond anomaly threshold",
			"quoted", si.QuotedSellAmount().String(),
			"observed", ev.Amount.String(),
			"threshold", uc.anomalyRatio.String(),
		)
	}

	now := uc.clock.Now()
	params := settlement.NewRecordParams{
		IntentID:            si.ID(),
		Owner:               si.Owner(),
		Asset:               si.Asset(),
		Network:             si.Network(),
		ReceiveCurrency:     si.ReceiveCurrency(),
		ObservedAmount:      ev.Amount,
		ObservedTxHash:      ev.TxHash,
		ProviderTxID:        ev.ProviderTxID,
		ObservedAt:          ev.ReceivedAt,
		QuotedSellAmount:    si.QuotedSellAmount(),
		QuotedReceiveAmount: si.QuotedReceiveAmount(),
		ActualReceiveAmount: si.ReceiveCurrency().Quantize(quote.ReceiveAmount),
		ActualRate:          quote.Rate,
		Anomaly:             anomaly,
	}

	var rec *settlement.Record
	err = uc.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		won, err := uc.intents.TransitionStatus(txCtx, si.ID(), intentvo.IntentStatusPending, intentvo.IntentStatusConfirmed)
		if err != nil {
			return err
		}
		if !won {
			return errClaimLost
		}
		// Re-read after the claim: the payout destination may have been set
		// since the match, and it cannot change again until this commits.
		claimed, err := uc.intents.GetByID(txCtx, si.ID())
		if err != nil {
			return err
		}
		params.Destination = claimed.PayoutDestination()
		if rec, err = settlement.NewRecord(params, now); err != nil {
			return fmt.Errorf("%w: %v", errUnsettleable, err)
		}
		if _, err := uc.ledger.Credit(txCtx, si.Owner(), si.ReceiveCurrency(), rec.PayoutAmount(), idempotency.CreditKey(si.ID())); err != nil {
			return err
		}
		return uc.records.Create(txCtx, rec)
	})
	if err != nil {
		if errors.Is(err, errClaimLost) || errors.Is(err, settlement.ErrRecordExists) {
			log.Infow("duplicate delivery, intent already claimed")
			return &DepositResult{Outcome: OutcomeDuplicate, IntentID: si.ID()}, nil
		}
		if errors.Is(err, errUnsettleable) {
			log.Errorw("cannot build settlement record", "error", err)
			return nil, apperrors.NewValidationError("cannot settle deposit", err.Error())
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		log.Errorw("failed to confirm deposit", "error", err)
		return nil, apperrors.NewInternalError("failed to confirm deposit")
	}

	uc.metrics.SettlementTransition(string(rec.State()))
	log.Infow("deposit confirmed and credited",
		"observed", ev.Amount.String(),
		"quoted", si.QuotedSellAmount().String(),
		"actual_receive", rec.PayoutAmount().String(),
		"quoted_receive", si.QuotedReceiveAmount().String(),
		"currency", si.ReceiveCurrency(),
	)

	outcome, err := uc.settler.Advance(ctx, rec)
	if err != nil {
		// The deposit is booked; provider failures are alerted and retried
		// out of band, so the delivery itself succeeded.
		if apperrors.IsProviderError(err) {
			return &DepositResult{Outcome: outcome, IntentID: si.ID(), SettlementID: rec.ID(), State: rec.State().String()}, nil
		}
		return nil, err
	}

	return &DepositResult{
		Outcome:      outcome,
		IntentID:     si.ID(),
		SettlementID: rec.ID(),
		State:        rec.State().String(),
	}, nil
}

func (uc *HandleDepositUseCase) handleUnmatched(ctx context.Context, ev deposit.Event, match *matching.Result) (*DepositResult, error) {
	if match.Reason == matching.ReasonPriceUnavailable {
		return nil, apperrors.NewPriceUnavailableError("price unavailable, deposit not matched", ev.Asset.String())
	}

	// A concurrent delivery of this deposit may have claimed the intent after
	// our first lookup.
	if existing, err := uc.records.GetByObservedTx(ctx, ev.Network, ev.TxHash); err == nil {
		uc.logger.Infow("duplicate delivery, deposit settled concurrently", "tx_hash", ev.TxHash, "intent_id", existing.IntentID())
		return duplicateResult(existing), nil
	} else if !errors.Is(err, settlement.ErrRecordNotFound) {
		return nil, apperrors.NewInternalError("failed to check for existing settlement")
	}

	reason := settlement.UnmatchedNoPendingIntent
	var intentID *string
	var closeAs intentvo.IntentStatus
	detail := ""

	switch match.Reason {
	case matching.ReasonMemoMismatch:
		reason = settlement.UnmatchedMemoMismatch
	case matching.ReasonToleranceExceeded:
		reason = settlement.UnmatchedToleranceExceeded
		id := match.Intent.ID()
		intentID = &id
		closeAs = intentvo.IntentStatusOverpaid
		if ev.Amount.LessThan(match.Intent.QuotedSellAmount()) {
			closeAs = intentvo.IntentStatusUnderpaid
		}
		detail = fmt.Sprintf("quoted %s, observed %s, difference %s USD",
			match.Intent.QuotedSellAmount(), ev.Amount, match.DifferenceUSD.StringFixed(2))
	}

	entry, err := settlement.NewUnmatchedDeposit(ev, reason, intentID, detail, uc.clock.Now())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build unmatched deposit entry")
	}

	created := false
	err = uc.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if created, err = uc.unmatched.Save(txCtx, entry); err != nil || !created {
			return err
		}
		if closeAs != "" {
			if _, err := uc.intents.TransitionStatus(txCtx, *intentID, intentvo.IntentStatusPending, closeAs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to record unmatched deposit", "tx_hash", ev.TxHash, "error", err)
		return nil, apperrors.NewInternalError("failed to record unmatched deposit")
	}

	if !created {
		uc.logger.Infow("duplicate delivery of unmatched deposit", "tx_hash", ev.TxHash, "reason", reason)
		return &DepositResult{Outcome: OutcomeDuplicate}, nil
	}

	uc.metrics.UnmatchedDeposit(string(reason))
	uc.logger.Warnw("deposit recorded for manual triage",
		"tx_hash", ev.TxHash,
		"address", ev.NormalizedAddress(),
		"amount", ev.Amount.String(),
		"reason", reason,
	)

	if reason == settlement.UnmatchedToleranceExceeded {
		return nil, apperrors.NewToleranceExceededError("deposit amount outside tolerance", detail)
	}
	return nil, apperrors.NewNoMatchError("no pending intent for deposit", ev.NormalizedAddress())
}

func (uc *HandleDepositUseCase) isAnomalous(observed, quoted decimal.Decimal) bool {
	if !quoted.IsPositive() {
		return false
	}
	return observed.Sub(quoted).Abs().Div(quoted).GreaterThan(uc.anomalyRatio)
}

func duplicateResult(rec *settlement.Record) *DepositResult {
	return &DepositResult{
		Outcome:      OutcomeDuplicate,
		IntentID:     rec.IntentID(),
		SettlementID: rec.ID(),
		State:        rec.State().String(),
	}
}
