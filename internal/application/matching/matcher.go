// Package matching pairs observed deposits with the sell intent they pay for.
package matching

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/intent"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// Reason explains a NoMatch.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoPendingIntent   Reason = "no_pending_intent"
	ReasonMemoMismatch      Reason = "memo_mismatch"
	ReasonToleranceExceeded Reason = "tolerance_exceeded"
	ReasonPriceUnavailable  Reason = "price_unavailable"
)

// DefaultToleranceUSD is the allowed fiat value of the difference between
// quoted and observed deposit amounts.
var DefaultToleranceUSD = decimal.NewFromInt(5)

// Result is the matcher verdict. Intent is set on a match and also on a
// tolerance failure, so the caller can close the intent.
type Result struct {
	Intent        *intent.SellIntent
	Matched       bool
	Reason        Reason
	Difference    decimal.Decimal
	DifferenceUSD decimal.Decimal
}

type DepositMatcher struct {
	intents      intent.Repository
	oracle       pricing.PriceOracle
	toleranceUSD decimal.Decimal
	clock        biztime.Clock
	logger       logger.Interface
}

func NewDepositMatcher(
	intents intent.Repository,
	oracle pricing.PriceOracle,
	toleranceUSD decimal.Decimal,
	clock biztime.Clock,
	log logger.Interface,
) *DepositMatcher {
	if !toleranceUSD.IsPositive() {
		toleranceUSD = DefaultToleranceUSD
	}
	return &DepositMatcher{
		intents:      intents,
		oracle:       oracle,
		toleranceUSD: toleranceUSD,
		clock:        clock,
		logger:       log.Named("deposit_matcher"),
	}
}

// Match selects the newest pending, unexpired intent at the deposit address
// and checks the amount against the tolerance band. It never mutates state.
// A returned error means the event was invalid or the store failed.
func (m *DepositMatcher) Match(ctx context.Context, ev deposit.Event) (*Result, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if !ev.IsFinal() {
		return nil, fmt.Errorf("deposit %s is not final", ev.RawStatus)
	}

	now := m.clock.Now()
	si, err := m.intents.FindNewestPending(ctx, intent.MatchQuery{
		Network:        ev.Network,
		DepositAddress: ev.NormalizedAddress(),
		Asset:          ev.Asset,
		Now:            now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending intent: %w", err)
	}
	if si == nil || !si.IsMatchableAt(now) {
		m.logger.Warnw("unmatched deposit: no pending intent at address",
			"network", ev.Network,
			"asset", ev.Asset,
			"address", ev.NormalizedAddress(),
			"amount", ev.Amount.String(),
			"tx_hash", ev.TxHash,
		)
		return &Result{Reason: ReasonNoPendingIntent}, nil
	}

	if !si.MatchesMemo(ev.Memo) {
		m.logger.Warnw("unmatched deposit: memo mismatch",
			"intent_id", si.ID(),
			"tx_hash", ev.TxHash,
		)
		return &Result{Reason: ReasonMemoMismatch}, nil
	}

	difference := ev.Amount.Sub(si.QuotedSellAmount()).Abs()
	price, err := m.oracle.Price(ctx, ev.Asset, asset.USD)
	if err != nil || !price.IsPositive() {
		m.logger.Warnw("price lookup failed, refusing to match",
			"intent_id", si.ID(),
			"asset", ev.Asset,
			"error", err,
		)
		return &Result{Reason: ReasonPriceUnavailable, Difference: difference}, nil
	}

	differenceUSD := difference.Mul(price)
	result := &Result{
		Intent:        si,
		Difference:    difference,
		DifferenceUSD: differenceUSD,
	}
	if differenceUSD.GreaterThan(m.toleranceUSD) {
		m.logger.Warnw("deposit outside tolerance band",
			"intent_id", si.ID(),
			"quoted", si.QuotedSellAmount().String(),
			"observed", ev.Amount.String(),
			"difference_usd", differenceUSD.StringFixed(2),
			"tolerance_usd", m.toleranceUSD.String(),
		)
		result.Reason = ReasonToleranceExceeded
		return result, nil
	}

	result.Matched = true
	return result, nil
}
