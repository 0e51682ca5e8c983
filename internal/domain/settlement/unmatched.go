package settlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/id"
)

// UnmatchedReason explains why a final deposit could not be settled automatically.
type UnmatchedReason string

const (
	UnmatchedNoPendingIntent   UnmatchedReason = "no_pending_intent"
	UnmatchedToleranceExceeded UnmatchedReason = "tolerance_exceeded"
	UnmatchedMemoMismatch      UnmatchedReason = "memo_mismatch"
)

// UnmatchedDeposit is a triage entry for an operator. At most one exists per
// on-chain deposit.
type UnmatchedDeposit struct {
	ID           string
	Provider     string
	Asset        asset.Code
	Network      asset.Network
	Address      string
	Memo         string
	Amount       decimal.Decimal
	TxHash       string
	ProviderTxID string
	Reason       UnmatchedReason
	IntentID     *string
	Detail       string
	RawPayload   []byte
	CreatedAt    time.Time
}

func NewUnmatchedDeposit(ev deposit.Event, reason UnmatchedReason, intentID *string, detail string, now time.Time) (*UnmatchedDeposit, error) {
	entryID, err := id.NewWithPrefix(id.PrefixUnmatched)
	if err != nil {
		return nil, err
	}
	return &UnmatchedDeposit{
		ID:           entryID,
		Provider:     ev.Provider,
		Asset:        ev.Asset,
		Network:      ev.Network,
		Address:      ev.NormalizedAddress(),
		Memo:         ev.Memo,
		Amount:       ev.Amount,
		TxHash:       ev.TxHash,
		ProviderTxID: ev.ProviderTxID,
		Reason:       reason,
		IntentID:     intentID,
		Detail:       detail,
		RawPayload:   ev.RawPayload,
		CreatedAt:    now,
	}, nil
}
