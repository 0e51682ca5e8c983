package notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomePayoutSucceeded Outcome = "payout_succeeded"
	OutcomePayoutFailed    Outcome = "payout_failed"
)

// SettlementNotification tells the intent owner how their sale ended.
type SettlementNotification struct {
	IntentID        string          `json:"intent_id"`
	Owner           string          `json:"owner"`
	Outcome         Outcome         `json:"outcome"`
	Asset           string          `json:"asset"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	ReceiveCurrency string          `json:"receive_currency"`
	ReceiveAmount   decimal.Decimal `json:"receive_amount"`
	Reason          string          `json:"reason,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// Sink delivers user notifications on a best-effort basis. An error is
// logged by the caller and never undoes settlement.
type Sink interface {
	NotifySettlement(ctx context.Context, n SettlementNotification) error
}

// OperatorAlert describes a provider failure that left the ledger and the
// outside world out of step.
type OperatorAlert struct {
	IntentID     string
	SettlementID string
	Stage        string
	State        string
	Attempt      int
	ErrorCode    string
	ErrorMessage string
	Amount       decimal.Decimal
	Currency     string
	OccurredAt   time.Time
}

type OperatorAlerter interface {
	AlertProviderFailure(ctx context.Context, alert OperatorAlert) error
}
