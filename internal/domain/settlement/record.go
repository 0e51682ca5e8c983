// Package settlement models the journey of a confirmed deposit from ledger
// credit through swap and bank payout, with the quoted and actual amounts
// kept side by side for audit.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/id"
)

var (
	ErrRecordNotFound     = errors.New("settlement record not found")
	ErrRecordExists       = errors.New("settlement record already exists for intent")
	ErrVersionConflict    = errors.New("settlement record was modified concurrently")
	ErrInvalidTransition  = errors.New("invalid settlement transition")
	ErrMissingDestination = errors.New("settlement has no payout destination")
	ErrUnmatchedNotFound  = errors.New("unmatched deposit not found")
	ErrDestinationLocked  = errors.New("payout destination cannot change while a payout is in flight or done")
)

// NewRecordParams captures everything known at confirmation time.
type NewRecordParams struct {
	IntentID            string
	Owner               string
	Asset               asset.Code
	Network             asset.Network
	ReceiveCurrency     asset.Code
	ObservedAmount      decimal.Decimal
	ObservedTxHash      string
	ProviderTxID        string
	ObservedAt          time.Time
	QuotedSellAmount    decimal.Decimal
	QuotedReceiveAmount decimal.Decimal
	ActualReceiveAmount decimal.Decimal
	ActualRate          decimal.Decimal
	Anomaly             bool
	Destination         *intentvo.PayoutDestination
}

type Record struct {
	id                  string
	intentID            string
	owner               string
	asset               asset.Code
	network             asset.Network
	receiveCurrency     asset.Code
	observedAmount      decimal.Decimal
	observedTxHash      string
	providerTxID        string
	observedAt          time.Time
	quotedSellAmount    decimal.Decimal
	quotedReceiveAmount decimal.Decimal
	actualReceiveAmount decimal.Decimal
	actualRate          decimal.Decimal
	anomaly             bool
	creditedAt          time.Time
	destination         *intentvo.PayoutDestination

	state vo.SettlementState

	swapIdempotencyKey   string
	swapAttempts         int
	swapResult           *vo.ProviderResult
	payoutIdempotencyKey string
	payoutAttempts       int
	payoutResult         *vo.ProviderResult
	lastError            string

	version   int
	createdAt time.Time
	updatedAt time.Time
}

// NewRecord creates a record in the CREDITED state. The caller must have
// credited the ledger in the same transaction.
func NewRecord(p NewRecordParams, now time.Time) (*Record, error) {
	if p.IntentID == "" || p.Owner == "" {
		return nil, fmt.Errorf("intent and owner are required")
	}
	if !p.ObservedAmount.IsPositive() {
		return nil, fmt.Errorf("observed amount must be positive")
	}
	if !p.ActualReceiveAmount.IsPositive() {
		return nil, fmt.Errorf("actual receive amount must be positive")
	}
	if p.ObservedTxHash == "" {
		return nil, fmt.Errorf("observed transaction hash is required")
	}

	recordID, err := id.NewWithPrefix(id.PrefixSettlement)
	if err != nil {
		return nil, err
	}

	return &Record{
		id:                  recordID,
		intentID:            p.IntentID,
		owner:               p.Owner,
		asset:               p.Asset,
		network:             p.Network,
		receiveCurrency:     p.ReceiveCurrency,
		observedAmount:      p.ObservedAmount,
		observedTxHash:      p.ObservedTxHash,
		providerTxID:        p.ProviderTxID,
		observedAt:          p.ObservedAt,
		quotedSellAmount:    p.QuotedSellAmount,
		quotedReceiveAmount: p.QuotedReceiveAmount,
		actualReceiveAmount: p.ActualReceiveAmount,
		actualRate:          p.ActualRate,
		anomaly:             p.Anomaly,
		creditedAt:          now,
		destination:         p.Destination,
		state:               vo.SettlementStateCredited,
		version:             1,
		createdAt:           now,
		updatedAt:           now,
	}, nil
}

func (r *Record) transition(next vo.SettlementState, now time.Time) error {
	if !r.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, next)
	}
	r.state = next
	r.updatedAt = now
	r.version++
	return nil
}

// BeginSwap claims the swap step. The key is stable across retries of the
// same swap so the provider can deduplicate.
func (r *Record) BeginSwap(idempotencyKey string, now time.Time) error {
	if err := r.transition(vo.SettlementStateSwapping, now); err != nil {
		return err
	}
	r.swapIdempotencyKey = idempotencyKey
	r.swapAttempts++
	return nil
}

func (r *Record) CompleteSwap(result vo.ProviderResult, now time.Time) error {
	if err := r.transition(vo.SettlementStateSwapped, now); err != nil {
		return err
	}
	r.swapResult = &result
	r.lastError = ""
	return nil
}

func (r *Record) FailSwap(result vo.ProviderResult, now time.Time) error {
	if err := r.transition(vo.SettlementStateSwapFailed, now); err != nil {
		return err
	}
	r.swapResult = &result
	r.lastError = describeFailure("swap", result)
	return nil
}

// AttachDestination sets where the payout goes. Only allowed while no payout
// attempt is outstanding and the swap is not mid-call.
func (r *Record) AttachDestination(dest intentvo.PayoutDestination, now time.Time) error {
	switch r.state {
	case vo.SettlementStateCredited, vo.SettlementStateSwapFailed,
		vo.SettlementStateSwapped, vo.SettlementStatePayoutFailed:
	default:
		return fmt.Errorf("%w: %s", ErrDestinationLocked, r.state)
	}
	r.destination = &dest
	r.updatedAt = now
	r.version++
	return nil
}

// RequestPayout claims a payout attempt. Each attempt carries its own key.
func (r *Record) RequestPayout(idempotencyKey string, now time.Time) error {
	if r.destination == nil {
		return ErrMissingDestination
	}
	if err := r.transition(vo.SettlementStatePayoutRequested, now); err != nil {
		return err
	}
	r.payoutIdempotencyKey = idempotencyKey
	r.payoutAttempts++
	r.payoutResult = nil
	return nil
}

// AcceptPayout records that the provider took the payout but has not finished it.
func (r *Record) AcceptPayout(result vo.ProviderResult, now time.Time) error {
	if r.state != vo.SettlementStatePayoutRequested {
		return fmt.Errorf("%w: cannot accept payout in state %s", ErrInvalidTransition, r.state)
	}
	r.payoutResult = &result
	r.updatedAt = now
	r.version++
	return nil
}

func (r *Record) CompletePayout(result vo.ProviderResult, now time.Time) error {
	if err := r.transition(vo.SettlementStatePayoutSuccess, now); err != nil {
		return err
	}
	r.payoutResult = mergeResult(r.payoutResult, result)
	r.lastError = ""
	return nil
}

func (r *Record) FailPayout(result vo.ProviderResult, now time.Time) error {
	if err := r.transition(vo.SettlementStatePayoutFailed, now); err != nil {
		return err
	}
	r.payoutResult = mergeResult(r.payoutResult, result)
	r.lastError = describeFailure("payout", result)
	return nil
}

// mergeResult keeps the provider reference from the acceptance when a later
// callback omits it.
func mergeResult(prev *vo.ProviderResult, next vo.ProviderResult) *vo.ProviderResult {
	if prev != nil {
		if next.Reference == "" {
			next.Reference = prev.Reference
		}
		if next.ProviderID == "" {
			next.ProviderID = prev.ProviderID
		}
	}
	return &next
}

func describeFailure(step string, result vo.ProviderResult) string {
	switch {
	case result.ErrorCode != "" && result.ErrorMessage != "":
		return fmt.Sprintf("%s failed: %s: %s", step, result.ErrorCode, result.ErrorMessage)
	case result.ErrorMessage != "":
		return fmt.Sprintf("%s failed: %s", step, result.ErrorMessage)
	case result.ErrorCode != "":
		return fmt.Sprintf("%s failed: %s", step, result.ErrorCode)
	default:
		return step + " failed"
	}
}

// ReceiveDelta is actual minus quoted receive amount.
func (r *Record) ReceiveDelta() decimal.Decimal {
	return r.actualReceiveAmount.Sub(r.quotedReceiveAmount)
}

// SwapAmount is the observed deposit truncated to the asset's ledger precision.
func (r *Record) SwapAmount() decimal.Decimal {
	return r.asset.Quantize(r.observedAmount)
}

// PayoutAmount is the actual receive amount truncated to whole minor units.
func (r *Record) PayoutAmount() decimal.Decimal {
	return r.receiveCurrency.Quantize(r.actualReceiveAmount)
}

func (r *Record) ID() string                               { return r.id }
func (r *Record) IntentID() string                         { return r.intentID }
func (r *Record) Owner() string                            { return r.owner }
func (r *Record) Asset() asset.Code                        { return r.asset }
func (r *Record) Network() asset.Network                   { return r.network }
func (r *Record) ReceiveCurrency() asset.Code              { return r.receiveCurrency }
func (r *Record) ObservedAmount() decimal.Decimal          { return r.observedAmount }
func (r *Record) ObservedTxHash() string                   { return r.observedTxHash }
func (r *Record) ProviderTxID() string                     { return r.providerTxID }
func (r *Record) ObservedAt() time.Time                    { return r.observedAt }
func (r *Record) QuotedSellAmount() decimal.Decimal        { return r.quotedSellAmount }
func (r *Record) QuotedReceiveAmount() decimal.Decimal     { return r.quotedReceiveAmount }
func (r *Record) ActualReceiveAmount() decimal.Decimal     { return r.actualReceiveAmount }
func (r *Record) ActualRate() decimal.Decimal              { return r.actualRate }
func (r *Record) Anomaly() bool                            { return r.anomaly }
func (r *Record) CreditedAt() time.Time                    { return r.creditedAt }
func (r *Record) Destination() *intentvo.PayoutDestination { return r.destination }
func (r *Record) State() vo.SettlementState                { return r.state }
func (r *Record) SwapIdempotencyKey() string               { return r.swapIdempotencyKey }
func (r *Record) SwapAttempts() int                        { return r.swapAttempts }
func (r *Record) SwapResult() *vo.ProviderResult           { return r.swapResult }
func (r *Record) PayoutIdempotencyKey() string             { return r.payoutIdempotencyKey }
func (r *Record) PayoutAttempts() int                      { return r.payoutAttempts }
func (r *Record) PayoutResult() *vo.ProviderResult         { return r.payoutResult }
func (r *Record) LastError() string                        { return r.lastError }
func (r *Record) Version() int                             { return r.version }
func (r *Record) CreatedAt() time.Time                     { return r.createdAt }
func (r *Record) UpdatedAt() time.Time                     { return r.updatedAt }

// RecordSnapshot is the persisted form of a Record, used by mappers.
type RecordSnapshot struct {
	ID                   string
	IntentID             string
	Owner                string
	Asset                asset.Code
	Network              asset.Network
	ReceiveCurrency      asset.Code
	ObservedAmount       decimal.Decimal
	ObservedTxHash       string
	ProviderTxID         string
	ObservedAt           time.Time
	QuotedSellAmount     decimal.Decimal
	QuotedReceiveAmount  decimal.Decimal
	ActualReceiveAmount  decimal.Decimal
	ActualRate           decimal.Decimal
	Anomaly              bool
	CreditedAt           time.Time
	Destination          *intentvo.PayoutDestination
	State                vo.SettlementState
	SwapIdempotencyKey   string
	SwapAttempts         int
	SwapResult           *vo.ProviderResult
	PayoutIdempotencyKey string
	PayoutAttempts       int
	PayoutResult         *vo.ProviderResult
	LastError            string
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReconstructRecord rebuilds a record from persistence without validation.
func ReconstructRecord(s RecordSnapshot) *Record {
	return &Record{
		id:                   s.ID,
		intentID:             s.IntentID,
		owner:                s.Owner,
		asset:                s.Asset,
		network:              s.Network,
		receiveCurrency:      s.ReceiveCurrency,
		observedAmount:       s.ObservedAmount,
		observedTxHash:       s.ObservedTxHash,
		providerTxID:         s.ProviderTxID,
		observedAt:           s.ObservedAt,
		quotedSellAmount:     s.QuotedSellAmount,
		quotedReceiveAmount:  s.QuotedReceiveAmount,
		actualReceiveAmount:  s.ActualReceiveAmount,
		actualRate:           s.ActualRate,
		anomaly:              s.Anomaly,
		creditedAt:           s.CreditedAt,
		destination:          s.Destination,
		state:                s.State,
		swapIdempotencyKey:   s.SwapIdempotencyKey,
		swapAttempts:         s.SwapAttempts,
		swapResult:           s.SwapResult,
		payoutIdempotencyKey: s.PayoutIdempotencyKey,
		payoutAttempts:       s.PayoutAttempts,
		payoutResult:         s.PayoutResult,
		lastError:            s.LastError,
		version:              s.Version,
		createdAt:            s.CreatedAt,
		updatedAt:            s.UpdatedAt,
	}
}
