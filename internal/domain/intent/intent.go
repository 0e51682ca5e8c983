// Package intent models sell intents: a quoted request to sell a crypto
// asset for fiat, waiting for a deposit at an assigned address.
package intent

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	vo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/id"
)

var (
	ErrIntentNotFound  = errors.New("sell intent not found")
	ErrNotIntentOwner  = errors.New("sell intent belongs to another owner")
	ErrInvalidQuote    = errors.New("invalid quote")
	ErrIntentNotActive = errors.New("sell intent is no longer pending")
	ErrIntentSettled   = errors.New("sell intent is already settled or closed")
)

// Quote is the priced side of an intent at issuance time.
type Quote struct {
	SellAmount    decimal.Decimal
	ReceiveAmount decimal.Decimal
	Rate          decimal.Decimal
}

// NewIntentParams carries the validated inputs for a new intent.
type NewIntentParams struct {
	Owner           string
	Asset           asset.Code
	Network         asset.Network
	DepositAddress  string
	DepositMemo     string
	ReceiveCurrency asset.Code
	Quote           Quote
	Destination     vo.PayoutDestination
}

type SellIntent struct {
	id                  string
	owner               string
	asset               asset.Code
	network             asset.Network
	depositAddress      string
	depositMemo         *string
	quotedSellAmount    decimal.Decimal
	quotedReceiveAmount decimal.Decimal
	quotedRate          decimal.Decimal
	receiveCurrency     asset.Code
	status              vo.IntentStatus
	expiresAt           time.Time
	payoutDestination   *vo.PayoutDestination
	version             int
	createdAt           time.Time
	updatedAt           time.Time
}

func NewSellIntent(p NewIntentParams, now time.Time, ttl time.Duration) (*SellIntent, error) {
	if p.Owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	if !p.Asset.IsValid() || p.Asset.IsFiat() {
		return nil, fmt.Errorf("unsupported asset: %q", p.Asset)
	}
	if !p.Asset.SupportsNetwork(p.Network) {
		return nil, fmt.Errorf("%s is not supported on %s", p.Asset, p.Network)
	}
	if err := p.Network.ValidateAddress(p.DepositAddress); err != nil {
		return nil, err
	}
	if !p.ReceiveCurrency.IsFiat() {
		return nil, fmt.Errorf("unsupported receive currency: %q", p.ReceiveCurrency)
	}
	if !p.Quote.SellAmount.IsPositive() || !p.Quote.ReceiveAmount.IsPositive() || !p.Quote.Rate.IsPositive() {
		return nil, ErrInvalidQuote
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("intent ttl must be positive")
	}

	intentID, err := id.NewWithPrefix(id.PrefixSellIntent)
	if err != nil {
		return nil, err
	}

	si := &SellIntent{
		id:                  intentID,
		owner:               p.Owner,
		asset:               p.Asset,
		network:             p.Network,
		depositAddress:      p.Network.NormalizeAddress(p.DepositAddress),
		quotedSellAmount:    p.Quote.SellAmount,
		quotedReceiveAmount: p.Quote.ReceiveAmount,
		quotedRate:          p.Quote.Rate,
		receiveCurrency:     p.ReceiveCurrency,
		status:              vo.IntentStatusPending,
		expiresAt:           now.Add(ttl),
		version:             1,
		createdAt:           now,
		updatedAt:           now,
	}
	if p.DepositMemo != "" {
		memo := p.DepositMemo
		si.depositMemo = &memo
	}
	if !p.Destination.IsZero() {
		dest := p.Destination
		si.payoutDestination = &dest
	}
	return si, nil
}

// IsMatchableAt reports whether a deposit observed at now may settle this intent.
func (s *SellIntent) IsMatchableAt(now time.Time) bool {
	return s.status.IsPending() && now.Before(s.expiresAt)
}

// MatchesMemo compares the event memo when the intent was issued with one.
func (s *SellIntent) MatchesMemo(memo string) bool {
	return s.depositMemo == nil || *s.depositMemo == memo
}

// CheckCancellableBy returns an error unless owner may cancel the intent now.
func (s *SellIntent) CheckCancellableBy(owner string) error {
	if s.owner != owner {
		return ErrNotIntentOwner
	}
	if !s.status.IsPending() {
		return ErrIntentNotActive
	}
	return nil
}

// CheckDestinationChangeableBy returns an error unless owner may set the
// payout destination. It stays open until the intent is paid out or closed.
func (s *SellIntent) CheckDestinationChangeableBy(owner string) error {
	if s.owner != owner {
		return ErrNotIntentOwner
	}
	if s.status != vo.IntentStatusPending && s.status != vo.IntentStatusConfirmed {
		return ErrIntentSettled
	}
	return nil
}

// ApplyPayoutDestination mirrors a destination change that has been persisted.
func (s *SellIntent) ApplyPayoutDestination(dest vo.PayoutDestination, now time.Time) {
	s.payoutDestination = &dest
	s.updatedAt = now
	s.version++
}

// ApplyStatus mirrors a status change that has been persisted by a conditional update.
func (s *SellIntent) ApplyStatus(next vo.IntentStatus, now time.Time) error {
	if !s.status.CanTransitionTo(next) {
		return fmt.Errorf("cannot move intent %s from %s to %s", s.id, s.status, next)
	}
	s.status = next
	s.updatedAt = now
	s.version++
	return nil
}

func (s *SellIntent) ID() string                               { return s.id }
func (s *SellIntent) Owner() string                            { return s.owner }
func (s *SellIntent) Asset() asset.Code                        { return s.asset }
func (s *SellIntent) Network() asset.Network                   { return s.network }
func (s *SellIntent) DepositAddress() string                   { return s.depositAddress }
func (s *SellIntent) DepositMemo() *string                     { return s.depositMemo }
func (s *SellIntent) QuotedSellAmount() decimal.Decimal        { return s.quotedSellAmount }
func (s *SellIntent) QuotedReceiveAmount() decimal.Decimal     { return s.quotedReceiveAmount }
func (s *SellIntent) QuotedRate() decimal.Decimal              { return s.quotedRate }
func (s *SellIntent) ReceiveCurrency() asset.Code              { return s.receiveCurrency }
func (s *SellIntent) Status() vo.IntentStatus                  { return s.status }
func (s *SellIntent) ExpiresAt() time.Time                     { return s.expiresAt }
func (s *SellIntent) PayoutDestination() *vo.PayoutDestination { return s.payoutDestination }
func (s *SellIntent) Version() int                             { return s.version }
func (s *SellIntent) CreatedAt() time.Time                     { return s.createdAt }
func (s *SellIntent) UpdatedAt() time.Time                     { return s.updatedAt }

// ReconstructSellIntent rebuilds an intent from persistence without validation.
func ReconstructSellIntent(
	intentID, owner string,
	assetCode asset.Code,
	network asset.Network,
	depositAddress string,
	depositMemo *string,
	quote Quote,
	receiveCurrency asset.Code,
	status vo.IntentStatus,
	expiresAt time.Time,
	destination *vo.PayoutDestination,
	version int,
	createdAt, updatedAt time.Time,
) *SellIntent {
	return &SellIntent{
		id:                  intentID,
		owner:               owner,
		asset:               assetCode,
		network:             network,
		depositAddress:      depositAddress,
		depositMemo:         depositMemo,
		quotedSellAmount:    quote.SellAmount,
		quotedReceiveAmount: quote.ReceiveAmount,
		quotedRate:          quote.Rate,
		receiveCurrency:     receiveCurrency,
		status:              status,
		expiresAt:           expiresAt,
		payoutDestination:   destination,
		version:             version,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}
