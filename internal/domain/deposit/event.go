// Package deposit describes inbound on-chain deposits as reported by a
// custody provider. Events are matcher input only and are never stored as-is.
package deposit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

// Finality classifies a provider status.
type Finality string

const (
	// FinalityPending covers statuses still moving on-chain (confirming, waiting).
	FinalityPending Finality = "pending"
	// FinalityFinal means the provider considers the funds received.
	FinalityFinal Finality = "final"
	// FinalityFailed covers deposits the provider gave up on (failed, expired, refunded).
	FinalityFailed Finality = "failed"
)

type Event struct {
	Provider     string
	Asset        asset.Code
	Network      asset.Network
	Address      string
	Memo         string
	Amount       decimal.Decimal
	TxHash       string
	ProviderTxID string
	RawStatus    string
	Finality     Finality
	ReceivedAt   time.Time
	RawPayload   []byte
}

// Validate rejects events that must never reach the matcher. Amount and
// transaction hash are required only once the provider reports the deposit final.
func (e Event) Validate() error {
	if !e.Asset.IsValid() || e.Asset.IsFiat() {
		return fmt.Errorf("unsupported asset: %q", e.Asset)
	}
	if !e.Network.IsValid() {
		return fmt.Errorf("unsupported network: %q", e.Network)
	}
	if !e.Asset.SupportsNetwork(e.Network) {
		return fmt.Errorf("%s is not supported on %s", e.Asset, e.Network)
	}
	if e.Address == "" {
		return fmt.Errorf("deposit address is required")
	}
	switch e.Finality {
	case FinalityPending, FinalityFailed:
		// Deposits still in flight or abandoned may not carry a hash or an
		// amount yet.
		return nil
	case FinalityFinal:
	default:
		return fmt.Errorf("unknown deposit finality: %q", e.Finality)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive")
	}
	if e.TxHash == "" {
		return fmt.Errorf("transaction hash is required")
	}
	return nil
}

func (e Event) IsFinal() bool {
	return e.Finality == FinalityFinal
}

// NormalizedAddress is the address in the form intents are stored under.
func (e Event) NormalizedAddress() string {
	return e.Network.NormalizeAddress(e.Address)
}

// DeliveryKey identifies the underlying deposit across redeliveries.
func (e Event) DeliveryKey() string {
	return fmt.Sprintf("%s:%s:%s", e.Network, e.TxHash, e.NormalizedAddress())
}
