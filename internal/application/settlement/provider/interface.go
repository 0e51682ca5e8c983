package provider

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

// ErrOutcomeUnknown marks a call whose effect on the provider side is not
// known: timeouts, transport errors and 5xx responses.
var ErrOutcomeUnknown = errors.New("provider outcome unknown")

type SwapRequest struct {
	SourceAsset    asset.Code
	TargetCurrency asset.Code
	Amount         decimal.Decimal
	IdempotencyKey string
	Reference      string
}

// SwapGateway executes a single swap attempt with no internal retry. The
// returned result is populated even when err is non-nil.
type SwapGateway interface {
	Swap(ctx context.Context, req SwapRequest) (vo.ProviderResult, error)
}

type PayoutRequest struct {
	Destination    intentvo.PayoutDestination
	Amount         decimal.Decimal
	Currency       asset.Code
	IdempotencyKey string
	Reference      string
	Narration      string
}

// PayoutGateway sends fiat to a bank account. Amounts must already be whole
// minor units of the currency.
type PayoutGateway interface {
	Payout(ctx context.Context, req PayoutRequest) (vo.ProviderResult, error)
	PayoutStatus(ctx context.Context, reference, idempotencyKey string) (vo.ProviderResult, error)
}
