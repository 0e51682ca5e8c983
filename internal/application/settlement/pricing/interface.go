package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

// ErrPriceUnavailable is returned when no fresh price exists. Callers must
// fail closed rather than fall back to a guess.
var ErrPriceUnavailable = errors.New("price unavailable")

// ErrAmountTooSmall is returned when fees consume the whole sale.
var ErrAmountTooSmall = errors.New("amount too small to quote")

// PriceOracle supplies the current unit price of an asset in a fiat currency.
type PriceOracle interface {
	Price(ctx context.Context, assetCode, currency asset.Code) (decimal.Decimal, error)
}

// Breakdown explains how a receive amount was derived from the gross value.
type Breakdown struct {
	GrossAmount  decimal.Decimal `json:"gross_amount"`
	SpreadAmount decimal.Decimal `json:"spread_amount"`
	FlatFee      decimal.Decimal `json:"flat_fee"`
	PriceAt      time.Time       `json:"price_at"`
}

type SellQuote struct {
	Asset         asset.Code
	Currency      asset.Code
	SellAmount    decimal.Decimal
	Rate          decimal.Decimal
	ReceiveAmount decimal.Decimal
	Breakdown     Breakdown
}

// SellQuoter prices a sale. For a fixed price snapshot the result depends
// only on the inputs.
type SellQuoter interface {
	GetSellQuote(ctx context.Context, assetCode, currency asset.Code, amount decimal.Decimal) (*SellQuote, error)
}
