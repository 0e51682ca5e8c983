package exchangerate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/biztime"
)

const rateDecimals = 8

var bpsDenominator = decimal.NewFromInt(10000)

// FeeSchedule is the margin taken on a sale: a spread on the market price
// plus a flat fee in the receive currency.
type FeeSchedule struct {
	SpreadBps int64
	FlatFee   decimal.Decimal
}

// SellQuoter prices sales from an oracle and a fee schedule:
//
//	rate    = trunc(price * (1 - spread), 8)
//	receive = trunc(amount * rate - flatFee, currency decimals)
type SellQuoter struct {
	oracle pricing.PriceOracle
	fees   FeeSchedule
	clock  biztime.Clock
}

var _ pricing.SellQuoter = (*SellQuoter)(nil)

func NewSellQuoter(oracle pricing.PriceOracle, fees FeeSchedule, clock biztime.Clock) *SellQuoter {
	return &SellQuoter{oracle: oracle, fees: fees, clock: clock}
}

func (q *SellQuoter) GetSellQuote(ctx context.Context, assetCode, currency asset.Code, amount decimal.Decimal) (*pricing.SellQuote, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("sell amount must be positive")
	}
	if !currency.IsFiat() {
		return nil, fmt.Errorf("unsupported receive currency: %s", currency)
	}

	price, err := q.oracle.Price(ctx, assetCode, currency)
	if err != nil {
		return nil, err
	}

	keep := bpsDenominator.Sub(decimal.NewFromInt(q.fees.SpreadBps)).Div(bpsDenominator)
	rate := price.Mul(keep).Truncate(rateDecimals)

	gross := amount.Mul(price)
	net := amount.Mul(rate)
	receive := currency.Quantize(net.Sub(q.fees.FlatFee))
	if !receive.IsPositive() {
		return nil, fmt.Errorf("%w: %s %s", pricing.ErrAmountTooSmall, amount, assetCode)
	}

	return &pricing.SellQuote{
		Asset:         assetCode,
		Currency:      currency,
		SellAmount:    amount,
		Rate:          rate,
		ReceiveAmount: receive,
		Breakdown: pricing.Breakdown{
			GrossAmount:  currency.Quantize(gross),
			SpreadAmount: currency.Quantize(gross.Sub(net)),
			FlatFee:      q.fees.FlatFee,
			PriceAt:      q.clock.Now(),
		},
	}, nil
}
