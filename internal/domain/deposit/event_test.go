package deposit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

func validEvent() Event {
	return Event{
		Provider: "custody",
		Asset:    asset.USDT,
		Network:  asset.NetworkPolygon,
		Address:  "0xC2132D05D31c914a87C6611C10748AEb04B58e8F",
		Amount:   decimal.RequireFromString("99.8"),
		TxHash:   "0xabc",
		Finality: FinalityFinal,
	}
}

func TestEventValidate(t *testing.T) {
	assert.NoError(t, validEvent().Validate())

	tests := []struct {
		name   string
		mutate func(e *Event)
	}{
		{"fiat asset", func(e *Event) { e.Asset = asset.NGN }},
		{"unknown asset", func(e *Event) { e.Asset = "DOGE" }},
		{"network mismatch", func(e *Event) { e.Network = asset.NetworkBitcoin }},
		{"zero amount", func(e *Event) { e.Amount = decimal.Zero }},
		{"negative amount", func(e *Event) { e.Amount = decimal.NewFromInt(-1) }},
		{"missing tx hash", func(e *Event) { e.TxHash = "" }},
		{"missing address", func(e *Event) { e.Address = "" }},
		{"unknown finality", func(e *Event) { e.Finality = "maybe" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestEventValidate_NonFinalNeedsNoAmountOrHash(t *testing.T) {
	for _, finality := range []Finality{FinalityPending, FinalityFailed} {
		t.Run(string(finality), func(t *testing.T) {
			e := validEvent()
			e.Finality = finality
			e.Amount = decimal.Zero
			e.TxHash = ""
			assert.NoError(t, e.Validate())

			e.Address = ""
			assert.Error(t, e.Validate())
		})
	}
}

func TestEventDeliveryKeyNormalizesAddress(t *testing.T) {
	e := validEvent()
	assert.Equal(t, "polygon:0xabc:0xc2132d05d31c914a87c6611c10748aeb04b58e8f", e.DeliveryKey())
	assert.True(t, e.IsFinal())
}
