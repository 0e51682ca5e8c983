package idempotency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSwapKeyIsStable(t *testing.T) {
	a := SwapKey("si_1", decimal.RequireFromString("99.8"))
	b := SwapKey("si_1", decimal.RequireFromString("99.80"))

	assert.Equal(t, a, b)
	assert.Len(t, a, len("swp_")+40)
	assert.NotEqual(t, a, SwapKey("si_2", decimal.RequireFromString("99.8")))
	assert.NotEqual(t, a, SwapKey("si_1", decimal.RequireFromString("99.9")))
}

func TestPayoutKeyPerAttempt(t *testing.T) {
	amount := decimal.RequireFromString("149700")
	first := PayoutKey("si_1", amount, 1)

	assert.Equal(t, first, PayoutKey("si_1", amount, 1))
	assert.NotEqual(t, first, PayoutKey("si_1", amount, 2))
	assert.NotEqual(t, first, SwapKey("si_1", amount))
}
