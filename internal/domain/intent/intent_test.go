package intent

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/id"
)

const tronAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

func validParams(t *testing.T) NewIntentParams {
	t.Helper()
	dest, err := vo.NewPayoutDestination("058", "0123456789", "Ada Obi")
	require.NoError(t, err)
	return NewIntentParams{
		Owner:           "user_1",
		Asset:           asset.USDT,
		Network:         asset.NetworkTron,
		DepositAddress:  tronAddress,
		ReceiveCurrency: asset.NGN,
		Quote: Quote{
			SellAmount:    decimal.NewFromInt(100),
			ReceiveAmount: decimal.NewFromInt(150000),
			Rate:          decimal.NewFromInt(1500),
		},
		Destination: dest,
	}
}

func TestNewSellIntent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	si, err := NewSellIntent(validParams(t), now, 30*time.Minute)
	require.NoError(t, err)

	assert.True(t, id.HasPrefix(si.ID(), id.PrefixSellIntent))
	assert.Equal(t, vo.IntentStatusPending, si.Status())
	assert.Equal(t, now.Add(30*time.Minute), si.ExpiresAt())
	assert.Nil(t, si.DepositMemo())
	require.NotNil(t, si.PayoutDestination())
	assert.Equal(t, "058", si.PayoutDestination().BankCode())
	assert.True(t, si.IsMatchableAt(now.Add(29*time.Minute)))
	assert.False(t, si.IsMatchableAt(now.Add(30*time.Minute)))
}

func TestNewSellIntentValidation(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		mutate func(p *NewIntentParams)
	}{
		{"missing owner", func(p *NewIntentParams) { p.Owner = "" }},
		{"fiat asset", func(p *NewIntentParams) { p.Asset = asset.NGN }},
		{"network mismatch", func(p *NewIntentParams) { p.Network = asset.NetworkBitcoin }},
		{"bad address", func(p *NewIntentParams) { p.DepositAddress = "0x123" }},
		{"crypto receive currency", func(p *NewIntentParams) { p.ReceiveCurrency = asset.BTC }},
		{"zero quote", func(p *NewIntentParams) { p.Quote.SellAmount = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(t)
			tt.mutate(&p)
			_, err := NewSellIntent(p, now, time.Minute)
			assert.Error(t, err)
		})
	}
}

func TestSellIntentMemoAndCancel(t *testing.T) {
	p := validParams(t)
	p.DepositMemo = "42"
	si, err := NewSellIntent(p, time.Now().UTC(), time.Minute)
	require.NoError(t, err)

	assert.True(t, si.MatchesMemo("42"))
	assert.False(t, si.MatchesMemo(""))

	assert.ErrorIs(t, si.CheckCancellableBy("someone_else"), ErrNotIntentOwner)
	assert.NoError(t, si.CheckCancellableBy("user_1"))

	require.NoError(t, si.ApplyStatus(vo.IntentStatusCancelled, time.Now().UTC()))
	assert.ErrorIs(t, si.CheckCancellableBy("user_1"), ErrIntentNotActive)
	assert.Error(t, si.ApplyStatus(vo.IntentStatusConfirmed, time.Now().UTC()))
}

func TestSellIntentDestinationChange(t *testing.T) {
	si, err := NewSellIntent(validParams(t), time.Now().UTC(), time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, si.CheckDestinationChangeableBy("someone_else"), ErrNotIntentOwner)
	assert.NoError(t, si.CheckDestinationChangeableBy("user_1"))

	require.NoError(t, si.ApplyStatus(vo.IntentStatusConfirmed, time.Now().UTC()))
	assert.NoError(t, si.CheckDestinationChangeableBy("user_1"))

	dest, err := vo.NewPayoutDestination("044", "0987654321", "Chidi Eze")
	require.NoError(t, err)
	si.ApplyPayoutDestination(dest, time.Now().UTC())
	assert.Equal(t, "Chidi Eze", si.PayoutDestination().AccountName())

	require.NoError(t, si.ApplyStatus(vo.IntentStatusCompleted, time.Now().UTC()))
	assert.ErrorIs(t, si.CheckDestinationChangeableBy("user_1"), ErrIntentSettled)
}
