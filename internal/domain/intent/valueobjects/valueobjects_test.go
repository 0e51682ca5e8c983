package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentStatusTransitions(t *testing.T) {
	tests := []struct {
		from IntentStatus
		to   IntentStatus
		want bool
	}{
		{IntentStatusPending, IntentStatusConfirmed, true},
		{IntentStatusPending, IntentStatusExpired, true},
		{IntentStatusPending, IntentStatusUnderpaid, true},
		{IntentStatusConfirmed, IntentStatusCompleted, true},
		{IntentStatusConfirmed, IntentStatusPending, false},
		{IntentStatusExpired, IntentStatusConfirmed, false},
		{IntentStatusCompleted, IntentStatusConfirmed, false},
		{IntentStatusPending, IntentStatusCompleted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIntentStatusIsFinal(t *testing.T) {
	assert.False(t, IntentStatusPending.IsFinal())
	assert.False(t, IntentStatusConfirmed.IsFinal())
	assert.True(t, IntentStatusCompleted.IsFinal())
	assert.True(t, IntentStatusCancelled.IsFinal())
	assert.True(t, IntentStatusOverpaid.IsFinal())
}

func TestNewPayoutDestination(t *testing.T) {
	d, err := NewPayoutDestination("058", " 0123456789 ", "Ada Obi")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", d.AccountNumber())
	assert.False(t, d.IsZero())

	_, err = NewPayoutDestination("058", "12345", "Ada Obi")
	assert.Error(t, err)
	_, err = NewPayoutDestination("bank", "0123456789", "Ada Obi")
	assert.Error(t, err)
	_, err = NewPayoutDestination("058", "0123456789", " ")
	assert.Error(t, err)
}
