package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/application/settlement/idempotency"
	"github.com/orris-inc/offramp/internal/application/settlement/provider"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

func (f *fixture) reconciler() *ReconcileSettlementsUseCase {
	return NewReconcileSettlementsUseCase(f.records, f.settler, f.payout, ReconcileConfig{
		StaleSwapAfter:  5 * time.Minute,
		PayoutPollAfter: 10 * time.Minute,
		BatchSize:       10,
	}, f.clock, logger.NewNop())
}

func (f *fixture) retry() *RetrySettlementUseCase {
	return NewRetrySettlementUseCase(f.records, f.settler, f.reconciler(), logger.NewNop())
}

func TestRetrySettlement_ResumesFailedSwapWithSameKey(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", true)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(failed("timeout", "upstream timeout"), nil).Once()

	_, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)

	var keys []string
	f.swap.On("Swap", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		keys = append(keys, args.Get(1).(provider.SwapRequest).IdempotencyKey)
	}).Return(succeeded("swap_ref"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(succeeded("payout_ref"), nil).Once()

	result, err := f.retry().Execute(context.Background(), "si_1", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, result.Outcome)

	rec := f.store.record("si_1")
	assert.Equal(t, 2, rec.SwapAttempts())
	assert.Equal(t, []string{rec.SwapIdempotencyKey()}, keys)
	assert.Empty(t, rec.LastError())
	assert.Equal(t, intentvo.IntentStatusCompleted, f.store.intent("si_1").Status())
}

func TestRetrySettlement_NewPayoutAttemptReusesReservation(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", true)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(failed("bank_down", "bank unavailable"), nil).Once()

	_, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)
	firstKey := f.store.record("si_1").PayoutIdempotencyKey()

	rec := f.store.record("si_1")
	secondKey := idempotency.PayoutKey("si_1", rec.PayoutAmount(), 2)
	f.payout.On("Payout", mock.Anything, mock.MatchedBy(func(req provider.PayoutRequest) bool {
		return req.IdempotencyKey == secondKey
	})).Return(succeeded("payout_ref_2"), nil).Once()

	result, err := f.retry().Execute(context.Background(), "si_1", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, result.Outcome)

	rec = f.store.record("si_1")
	assert.NotEqual(t, firstKey, rec.PayoutIdempotencyKey())
	assert.Equal(t, 2, rec.PayoutAttempts())
	assert.Equal(t, vo.SettlementStatePayoutSuccess, rec.State())

	acc := f.store.account(testOwner, asset.NGN)
	assert.Equal(t, int64(0), acc.Pending)
	assert.Equal(t, int64(15000000), acc.Settled)
	f.swap.AssertNumberOfCalls(t, "Swap", 1)
}

func TestRetrySettlement_RejectsCompletedAndUnknown(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", true)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(succeeded("payout_ref"), nil).Once()
	_, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)

	_, err = f.retry().Execute(context.Background(), "si_1", "ops")
	assert.True(t, apperrors.IsConflictError(err))

	_, err = f.retry().Execute(context.Background(), "si_missing", "ops")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestRetrySettlement_PayoutWithoutDestination(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", false)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref"), nil).Once()

	result, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSwapped, result.Outcome)

	rec := f.store.record("si_1")
	assert.Equal(t, vo.SettlementStateSwapped, rec.State())

	_, err = f.retry().Execute(context.Background(), "si_1", "ops")
	assert.True(t, apperrors.IsValidationError(err))
	acc := f.store.account(testOwner, asset.NGN)
	assert.Equal(t, int64(15000000), acc.Available)
	assert.Equal(t, int64(0), acc.Pending)
}

func TestReconcile_ReleasesStaleSwapAndRetries(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", true)

	// Simulate a worker that died between claiming the swap and the provider call.
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(failed("timeout", "no answer"), nil).Once()
	_, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)

	rec := f.store.record("si_1")
	require.NoError(t, rec.BeginSwap(rec.SwapIdempotencyKey(), f.clock.Now()))
	require.NoError(t, f.records.Update(context.Background(), rec))

	f.clock.Advance(6 * time.Minute)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(succeeded("payout_ref"), nil).Once()

	summary, err := f.reconciler().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StaleSwapsReleased)
	assert.Equal(t, 1, summary.Advanced)
	assert.Equal(t, 1, summary.Settled)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, vo.SettlementStatePayoutSuccess, f.store.record("si_1").State())
}

func TestReconcile_PollsRequestedPayout(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", true)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(vo.ProviderResult{
		Reference: "payout_ref",
		Status:    vo.ProviderCallPending,
	}, nil).Once()

	result, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomePayoutPending, result.Outcome)
	key := f.store.record("si_1").PayoutIdempotencyKey()

	// Too early to poll.
	summary, err := f.reconciler().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PayoutsPolled)

	f.clock.Advance(11 * time.Minute)
	f.payout.On("PayoutStatus", mock.Anything, "payout_ref", key).Return(succeeded(""), nil).Once()

	summary, err = f.reconciler().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PayoutsPolled)
	assert.Equal(t, 1, summary.Settled)

	rec := f.store.record("si_1")
	assert.Equal(t, vo.SettlementStatePayoutSuccess, rec.State())
	assert.Equal(t, "payout_ref", rec.PayoutResult().Reference)
}

func TestReconcile_NeverRetriesFailedPayout(t *testing.T) {
	f := newFixture()
	f.seedIntent("si_1", "100", true)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(failed("rejected", "rejected"), nil).Once()
	_, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	summary, err := f.reconciler().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileSummary{}, *summary)
	f.payout.AssertNumberOfCalls(t, "Payout", 1)
	assert.Equal(t, vo.SettlementStatePayoutFailed, f.store.record("si_1").State())
}

func TestReconcile_SwappedWithoutDestinationDoesNotStarveBatch(t *testing.T) {
	f := newFixture()

	f.seedIntent("si_1", "100", false)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref_1"), nil).Once()
	result, err := f.deposits.Execute(context.Background(), finalDeposit("100", "tx_1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeSwapped, result.Outcome)

	f.clock.Advance(time.Minute)
	f.seedIntent("si_2", "100", true)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(failed("timeout", "upstream timeout"), nil).Once()
	result, err = f.deposits.Execute(context.Background(), finalDeposit("100", "tx_2"))
	require.NoError(t, err)
	require.Equal(t, OutcomeSwapFailed, result.Outcome)

	f.clock.Advance(6 * time.Minute)
	f.swap.On("Swap", mock.Anything, mock.Anything).Return(succeeded("swap_ref_2"), nil).Once()
	f.payout.On("Payout", mock.Anything, mock.Anything).Return(succeeded("payout_ref"), nil).Once()

	sweep := NewReconcileSettlementsUseCase(f.records, f.settler, f.payout, ReconcileConfig{
		StaleSwapAfter:  5 * time.Minute,
		PayoutPollAfter: 10 * time.Minute,
		BatchSize:       1,
	}, f.clock, logger.NewNop())

	summary, err := sweep.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Settled)
	assert.Equal(t, vo.SettlementStatePayoutSuccess, f.store.record("si_2").State())
	assert.Equal(t, vo.SettlementStateSwapped, f.store.record("si_1").State())
	f.swap.AssertNumberOfCalls(t, "Swap", 3)
}
