package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/domain/intent"
	vo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

func TestSellIntentRepository_CreateAndGet(t *testing.T) {
	repo := NewSellIntentRepository(setupTestDB(t), newTestClock(), logger.NewNop())
	ctx := context.Background()

	si := newTestIntent("si_1", testNow, vo.IntentStatusPending)
	require.NoError(t, repo.Create(ctx, si))

	found, err := repo.GetByID(ctx, "si_1")
	require.NoError(t, err)
	assert.Equal(t, si.Owner(), found.Owner())
	assert.True(t, si.QuotedReceiveAmount().Equal(found.QuotedReceiveAmount()))
	require.NotNil(t, found.PayoutDestination())
	assert.Equal(t, "0123456789", found.PayoutDestination().AccountNumber())
	assert.Nil(t, found.DepositMemo())

	_, err = repo.GetByID(ctx, "si_missing")
	assert.ErrorIs(t, err, intent.ErrIntentNotFound)
}

func TestSellIntentRepository_FindNewestPending(t *testing.T) {
	repo := NewSellIntentRepository(setupTestDB(t), newTestClock(), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestIntent("si_old", testNow.Add(-10*time.Minute), vo.IntentStatusPending)))
	require.NoError(t, repo.Create(ctx, newTestIntent("si_new", testNow.Add(-time.Minute), vo.IntentStatusPending)))
	require.NoError(t, repo.Create(ctx, newTestIntent("si_done", testNow, vo.IntentStatusCompleted)))

	q := intent.MatchQuery{Network: asset.NetworkTron, DepositAddress: testAddress, Asset: asset.USDT, Now: testNow}

	found, err := repo.FindNewestPending(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "si_new", found.ID())

	t.Run("expired intents are skipped", func(t *testing.T) {
		late := q
		late.Now = testNow.Add(time.Hour)
		found, err := repo.FindNewestPending(ctx, late)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("other asset has no match", func(t *testing.T) {
		other := q
		other.Asset = asset.USDC
		found, err := repo.FindNewestPending(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestSellIntentRepository_TransitionStatusIsCompareAndSwap(t *testing.T) {
	repo := NewSellIntentRepository(setupTestDB(t), newTestClock(), logger.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestIntent("si_1", testNow, vo.IntentStatusPending)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.TransitionStatus(ctx, "si_1", vo.IntentStatusPending, vo.IntentStatusConfirmed)
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	found, err := repo.GetByID(ctx, "si_1")
	require.NoError(t, err)
	assert.Equal(t, vo.IntentStatusConfirmed, found.Status())
	assert.Equal(t, 2, found.Version())

	_, err = repo.TransitionStatus(ctx, "si_1", vo.IntentStatusCompleted, vo.IntentStatusPending)
	assert.Error(t, err)
}

func TestSellIntentRepository_SetPayoutDestinationRequiresStatus(t *testing.T) {
	repo := NewSellIntentRepository(setupTestDB(t), newTestClock(), logger.NewNop())
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestIntent("si_1", testNow, vo.IntentStatusConfirmed)))

	dest, err := vo.NewPayoutDestination("044", "0987654321", "Chidi Eze")
	require.NoError(t, err)

	updated, err := repo.SetPayoutDestination(ctx, "si_1", vo.IntentStatusPending, dest)
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = repo.SetPayoutDestination(ctx, "si_1", vo.IntentStatusConfirmed, dest)
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := repo.GetByID(ctx, "si_1")
	require.NoError(t, err)
	require.NotNil(t, found.PayoutDestination())
	assert.Equal(t, "0987654321", found.PayoutDestination().AccountNumber())
	assert.Equal(t, 2, found.Version())
}

func TestSellIntentRepository_ListExpired(t *testing.T) {
	repo := NewSellIntentRepository(setupTestDB(t), newTestClock(), logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestIntent("si_a", testNow.Add(-time.Hour), vo.IntentStatusPending)))
	require.NoError(t, repo.Create(ctx, newTestIntent("si_b", testNow, vo.IntentStatusPending)))
	require.NoError(t, repo.Create(ctx, newTestIntent("si_c", testNow.Add(-time.Hour), vo.IntentStatusCancelled)))

	list, err := repo.ListExpired(ctx, testNow, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "si_a", list[0].ID())
}
