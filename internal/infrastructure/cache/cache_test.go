package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/application/settlement/locking"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

func TestDeliveryLock_SerializesHolders(t *testing.T) {
	client := setupTestRedis(t)
	lock := NewDeliveryLock(client, 5*time.Second, 2*time.Second, logger.NewNop())
	key := "deposit:tron:tx_1"

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lock.Acquire(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inside.Add(-1)
			release()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestDeliveryLock_GivesUpAfterWait(t *testing.T) {
	client := setupTestRedis(t)
	lock := NewDeliveryLock(client, 5*time.Second, 100*time.Millisecond, logger.NewNop())
	key := "deposit:tron:tx_2"

	release, err := lock.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	_, err = lock.Acquire(context.Background(), key)
	assert.ErrorIs(t, err, locking.ErrLockNotAcquired)
}

func TestDeliveryLock_ReleaseDoesNotStealAnotherHoldersLock(t *testing.T) {
	client := setupTestRedis(t)
	lock := NewDeliveryLock(client, 50*time.Millisecond, time.Second, logger.NewNop())
	key := "deposit:tron:tx_3"

	staleRelease, err := lock.Acquire(context.Background(), key)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	release, err := lock.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	staleRelease()
	exists, err := client.Exists(context.Background(), deliveryLockPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestDeliveryLock_ProceedsWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()
	lock := NewDeliveryLock(client, time.Second, time.Second, logger.NewNop())

	release, err := lock.Acquire(context.Background(), "deposit:tron:tx")
	require.NoError(t, err)
	release()
}

func TestAlertDeduplicator(t *testing.T) {
	client := setupTestRedis(t)
	dedup := NewAlertDeduplicator(client)
	ctx := context.Background()

	ok, err := dedup.TryAcquire(ctx, "payout", "si_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dedup.TryAcquire(ctx, "payout", "si_1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dedup.TryAcquire(ctx, "swap", "si_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, dedup.Clear(ctx, "payout", "si_1"))
	ok, err = dedup.TryAcquire(ctx, "payout", "si_1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
