package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/offramp/internal/application/settlement/locking"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

const (
	deliveryLockPrefix = "offramp:lock:"
	lockPollInterval   = 50 * time.Millisecond
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeliveryLock is a redis SET NX lock with an owner token. When redis is
// unreachable it lets the caller through; the database stays the guard.
type DeliveryLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	logger logger.Interface
}

var _ locking.DeliveryLocker = (*DeliveryLock)(nil)

func NewDeliveryLock(client *redis.Client, ttl, wait time.Duration, log logger.Interface) *DeliveryLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DeliveryLock{client: client, ttl: ttl, wait: wait, logger: log}
}

func (l *DeliveryLock) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := deliveryLockPrefix + key
	token := uuid.NewString()

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, locking.ErrLockNotAcquired
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.logger.Warnw("delivery lock unavailable, proceeding without it", "key", key, "error", err)
			return func() {}, nil
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, locking.ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

func (l *DeliveryLock) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warnw("failed to release delivery lock", "key", redisKey, "error", err)
			}
		})
	}
}
