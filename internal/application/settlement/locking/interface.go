package locking

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// DeliveryLocker serializes work on one deposit across processes. It only
// reduces contention; conditional updates in the store remain the guard.
type DeliveryLocker interface {
	// Acquire waits until the lock is held or the wait budget is spent. The
	// returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type nopLocker struct{}

// NopLocker never blocks.
func NopLocker() DeliveryLocker { return nopLocker{} }

func (nopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
