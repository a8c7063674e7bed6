package utils

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/brokerage_backend/config"
)

var ErrorLockNotObtained = errors.New("could not obtain lock")

const lockRetryInterval = 50 * time.Millisecond

// ObtainLock takes the redis lock at key, retrying for up to wait. The returned
// release func is always safe to call. With Redis disabled it returns
// ok=false and a nil error so callers can proceed without the lock.
func ObtainLock(ctx context.Context, key string, ttl time.Duration, wait time.Duration) (release func(), ok bool, err error) {
	release = func() {}
	locker := config.GetRedisLock()
	if locker == nil {
		return release, false, nil
	}

	retries := int(wait / lockRetryInterval)
	lock, err := locker.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryInterval), retries),
	})
	if err == redislock.ErrNotObtained {
		return release, false, ErrorLockNotObtained
	} else if err != nil {
		return release, false, err
	}

	release = func() {
		// a fresh context so an expired request ctx still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}
	return release, true, nil
}
