package lockRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// ErrLockHeld is returned when a lock could not be obtained in time.
var ErrLockHeld = errors.New("lock is held by another owner")

// Locker is an advisory, expiring mutual-exclusion primitive keyed by string.
type Locker interface {
	// TryLock takes key for ttl on behalf of token, without waiting.
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Refresh extends key by ttl if token still owns it.
	Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Unlock releases key only if token still owns it.
	Unlock(ctx context.Context, key, token string) error
}

// Release frees a lock taken with Acquire.
type Release func()

// Acquire polls locker until key is taken or wait elapses. The lease is
// renewed in the background until the returned Release is called.
func Acquire(ctx context.Context, locker Locker, key string, ttl, wait time.Duration) (Release, error) {
	token := uuid.NewString()

	backoff := retry.NewExponential(10 * time.Millisecond)
	backoff = retry.WithCappedDuration(250*time.Millisecond, backoff)
	backoff = retry.WithMaxDuration(wait, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := locker.TryLock(ctx, key, token, ttl)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrLockHeld)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("%s: %w", key, ErrLockHeld)
		}
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		heartbeat(hbCtx, locker, key, token, ttl)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopHeartbeat()
			<-done
			// Release must outlive a cancelled request context.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = locker.Unlock(ctx, key, token)
		})
	}, nil
}

// heartbeat refreshes the lease at a third of its ttl until ctx is cancelled
// or the lease turns out to be lost.
func heartbeat(ctx context.Context, locker Locker, key, token string, ttl time.Duration) {
	interval := ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rctx, cancel := context.WithTimeout(ctx, interval)
			ok, err := locker.Refresh(rctx, key, token, ttl)
			cancel()
			if err == nil && !ok {
				return
			}
		}
	}
}
