package chat

import (
	"context"
	"errors"
	"time"

	lockRepo "salondesk/database/repository/lock"
	"salondesk/utils"
)

// SessionExpired reports whether a session last active at last has been idle
// longer than timeout at now. A zero last time never expires.
func SessionExpired(now, last time.Time, timeout time.Duration) bool {
	if last.IsZero() || timeout <= 0 {
		return false
	}
	return now.Sub(last) > timeout
}

// SessionLocker serializes turns for one (salon, phone) pair.
type SessionLocker struct {
	Locker lockRepo.Locker
	TTL    time.Duration
	Wait   time.Duration
}

func sessionKey(salonID, phone string) string {
	return "session:" + salonID + ":" + phone
}

// Lock blocks until the session is free or Wait elapses.
func (l SessionLocker) Lock(ctx context.Context, salonID, phone string) (lockRepo.Release, error) {
	if l.Locker == nil {
		return nil, utils.Internal("session locker is not configured", nil)
	}
	ttl, wait := l.TTL, l.Wait
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	if wait <= 0 {
		wait = 2 * time.Minute
	}
	release, err := lockRepo.Acquire(ctx, l.Locker, sessionKey(salonID, phone), ttl, wait)
	if errors.Is(err, lockRepo.ErrLockHeld) {
		return nil, utils.Upstream("session lock", err)
	}
	return release, err
}
