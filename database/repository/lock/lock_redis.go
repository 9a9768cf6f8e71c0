package lockRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisLockPrefix = "lock:"

// unlockScript deletes the key only when it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the key only when it still holds the caller's token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	const op = "lock.RedisLocker.TryLock"

	ok, err := l.client.SetNX(ctx, redisLockPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (l *RedisLocker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	const op = "lock.RedisLocker.Refresh"

	n, err := refreshScript.Run(ctx, l.client, []string{redisLockPrefix + key}, token, ttl.Milliseconds()).Int()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	const op = "lock.RedisLocker.Unlock"

	if err := unlockScript.Run(ctx, l.client, []string{redisLockPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
