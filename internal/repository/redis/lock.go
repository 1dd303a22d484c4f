package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/lock"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] = lock key
// ARGV[1] = owner token
const luaReleaseLock = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

var ErrLockTimeout = errors.New("lock wait timed out")

// Locker is a lock.Locker shared by every instance that talks to the same
// Redis. A lock expires after ttl even if its holder never releases it.
type Locker struct {
	rdb      *redis.Client
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	release  *redis.Script
}

func NewLocker(rdb *redis.Client, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}

	return &Locker{
		rdb:      rdb,
		ttl:      ttl,
		wait:     wait,
		interval: 20 * time.Millisecond,
		release:  redis.NewScript(luaReleaseLock),
	}
}

func (l *Locker) Lock(ctx context.Context, name string) (lock.Unlock, error) {
	key := KeyLock(name)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := l.interval

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.release.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
