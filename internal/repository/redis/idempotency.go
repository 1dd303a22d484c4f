package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemNS = ns + ":idem"

// KeyIdem scopes a client supplied Idempotency-Key to one kind of request.
func KeyIdem(scope string, idemKey string) string {
	return fmt.Sprintf("%s:%s:%s", idemNS, scope, idemKey)
}

type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, "LOCK", lockTTL).Result()
}

// SaveResult stores the response status and JSON body for replay.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, jsonPayload string) error {
	val := fmt.Sprintf("RES:%d:%s", status, jsonPayload)
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (int, string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}

	rest, ok := strings.CutPrefix(v, "RES:")
	if !ok {
		return 0, "", false, nil
	}

	code, body, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", false, nil
	}

	var status int
	if _, err := fmt.Sscan(code, &status); err != nil {
		return 0, "", false, nil
	}

	return status, body, true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
