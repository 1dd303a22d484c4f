package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache for showtime and catalogue reads.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	rdb   *redis.Client
	group singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// lookup decodes the value under key into out. A missing or undecodable
// entry reports false without error.
func (c *Cache) lookup(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}

	return true, nil
}

func (c *Cache) store(ctx context.Context, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// Del drops keys. Missing keys are ignored.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	const op = "redis.Cache.Del"

	if c == nil || len(keys) == 0 {
		return nil
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetOrSetJSON returns the cached value under key or loads, stores and
// returns it. Concurrent misses on one key share a single load. Redis
// failures fall through to load so the cache never fails a read.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return load(ctx)
	}

	var cached T
	if ok, err := c.lookup(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		var again T
		if ok, err := c.lookup(ctx, key, &again); err == nil && ok {
			return again, nil
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.store(ctx, key, loaded, ttl)

		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// InvalidateShowtime drops every cached view a showtime change can affect.
func (c *Cache) InvalidateShowtime(ctx context.Context, showtimeID, movieID int64) error {
	return c.Del(ctx, KeyShowtime(showtimeID), KeyMovieShowtimes(movieID))
}

func (c *Cache) InvalidateMovie(ctx context.Context, movieID int64) error {
	return c.Del(ctx, KeyMovie(movieID), KeyMovieList(), KeyMovieShowtimes(movieID))
}
