// Package lock serializes mutations that share a key, such as every booking
// of one showtime or every schedule change of one theater.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Unlock releases a lock obtained from a Locker. It is safe to call once.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

func ShowtimeKey(id int64) string {
	return fmt.Sprintf("showtime:%d", id)
}

func TheaterKey(id int64) string {
	return fmt.Sprintf("theater:%d", id)
}

// LockAll acquires every key in ascending order, skipping duplicates, so that
// two callers locking overlapping key sets cannot deadlock. On failure the
// keys already held are released.
func LockAll(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, k := range sorted {
		u, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		held = append(held, u)
	}

	return release, nil
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Waiters honour context cancellation.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.drop(key, e)
		})
	}, nil
}

func (l *Local) drop(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
