package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "showtime:7", ShowtimeKey(7))
	assert.Equal(t, "theater:7", TheaterKey(7))
	assert.NotEqual(t, ShowtimeKey(1), TheaterKey(1))
}

func TestLocal_Exclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := l.Lock(ctx, "showtime:1")
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()

			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, l.locks)
}

func TestLocal_IndependentKeys(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	u1, err := l.Lock(ctx, "showtime:1")
	require.NoError(t, err)
	defer u1()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	u2, err := l.Lock(ctx, "showtime:2")
	require.NoError(t, err)
	u2()
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()

	held, err := l.Lock(context.Background(), "theater:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "theater:1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	held()
	assert.Empty(t, l.locks)
}

func TestLocal_UnlockTwice(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}

type recordingLocker struct {
	mu     sync.Mutex
	order  []string
	events []string
	failOn string
}

func (r *recordingLocker) Lock(_ context.Context, key string) (Unlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == r.failOn {
		return nil, errors.New("boom")
	}
	r.order = append(r.order, key)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, "unlock "+key)
	}, nil
}

func TestLockAll_SortedAndDeduplicated(t *testing.T) {
	r := &recordingLocker{}

	unlock, err := LockAll(context.Background(), r, "theater:2", "showtime:9", "theater:1", "theater:2")
	require.NoError(t, err)
	assert.Equal(t, []string{"showtime:9", "theater:1", "theater:2"}, r.order)

	unlock()
	assert.Equal(t, []string{"unlock theater:2", "unlock theater:1", "unlock showtime:9"}, r.events)
}

func TestLockAll_ReleasesOnFailure(t *testing.T) {
	r := &recordingLocker{failOn: "theater:2"}

	_, err := LockAll(context.Background(), r, "theater:1", "theater:2", "theater:3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theater:2")
	assert.Equal(t, []string{"unlock theater:1"}, r.events)
}

func TestLockAll_NoKeys(t *testing.T) {
	unlock, err := LockAll(context.Background(), NewLocal())
	require.NoError(t, err)
	unlock()
}
