package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockLocker struct {
	mock.Mock
	lock.Locker
}

func (m *MockLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(lock.Unlock), args.Error(1)
}

// fakeRunner calls fn attempts times and reports the last error. It stands
// in for a store that retries serialization failures.
type fakeRunner struct {
	attempts int
	err      error
	calls    int
}

func (f *fakeRunner) RunTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	if f.attempts == 0 {
		f.attempts = 1
	}
	var err error
	for i := 0; i < f.attempts; i++ {
		f.calls++
		err = fn(ctx, nil)
	}
	if err != nil {
		return err
	}
	return f.err
}

type UoWTestSuite struct {
	suite.Suite
	locker *MockLocker
	events []string
}

func (s *UoWTestSuite) SetupTest() {
	s.locker = new(MockLocker)
	s.events = nil
}

func TestUoWSuite(t *testing.T) {
	suite.Run(t, new(UoWTestSuite))
}

func (s *UoWTestSuite) unlockFn(key string) lock.Unlock {
	return func() { s.events = append(s.events, "unlock "+key) }
}

func (s *UoWTestSuite) TestDoLocked_HooksRunAfterUnlock() {
	ctx := context.Background()
	s.locker.On("Lock", mock.Anything, "showtime:1").Return(s.unlockFn("showtime:1"), nil)

	u := NewUoW(&fakeRunner{}, s.locker)

	err := u.DoLocked(ctx, []string{"showtime:1"}, func(ctx context.Context, tx domain.Repositories, after func(AfterCommit)) error {
		s.events = append(s.events, "tx")
		after(func(context.Context) { s.events = append(s.events, "hook") })
		return nil
	})

	s.Require().NoError(err)
	s.Equal([]string{"tx", "unlock showtime:1", "hook"}, s.events)
	s.locker.AssertExpectations(s.T())
}

func (s *UoWTestSuite) TestDoLocked_NoHooksOnError() {
	ctx := context.Background()
	s.locker.On("Lock", mock.Anything, "theater:3").Return(s.unlockFn("theater:3"), nil)

	u := NewUoW(&fakeRunner{}, s.locker)
	boom := errors.New("boom")

	err := u.DoLocked(ctx, []string{"theater:3"}, func(ctx context.Context, tx domain.Repositories, after func(AfterCommit)) error {
		after(func(context.Context) { s.events = append(s.events, "hook") })
		return boom
	})

	s.Require().ErrorIs(err, boom)
	s.Equal([]string{"unlock theater:3"}, s.events)
}

func (s *UoWTestSuite) TestDoLocked_CommitFailureSkipsHooks() {
	commitErr := errors.New("commit failed")
	u := NewUoW(&fakeRunner{err: commitErr}, lock.NewLocal())

	err := u.Do(context.Background(), func(ctx context.Context, tx domain.Repositories, after func(AfterCommit)) error {
		after(func(context.Context) { s.events = append(s.events, "hook") })
		return nil
	})

	s.Require().ErrorIs(err, commitErr)
	s.Empty(s.events)
}

func (s *UoWTestSuite) TestDoLocked_RetriedAttemptKeepsLastHooks() {
	runner := &fakeRunner{attempts: 3}
	u := NewUoW(runner, nil)

	attempt := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx domain.Repositories, after func(AfterCommit)) error {
		attempt++
		n := attempt
		after(func(context.Context) { s.events = append(s.events, "hook") })
		if n == 3 {
			after(func(context.Context) { s.events = append(s.events, "last") })
		}
		return nil
	})

	s.Require().NoError(err)
	s.Equal(3, runner.calls)
	s.Equal([]string{"hook", "last"}, s.events)
}

func (s *UoWTestSuite) TestDoLocked_LockFailure() {
	lockErr := errors.New("redis down")
	s.locker.On("Lock", mock.Anything, "showtime:1").Return(nil, lockErr)

	runner := &fakeRunner{}
	u := NewUoW(runner, s.locker)

	err := u.DoLocked(context.Background(), []string{"showtime:1"}, func(context.Context, domain.Repositories, func(AfterCommit)) error {
		return nil
	})

	s.Require().ErrorIs(err, lockErr)
	s.Zero(runner.calls)
}
