package uow

import (
	"context"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// TxRunner runs fn inside a storage transaction. Returning an error from fn
// rolls the transaction back. A runner may invoke fn more than once when the
// storage asks for a retry.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error
}

// UoW represents a unit of work.
type UoW struct {
	store  TxRunner
	locker lock.Locker
}

func NewUoW(store TxRunner, locker lock.Locker) *UoW {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &UoW{store: store, locker: locker}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx domain.Repositories, after func(AfterCommit)) error,
) error {
	return u.DoLocked(ctx, nil, fn)
}

// DoLocked holds the locks for keys for the whole transaction, including
// the commit, and releases them before the after-commit hooks run.
func (u *UoW) DoLocked(
	ctx context.Context,
	keys []string,
	fn func(ctx context.Context, tx domain.Repositories, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := func() error {
		unlock, err := lock.LockAll(ctx, u.locker, keys...)
		if err != nil {
			return err
		}
		defer unlock()

		return u.store.RunTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
			hooks = hooks[:0]
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
	}()
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
