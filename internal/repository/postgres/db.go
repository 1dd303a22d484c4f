package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-go/internal/domain"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool       *pgxpool.Pool
	txOpts     pgx.TxOptions
	maxRetries int
}

type StoreOption func(*Store)

// WithTxRetries sets how many times a transaction that failed with a
// serialization failure or a deadlock is re-run. Zero disables retries.
func WithTxRetries(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

func WithTxOptions(opts pgx.TxOptions) StoreOption {
	return func(s *Store) { s.txOpts = opts }
}

func NewStore(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	s := &Store{
		pool: pool,
		txOpts: pgx.TxOptions{
			IsoLevel:   pgx.Serializable,
			AccessMode: pgx.ReadWrite,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTx runs fn in a serializable transaction, re-running it when
// PostgreSQL reports a serialization failure or a deadlock.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx domain.Repositories) error,
) error {
	const op = "postgres.Store.RunTx"

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) runTx(
	ctx context.Context,
	fn func(ctx context.Context, tx domain.Repositories) error,
) error {
	tx, err := s.pool.BeginTx(ctx, s.txOpts)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (s *Store) Movies() domain.MovieRepository       { return &MovieRepo{pool: s.pool} }
func (s *Store) Theaters() domain.TheaterRepository   { return &TheaterRepo{pool: s.pool} }
func (s *Store) Showtimes() domain.ShowtimeRepository { return &ShowtimeRepo{pool: s.pool} }
func (s *Store) Bookings() domain.BookingRepository   { return &BookingRepo{pool: s.pool} }

type txRepos struct {
	db DB
}

func (t txRepos) Movies() domain.MovieRepository       { return (&MovieRepo{}).With(t.db) }
func (t txRepos) Theaters() domain.TheaterRepository   { return (&TheaterRepo{}).With(t.db) }
func (t txRepos) Showtimes() domain.ShowtimeRepository { return (&ShowtimeRepo{}).With(t.db) }
func (t txRepos) Bookings() domain.BookingRepository   { return (&BookingRepo{}).With(t.db) }
