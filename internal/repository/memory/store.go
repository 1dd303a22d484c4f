// Package memory is an in-process entity store. A transaction works on a
// private copy of the state that replaces the shared state only on commit,
// so a failed unit of work leaves nothing behind.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
)

type state struct {
	movies    map[int64]domain.Movie
	theaters  map[int64]domain.Theater
	showtimes map[int64]domain.Showtime
	bookings  map[uuid.UUID]domain.Booking

	movieSeq    int64
	theaterSeq  int64
	showtimeSeq int64
}

func newState() *state {
	return &state{
		movies:    make(map[int64]domain.Movie),
		theaters:  make(map[int64]domain.Theater),
		showtimes: make(map[int64]domain.Showtime),
		bookings:  make(map[uuid.UUID]domain.Booking),
	}
}

func (s *state) clone() *state {
	cp := &state{
		movies:      make(map[int64]domain.Movie, len(s.movies)),
		theaters:    make(map[int64]domain.Theater, len(s.theaters)),
		showtimes:   make(map[int64]domain.Showtime, len(s.showtimes)),
		bookings:    make(map[uuid.UUID]domain.Booking, len(s.bookings)),
		movieSeq:    s.movieSeq,
		theaterSeq:  s.theaterSeq,
		showtimeSeq: s.showtimeSeq,
	}
	for k, v := range s.movies {
		cp.movies[k] = v
	}
	for k, v := range s.theaters {
		cp.theaters[k] = v
	}
	for k, v := range s.showtimes {
		cp.showtimes[k] = v
	}
	for k, v := range s.bookings {
		if v.UserID != nil {
			id := *v.UserID
			v.UserID = &id
		}
		cp.bookings[k] = v
	}
	return cp
}

type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// RunTx runs fn against a snapshot of the store. Transactions are fully
// serialized.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(ctx, &repos{view: func(f func(st *state) error) error { return f(draft) }}); err != nil {
		return err
	}

	s.state = draft
	return nil
}

// locked runs f against the shared state under the store mutex. Used by
// the repositories returned outside a transaction.
func (s *Store) locked(f func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.state)
}

func (s *Store) Movies() domain.MovieRepository       { return &MovieRepo{view: s.locked} }
func (s *Store) Theaters() domain.TheaterRepository   { return &TheaterRepo{view: s.locked} }
func (s *Store) Showtimes() domain.ShowtimeRepository { return &ShowtimeRepo{view: s.locked} }
func (s *Store) Bookings() domain.BookingRepository   { return &BookingRepo{view: s.locked} }

type viewFunc func(f func(st *state) error) error

type repos struct {
	view viewFunc
}

func (r *repos) Movies() domain.MovieRepository       { return &MovieRepo{view: r.view} }
func (r *repos) Theaters() domain.TheaterRepository   { return &TheaterRepo{view: r.view} }
func (r *repos) Showtimes() domain.ShowtimeRepository { return &ShowtimeRepo{view: r.view} }
func (r *repos) Bookings() domain.BookingRepository   { return &BookingRepo{view: r.view} }
