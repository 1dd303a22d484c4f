package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository implementations report a missing row with repository.ErrNotFound
// and a uniqueness or exclusion violation with repository.ErrConflict.

type MovieRepository interface {
	Create(ctx context.Context, m *Movie) (int64, error)
	Get(ctx context.Context, id int64) (*Movie, error)
	List(ctx context.Context) ([]Movie, error)
	UpdateDuration(ctx context.Context, id int64, duration int) error
	Delete(ctx context.Context, id int64) error
}

type TheaterRepository interface {
	Create(ctx context.Context, t *Theater) (int64, error)
	Get(ctx context.Context, id int64) (*Theater, error)
	List(ctx context.Context) ([]Theater, error)
}

type ShowtimeRepository interface {
	Create(ctx context.Context, s *Showtime) (int64, error)
	Get(ctx context.Context, id int64) (*Showtime, error)
	Update(ctx context.Context, s *Showtime) error
	SetAvailableSeats(ctx context.Context, id int64, available int) error
	Delete(ctx context.Context, id int64) error
	// FindOverlapping returns showtimes of the theater whose window
	// intersects [start, end), ordered by start time. excludeID of zero
	// excludes nothing.
	FindOverlapping(ctx context.Context, theaterID int64, start, end time.Time, excludeID int64) ([]Showtime, error)
	ListByMovie(ctx context.Context, movieID int64) ([]Showtime, error)
	ListUpcoming(ctx context.Context, after time.Time, limit int) ([]Showtime, error)
}

type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByShowtime(ctx context.Context, showtimeID int64) (int64, error)
	SeatTaken(ctx context.Context, showtimeID int64, seatNumber int) (bool, error)
	CountByShowtime(ctx context.Context, showtimeID int64) (int, error)
	ListByShowtime(ctx context.Context, showtimeID int64) ([]Booking, error)
	ListByCustomer(ctx context.Context, email string) ([]Booking, error)
}

// Repositories groups the entity repositories bound to one storage handle,
// either the store itself or an open transaction.
type Repositories interface {
	Movies() MovieRepository
	Theaters() TheaterRepository
	Showtimes() ShowtimeRepository
	Bookings() BookingRepository
}
