package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type BookingRepo struct {
	view viewFunc
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "memory.BookingRepo.Create"

	err := r.view(func(st *state) error {
		if _, ok := st.showtimes[b.ShowtimeID]; !ok {
			return repository.ErrConflict
		}
		if _, ok := st.bookings[b.ID]; ok {
			return repository.ErrConflict
		}
		for _, other := range st.bookings {
			if other.ShowtimeID == b.ShowtimeID && other.SeatNumber == b.SeatNumber {
				return repository.ErrConflict
			}
		}

		cp := *b
		if cp.UserID != nil {
			id := *cp.UserID
			cp.UserID = &id
		}
		st.bookings[b.ID] = cp
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.BookingRepo.Get"

	var out domain.Booking
	err := r.view(func(st *state) error {
		b, ok := st.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *BookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "memory.BookingRepo.Delete"

	err := r.view(func(st *state) error {
		if _, ok := st.bookings[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.bookings, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *BookingRepo) DeleteByShowtime(ctx context.Context, showtimeID int64) (int64, error) {
	var n int64
	_ = r.view(func(st *state) error {
		for id, b := range st.bookings {
			if b.ShowtimeID == showtimeID {
				delete(st.bookings, id)
				n++
			}
		}
		return nil
	})
	return n, nil
}

func (r *BookingRepo) SeatTaken(ctx context.Context, showtimeID int64, seatNumber int) (bool, error) {
	var taken bool
	_ = r.view(func(st *state) error {
		for _, b := range st.bookings {
			if b.ShowtimeID == showtimeID && b.SeatNumber == seatNumber {
				taken = true
				break
			}
		}
		return nil
	})
	return taken, nil
}

func (r *BookingRepo) CountByShowtime(ctx context.Context, showtimeID int64) (int, error) {
	return len(r.filter(func(b domain.Booking) bool { return b.ShowtimeID == showtimeID })), nil
}

func (r *BookingRepo) ListByShowtime(ctx context.Context, showtimeID int64) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.ShowtimeID == showtimeID }), nil
}

func (r *BookingRepo) ListByCustomer(ctx context.Context, email string) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return strings.EqualFold(b.CustomerEmail, email) }), nil
}

func (r *BookingRepo) filter(keep func(domain.Booking) bool) []domain.Booking {
	var out []domain.Booking
	_ = r.view(func(st *state) error {
		for _, b := range st.bookings {
			if keep(b) {
				out = append(out, b)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].ShowtimeID != out[j].ShowtimeID {
			return out[i].ShowtimeID < out[j].ShowtimeID
		}
		return out[i].SeatNumber < out[j].SeatNumber
	})
	return out
}
