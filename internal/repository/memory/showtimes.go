package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type ShowtimeRepo struct {
	view viewFunc
}

// checkRow mirrors the table constraints of the showtimes relation:
// references, a non-negative seat counter and the per-theater exclusion
// on overlapping windows.
func checkRow(st *state, s domain.Showtime) error {
	if _, ok := st.movies[s.MovieID]; !ok {
		return repository.ErrConflict
	}
	if _, ok := st.theaters[s.TheaterID]; !ok {
		return repository.ErrConflict
	}
	if s.AvailableSeats < 0 || !s.EndTime.After(s.StartTime) {
		return repository.ErrConflict
	}
	for _, other := range st.showtimes {
		if other.ID != s.ID && other.TheaterID == s.TheaterID && other.Overlaps(s.StartTime, s.EndTime) {
			return repository.ErrConflict
		}
	}
	return nil
}

func (r *ShowtimeRepo) Create(ctx context.Context, s *domain.Showtime) (int64, error) {
	const op = "memory.ShowtimeRepo.Create"

	var id int64
	err := r.view(func(st *state) error {
		if err := checkRow(st, *s); err != nil {
			return err
		}

		st.showtimeSeq++
		id = st.showtimeSeq

		cp := *s
		cp.ID = id
		st.showtimes[id] = cp
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *ShowtimeRepo) Get(ctx context.Context, id int64) (*domain.Showtime, error) {
	const op = "memory.ShowtimeRepo.Get"

	var out domain.Showtime
	err := r.view(func(st *state) error {
		s, ok := st.showtimes[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *ShowtimeRepo) Update(ctx context.Context, s *domain.Showtime) error {
	const op = "memory.ShowtimeRepo.Update"

	err := r.view(func(st *state) error {
		if _, ok := st.showtimes[s.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := checkRow(st, *s); err != nil {
			return err
		}
		st.showtimes[s.ID] = *s
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *ShowtimeRepo) SetAvailableSeats(ctx context.Context, id int64, available int) error {
	const op = "memory.ShowtimeRepo.SetAvailableSeats"

	err := r.view(func(st *state) error {
		s, ok := st.showtimes[id]
		if !ok {
			return repository.ErrNotFound
		}
		if available < 0 {
			return repository.ErrConflict
		}
		s.AvailableSeats = available
		st.showtimes[id] = s
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *ShowtimeRepo) Delete(ctx context.Context, id int64) error {
	const op = "memory.ShowtimeRepo.Delete"

	err := r.view(func(st *state) error {
		if _, ok := st.showtimes[id]; !ok {
			return repository.ErrNotFound
		}
		for _, b := range st.bookings {
			if b.ShowtimeID == id {
				return repository.ErrConflict
			}
		}
		delete(st.showtimes, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *ShowtimeRepo) FindOverlapping(
	ctx context.Context,
	theaterID int64,
	start, end time.Time,
	excludeID int64,
) ([]domain.Showtime, error) {
	return r.filter(func(s domain.Showtime) bool {
		return s.TheaterID == theaterID && s.ID != excludeID && s.Overlaps(start, end)
	}, 0), nil
}

func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID int64) ([]domain.Showtime, error) {
	return r.filter(func(s domain.Showtime) bool { return s.MovieID == movieID }, 0), nil
}

func (r *ShowtimeRepo) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]domain.Showtime, error) {
	return r.filter(func(s domain.Showtime) bool { return s.StartTime.After(after) }, limit), nil
}

func (r *ShowtimeRepo) filter(keep func(domain.Showtime) bool, limit int) []domain.Showtime {
	var out []domain.Showtime
	_ = r.view(func(st *state) error {
		for _, s := range st.showtimes {
			if keep(s) {
				out = append(out, s)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
