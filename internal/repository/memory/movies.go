package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type MovieRepo struct {
	view viewFunc
}

func (r *MovieRepo) Create(ctx context.Context, m *domain.Movie) (int64, error) {
	const op = "memory.MovieRepo.Create"

	var id int64
	err := r.view(func(st *state) error {
		for _, existing := range st.movies {
			if strings.EqualFold(existing.Title, m.Title) {
				return repository.ErrConflict
			}
		}

		st.movieSeq++
		id = st.movieSeq

		cp := *m
		cp.ID = id
		st.movies[id] = cp
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *MovieRepo) Get(ctx context.Context, id int64) (*domain.Movie, error) {
	const op = "memory.MovieRepo.Get"

	var out domain.Movie
	err := r.view(func(st *state) error {
		m, ok := st.movies[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *MovieRepo) List(ctx context.Context) ([]domain.Movie, error) {
	var out []domain.Movie
	_ = r.view(func(st *state) error {
		for _, m := range st.movies {
			out = append(out, m)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MovieRepo) UpdateDuration(ctx context.Context, id int64, duration int) error {
	const op = "memory.MovieRepo.UpdateDuration"

	err := r.view(func(st *state) error {
		m, ok := st.movies[id]
		if !ok {
			return repository.ErrNotFound
		}
		m.Duration = duration
		st.movies[id] = m
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *MovieRepo) Delete(ctx context.Context, id int64) error {
	const op = "memory.MovieRepo.Delete"

	err := r.view(func(st *state) error {
		if _, ok := st.movies[id]; !ok {
			return repository.ErrNotFound
		}
		for _, s := range st.showtimes {
			if s.MovieID == id {
				// foreign key
				return repository.ErrConflict
			}
		}
		delete(st.movies, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
