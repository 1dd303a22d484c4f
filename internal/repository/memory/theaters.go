package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type TheaterRepo struct {
	view viewFunc
}

func (r *TheaterRepo) Create(ctx context.Context, t *domain.Theater) (int64, error) {
	const op = "memory.TheaterRepo.Create"

	var id int64
	err := r.view(func(st *state) error {
		for _, existing := range st.theaters {
			if strings.EqualFold(existing.Name, t.Name) {
				return repository.ErrConflict
			}
		}

		st.theaterSeq++
		id = st.theaterSeq

		cp := *t
		cp.ID = id
		st.theaters[id] = cp
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *TheaterRepo) Get(ctx context.Context, id int64) (*domain.Theater, error) {
	const op = "memory.TheaterRepo.Get"

	var out domain.Theater
	err := r.view(func(st *state) error {
		t, ok := st.theaters[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *TheaterRepo) List(ctx context.Context) ([]domain.Theater, error) {
	var out []domain.Theater
	_ = r.view(func(st *state) error {
		for _, t := range st.theaters {
			out = append(out, t)
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
