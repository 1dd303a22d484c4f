package theater

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/uow"
)

// Capacity returns the number of seats of a rows x seatsPerRow theater.
func Capacity(rows, seatsPerRow int) (int, error) {
	if rows <= 0 || seatsPerRow <= 0 || int64(rows)*int64(seatsPerRow) > math.MaxInt32 {
		return 0, domain.InvalidGeometryError{Rows: rows, SeatsPerRow: seatsPerRow}
	}

	return rows * seatsPerRow, nil
}

type Config struct {
	CacheTTL time.Duration
}

type Service struct {
	repos domain.Repositories
	cache *redisrepo.Cache
	uow   *uow.UoW
	cfg   Config
}

func New(repos domain.Repositories, u *uow.UoW, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return &Service{
		repos: repos,
		cache: cache,
		uow:   u,
		cfg:   cfg,
	}
}

// Create creates a theater whose capacity is derived from its geometry.
//
// Parameters:
//   - ctx: request-scoped context.
//   - name: unique theater name.
//   - rows, seatsPerRow: seating geometry, both positive.
//
// Returns:
//   - *domain.Theater: the created theater.
//   - error: domain.ErrInvalidGeometry if rows or seatsPerRow is not positive.
//   - error: domain.ErrDuplicateName if a theater with the same name exists.
func (s *Service) Create(ctx context.Context, name string, rows, seatsPerRow int) (*domain.Theater, error) {
	const op = "service.theater.Create"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, domain.InvalidFormatError{Field: "name", Reason: "must not be empty"})
	}

	capacity, err := Capacity(rows, seatsPerRow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t := domain.Theater{
		Name:        name,
		Rows:        rows,
		SeatsPerRow: seatsPerRow,
		Capacity:    capacity,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx domain.Repositories, after func(uow.AfterCommit)) error {
		id, err := tx.Theaters().Create(ctx, &t)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.DuplicateNameError{Entity: "theater", Name: name}
			}
			return err
		}
		t.ID = id

		after(func(ctx context.Context) {
			_ = s.cache.Del(ctx, redisrepo.KeyTheaterList())
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

// Get returns a theater by ID.
//
// Returns:
//   - error: domain.ErrNotFound if the theater does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Theater, error) {
	const op = "service.theater.Get"

	t, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyTheater(id), s.cfg.CacheTTL,
		func(ctx context.Context) (domain.Theater, error) {
			t, err := s.repos.Theaters().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Theater{}, domain.NotFoundError{Entity: "theater", ID: id}
				}
				return domain.Theater{}, err
			}
			return *t, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Theater, error) {
	const op = "service.theater.List"

	list, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyTheaterList(), s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.Theater, error) {
			return s.repos.Theaters().List(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}
