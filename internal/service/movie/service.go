package movie

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/uow"
)

// FirstReleaseYear is the earliest release year a movie may carry.
const FirstReleaseYear = 1895

type Config struct {
	Policy            domain.DurationPolicy
	DurationTolerance int
	CacheTTL          time.Duration
}

type Service struct {
	repos  domain.Repositories
	cache  *redisrepo.Cache
	pubsub *redisrepo.ShowtimesPubSub
	uow    *uow.UoW
	cfg    Config
	now    func() time.Time
}

func New(
	repos domain.Repositories,
	u *uow.UoW,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowtimesPubSub,
	cfg Config,
) *Service {
	if cfg.Policy != domain.DurationPolicyAdjust {
		cfg.Policy = domain.DurationPolicyReject
	}

	if cfg.DurationTolerance < 0 {
		cfg.DurationTolerance = 5
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return &Service{
		repos:  repos,
		cache:  cache,
		pubsub: pubsub,
		uow:    u,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Validate checks the attributes of a new movie.
func (s *Service) Validate(m domain.Movie) error {
	if strings.TrimSpace(m.Title) == "" {
		return domain.InvalidFormatError{Field: "title", Reason: "must not be empty"}
	}

	if m.Duration <= 0 {
		return domain.InvalidFormatError{Field: "duration", Value: fmt.Sprint(m.Duration), Reason: "must be positive"}
	}

	if m.Rating < 0 || m.Rating > 5 {
		return domain.InvalidFormatError{Field: "rating", Value: fmt.Sprint(m.Rating), Reason: "must be between 0 and 5"}
	}

	if year := s.now().Year(); m.ReleaseYear < FirstReleaseYear || m.ReleaseYear > year {
		return domain.OutOfBoundsError{Field: "release_year", Min: FirstReleaseYear, Max: year, Value: m.ReleaseYear}
	}

	return nil
}

// Create adds a movie to the catalog.
//
// Returns:
//   - error: domain.ErrInvalidFormat or domain.ErrOutOfBounds for invalid attributes.
//   - error: domain.ErrDuplicateName if a movie with the same title exists.
func (s *Service) Create(ctx context.Context, m domain.Movie) (*domain.Movie, error) {
	const op = "service.movie.Create"

	m.Title = strings.TrimSpace(m.Title)
	m.Genre = strings.TrimSpace(m.Genre)

	if err := s.Validate(m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx domain.Repositories, after func(uow.AfterCommit)) error {
		id, err := tx.Movies().Create(ctx, &m)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.DuplicateNameError{Entity: "movie", Name: m.Title}
			}
			return err
		}
		m.ID = id

		after(func(ctx context.Context) {
			_ = s.cache.Del(ctx, redisrepo.KeyMovieList())
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &m, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Movie, error) {
	const op = "service.movie.Get"

	m, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyMovie(id), s.cfg.CacheTTL,
		func(ctx context.Context) (domain.Movie, error) {
			m, err := loadMovie(ctx, s.repos, id)
			if err != nil {
				return domain.Movie{}, err
			}
			return *m, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &m, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Movie, error) {
	const op = "service.movie.List"

	list, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyMovieList(), s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.Movie, error) {
			return s.repos.Movies().List(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// Remove deletes a movie that no showtime references.
//
// Returns:
//   - error: domain.ErrNotFound if the movie does not exist.
//   - error: domain.ErrMovieInUse if showtimes still reference the movie.
func (s *Service) Remove(ctx context.Context, id int64) error {
	const op = "service.movie.Remove"

	err := s.uow.Do(ctx, func(ctx context.Context, tx domain.Repositories, after func(uow.AfterCommit)) error {
		if _, err := loadMovie(ctx, tx, id); err != nil {
			return err
		}

		showtimes, err := tx.Showtimes().ListByMovie(ctx, id)
		if err != nil {
			return err
		}
		if len(showtimes) > 0 {
			return domain.MovieInUseError{MovieID: id, Showtimes: len(showtimes)}
		}

		if err := tx.Movies().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.MovieInUseError{MovieID: id}
			}
			return err
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateMovie(ctx, id)
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func loadMovie(ctx context.Context, repos domain.Repositories, id int64) (*domain.Movie, error) {
	m, err := repos.Movies().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError{Entity: "movie", ID: id}
		}
		return nil, err
	}
	return m, nil
}
