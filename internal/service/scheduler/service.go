package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
	"github.com/kirinyoku/cinema-go/internal/repository"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/uow"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/kirinyoku/cinema-go/internal/service/scheduler")

// errTheaterMoved is returned from a transaction whose showtime changed
// theater after the theater lock was chosen.
var errTheaterMoved = errors.New("showtime moved to another theater")

type Config struct {
	// DurationTolerance in minutes. Negative selects DefaultDurationTolerance,
	// zero requires an exact match.
	DurationTolerance int
	CacheTTL          time.Duration
	UpcomingLimit     int
	MaxUpcomingLimit  int
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
	if cfg.DurationTolerance < 0 {
		cfg.DurationTolerance = DefaultDurationTolerance
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 20
	}

	if cfg.MaxUpcomingLimit < cfg.UpcomingLimit {
		cfg.MaxUpcomingLimit = 100
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

// Tolerance returns the configured duration tolerance in minutes.
func (s *Service) Tolerance() int {
	return s.cfg.DurationTolerance
}

type CreateInput struct {
	MovieID   int64
	TheaterID int64
	Start     time.Time
	End       time.Time
	Price     decimal.Decimal
}

// Create schedules a movie in a theater.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: movie, theater, window and ticket price of the showtime.
//
// Returns:
//   - *domain.Showtime: the created showtime with every seat available.
//   - error: domain.ErrNotFound if the movie or the theater does not exist.
//   - error: domain.ErrDurationMismatch if the window does not fit the movie.
//   - error: domain.ErrScheduleConflict if the window overlaps another
//     showtime of the theater.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Showtime, error) {
	const op = "service.scheduler.Create"

	ctx, span := tracer.Start(ctx, "scheduler.Create", trace.WithAttributes(
		attribute.Int64("movie.id", in.MovieID),
		attribute.Int64("theater.id", in.TheaterID),
	))
	defer span.End()

	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, domain.InvalidFormatError{
			Field: "price", Value: in.Price.String(), Reason: "must not be negative",
		})
	}

	var created domain.Showtime

	err := s.uow.DoLocked(ctx, []string{lock.TheaterKey(in.TheaterID)}, func(
		ctx context.Context,
		tx domain.Repositories,
		after func(uow.AfterCommit),
	) error {
		movie, err := loadMovie(ctx, tx, in.MovieID)
		if err != nil {
			return err
		}

		theater, err := loadTheater(ctx, tx, in.TheaterID)
		if err != nil {
			return err
		}

		if err := ValidateDuration(in.Start, in.End, movie.Duration, s.cfg.DurationTolerance); err != nil {
			return err
		}

		other, err := FindOverlap(ctx, tx.Showtimes(), theater.ID, in.Start, in.End, 0)
		if err != nil {
			return err
		}
		if other != nil {
			return conflictErr(theater.ID, other)
		}

		created = domain.Showtime{
			MovieID:        movie.ID,
			TheaterID:      theater.ID,
			StartTime:      in.Start,
			EndTime:        in.End,
			Price:          in.Price,
			AvailableSeats: theater.Capacity,
		}

		id, err := tx.Showtimes().Create(ctx, &created)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.ScheduleConflictError{TheaterID: theater.ID, Start: in.Start, End: in.End}
			}
			return err
		}
		created.ID = id

		after(s.changed(created.ID, created.MovieID))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	span.SetAttributes(attribute.Int64("showtime.id", created.ID))
	return &created, nil
}

// Update applies a partial change to a showtime. The duration is checked
// again when the window or the movie changes, the overlap when the window
// or the theater changes.
//
// Returns:
//   - error: domain.ErrNotFound if the showtime, the new movie or the new
//     theater does not exist.
//   - error: domain.ErrTheaterChangeWithBookings if the showtime is moved to
//     another theater while it has bookings.
//   - error: domain.ErrScheduleConflict, domain.ErrDurationMismatch as in Create.
func (s *Service) Update(ctx context.Context, id int64, changes domain.ShowtimeChanges) (*domain.Showtime, error) {
	const op = "service.scheduler.Update"

	if changes.Price != nil && changes.Price.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, domain.InvalidFormatError{
			Field: "price", Value: changes.Price.String(), Reason: "must not be negative",
		})
	}

	var (
		updated domain.Showtime
		err     error
	)

	for attempt := 0; attempt < 3; attempt++ {
		updated, err = s.update(ctx, id, changes)
		if !errors.Is(err, errTheaterMoved) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &updated, nil
}

func (s *Service) update(ctx context.Context, id int64, changes domain.ShowtimeChanges) (domain.Showtime, error) {
	current, err := loadShowtime(ctx, s.repos, id)
	if err != nil {
		return domain.Showtime{}, err
	}

	lockedTheater := current.TheaterID
	keys := []string{lock.ShowtimeKey(id), lock.TheaterKey(lockedTheater)}
	if changes.TheaterID != nil {
		keys = append(keys, lock.TheaterKey(*changes.TheaterID))
	}

	var updated domain.Showtime

	err = s.uow.DoLocked(ctx, keys, func(
		ctx context.Context,
		tx domain.Repositories,
		after func(uow.AfterCommit),
	) error {
		cur, err := loadShowtime(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.TheaterID != lockedTheater {
			return errTheaterMoved
		}

		next := *cur
		movieChanged := changes.MovieID != nil && *changes.MovieID != cur.MovieID
		theaterChanged := changes.TheaterID != nil && *changes.TheaterID != cur.TheaterID
		windowChanged := (changes.StartTime != nil && !changes.StartTime.Equal(cur.StartTime)) ||
			(changes.EndTime != nil && !changes.EndTime.Equal(cur.EndTime))

		if changes.MovieID != nil {
			next.MovieID = *changes.MovieID
		}
		if changes.TheaterID != nil {
			next.TheaterID = *changes.TheaterID
		}
		if changes.StartTime != nil {
			next.StartTime = *changes.StartTime
		}
		if changes.EndTime != nil {
			next.EndTime = *changes.EndTime
		}
		if changes.Price != nil {
			next.Price = *changes.Price
		}

		var movie *domain.Movie
		if movieChanged || windowChanged {
			if movie, err = loadMovie(ctx, tx, next.MovieID); err != nil {
				return err
			}
		}

		if theaterChanged {
			theater, err := loadTheater(ctx, tx, next.TheaterID)
			if err != nil {
				return err
			}

			booked, err := tx.Bookings().CountByShowtime(ctx, id)
			if err != nil {
				return err
			}
			if booked > 0 {
				return domain.TheaterChangeError{ShowtimeID: id, Bookings: booked}
			}

			next.AvailableSeats = theater.Capacity
		}

		if theaterChanged || windowChanged {
			other, err := FindOverlap(ctx, tx.Showtimes(), next.TheaterID, next.StartTime, next.EndTime, id)
			if err != nil {
				return err
			}
			if other != nil {
				return conflictErr(next.TheaterID, other)
			}
		}

		if movie != nil {
			if err := ValidateDuration(next.StartTime, next.EndTime, movie.Duration, s.cfg.DurationTolerance); err != nil {
				var dm domain.DurationMismatchError
				if errors.As(err, &dm) {
					dm.ShowtimeID = id
					return dm
				}
				return err
			}
		}

		if err := tx.Showtimes().Update(ctx, &next); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.ScheduleConflictError{TheaterID: next.TheaterID, Start: next.StartTime, End: next.EndTime}
			}
			return err
		}

		updated = next

		after(s.changed(id, cur.MovieID))
		if movieChanged {
			after(s.changed(id, next.MovieID))
		}
		return nil
	})

	return updated, err
}

// Remove deletes a showtime together with its bookings.
//
// Returns:
//   - error: domain.ErrNotFound if the showtime does not exist.
func (s *Service) Remove(ctx context.Context, id int64) error {
	const op = "service.scheduler.Remove"

	err := s.uow.DoLocked(ctx, []string{lock.ShowtimeKey(id)}, func(
		ctx context.Context,
		tx domain.Repositories,
		after func(uow.AfterCommit),
	) error {
		st, err := loadShowtime(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := RemoveWithBookings(ctx, tx, id); err != nil {
			return err
		}

		after(s.changed(id, st.MovieID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RemoveWithBookings deletes the bookings of a showtime and then the
// showtime itself, within the caller's transaction.
func RemoveWithBookings(ctx context.Context, tx domain.Repositories, id int64) error {
	if _, err := tx.Bookings().DeleteByShowtime(ctx, id); err != nil {
		return err
	}

	if err := tx.Showtimes().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFoundError{Entity: "showtime", ID: id}
		}
		return err
	}

	return nil
}

// FindOverlap returns the first showtime of the theater that intersects
// [start, end), excluding excludeID, or nil when the window is free.
func (s *Service) FindOverlap(
	ctx context.Context,
	theaterID int64,
	start, end time.Time,
	excludeID int64,
) (*domain.Showtime, error) {
	return FindOverlap(ctx, s.repos.Showtimes(), theaterID, start, end, excludeID)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Showtime, error) {
	const op = "service.scheduler.Get"

	st, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyShowtime(id), s.cfg.CacheTTL,
		func(ctx context.Context) (domain.Showtime, error) {
			st, err := loadShowtime(ctx, s.repos, id)
			if err != nil {
				return domain.Showtime{}, err
			}
			return *st, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &st, nil
}

func (s *Service) ListByMovie(ctx context.Context, movieID int64) ([]domain.Showtime, error) {
	const op = "service.scheduler.ListByMovie"

	list, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyMovieShowtimes(movieID), s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.Showtime, error) {
			return s.repos.Showtimes().ListByMovie(ctx, movieID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// Upcoming lists showtimes starting after now, earliest first. A limit
// outside 1..MaxUpcomingLimit falls back to the configured default.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]domain.Showtime, error) {
	const op = "service.scheduler.Upcoming"

	if limit <= 0 || limit > s.cfg.MaxUpcomingLimit {
		limit = s.cfg.UpcomingLimit
	}

	list, err := s.repos.Showtimes().ListUpcoming(ctx, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) changed(showtimeID, movieID int64) uow.AfterCommit {
	return func(ctx context.Context) {
		_ = s.cache.InvalidateShowtime(ctx, showtimeID, movieID)
		_ = s.pubsub.PublishShowtimeChanged(ctx, showtimeID, movieID)
	}
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

func loadTheater(ctx context.Context, repos domain.Repositories, id int64) (*domain.Theater, error) {
	t, err := repos.Theaters().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError{Entity: "theater", ID: id}
		}
		return nil, err
	}
	return t, nil
}

func loadShowtime(ctx context.Context, repos domain.Repositories, id int64) (*domain.Showtime, error) {
	st, err := repos.Showtimes().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFoundError{Entity: "showtime", ID: id}
		}
		return nil, err
	}
	return st, nil
}
