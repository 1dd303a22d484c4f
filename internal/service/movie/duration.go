package movie

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
	"github.com/kirinyoku/cinema-go/internal/service/scheduler"
	"github.com/kirinyoku/cinema-go/internal/uow"
)

var errScheduleMoved = errors.New("movie schedule changed while locking")

// UpdateDuration changes the duration of a movie and brings its showtimes
// in line according to the configured policy.
//
// With the reject policy nothing changes if a showtime window no longer
// matches the new duration. With the adjust policy every such showtime ends
// newDuration minutes after its start; a showtime that would then overlap
// another one in its theater is deleted together with its bookings.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: movie ID.
//   - newDuration: duration in minutes, positive.
//
// Returns:
//   - *domain.DurationUpdate: the movie and the IDs of adjusted and
//     deleted showtimes.
//   - error: domain.ErrNotFound if the movie does not exist.
//   - error: domain.ErrInvalidFormat if newDuration is not positive.
//   - error: domain.ErrDurationMismatch under the reject policy.
func (s *Service) UpdateDuration(ctx context.Context, id int64, newDuration int) (*domain.DurationUpdate, error) {
	const op = "service.movie.UpdateDuration"

	if newDuration <= 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.InvalidFormatError{
			Field: "duration", Value: fmt.Sprint(newDuration), Reason: "must be positive",
		})
	}

	var (
		res *domain.DurationUpdate
		err error
	)

	for attempt := 0; attempt < 3; attempt++ {
		res, err = s.updateDuration(ctx, id, newDuration)
		if !errors.Is(err, errScheduleMoved) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func (s *Service) updateDuration(ctx context.Context, id int64, newDuration int) (*domain.DurationUpdate, error) {
	if _, err := loadMovie(ctx, s.repos, id); err != nil {
		return nil, err
	}

	planned, err := s.repos.Showtimes().ListByMovie(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, 2*len(planned))
	for _, st := range planned {
		keys = append(keys, lock.TheaterKey(st.TheaterID), lock.ShowtimeKey(st.ID))
	}

	res := &domain.DurationUpdate{Adjusted: []int64{}, Deleted: []int64{}}

	err = s.uow.DoLocked(ctx, keys, func(
		ctx context.Context,
		tx domain.Repositories,
		after func(uow.AfterCommit),
	) error {
		res.Adjusted = res.Adjusted[:0]
		res.Deleted = res.Deleted[:0]

		movie, err := loadMovie(ctx, tx, id)
		if err != nil {
			return err
		}

		showtimes, err := tx.Showtimes().ListByMovie(ctx, id)
		if err != nil {
			return err
		}
		if !sameSchedule(planned, showtimes) {
			return errScheduleMoved
		}

		var stale []domain.Showtime
		for _, st := range showtimes {
			err := scheduler.ValidateDuration(st.StartTime, st.EndTime, newDuration, s.cfg.DurationTolerance)
			if err == nil {
				continue
			}

			if s.cfg.Policy == domain.DurationPolicyReject {
				var dm domain.DurationMismatchError
				if errors.As(err, &dm) {
					dm.ShowtimeID = st.ID
					return dm
				}
				return err
			}

			stale = append(stale, st)
		}

		if err := tx.Movies().UpdateDuration(ctx, id, newDuration); err != nil {
			return err
		}
		movie.Duration = newDuration

		for _, st := range stale {
			end := st.StartTime.Add(time.Duration(newDuration) * time.Minute)

			other, err := scheduler.FindOverlap(ctx, tx.Showtimes(), st.TheaterID, st.StartTime, end, st.ID)
			if err != nil {
				return err
			}

			if other != nil {
				if err := scheduler.RemoveWithBookings(ctx, tx, st.ID); err != nil {
					return err
				}
				res.Deleted = append(res.Deleted, st.ID)
				continue
			}

			st.EndTime = end
			if err := tx.Showtimes().Update(ctx, &st); err != nil {
				return err
			}
			res.Adjusted = append(res.Adjusted, st.ID)
		}

		res.Movie = *movie

		touched := showtimeIDs(stale)
		after(func(ctx context.Context) {
			_ = s.cache.InvalidateMovie(ctx, id)
			for _, stID := range touched {
				_ = s.cache.InvalidateShowtime(ctx, stID, id)
				_ = s.pubsub.PublishShowtimeChanged(ctx, stID, id)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// sameSchedule reports whether the showtimes read under the locks are the
// ones the locks were chosen for.
func sameSchedule(planned, current []domain.Showtime) bool {
	if len(planned) != len(current) {
		return false
	}

	theaters := make(map[int64]int64, len(planned))
	for _, st := range planned {
		theaters[st.ID] = st.TheaterID
	}

	for _, st := range current {
		if t, ok := theaters[st.ID]; !ok || t != st.TheaterID {
			return false
		}
	}

	return true
}

func showtimeIDs(list []domain.Showtime) []int64 {
	ids := make([]int64, 0, len(list))
	for _, st := range list {
		ids = append(ids, st.ID)
	}
	return ids
}
