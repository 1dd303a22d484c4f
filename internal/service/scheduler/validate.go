package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
)

// DefaultDurationTolerance is the number of minutes a showtime window may
// differ from its movie's duration.
const DefaultDurationTolerance = 5

// ValidateDuration checks that the window [start, end) is positive and lasts
// movieDuration minutes give or take toleranceMinutes. A tolerance of zero
// demands an exact match.
func ValidateDuration(start, end time.Time, movieDuration, toleranceMinutes int) error {
	elapsed := end.Sub(start).Minutes()
	if elapsed <= 0 {
		return domain.DurationMismatchError{Expected: movieDuration, Actual: 0, Tolerance: toleranceMinutes}
	}

	if math.Abs(elapsed-float64(movieDuration)) > float64(toleranceMinutes) {
		return domain.DurationMismatchError{
			Expected:  movieDuration,
			Actual:    int(math.Round(elapsed)),
			Tolerance: toleranceMinutes,
		}
	}

	return nil
}

// FindOverlap returns the earliest showtime of the theater whose window
// intersects [start, end), or nil. excludeID of zero excludes nothing.
func FindOverlap(
	ctx context.Context,
	repo domain.ShowtimeRepository,
	theaterID int64,
	start, end time.Time,
	excludeID int64,
) (*domain.Showtime, error) {
	const op = "service.scheduler.FindOverlap"

	found, err := repo.FindOverlapping(ctx, theaterID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range found {
		if found[i].ID != excludeID && found[i].Overlaps(start, end) {
			return &found[i], nil
		}
	}

	return nil, nil
}

func conflictErr(theaterID int64, other *domain.Showtime) error {
	return domain.ScheduleConflictError{
		TheaterID:     theaterID,
		ConflictingID: other.ID,
		Start:         other.StartTime,
		End:           other.EndTime,
	}
}
