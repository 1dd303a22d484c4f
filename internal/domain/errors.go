package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error classes. Every error produced by the booking core unwraps to
// exactly one of them.
var (
	ErrNotFound            = errors.New("not found")
	ErrBadRequest          = errors.New("bad request")
	ErrInternalConsistency = errors.New("internal consistency violation")
)

type kindError struct {
	msg   string
	class error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.class }

// BadRequest kinds.
var (
	ErrDurationMismatch          error = &kindError{"duration mismatch", ErrBadRequest}
	ErrScheduleConflict          error = &kindError{"schedule conflict", ErrBadRequest}
	ErrOutOfBounds               error = &kindError{"out of bounds", ErrBadRequest}
	ErrSeatTaken                 error = &kindError{"seat taken", ErrBadRequest}
	ErrNoSeatsAvailable          error = &kindError{"no seats available", ErrBadRequest}
	ErrInvalidFormat             error = &kindError{"invalid format", ErrBadRequest}
	ErrInvalidGeometry           error = &kindError{"invalid geometry", ErrBadRequest}
	ErrDuplicateName             error = &kindError{"duplicate name", ErrBadRequest}
	ErrMovieInUse                error = &kindError{"movie in use", ErrBadRequest}
	ErrTheaterChangeWithBookings error = &kindError{"theater change with bookings", ErrBadRequest}
)

type NotFoundError struct {
	Entity string
	ID     any
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

type DurationMismatchError struct {
	ShowtimeID int64 // zero for a showtime that is not persisted yet
	Expected   int
	Actual     int
	Tolerance  int
}

func (e DurationMismatchError) Error() string {
	var prefix string
	if e.ShowtimeID != 0 {
		prefix = fmt.Sprintf("showtime %d: ", e.ShowtimeID)
	}

	if e.Actual <= 0 {
		return prefix + "end time must be after start time"
	}

	return fmt.Sprintf(
		"%sshowtime duration (%d minutes) must match movie duration (%d minutes) within %d minutes",
		prefix, e.Actual, e.Expected, e.Tolerance,
	)
}

func (e DurationMismatchError) Unwrap() error { return ErrDurationMismatch }

type ScheduleConflictError struct {
	TheaterID     int64
	ConflictingID int64
	Start         time.Time
	End           time.Time
}

func (e ScheduleConflictError) Error() string {
	return fmt.Sprintf(
		"theater %d already has showtime %d scheduled between %s and %s",
		e.TheaterID, e.ConflictingID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339),
	)
}

func (e ScheduleConflictError) Unwrap() error { return ErrScheduleConflict }

type OutOfBoundsError struct {
	Field string
	Min   int
	Max   int
	Value int
}

func (e OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}

func (e OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }

type SeatTakenError struct {
	ShowtimeID int64
	SeatNumber int
}

func (e SeatTakenError) Error() string {
	return fmt.Sprintf("seat %d is already booked for showtime %d", e.SeatNumber, e.ShowtimeID)
}

func (e SeatTakenError) Unwrap() error { return ErrSeatTaken }

type NoSeatsAvailableError struct {
	ShowtimeID int64
}

func (e NoSeatsAvailableError) Error() string {
	return fmt.Sprintf("no seats available for showtime %d", e.ShowtimeID)
}

func (e NoSeatsAvailableError) Unwrap() error { return ErrNoSeatsAvailable }

type InvalidFormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e InvalidFormatError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

type InvalidGeometryError struct {
	Rows        int
	SeatsPerRow int
}

func (e InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid theater geometry: rows=%d seats_per_row=%d", e.Rows, e.SeatsPerRow)
}

func (e InvalidGeometryError) Unwrap() error { return ErrInvalidGeometry }

type DuplicateNameError struct {
	Entity string
	Name   string
}

func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Name)
}

func (e DuplicateNameError) Unwrap() error { return ErrDuplicateName }

type MovieInUseError struct {
	MovieID   int64
	Showtimes int
}

func (e MovieInUseError) Error() string {
	return fmt.Sprintf("movie %d is referenced by %d showtimes", e.MovieID, e.Showtimes)
}

func (e MovieInUseError) Unwrap() error { return ErrMovieInUse }

type TheaterChangeError struct {
	ShowtimeID int64
	Bookings   int
}

func (e TheaterChangeError) Error() string {
	return fmt.Sprintf("showtime %d has %d bookings and cannot move to another theater", e.ShowtimeID, e.Bookings)
}

func (e TheaterChangeError) Unwrap() error { return ErrTheaterChangeWithBookings }

// ConsistencyError signals that the seat counter of a showtime would leave
// the range [0, capacity]. It indicates a defect, not a caller mistake.
type ConsistencyError struct {
	ShowtimeID int64
	Available  int
	Capacity   int
}

func (e ConsistencyError) Error() string {
	return fmt.Sprintf(
		"showtime %d: available seats %d would exceed capacity %d",
		e.ShowtimeID, e.Available, e.Capacity,
	)
}

func (e ConsistencyError) Unwrap() error { return ErrInternalConsistency }

var kinds = []struct {
	err  error
	name string
}{
	{ErrDurationMismatch, "duration_mismatch"},
	{ErrScheduleConflict, "schedule_conflict"},
	{ErrOutOfBounds, "out_of_bounds"},
	{ErrSeatTaken, "seat_taken"},
	{ErrNoSeatsAvailable, "no_seats_available"},
	{ErrInvalidFormat, "invalid_format"},
	{ErrInvalidGeometry, "invalid_geometry"},
	{ErrDuplicateName, "duplicate_name"},
	{ErrMovieInUse, "movie_in_use"},
	{ErrTheaterChangeWithBookings, "theater_change_with_bookings"},
	{ErrNotFound, "not_found"},
	{ErrBadRequest, "bad_request"},
	{ErrInternalConsistency, "internal_consistency"},
}

// Kind returns a stable machine-readable name for err, or "internal" when
// err is not part of the taxonomy.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
