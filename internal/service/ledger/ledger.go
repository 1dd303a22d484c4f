// Package ledger owns the available-seat counter of showtimes. Every change
// to the counter after a showtime is scheduled goes through Reserve or
// Release, inside the same transaction as the booking row it accounts for.
package ledger

import (
	"context"
	"fmt"

	"github.com/kirinyoku/cinema-go/internal/domain"
)

type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// Reserve takes one seat from the showtime.
//
// Parameters:
//   - ctx: request-scoped context.
//   - repo: showtime repository bound to the caller's transaction.
//   - st: the showtime as loaded in the same transaction; its counter is
//     updated on success.
//
// Returns:
//   - error: domain.ErrNoSeatsAvailable if no seat is left.
func (l *Ledger) Reserve(ctx context.Context, repo domain.ShowtimeRepository, st *domain.Showtime) error {
	const op = "service.ledger.Reserve"

	if st.AvailableSeats <= 0 {
		return fmt.Errorf("%s: %w", op, domain.NoSeatsAvailableError{ShowtimeID: st.ID})
	}

	next := st.AvailableSeats - 1
	if err := repo.SetAvailableSeats(ctx, st.ID, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	st.AvailableSeats = next
	return nil
}

// Release gives one seat back to the showtime.
//
// Returns:
//   - error: domain.ErrInternalConsistency if the counter would exceed the
//     theater capacity, which means a booking was released twice or the
//     counter drifted.
func (l *Ledger) Release(ctx context.Context, repo domain.ShowtimeRepository, st *domain.Showtime, capacity int) error {
	const op = "service.ledger.Release"

	next := st.AvailableSeats + 1
	if next > capacity {
		return fmt.Errorf("%s: %w", op, domain.ConsistencyError{
			ShowtimeID: st.ID,
			Available:  next,
			Capacity:   capacity,
		})
	}

	if err := repo.SetAvailableSeats(ctx, st.ID, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	st.AvailableSeats = next
	return nil
}
