package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

// BookTicket books the seat at (row, seat) for a customer without an
// account. It follows the same rules as Create.
func (s *Service) BookTicket(
	ctx context.Context,
	showtimeID int64,
	row, seat int,
	customerName, customerEmail string,
) (*domain.Booking, error) {
	const op = "service.booking.BookTicket"

	if customerName == "" && customerEmail == "" {
		return nil, fmt.Errorf("%s: %w", op, domain.InvalidFormatError{
			Field: "customer_name", Reason: "must not be empty",
		})
	}

	b, err := s.Create(ctx, CreateRequest{
		ShowtimeID:    showtimeID,
		Seat:          domain.RowSeat(row, seat),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// TicketsByShowtime lists the bookings of a showtime ordered by seat.
//
// Returns:
//   - error: domain.ErrNotFound if the showtime does not exist.
func (s *Service) TicketsByShowtime(ctx context.Context, showtimeID int64) ([]domain.Booking, error) {
	const op = "service.booking.TicketsByShowtime"

	if _, err := s.repos.Showtimes().Get(ctx, showtimeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = domain.NotFoundError{Entity: "showtime", ID: showtimeID}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	list, err := s.repos.Bookings().ListByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// TicketsByCustomer lists the bookings made with the given email,
// newest first. An unknown email yields an empty list.
func (s *Service) TicketsByCustomer(ctx context.Context, email string) ([]domain.Booking, error) {
	const op = "service.booking.TicketsByCustomer"

	list, err := s.repos.Bookings().ListByCustomer(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

func (s *Service) CancelTicket(ctx context.Context, id uuid.UUID) error {
	return s.Remove(ctx, id)
}
