package booking

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
)

// ValidateSeatIdentity checks that id addresses a seat of the theater.
func ValidateSeatIdentity(id domain.SeatIdentity, t *domain.Theater) error {
	switch id.Kind {
	case domain.SeatFlat:
		if id.Row != 0 || id.Seat != 0 {
			return domain.InvalidFormatError{Field: "seat", Reason: "set either seat_number or row and seat, not both"}
		}
		if id.Number < 1 || id.Number > t.Capacity {
			return domain.OutOfBoundsError{Field: "seat_number", Min: 1, Max: t.Capacity, Value: id.Number}
		}

	case domain.SeatPair:
		if id.Number != 0 {
			return domain.InvalidFormatError{Field: "seat", Reason: "set either seat_number or row and seat, not both"}
		}
		if id.Row < 1 || id.Row > t.Rows {
			return domain.OutOfBoundsError{Field: "row_number", Min: 1, Max: t.Rows, Value: id.Row}
		}
		if id.Seat < 1 || id.Seat > t.SeatsPerRow {
			return domain.OutOfBoundsError{Field: "seat_in_row", Min: 1, Max: t.SeatsPerRow, Value: id.Seat}
		}

	default:
		return domain.InvalidFormatError{Field: "seat", Reason: "seat_number or row and seat is required"}
	}

	return nil
}

// ValidateUnique fails with domain.ErrSeatTaken if seatNumber, already
// normalized to the flat form, is booked for the showtime.
func ValidateUnique(ctx context.Context, repo domain.BookingRepository, showtimeID int64, seatNumber int) error {
	const op = "service.booking.ValidateUnique"

	taken, err := repo.SeatTaken(ctx, showtimeID, seatNumber)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if taken {
		return domain.SeatTakenError{ShowtimeID: showtimeID, SeatNumber: seatNumber}
	}

	return nil
}

func ValidateUserID(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, domain.InvalidFormatError{Field: "user_id", Value: userID, Reason: "must be a UUID"}
	}
	return id, nil
}

// ValidateCustomer checks the identity of a customer booking without an
// account and returns the normalized email address.
func ValidateCustomer(name, email string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.InvalidFormatError{Field: "customer_name", Reason: "must not be empty"}
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return "", domain.InvalidFormatError{Field: "customer_email", Value: email, Reason: "must be an email address"}
	}

	return strings.ToLower(addr.Address), nil
}
