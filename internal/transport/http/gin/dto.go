package httpgin

import (
	"time"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateMovieRequest struct {
	Title       string  `json:"title" binding:"required,notblank,max=255"`
	Genre       string  `json:"genre" binding:"max=100"`
	Duration    int     `json:"duration" binding:"required"`
	Rating      float64 `json:"rating"`
	ReleaseYear int     `json:"release_year" binding:"required,releaseyear"`
}

type UpdateDurationRequest struct {
	Duration int `json:"duration"`
}

type CreateTheaterRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=255"`
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seats_per_row"`
}

type CreateShowtimeRequest struct {
	MovieID   int64           `json:"movie_id" binding:"required"`
	TheaterID int64           `json:"theater_id" binding:"required"`
	StartTime string          `json:"start_time" binding:"required"`
	EndTime   string          `json:"end_time" binding:"required"`
	Price     decimal.Decimal `json:"price"`
}

// UpdateShowtimeRequest is a partial update; omitted fields keep their
// current value.
type UpdateShowtimeRequest struct {
	MovieID   *int64           `json:"movie_id"`
	TheaterID *int64           `json:"theater_id"`
	StartTime *string          `json:"start_time"`
	EndTime   *string          `json:"end_time"`
	Price     *decimal.Decimal `json:"price"`
}

// CreateBookingRequest addresses the seat either by seat_number or by
// row_number and seat_in_row, and the requester either by user_id or by
// customer_name and customer_email.
type CreateBookingRequest struct {
	ShowtimeID    int64  `json:"showtime_id" binding:"required"`
	SeatNumber    *int   `json:"seat_number"`
	RowNumber     *int   `json:"row_number"`
	SeatInRow     *int   `json:"seat_in_row"`
	UserID        string `json:"user_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type BookTicketRequest struct {
	ShowtimeID    int64  `json:"showtime_id" binding:"required"`
	RowNumber     int    `json:"row_number"`
	SeatNumber    int    `json:"seat_number"`
	CustomerName  string `json:"customer_name" binding:"required,notblank"`
	CustomerEmail string `json:"customer_email" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}

func (r CreateBookingRequest) seat() domain.SeatIdentity {
	switch {
	case r.SeatNumber != nil && r.RowNumber == nil && r.SeatInRow == nil:
		return domain.SeatNumber(*r.SeatNumber)
	case r.SeatNumber == nil && (r.RowNumber != nil || r.SeatInRow != nil):
		return domain.RowSeat(deref(r.RowNumber), deref(r.SeatInRow))
	case r.SeatNumber != nil:
		// Both forms set; rejected by the validator.
		return domain.SeatIdentity{
			Kind:   domain.SeatFlat,
			Number: *r.SeatNumber,
			Row:    deref(r.RowNumber),
			Seat:   deref(r.SeatInRow),
		}
	default:
		return domain.SeatIdentity{}
	}
}

func (r UpdateShowtimeRequest) changes() (domain.ShowtimeChanges, error) {
	ch := domain.ShowtimeChanges{
		MovieID:   r.MovieID,
		TheaterID: r.TheaterID,
		Price:     r.Price,
	}

	if r.StartTime != nil {
		t, err := parseRFC3339(*r.StartTime)
		if err != nil {
			return ch, domain.InvalidFormatError{Field: "start_time", Value: *r.StartTime, Reason: "must be RFC3339"}
		}
		ch.StartTime = &t
	}

	if r.EndTime != nil {
		t, err := parseRFC3339(*r.EndTime)
		if err != nil {
			return ch, domain.InvalidFormatError{Field: "end_time", Value: *r.EndTime, Reason: "must be RFC3339"}
		}
		ch.EndTime = &t
	}

	return ch, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
