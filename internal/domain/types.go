package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Genre       string  `json:"genre"`
	Duration    int     `json:"duration"` // minutes
	Rating      float64 `json:"rating"`
	ReleaseYear int     `json:"release_year"`
}

type Theater struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seats_per_row"`
	Capacity    int    `json:"capacity"`
}

type Showtime struct {
	ID             int64           `json:"id"`
	MovieID        int64           `json:"movie_id"`
	TheaterID      int64           `json:"theater_id"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"available_seats"`
}

// Overlaps reports whether the showtime window intersects [start, end).
// Windows that only touch at a boundary do not overlap.
func (s Showtime) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

// ShowtimeChanges is a partial update. Nil fields are left untouched.
type ShowtimeChanges struct {
	MovieID   *int64
	TheaterID *int64
	StartTime *time.Time
	EndTime   *time.Time
	Price     *decimal.Decimal
}

type SeatKind string

const (
	SeatFlat SeatKind = "flat"
	SeatPair SeatKind = "pair"
)

// SeatIdentity addresses a bookable seat either by its flat number in
// 1..capacity or by a (row, seat) pair.
type SeatIdentity struct {
	Kind   SeatKind `json:"kind"`
	Number int      `json:"number,omitempty"`
	Row    int      `json:"row,omitempty"`
	Seat   int      `json:"seat,omitempty"`
}

func SeatNumber(n int) SeatIdentity {
	return SeatIdentity{Kind: SeatFlat, Number: n}
}

func RowSeat(row, seat int) SeatIdentity {
	return SeatIdentity{Kind: SeatPair, Row: row, Seat: seat}
}

// Normalize returns the flat seat number together with its row and seat
// position for a theater with the given seats per row. The identity must
// already be in bounds.
func (s SeatIdentity) Normalize(seatsPerRow int) (number, row, seat int) {
	if s.Kind == SeatPair {
		return (s.Row-1)*seatsPerRow + s.Seat, s.Row, s.Seat
	}

	return s.Number, (s.Number-1)/seatsPerRow + 1, (s.Number-1)%seatsPerRow + 1
}

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	ShowtimeID    int64           `json:"showtime_id"`
	SeatNumber    int             `json:"seat_number"`
	Row           int             `json:"row_number"`
	Seat          int             `json:"seat_in_row"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DurationPolicy decides what happens to existing showtimes when their
// movie's duration changes.
type DurationPolicy string

const (
	DurationPolicyReject DurationPolicy = "reject"
	DurationPolicyAdjust DurationPolicy = "adjust"
)

// DurationUpdate reports the outcome of a movie duration change.
type DurationUpdate struct {
	Movie    Movie   `json:"movie"`
	Adjusted []int64 `json:"adjusted_showtimes"`
	Deleted  []int64 `json:"deleted_showtimes"`
}
