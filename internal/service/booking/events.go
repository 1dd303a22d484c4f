package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoutingKeyCreated   = "booking.created"
	RoutingKeyCancelled = "booking.cancelled"
)

// EventPublisher delivers booking events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Event struct {
	BookingID  uuid.UUID       `json:"booking_id"`
	ShowtimeID int64           `json:"showtime_id"`
	SeatNumber int             `json:"seat_number"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	Email      string          `json:"customer_email,omitempty"`
	Price      decimal.Decimal `json:"price"`
	OccurredAt time.Time       `json:"occurred_at"`
}
