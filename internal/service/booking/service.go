package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
	"github.com/kirinyoku/cinema-go/internal/repository"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/service/ledger"
	"github.com/kirinyoku/cinema-go/internal/uow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/kirinyoku/cinema-go/internal/service/booking"

var tracer = otel.Tracer(instrumentation)

type Config struct {
	Logger *slog.Logger
}

type Service struct {
	repos     domain.Repositories
	uow       *uow.UoW
	ledger    *ledger.Ledger
	cache     *redisrepo.Cache
	pubsub    *redisrepo.ShowtimesPubSub
	events    EventPublisher
	log       *slog.Logger
	created   metric.Int64Counter
	cancelled metric.Int64Counter
	now       func() time.Time
}

// New builds the booking service. cache, pubsub and events may be nil.
func New(
	repos domain.Repositories,
	u *uow.UoW,
	l *ledger.Ledger,
	cache *redisrepo.Cache,
	pubsub *redisrepo.ShowtimesPubSub,
	events EventPublisher,
	cfg Config,
) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if l == nil {
		l = ledger.New()
	}

	meter := otel.Meter(instrumentation)
	created, _ := meter.Int64Counter("cinemago.bookings.created",
		metric.WithDescription("Bookings committed"))
	cancelled, _ := meter.Int64Counter("cinemago.bookings.cancelled",
		metric.WithDescription("Bookings cancelled"))

	return &Service{
		repos:     repos,
		uow:       u,
		ledger:    l,
		cache:     cache,
		pubsub:    pubsub,
		events:    events,
		log:       cfg.Logger,
		created:   created,
		cancelled: cancelled,
		now:       time.Now,
	}
}

// CreateRequest identifies the requester either by UserID or by
// CustomerName and CustomerEmail.
type CreateRequest struct {
	ShowtimeID    int64
	Seat          domain.SeatIdentity
	UserID        string
	CustomerName  string
	CustomerEmail string
}

// Create books one seat of a showtime.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: showtime, seat identity and requester.
//
// Returns:
//   - *domain.Booking: the persisted booking, priced at the showtime price.
//   - error: domain.ErrNotFound if the showtime does not exist.
//   - error: domain.ErrInvalidFormat if the requester identity is malformed.
//   - error: domain.ErrOutOfBounds if the seat is outside the theater.
//   - error: domain.ErrNoSeatsAvailable if the showtime is sold out.
//   - error: domain.ErrSeatTaken if the seat is already booked.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Booking, error) {
	const op = "service.booking.Create"

	ctx, span := tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.Int64("showtime.id", req.ShowtimeID),
	))
	defer span.End()

	var b domain.Booking

	err := s.uow.DoLocked(ctx, []string{lock.ShowtimeKey(req.ShowtimeID)}, func(
		ctx context.Context,
		tx domain.Repositories,
		after func(uow.AfterCommit),
	) error {
		// 1
		st, err := tx.Showtimes().Get(ctx, req.ShowtimeID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFoundError{Entity: "showtime", ID: req.ShowtimeID}
			}
			return err
		}

		// 2
		b = domain.Booking{ShowtimeID: st.ID}
		if err := s.requester(req, &b); err != nil {
			return err
		}

		// 3
		theater, err := tx.Theaters().Get(ctx, st.TheaterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFoundError{Entity: "theater", ID: st.TheaterID}
			}
			return err
		}
		if err := ValidateSeatIdentity(req.Seat, theater); err != nil {
			return err
		}
		b.SeatNumber, b.Row, b.Seat = req.Seat.Normalize(theater.SeatsPerRow)

		// 4
		if st.AvailableSeats <= 0 {
			return domain.NoSeatsAvailableError{ShowtimeID: st.ID}
		}

		// 5
		if err := ValidateUnique(ctx, tx.Bookings(), st.ID, b.SeatNumber); err != nil {
			return err
		}

		// 6
		if err := s.ledger.Reserve(ctx, tx.Showtimes(), st); err != nil {
			return err
		}

		// 7
		b.ID = uuid.New()
		b.Price = st.Price
		b.CreatedAt = s.now().UTC()
		if err := tx.Bookings().Create(ctx, &b); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.SeatTakenError{ShowtimeID: st.ID, SeatNumber: b.SeatNumber}
			}
			return err
		}

		booked := b
		after(func(ctx context.Context) {
			s.committed(ctx, RoutingKeyCreated, booked, st.MovieID)
		})

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.created.Add(ctx, 1)
	span.SetAttributes(attribute.String("booking.id", b.ID.String()))

	return &b, nil
}

func (s *Service) requester(req CreateRequest, b *domain.Booking) error {
	if req.UserID != "" || (req.CustomerName == "" && req.CustomerEmail == "") {
		id, err := ValidateUserID(req.UserID)
		if err != nil {
			return err
		}
		b.UserID = &id
	}

	if req.CustomerName != "" || req.CustomerEmail != "" {
		email, err := ValidateCustomer(req.CustomerName, req.CustomerEmail)
		if err != nil {
			return err
		}
		b.CustomerName = strings.TrimSpace(req.CustomerName)
		b.CustomerEmail = email
	}

	return nil
}

// Remove cancels a booking and gives its seat back to the showtime.
//
// Returns:
//   - error: domain.ErrNotFound if the booking does not exist.
//   - error: domain.ErrInternalConsistency if the seat counter is already
//     at capacity.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	const op = "service.booking.Remove"

	ctx, span := tracer.Start(ctx, "booking.Remove", trace.WithAttributes(
		attribute.String("booking.id", id.String()),
	))
	defer span.End()

	// Read once to pick the lock, again under it.
	pre, err := s.repos.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = domain.NotFoundError{Entity: "booking", ID: id}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.uow.DoLocked(ctx, []string{lock.ShowtimeKey(pre.ShowtimeID)}, func(
		ctx context.Context,
		tx domain.Repositories,
		after func(uow.AfterCommit),
	) error {
		b, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFoundError{Entity: "booking", ID: id}
			}
			return err
		}

		st, err := tx.Showtimes().Get(ctx, b.ShowtimeID)
		if err != nil {
			return err
		}

		theater, err := tx.Theaters().Get(ctx, st.TheaterID)
		if err != nil {
			return err
		}

		if err := s.ledger.Release(ctx, tx.Showtimes(), st, theater.Capacity); err != nil {
			return err
		}

		if err := tx.Bookings().Delete(ctx, id); err != nil {
			return err
		}

		cancelled := *b
		after(func(ctx context.Context) {
			s.committed(ctx, RoutingKeyCancelled, cancelled, st.MovieID)
		})

		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cancelled.Add(ctx, 1)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.repos.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = domain.NotFoundError{Entity: "booking", ID: id}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

func (s *Service) committed(ctx context.Context, routingKey string, b domain.Booking, movieID int64) {
	if err := s.cache.InvalidateShowtime(ctx, b.ShowtimeID, movieID); err != nil {
		s.log.WarnContext(ctx, "invalidate showtime cache", "showtime_id", b.ShowtimeID, "err", err)
	}

	if err := s.pubsub.PublishShowtimeChanged(ctx, b.ShowtimeID, movieID); err != nil {
		s.log.WarnContext(ctx, "publish showtime changed", "showtime_id", b.ShowtimeID, "err", err)
	}

	if s.events == nil {
		return
	}

	ev := Event{
		BookingID:  b.ID,
		ShowtimeID: b.ShowtimeID,
		SeatNumber: b.SeatNumber,
		UserID:     b.UserID,
		Email:      b.CustomerEmail,
		Price:      b.Price,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, routingKey, ev); err != nil {
		s.log.WarnContext(ctx, "publish booking event",
			"routing_key", routingKey, "booking_id", b.ID, "err", err)
	}
}
