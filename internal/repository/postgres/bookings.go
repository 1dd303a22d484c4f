package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, showtime_id, seat_number, row_number, seat_in_row, user_id,
	customer_name, customer_email, price, created_at`

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(
		&b.ID, &b.ShowtimeID, &b.SeatNumber, &b.Row, &b.Seat, &b.UserID,
		&b.CustomerName, &b.CustomerEmail, &b.Price, &b.CreatedAt,
	)
}

// Create inserts a booking. CreatedAt is filled from the database clock.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - b: the booking to insert, with its ID already generated.
//
// Returns:
//   - error: repository.ErrConflict if the seat is already booked for the
//     showtime.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgres.BookingRepo.Create"

	if err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings(id, showtime_id, seat_number, row_number, seat_in_row,
		                      user_id, customer_name, customer_email, price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		b.ID, b.ShowtimeID, b.SeatNumber, b.Row, b.Seat,
		b.UserID, b.CustomerName, b.CustomerEmail, b.Price,
	).Scan(&b.CreatedAt); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	var b domain.Booking
	if err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	), &b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.BookingRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) DeleteByShowtime(ctx context.Context, showtimeID int64) (int64, error) {
	const op = "postgres.BookingRepo.DeleteByShowtime"

	tag, err := r.handle().Exec(ctx, `DELETE FROM bookings WHERE showtime_id = $1`, showtimeID)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return tag.RowsAffected(), nil
}

// SeatTaken reports whether a booking already holds the seat.
func (r *BookingRepo) SeatTaken(ctx context.Context, showtimeID int64, seatNumber int) (bool, error) {
	const op = "postgres.BookingRepo.SeatTaken"

	var taken bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings WHERE showtime_id = $1 AND seat_number = $2
		 )`,
		showtimeID, seatNumber,
	).Scan(&taken); err != nil {
		return false, wrapDBErr(op, err)
	}

	return taken, nil
}

func (r *BookingRepo) CountByShowtime(ctx context.Context, showtimeID int64) (int, error) {
	const op = "postgres.BookingRepo.CountByShowtime"

	var n int
	if err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE showtime_id = $1`,
		showtimeID,
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

func (r *BookingRepo) ListByShowtime(ctx context.Context, showtimeID int64) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByShowtime"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE showtime_id = $1
		 ORDER BY seat_number`,
		showtimeID,
	)
}

func (r *BookingRepo) ListByCustomer(ctx context.Context, email string) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByCustomer"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE lower(customer_email) = lower($1)
		 ORDER BY showtime_id, seat_number`,
		email,
	)
}

func (r *BookingRepo) list(ctx context.Context, op string, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
