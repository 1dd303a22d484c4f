package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type ShowtimeRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ShowtimeRepo) With(db DB) *ShowtimeRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ShowtimeRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const showtimeColumns = `id, movie_id, theater_id, start_time, end_time, price, available_seats`

func scanShowtime(row pgx.Row, s *domain.Showtime) error {
	return row.Scan(&s.ID, &s.MovieID, &s.TheaterID, &s.StartTime, &s.EndTime, &s.Price, &s.AvailableSeats)
}

// Create inserts a showtime.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - s: the showtime to insert; s.ID is ignored.
//
// Returns:
//   - int64: the generated showtime ID.
//   - error: repository.ErrConflict if the window overlaps another showtime
//     of the same theater or a referenced row is missing.
func (r *ShowtimeRepo) Create(ctx context.Context, s *domain.Showtime) (int64, error) {
	const op = "postgres.ShowtimeRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO showtimes(movie_id, theater_id, start_time, end_time, price, available_seats)
       	 VALUES ($1, $2, $3, $4, $5, $6)
     	 RETURNING id`,
		s.MovieID, s.TheaterID, s.StartTime, s.EndTime, s.Price, s.AvailableSeats,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a showtime by its ID.
//
// Returns:
//   - *domain.Showtime: the showtime when found.
//   - error: repository.ErrNotFound if the showtime is not found.
func (r *ShowtimeRepo) Get(ctx context.Context, id int64) (*domain.Showtime, error) {
	const op = "postgres.ShowtimeRepo.Get"

	var s domain.Showtime
	if err := scanShowtime(r.handle().QueryRow(ctx,
		`SELECT `+showtimeColumns+` FROM showtimes WHERE id = $1`,
		id,
	), &s); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

func (r *ShowtimeRepo) Update(ctx context.Context, s *domain.Showtime) error {
	const op = "postgres.ShowtimeRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE showtimes
		 SET movie_id = $2, theater_id = $3, start_time = $4, end_time = $5,
		     price = $6, available_seats = $7
		 WHERE id = $1`,
		s.ID, s.MovieID, s.TheaterID, s.StartTime, s.EndTime, s.Price, s.AvailableSeats,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// SetAvailableSeats overwrites the seat counter of a showtime.
//
// Returns:
//   - error: repository.ErrNotFound if the showtime is not found.
//   - error: repository.ErrConflict if the counter would become negative.
func (r *ShowtimeRepo) SetAvailableSeats(ctx context.Context, id int64, available int) error {
	const op = "postgres.ShowtimeRepo.SetAvailableSeats"

	tag, err := r.handle().Exec(ctx,
		`UPDATE showtimes SET available_seats = $2 WHERE id = $1`,
		id, available,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ShowtimeRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.ShowtimeRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM showtimes WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// FindOverlapping lists showtimes of a theater whose [start_time, end_time)
// window intersects [start, end). A showtime ending exactly at start does
// not overlap.
func (r *ShowtimeRepo) FindOverlapping(
	ctx context.Context,
	theaterID int64,
	start, end time.Time,
	excludeID int64,
) ([]domain.Showtime, error) {
	const op = "postgres.ShowtimeRepo.FindOverlapping"

	return r.list(ctx, op,
		`SELECT `+showtimeColumns+`
		 FROM showtimes
		 WHERE theater_id = $1
		   AND id <> $4
		   AND start_time < $3
		   AND end_time > $2
		 ORDER BY start_time, id`,
		theaterID, start, end, excludeID,
	)
}

func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID int64) ([]domain.Showtime, error) {
	const op = "postgres.ShowtimeRepo.ListByMovie"

	return r.list(ctx, op,
		`SELECT `+showtimeColumns+`
		 FROM showtimes
		 WHERE movie_id = $1
		 ORDER BY start_time, id`,
		movieID,
	)
}

func (r *ShowtimeRepo) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]domain.Showtime, error) {
	const op = "postgres.ShowtimeRepo.ListUpcoming"

	return r.list(ctx, op,
		`SELECT `+showtimeColumns+`
		 FROM showtimes
		 WHERE start_time > $1
		 ORDER BY start_time, id
		 LIMIT $2`,
		after, limit,
	)
}

func (r *ShowtimeRepo) list(ctx context.Context, op string, sql string, args ...any) ([]domain.Showtime, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Showtime
	for rows.Next() {
		var s domain.Showtime
		if err := scanShowtime(rows, &s); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
