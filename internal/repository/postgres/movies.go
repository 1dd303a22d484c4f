package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/repository"
)

type MovieRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *MovieRepo) With(db DB) *MovieRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *MovieRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a movie.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - m: the movie to insert; m.ID is ignored.
//
// Returns:
//   - int64: the generated movie ID.
//   - error: repository.ErrConflict if a movie with the same title exists.
func (r *MovieRepo) Create(ctx context.Context, m *domain.Movie) (int64, error) {
	const op = "postgres.MovieRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO movies(title, genre, duration, rating, release_year)
       	 VALUES ($1, $2, $3, $4, $5)
     	 RETURNING id`,
		m.Title, m.Genre, m.Duration, m.Rating, m.ReleaseYear,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a movie by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the movie is not found.
func (r *MovieRepo) Get(ctx context.Context, id int64) (*domain.Movie, error) {
	const op = "postgres.MovieRepo.Get"

	var m domain.Movie
	err := r.handle().QueryRow(ctx,
		`SELECT id, title, genre, duration, rating, release_year
       	 FROM movies WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.Genre, &m.Duration, &m.Rating, &m.ReleaseYear)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &m, nil
}

func (r *MovieRepo) List(ctx context.Context) ([]domain.Movie, error) {
	const op = "postgres.MovieRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT id, title, genre, duration, rating, release_year
		 FROM movies
		 ORDER BY id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Movie
	for rows.Next() {
		var m domain.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Genre, &m.Duration, &m.Rating, &m.ReleaseYear); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *MovieRepo) UpdateDuration(ctx context.Context, id int64, duration int) error {
	const op = "postgres.MovieRepo.UpdateDuration"

	tag, err := r.handle().Exec(ctx,
		`UPDATE movies SET duration = $2 WHERE id = $1`,
		id, duration,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a movie.
//
// Returns:
//   - error: repository.ErrNotFound if the movie is not found.
//   - error: repository.ErrConflict if showtimes still reference the movie.
func (r *MovieRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.MovieRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
