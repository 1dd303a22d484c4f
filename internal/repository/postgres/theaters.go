package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-go/internal/domain"
)

type TheaterRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TheaterRepo) With(db DB) *TheaterRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TheaterRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a theater. The capacity column is checked against the
// geometry by the table constraint.
//
// Returns:
//   - int64: the generated theater ID.
//   - error: repository.ErrConflict if the name is taken or the capacity
//     does not match rows * seats per row.
func (r *TheaterRepo) Create(ctx context.Context, t *domain.Theater) (int64, error) {
	const op = "postgres.TheaterRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO theaters(name, seat_rows, seats_per_row, capacity)
       	 VALUES ($1, $2, $3, $4)
     	 RETURNING id`,
		t.Name, t.Rows, t.SeatsPerRow, t.Capacity,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *TheaterRepo) Get(ctx context.Context, id int64) (*domain.Theater, error) {
	const op = "postgres.TheaterRepo.Get"

	var t domain.Theater
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, seat_rows, seats_per_row, capacity
       	 FROM theaters WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Rows, &t.SeatsPerRow, &t.Capacity)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

func (r *TheaterRepo) List(ctx context.Context) ([]domain.Theater, error) {
	const op = "postgres.TheaterRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, seat_rows, seats_per_row, capacity
		 FROM theaters
		 ORDER BY id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Theater
	for rows.Next() {
		var t domain.Theater
		if err := rows.Scan(&t.ID, &t.Name, &t.Rows, &t.SeatsPerRow, &t.Capacity); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
