package service

import (
	"log/slog"

	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
	redis "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/service/booking"
	"github.com/kirinyoku/cinema-go/internal/service/ledger"
	"github.com/kirinyoku/cinema-go/internal/service/movie"
	"github.com/kirinyoku/cinema-go/internal/service/scheduler"
	"github.com/kirinyoku/cinema-go/internal/service/theater"
	"github.com/kirinyoku/cinema-go/internal/uow"
)

// Store is an entity store that can also open transactions.
type Store interface {
	domain.Repositories
	uow.TxRunner
}

type Services struct {
	Movies    *movie.Service
	Theaters  *theater.Service
	Showtimes *scheduler.Service
	Bookings  *booking.Service
}

type Config struct {
	Movie     movie.Config
	Theater   theater.Config
	Scheduler scheduler.Config
	Logger    *slog.Logger
}

// Deps are the optional collaborators of the services. Any of them may be
// nil.
type Deps struct {
	Locker lock.Locker
	Cache  *redis.Cache
	PubSub *redis.ShowtimesPubSub
	Events booking.EventPublisher
}

func NewServices(store Store, deps Deps, cfg Config) *Services {
	u := uow.NewUoW(store, deps.Locker)

	// Showtime windows are checked with the same tolerance everywhere.
	showtimes := scheduler.New(store, u, deps.Cache, deps.PubSub, cfg.Scheduler)
	cfg.Movie.DurationTolerance = showtimes.Tolerance()

	return &Services{
		Movies:    movie.New(store, u, deps.Cache, deps.PubSub, cfg.Movie),
		Theaters:  theater.New(store, u, deps.Cache, cfg.Theater),
		Showtimes: showtimes,
		Bookings: booking.New(store, u, ledger.New(), deps.Cache, deps.PubSub, deps.Events, booking.Config{
			Logger: cfg.Logger,
		}),
	}
}
