package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cinema-go/internal/broker/rabbitmq"
	"github.com/kirinyoku/cinema-go/internal/config"
	"github.com/kirinyoku/cinema-go/internal/domain"
	"github.com/kirinyoku/cinema-go/internal/lock"
	"github.com/kirinyoku/cinema-go/internal/postgres"
	"github.com/kirinyoku/cinema-go/internal/redis"
	"github.com/kirinyoku/cinema-go/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/cinema-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cinema-go/internal/repository/redis"
	"github.com/kirinyoku/cinema-go/internal/service"
	"github.com/kirinyoku/cinema-go/internal/service/booking"
	"github.com/kirinyoku/cinema-go/internal/service/movie"
	"github.com/kirinyoku/cinema-go/internal/service/scheduler"
	"github.com/kirinyoku/cinema-go/internal/service/theater"
	"github.com/kirinyoku/cinema-go/internal/telemetry"
	httpgin "github.com/kirinyoku/cinema-go/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	cache      *redisrepo.Cache
	pubsub     *redisrepo.ShowtimesPubSub
	closers    []func(ctx context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.init(ctx); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg
	tracing := cfg.Telemetry.Endpoint != ""

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	// Initialize the entity store
	var store service.Store
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		a.logger.Warn("using in-memory store, data is lost on restart")
		store = memory.NewStore()

	default:
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(cfg.Postgres.DSN()); err != nil {
				return fmt.Errorf("failed to migrate postgres: %w", err)
			}
			a.logger.Info("postgres migrations applied")
		}

		pool, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN(),
			MaxConns: int32(cfg.Postgres.MaxConns),
			Tracing:  tracing,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, closePool(pool))

		store = postgresrepo.NewStore(pool, postgresrepo.WithTxRetries(cfg.Postgres.TxRetries))
	}

	// Initialize redis-backed collaborators
	var (
		rdb     *goredis.Client
		limiter *redisrepo.SlidingWindowLimiter
		idem    *redisrepo.IdempotencyStore
		locker  lock.Locker = lock.NewLocal()
	)

	if cfg.Redis.Addr != "" {
		rdb, err = redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Tracing:  tracing,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

		a.cache = redisrepo.New(rdb)
		a.pubsub = redisrepo.NewShowtimesPubSub(rdb)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.Booking.RateLimit, cfg.Booking.RateLimitWindow)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)

		if cfg.Store.LockDriver == config.LockDriverRedis {
			locker = redisrepo.NewLocker(rdb, 10*time.Second, 5*time.Second)
		}
	} else {
		a.logger.Info("REDIS_ADDR not set, running without cache, rate limit and idempotency")
	}

	// Initialize the event publisher
	var events booking.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		pub := rabbitmq.NewPublisher(rabbitmq.Config{
			URL:    cfg.RabbitMQ.URL,
			Queues: []string{booking.RoutingKeyCreated, booking.RoutingKeyCancelled},
		}, a.logger)
		if err := pub.Connect(); err != nil {
			a.logger.Warn("rabbitmq unavailable, will retry on publish", "err", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		events = pub
	}

	// Initialize services
	services := service.NewServices(store, service.Deps{
		Locker: locker,
		Cache:  a.cache,
		PubSub: a.pubsub,
		Events: events,
	}, service.Config{
		Movie: movie.Config{
			Policy:   domain.DurationPolicy(cfg.Schedule.MovieDurationPolicy),
			CacheTTL: cfg.Schedule.CacheTTL,
		},
		Theater: theater.Config{CacheTTL: cfg.Schedule.CacheTTL},
		Scheduler: scheduler.Config{
			DurationTolerance: cfg.Schedule.DurationToleranceMinutes,
			CacheTTL:          cfg.Schedule.CacheTTL,
		},
		Logger: a.logger,
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, httpgin.Options{
		Idempotency: idem,
		Limiter:     limiter,
	}, a.logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached showtimes changed by other instances
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, msg redisrepo.ShowtimeChangedMsg) {
				a.logger.Debug("showtime changed", "showtime_id", msg.ShowtimeID, "movie_id", msg.MovieID)
				if err := a.cache.InvalidateShowtime(ctx, msg.ShowtimeID, msg.MovieID); err != nil {
					a.logger.Warn("invalidate showtime cache", "showtime_id", msg.ShowtimeID, "err", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("showtimes subscriber: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()

	if cerr := a.close(context.Background()); cerr != nil {
		a.logger.Error("failed to release resources", "error", cerr)
	}

	return err
}

// Handler exposes the HTTP handler for in-process tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Close releases the resources of an App that was never Run.
func (a *App) Close(ctx context.Context) error {
	return a.close(ctx)
}

func (a *App) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closePool(pool *pgxpool.Pool) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}
