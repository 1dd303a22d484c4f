package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LockDriverLocal = "local"
	LockDriverRedis = "redis"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Schedule  ScheduleConfig
	Booking   BookingConfig
	Telemetry TelemetryConfig
	Log       LogConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	// Addr empty disables the cache, the pubsub and the limiter.
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User        string
	Password    string
	Name        string
	Host        string
	Port        int
	SSLMode     string
	MaxConns    int
	TxRetries   int
	AutoMigrate bool
}

// DSN returns the connection URL of the database.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type RabbitMQConfig struct {
	// URL empty disables booking events.
	URL string
}

type ScheduleConfig struct {
	DurationToleranceMinutes int
	MovieDurationPolicy      string
	CacheTTL                 time.Duration
}

type BookingConfig struct {
	RateLimit       int
	RateLimitWindow time.Duration
	IdempotencyTTL  time.Duration
}

type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
	Environment string
}

type LogConfig struct {
	Level string
}

type StoreConfig struct {
	Driver     string
	LockDriver string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
	)

	cfg.Server.Host = getenv("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = getint("SERVER_PORT", 8080); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Store.Driver = strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres))
	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("%s: invalid STORE_DRIVER %q", op, cfg.Store.Driver)
	}

	cfg.Store.LockDriver = strings.ToLower(getenv("LOCK_DRIVER", LockDriverLocal))
	switch cfg.Store.LockDriver {
	case LockDriverLocal, LockDriverRedis:
	default:
		return nil, fmt.Errorf("%s: invalid LOCK_DRIVER %q", op, cfg.Store.LockDriver)
	}

	if cfg.Postgres, err = postgresConfig(cfg.Store.Driver == StoreDriverPostgres); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = getint("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Store.LockDriver == LockDriverRedis && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("%s: LOCK_DRIVER=redis requires REDIS_ADDR", op)
	}

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")

	if cfg.Schedule.DurationToleranceMinutes, err = getint("SCHEDULE_DURATION_TOLERANCE_MINUTES", 5); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Schedule.DurationToleranceMinutes < 0 {
		return nil, fmt.Errorf("%s: SCHEDULE_DURATION_TOLERANCE_MINUTES must not be negative", op)
	}

	cfg.Schedule.MovieDurationPolicy = strings.ToLower(getenv("MOVIE_DURATION_POLICY", "reject"))
	if p := cfg.Schedule.MovieDurationPolicy; p != "reject" && p != "adjust" {
		return nil, fmt.Errorf("%s: invalid MOVIE_DURATION_POLICY %q", op, p)
	}

	if cfg.Schedule.CacheTTL, err = getduration("CACHE_TTL", 30*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Booking.RateLimit, err = getint("BOOKING_RATE_LIMIT", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Booking.RateLimitWindow, err = getduration("BOOKING_RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Booking.IdempotencyTTL, err = getduration("IDEMPOTENCY_TTL", 2*time.Hour); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Telemetry.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.Telemetry.ServiceName = getenv("OTEL_SERVICE_NAME", "cinemago")
	cfg.Telemetry.Environment = getenv("APP_ENV", "development")

	cfg.Log.Level = getenv("LOG_LEVEL", "info")

	return &cfg, nil
}

func postgresConfig(required bool) (PostgresConfig, error) {
	var (
		c   PostgresConfig
		err error
	)

	c.Host = getenv("POSTGRES_HOST", "localhost")
	if c.Port, err = getint("POSTGRES_PORT", 5432); err != nil {
		return c, err
	}

	c.User = os.Getenv("POSTGRES_USER")
	c.Password = os.Getenv("POSTGRES_PASSWORD")
	c.Name = os.Getenv("POSTGRES_DB")
	c.SSLMode = getenv("POSTGRES_SSLMODE", "disable")

	if required {
		if c.User == "" {
			return c, fmt.Errorf("missing POSTGRES_USER")
		}
		if c.Password == "" {
			return c, fmt.Errorf("missing POSTGRES_PASSWORD")
		}
		if c.Name == "" {
			return c, fmt.Errorf("missing POSTGRES_DB")
		}
	}

	if c.MaxConns, err = getint("POSTGRES_MAX_CONNS", 0); err != nil {
		return c, err
	}
	if c.TxRetries, err = getint("POSTGRES_TX_RETRIES", 3); err != nil {
		return c, err
	}

	auto, err := getbool("POSTGRES_AUTO_MIGRATE", false)
	if err != nil {
		return c, err
	}
	c.AutoMigrate = auto

	return c, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getbool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getduration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
