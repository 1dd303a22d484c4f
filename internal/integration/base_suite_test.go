package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinema-go/internal/app"
	"github.com/kirinyoku/cinema-go/internal/config"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "cinema"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	cfg            *config.Config
	app            *app.App
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration tests in short mode")
	}

	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	s.Require().NoError(err)
	s.dbContainer = postgresContainer

	redisContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err)
	s.cacheContainer = redisContainer

	s.cfg = &config.Config{
		Postgres: config.PostgresConfig{
			User:        dbUser,
			Password:    dbPassword,
			Name:        dbName,
			Host:        postgresContainer.Host,
			Port:        postgresContainer.Port,
			SSLMode:     "disable",
			MaxConns:    10,
			TxRetries:   5,
			AutoMigrate: true,
		},
		Redis: config.RedisConfig{Addr: redisContainer.Addr},
		Schedule: config.ScheduleConfig{
			DurationToleranceMinutes: 5,
			MovieDurationPolicy:      "reject",
			CacheTTL:                 time.Minute,
		},
		Booking: config.BookingConfig{
			RateLimit:       1000,
			RateLimitWindow: time.Minute,
			IdempotencyTTL:  time.Hour,
		},
		Store: config.StoreConfig{
			Driver:     config.StoreDriverPostgres,
			LockDriver: config.LockDriverRedis,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := app.New(ctx, s.cfg, logger)
	s.Require().NoError(err)

	s.app = a
	s.server = httptest.NewServer(a.Handler())
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.app != nil {
		if err := s.app.Close(context.Background()); err != nil {
			log.Printf("failed to close app: %s", err)
		}
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

func (s *BaseSuite) do(method, path string, body any, headers map[string]string) (int, []byte, http.Header) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.server.URL+path, r)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	s.Require().NoError(err)

	return res.StatusCode, raw, res.Header
}

func (s *BaseSuite) doJSON(method, path string, body any, wantStatus int, out any) {
	status, raw, _ := s.do(method, path, body, nil)
	s.Require().Equal(wantStatus, status, string(raw))
	if out != nil {
		s.Require().NoError(json.Unmarshal(raw, out), string(raw))
	}
}
