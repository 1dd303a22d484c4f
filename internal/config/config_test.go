package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestNew_MemoryDefaults(t *testing.T) {
	setenv(t, map[string]string{
		"STORE_DRIVER":      "memory",
		"POSTGRES_USER":     "",
		"POSTGRES_PASSWORD": "",
		"POSTGRES_DB":       "",
		"REDIS_ADDR":        "",
		"LOCK_DRIVER":       "",
	})

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, LockDriverLocal, cfg.Store.LockDriver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Schedule.DurationToleranceMinutes)
	assert.Equal(t, "reject", cfg.Schedule.MovieDurationPolicy)
	assert.Equal(t, 30*time.Second, cfg.Schedule.CacheTTL)
	assert.Equal(t, 3, cfg.Postgres.TxRetries)
	assert.Equal(t, time.Minute, cfg.Booking.RateLimitWindow)
}

func TestNew_Postgres(t *testing.T) {
	setenv(t, map[string]string{
		"STORE_DRIVER":          "postgres",
		"POSTGRES_USER":         "cinema",
		"POSTGRES_PASSWORD":     "secret",
		"POSTGRES_DB":           "cinema",
		"POSTGRES_HOST":         "db",
		"POSTGRES_PORT":         "6543",
		"POSTGRES_AUTO_MIGRATE": "true",
		"MOVIE_DURATION_POLICY": "ADJUST",
	})

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "postgres://cinema:secret@db:6543/cinema?sslmode=disable", cfg.Postgres.DSN())
	assert.True(t, cfg.Postgres.AutoMigrate)
	assert.Equal(t, "adjust", cfg.Schedule.MovieDurationPolicy)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown store",
			env:  map[string]string{"STORE_DRIVER": "sqlite"},
			want: "STORE_DRIVER",
		},
		{
			name: "postgres without user",
			env:  map[string]string{"STORE_DRIVER": "postgres", "POSTGRES_USER": ""},
			want: "POSTGRES_USER",
		},
		{
			name: "redis lock without redis",
			env:  map[string]string{"STORE_DRIVER": "memory", "LOCK_DRIVER": "redis", "REDIS_ADDR": ""},
			want: "REDIS_ADDR",
		},
		{
			name: "negative tolerance",
			env:  map[string]string{"STORE_DRIVER": "memory", "SCHEDULE_DURATION_TOLERANCE_MINUTES": "-1"},
			want: "SCHEDULE_DURATION_TOLERANCE_MINUTES",
		},
		{
			name: "unknown policy",
			env:  map[string]string{"STORE_DRIVER": "memory", "MOVIE_DURATION_POLICY": "shrug"},
			want: "MOVIE_DURATION_POLICY",
		},
		{
			name: "bad duration",
			env:  map[string]string{"STORE_DRIVER": "memory", "CACHE_TTL": "soon"},
			want: "CACHE_TTL",
		},
		{
			name: "bad port",
			env:  map[string]string{"SERVER_PORT": "http"},
			want: "SERVER_PORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setenv(t, tt.env)

			_, err := New()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
