package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "DATABASE_URL", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_SSLMODE", "SERVER_HOST", "STORE_DRIVER", "JWT_SECRET", "JWT_ISSUER",
		"REDIS_ENABLED", "LEADERBOARD_CACHE_TTL", "SERVER_PORT", "MIGRATIONS_PATH")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://questlog:@localhost:5432/questlog?sslmode=disable", cfg.Database.URL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Empty(t, cfg.JWT.Secret)
	assert.Empty(t, cfg.Migrations.Path)
	assert.Equal(t, time.Minute, cfg.Leaderboard.CacheTTL)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/q.db")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LEADERBOARD_CACHE_TTL", "45")
	t.Setenv("LEADERBOARD_REFRESH_INTERVAL", "90s")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("STORE_DRIVER", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/q.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Leaderboard.CacheTTL)
	assert.Equal(t, 90*time.Second, cfg.Leaderboard.RefreshInterval)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.Database.URL)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")

	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("LEADERBOARD_CACHE_TTL", "-1s")
	_, err = Load()
	assert.ErrorContains(t, err, "LEADERBOARD_CACHE_TTL")
}

func TestLoadReportsEveryMalformedVariable(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SERVER_MAX_CONN", "lots")
	t.Setenv("REDIS_ENABLED", "maybe")
	t.Setenv("LEADERBOARD_REFRESH_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, `SERVER_MAX_CONN="lots" is not an integer`)
	assert.ErrorContains(t, err, `REDIS_ENABLED="maybe" is not a boolean`)
	assert.ErrorContains(t, err, `LEADERBOARD_REFRESH_INTERVAL="soon" is not a duration`)
}

func TestLoadClient(t *testing.T) {
	clearEnv(t, "QUESTLOG_API_URL", "QUESTLOG_RETRY_ATTEMPTS", "QUESTLOG_PUSH_DEBOUNCE")
	t.Setenv("QUESTLOG_DATA_PATH", "/tmp/device.db")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Zero(t, cfg.PushDebounce)
	assert.Equal(t, "stderr", cfg.Logger.Output)

	t.Setenv("QUESTLOG_RETRY_ATTEMPTS", "0")
	_, err = LoadClient()
	assert.ErrorContains(t, err, "QUESTLOG_RETRY_ATTEMPTS")
}
