package redis

import (
	"context"
	"os"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/questlog/domain"
)

// Set QUESTLOG_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run these
// against a live server. The selected database is flushed.
func newTestClient(t *testing.T) *redislib.Client {
	t.Helper()
	url := os.Getenv("QUESTLOG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("QUESTLOG_TEST_REDIS_URL not set")
	}
	opts, err := redislib.ParseURL(url)
	require.NoError(t, err)
	client := redislib.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, client.FlushDB(ctx).Err())
	return client
}

func TestLeaderboardCache(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	cache := NewLeaderboardCache(client, time.Minute)

	_, ok, err := cache.Get(ctx, 10, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	page := []domain.User{{ID: "u1", SessionIdentifier: "alice", XP: 300, Level: 3}}
	require.NoError(t, cache.Set(ctx, 10, 0, page))
	require.NoError(t, cache.Set(ctx, 5, 5, nil))

	got, ok, err := cache.Get(ctx, 10, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", got[0].SessionIdentifier)

	got, ok, err = cache.Get(ctx, 5, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	ttl, err := client.TTL(ctx, "leaderboard:10:0").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, client.Set(ctx, "unrelated", "1", 0).Err())
	require.NoError(t, cache.Invalidate(ctx))

	_, ok, err = cache.Get(ctx, 10, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), client.Exists(ctx, "unrelated").Val())
}
