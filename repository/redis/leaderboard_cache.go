package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
)

type leaderboardCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewLeaderboardCache creates a Redis-backed cache of leaderboard pages.
// Pages are keyed by limit and offset and expire after ttl.
func NewLeaderboardCache(client *redislib.Client, ttl time.Duration) repository.LeaderboardCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &leaderboardCache{
		client: client,
		prefix: "leaderboard:",
		ttl:    ttl,
	}
}

func (c *leaderboardCache) Get(ctx context.Context, limit, offset int) ([]domain.User, bool, error) {
	result, err := c.client.Get(ctx, c.key(limit, offset)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var users []domain.User
	if err := json.Unmarshal([]byte(result), &users); err != nil {
		return nil, false, err
	}
	return users, true, nil
}

func (c *leaderboardCache) Set(ctx context.Context, limit, offset int, users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}
	payload, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(limit, offset), payload, c.ttl).Err()
}

// Invalidate drops every cached page.
func (c *leaderboardCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0, 8)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *leaderboardCache) key(limit, offset int) string {
	return fmt.Sprintf("%s%d:%d", c.prefix, limit, offset)
}
