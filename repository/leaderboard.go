package repository

import (
	"context"

	"github.com/fastygo/questlog/domain"
)

// LeaderboardCache keeps recently served leaderboard pages.
type LeaderboardCache interface {
	Get(ctx context.Context, limit, offset int) (users []domain.User, ok bool, err error)
	Set(ctx context.Context, limit, offset int, users []domain.User) error
	Invalidate(ctx context.Context) error
}
