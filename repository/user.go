package repository

import (
	"context"

	"github.com/fastygo/questlog/domain"
)

// UserRepository persists remote user records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetBySessionIdentifier(ctx context.Context, sessionIdentifier string) (*domain.User, error)
	// CreateIfAbsent inserts the user unless a record with the same session
	// identifier exists, in which case that record is returned with created=false.
	CreateIfAbsent(ctx context.Context, user *domain.User) (stored *domain.User, created bool, err error)
	// UpdateProgress overwrites progress. A non-zero update.Version is applied
	// only when it is newer than the stored version; applied reports the outcome.
	UpdateProgress(ctx context.Context, id string, update domain.ProgressUpdate) (applied bool, err error)
	Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error)
	Ping(ctx context.Context) error
}
