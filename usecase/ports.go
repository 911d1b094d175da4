package usecase

import (
	"context"

	"github.com/fastygo/questlog/domain"
)

// RemoteStore abstracts the remote persistence service so the engine stays
// transport-agnostic.
type RemoteStore interface {
	CreateUser(ctx context.Context, session domain.Session, initial domain.InitialProgress) (*domain.Registration, error)
	GetUser(ctx context.Context, session domain.Session, userID string) (*domain.User, error)
	PutUser(ctx context.Context, session domain.Session, userID string, update domain.ProgressUpdate) (applied bool, err error)
	Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error)
}

// SessionGateway supplies and invalidates the authenticated identity.
type SessionGateway interface {
	Current(ctx context.Context) (*domain.Session, error)
	Store(ctx context.Context, session domain.Session) error
	Invalidate(ctx context.Context) error
}

// SnapshotObserver receives the full aggregate state after every committed
// mutation.
type SnapshotObserver interface {
	Observe(snapshot domain.Snapshot)
}
