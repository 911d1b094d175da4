package local

import (
	"context"
	"errors"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
	"github.com/fastygo/questlog/usecase"
)

// SessionGateway keeps the signed-in identity in the device cache. The
// credential itself is issued elsewhere and handed in through Store.
type SessionGateway struct {
	cache repository.LocalCache
}

func NewSessionGateway(cache repository.LocalCache) *SessionGateway {
	return &SessionGateway{cache: cache}
}

// Current returns the stored session or domain.ErrNotAuthenticated.
func (g *SessionGateway) Current(ctx context.Context) (*domain.Session, error) {
	session, err := g.cache.Session(ctx)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrNotAuthenticated
	}
	return session, err
}

func (g *SessionGateway) Store(ctx context.Context, session domain.Session) error {
	return g.cache.SetSession(ctx, session)
}

func (g *SessionGateway) Invalidate(ctx context.Context) error {
	return g.cache.ClearSession(ctx)
}

var _ usecase.SessionGateway = (*SessionGateway)(nil)
