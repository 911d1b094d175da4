package repository

import (
	"context"

	"github.com/fastygo/questlog/domain"
)

// LocalCache is the device-scoped persisted cache. Every key is independent;
// a missing key reads as its zero value with ok=false where that matters.
type LocalCache interface {
	ActiveTasks(ctx context.Context) ([]domain.Task, error)
	SetActiveTasks(ctx context.Context, tasks []domain.Task) error
	CompletedTasks(ctx context.Context) ([]domain.Task, error)
	SetCompletedTasks(ctx context.Context, tasks []domain.Task) error

	Experience(ctx context.Context) (xp int, ok bool, err error)
	SetExperience(ctx context.Context, xp int) error
	Level(ctx context.Context) (level int, ok bool, err error)
	SetLevel(ctx context.Context, level int) error

	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error

	Session(ctx context.Context) (*domain.Session, error)
	SetSession(ctx context.Context, session domain.Session) error

	ClearTasks(ctx context.Context) error
	ClearProgress(ctx context.Context) error
	ClearSession(ctx context.Context) error
}
