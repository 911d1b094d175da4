package users

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
	"github.com/fastygo/questlog/usecase/experience"
)

const (
	DefaultLeaderboardLimit = 10
)

// UseCase serves the remote store: idempotent registration, full-record
// reads, version-guarded progress writes and the leaderboard.
type UseCase struct {
	users  repository.UserRepository
	cache  repository.LeaderboardCache
	logger *zap.Logger
}

// New creates the use case. cache may be nil when Redis is disabled.
func New(users repository.UserRepository, cache repository.LeaderboardCache, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		cache:  cache,
		logger: logger,
	}
}

// Register creates a record for the session identifier unless one exists.
func (uc *UseCase) Register(ctx context.Context, sessionIdentifier string, initial domain.InitialProgress) (*domain.Registration, error) {
	sessionIdentifier = strings.TrimSpace(sessionIdentifier)
	if sessionIdentifier == "" {
		return nil, domain.NewValidationError("session_identifier", "must not be empty")
	}
	if err := validateProgress(initial.XP, initial.TasksCompleted); err != nil {
		return nil, err
	}
	if initial.Level < experience.MinLevel {
		initial.Level = experience.LevelFor(initial.XP)
	}

	stored, created, err := uc.users.CreateIfAbsent(ctx, &domain.User{
		SessionIdentifier: sessionIdentifier,
		XP:                initial.XP,
		Level:             initial.Level,
		TasksCompleted:    initial.TasksCompleted,
	})
	if err != nil {
		return nil, err
	}

	if created {
		uc.logger.Info("user registered", zap.String("user_id", stored.ID))
		uc.invalidate(ctx)
	}
	return &domain.Registration{
		UserID:         stored.ID,
		Exists:         !created,
		XP:             stored.XP,
		Level:          stored.Level,
		TasksCompleted: stored.TasksCompleted,
	}, nil
}

// Get returns the full record. A non-empty subject must own it.
func (uc *UseCase) Get(ctx context.Context, id, subject string) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject != "" && user.SessionIdentifier != subject {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// UpdateProgress overwrites progress with a pushed snapshot. applied is false
// when the snapshot is older than what is stored.
func (uc *UseCase) UpdateProgress(ctx context.Context, id, subject string, update domain.ProgressUpdate) (bool, error) {
	if err := validateProgress(update.XP, update.TasksCompleted); err != nil {
		return false, err
	}
	if subject != "" {
		if _, err := uc.Get(ctx, id, subject); err != nil {
			return false, err
		}
	}
	if update.Level < experience.MinLevel {
		update.Level = experience.LevelFor(update.XP)
	}

	applied, err := uc.users.UpdateProgress(ctx, id, update)
	if err != nil {
		return false, err
	}
	if !applied {
		uc.logger.Debug("stale progress update ignored",
			zap.String("user_id", id),
			zap.Int64("version", update.Version))
		return false, nil
	}
	uc.invalidate(ctx)
	return true, nil
}

// Leaderboard returns users ordered by xp, served from cache when possible.
func (uc *UseCase) Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error) {
	limit = repository.ClampLimit(limit, DefaultLeaderboardLimit)
	if offset < 0 {
		offset = 0
	}

	if uc.cache != nil {
		users, ok, err := uc.cache.Get(ctx, limit, offset)
		if err != nil {
			uc.logger.Warn("leaderboard cache read failed", zap.Error(err))
		} else if ok {
			return users, nil
		}
	}

	users, err := uc.users.Leaderboard(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, limit, offset, users); err != nil {
			uc.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return users, nil
}

// RefreshLeaderboard rebuilds the first page of the cache.
func (uc *UseCase) RefreshLeaderboard(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	users, err := uc.users.Leaderboard(ctx, DefaultLeaderboardLimit, 0)
	if err != nil {
		return err
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		return err
	}
	return uc.cache.Set(ctx, DefaultLeaderboardLimit, 0, users)
}

func validateProgress(xp, tasksCompleted int) error {
	if xp < 0 || tasksCompleted < 0 {
		return domain.NewValidationError("progress", "must not be negative")
	}
	if xp > experience.MaxExperience {
		return domain.NewValidationError("xp", fmt.Sprintf("must not exceed %d", experience.MaxExperience))
	}
	return nil
}

func (uc *UseCase) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.logger.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}
