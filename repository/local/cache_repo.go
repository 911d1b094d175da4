package local

import (
	"context"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/internal/infrastructure/localstore"
	"github.com/fastygo/questlog/repository"
)

// Device cache keys.
const (
	KeyTasks             = "tasks"
	KeyCompletedTasks    = "completedtasks"
	KeyTheme             = "theme"
	KeyAuthToken         = "authToken"
	KeyUserID            = "userId"
	KeySessionIdentifier = "sessionIdentifier"
	KeyExperience        = "experience"
	KeyLevel             = "level"
)

// DefaultTheme is reported until a preference has been stored.
const DefaultTheme = "light"

type cacheRepository struct {
	store *localstore.Store
}

// NewCacheRepository returns a LocalCache over a bbolt-backed store.
func NewCacheRepository(store *localstore.Store) repository.LocalCache {
	return &cacheRepository{store: store}
}

func (r *cacheRepository) ActiveTasks(ctx context.Context) ([]domain.Task, error) {
	return r.tasks(KeyTasks)
}

func (r *cacheRepository) SetActiveTasks(ctx context.Context, tasks []domain.Task) error {
	return r.store.Put(KeyTasks, nonNilTasks(tasks))
}

func (r *cacheRepository) CompletedTasks(ctx context.Context) ([]domain.Task, error) {
	return r.tasks(KeyCompletedTasks)
}

func (r *cacheRepository) SetCompletedTasks(ctx context.Context, tasks []domain.Task) error {
	return r.store.Put(KeyCompletedTasks, nonNilTasks(tasks))
}

func (r *cacheRepository) Experience(ctx context.Context) (int, bool, error) {
	return r.integer(KeyExperience)
}

func (r *cacheRepository) SetExperience(ctx context.Context, xp int) error {
	return r.store.Put(KeyExperience, xp)
}

func (r *cacheRepository) Level(ctx context.Context) (int, bool, error) {
	return r.integer(KeyLevel)
}

func (r *cacheRepository) SetLevel(ctx context.Context, level int) error {
	return r.store.Put(KeyLevel, level)
}

func (r *cacheRepository) Theme(ctx context.Context) (string, error) {
	var theme string
	ok, err := r.store.Get(KeyTheme, &theme)
	if err != nil {
		return "", err
	}
	if !ok || theme == "" {
		return DefaultTheme, nil
	}
	return theme, nil
}

func (r *cacheRepository) SetTheme(ctx context.Context, theme string) error {
	return r.store.Put(KeyTheme, theme)
}

// Session reads the stored identity; it is absent unless both the token and
// the identifier are present.
func (r *cacheRepository) Session(ctx context.Context) (*domain.Session, error) {
	var session domain.Session
	if _, err := r.store.Get(KeyAuthToken, &session.Token); err != nil {
		return nil, err
	}
	if _, err := r.store.Get(KeySessionIdentifier, &session.Identifier); err != nil {
		return nil, err
	}
	if _, err := r.store.Get(KeyUserID, &session.UserID); err != nil {
		return nil, err
	}
	if !session.IsValid() {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *cacheRepository) SetSession(ctx context.Context, session domain.Session) error {
	if !session.IsValid() {
		return domain.ErrInvalidPayload
	}
	values := map[string]interface{}{
		KeyAuthToken:         session.Token,
		KeySessionIdentifier: session.Identifier,
	}
	if session.UserID != "" {
		values[KeyUserID] = session.UserID
		return r.store.PutMany(values)
	}
	if err := r.store.PutMany(values); err != nil {
		return err
	}
	return r.store.Delete(KeyUserID)
}

func (r *cacheRepository) ClearTasks(ctx context.Context) error {
	return r.store.Delete(KeyTasks, KeyCompletedTasks)
}

func (r *cacheRepository) ClearProgress(ctx context.Context) error {
	return r.store.Delete(KeyExperience, KeyLevel)
}

func (r *cacheRepository) ClearSession(ctx context.Context) error {
	return r.store.Delete(KeyAuthToken, KeySessionIdentifier, KeyUserID)
}

func (r *cacheRepository) tasks(key string) ([]domain.Task, error) {
	var tasks []domain.Task
	if _, err := r.store.Get(key, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *cacheRepository) integer(key string) (int, bool, error) {
	var value int
	ok, err := r.store.Get(key, &value)
	if err != nil {
		return 0, false, err
	}
	return value, ok, nil
}

func nonNilTasks(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}
