package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/questlog/domain"
	sqlitedb "github.com/fastygo/questlog/internal/infrastructure/sqlite"
	"github.com/fastygo/questlog/repository"
)

func newRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db)
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first, created, err := repo.CreateIfAbsent(ctx, &domain.User{SessionIdentifier: "alice", XP: 120, Level: 2, TasksCompleted: 1})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second, created, err := repo.CreateIfAbsent(ctx, &domain.User{SessionIdentifier: "alice", XP: 999})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 120, second.XP)

	_, _, err = repo.CreateIfAbsent(ctx, &domain.User{})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestGetMissingUser(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdateProgressVersionGuard(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	user, _, err := repo.CreateIfAbsent(ctx, &domain.User{SessionIdentifier: "alice"})
	require.NoError(t, err)

	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	applied, err := repo.UpdateProgress(ctx, user.ID, domain.ProgressUpdate{
		XP:             300,
		Level:          3,
		TasksCompleted: 2,
		Tasks:          []domain.Task{{ID: "t1", Name: "open", Deadline: &due}},
		CompletedTasks: []domain.Task{},
		Version:        10,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.UpdateProgress(ctx, user.ID, domain.ProgressUpdate{XP: 50, Level: 1, Version: 9})
	require.NoError(t, err)
	assert.False(t, applied, "older snapshots are ignored")

	applied, err = repo.UpdateProgress(ctx, user.ID, domain.ProgressUpdate{XP: 50, Level: 1, Version: 10})
	require.NoError(t, err)
	assert.False(t, applied, "equal versions are ignored")

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, stored.XP)
	assert.Equal(t, int64(10), stored.Version)
	require.Len(t, stored.Tasks, 1)
	assert.True(t, due.Equal(*stored.Tasks[0].Deadline))
	assert.NotNil(t, stored.CompletedTasks)
	assert.Empty(t, stored.CompletedTasks)

	// Nil collections keep what is stored.
	applied, err = repo.UpdateProgress(ctx, user.ID, domain.ProgressUpdate{XP: 450, Level: 3, Version: 11})
	require.NoError(t, err)
	assert.True(t, applied)
	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 450, stored.XP)
	assert.Len(t, stored.Tasks, 1)
}

func TestUpdateProgressUnversionedAlwaysApplies(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	user, _, err := repo.CreateIfAbsent(ctx, &domain.User{SessionIdentifier: "alice"})
	require.NoError(t, err)

	for _, xp := range []int{100, 40} {
		applied, err := repo.UpdateProgress(ctx, user.ID, domain.ProgressUpdate{XP: xp, Level: 1})
		require.NoError(t, err)
		assert.True(t, applied)
	}
	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, stored.XP)
}

func TestUpdateProgressMissingUser(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.UpdateProgress(context.Background(), "ghost", domain.ProgressUpdate{Version: 1})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	for _, seed := range []struct {
		id string
		xp int
	}{{"low", 10}, {"high", 900}, {"mid", 300}} {
		_, _, err := repo.CreateIfAbsent(ctx, &domain.User{SessionIdentifier: seed.id, XP: seed.xp, Tasks: []domain.Task{{ID: "x"}}})
		require.NoError(t, err)
	}

	users, err := repo.Leaderboard(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "high", users[0].SessionIdentifier)
	assert.Equal(t, "mid", users[1].SessionIdentifier)
	assert.Nil(t, users[0].Tasks, "leaderboard rows omit task collections")

	users, err = repo.Leaderboard(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "low", users[0].SessionIdentifier)

	require.NoError(t, repo.Ping(ctx))
}
