package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
)

const userColumns = `id, session_identifier, xp, level, tasks_completed, tasks, completed_tasks, version, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetBySessionIdentifier(ctx context.Context, sessionIdentifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE session_identifier = $1`
	return scanUser(r.pool.QueryRow(ctx, query, sessionIdentifier))
}

// CreateIfAbsent runs check-then-insert in one transaction. A concurrent
// insert for the same identifier turns the insert into a no-op; the
// transaction is rolled back and the winner's record returned.
func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (*domain.User, bool, error) {
	if user == nil || user.SessionIdentifier == "" {
		return nil, false, domain.ErrInvalidPayload
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	existing, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE session_identifier = $1`, user.SessionIdentifier))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, err
	}

	tasks, err := repository.MarshalTasks(user.Tasks)
	if err != nil {
		return nil, false, err
	}
	completed, err := repository.MarshalTasks(user.CompletedTasks)
	if err != nil {
		return nil, false, err
	}

	const insert = `
	INSERT INTO users (id, session_identifier, xp, level, tasks_completed, tasks, completed_tasks, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), NOW())
	ON CONFLICT (session_identifier) DO NOTHING
	RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, insert,
		user.ID,
		user.SessionIdentifier,
		user.XP,
		user.Level,
		user.TasksCompleted,
		nullJSON(tasks),
		nullJSON(completed),
		user.Version,
		nullTime(user.CreatedAt),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = tx.Rollback(ctx)
		winner, getErr := r.GetBySessionIdentifier(ctx, user.SessionIdentifier)
		if getErr != nil {
			return nil, false, getErr
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (r *userRepository) UpdateProgress(ctx context.Context, id string, update domain.ProgressUpdate) (bool, error) {
	tasks, err := repository.MarshalTasks(update.Tasks)
	if err != nil {
		return false, err
	}
	completed, err := repository.MarshalTasks(update.CompletedTasks)
	if err != nil {
		return false, err
	}

	const query = `
	UPDATE users
	SET xp = $2,
		level = $3,
		tasks_completed = $4,
		tasks = COALESCE($5::jsonb, tasks),
		completed_tasks = COALESCE($6::jsonb, completed_tasks),
		version = GREATEST(version, $7),
		updated_at = NOW()
	WHERE id = $1
	  AND ($7 = 0 OR version < $7)
	`
	tag, err := r.pool.Exec(ctx, query,
		id,
		update.XP,
		update.Level,
		update.TasksCompleted,
		nullJSON(tasks),
		nullJSON(completed),
		update.Version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrUserNotFound
	}
	return false, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const query = `
	SELECT id, session_identifier, xp, level, tasks_completed, NULL::jsonb, NULL::jsonb, version, created_at, updated_at
	FROM users
	ORDER BY xp DESC, created_at ASC
	LIMIT $1 OFFSET $2
	`
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, query, repository.ClampLimit(limit, 10), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *userRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*domain.User, error) {
	var user domain.User
	var (
		tasks     []byte
		completed []byte
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.SessionIdentifier,
		&user.XP,
		&user.Level,
		&user.TasksCompleted,
		&tasks,
		&completed,
		&user.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	var err error
	if user.Tasks, err = repository.UnmarshalTasks(tasks); err != nil {
		return nil, err
	}
	if user.CompletedTasks, err = repository.UnmarshalTasks(completed); err != nil {
		return nil, err
	}
	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return &user, nil
}
