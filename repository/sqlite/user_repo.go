package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
)

const userColumns = `id, session_identifier, xp, level, tasks_completed, tasks, completed_tasks, version, created_at, updated_at`

const timeLayout = time.RFC3339Nano

type userRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository returns a SQLite-backed UserRepository, used for local
// development and tests where Postgres is not available.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db, now: time.Now}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *userRepository) GetBySessionIdentifier(ctx context.Context, sessionIdentifier string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE session_identifier = ?`, sessionIdentifier))
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (*domain.User, bool, error) {
	if user == nil || user.SessionIdentifier == "" {
		return nil, false, domain.ErrInvalidPayload
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	existing, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE session_identifier = ?`, user.SessionIdentifier))
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

	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	res, err := tx.ExecContext(ctx, `
	INSERT INTO users (id, session_identifier, xp, level, tasks_completed, tasks, completed_tasks, version, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (session_identifier) DO NOTHING`,
		user.ID,
		user.SessionIdentifier,
		user.XP,
		user.Level,
		user.TasksCompleted,
		nullString(tasks),
		nullString(completed),
		user.Version,
		user.CreatedAt.Format(timeLayout),
		user.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		winner, err := r.GetBySessionIdentifier(ctx, user.SessionIdentifier)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}

	if err := tx.Commit(); err != nil {
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

	res, err := r.db.ExecContext(ctx, `
	UPDATE users
	SET xp = ?,
		level = ?,
		tasks_completed = ?,
		tasks = COALESCE(?, tasks),
		completed_tasks = COALESCE(?, completed_tasks),
		version = MAX(version, ?),
		updated_at = ?
	WHERE id = ?
	  AND (? = 0 OR version < ?)`,
		update.XP,
		update.Level,
		update.TasksCompleted,
		nullString(tasks),
		nullString(completed),
		update.Version,
		r.now().UTC().Format(timeLayout),
		id,
		update.Version,
		update.Version,
	)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, id).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, domain.ErrUserNotFound
	}
	return false, nil
}

func (r *userRepository) Leaderboard(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, session_identifier, xp, level, tasks_completed, NULL, NULL, version, created_at, updated_at
	FROM users
	ORDER BY xp DESC, created_at ASC
	LIMIT ? OFFSET ?`, repository.ClampLimit(limit, 10), offset)
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
	return r.db.PingContext(ctx)
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*domain.User, error) {
	var user domain.User
	var (
		tasks     sql.NullString
		completed sql.NullString
		createdAt string
		updatedAt string
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	var err error
	if tasks.Valid {
		if user.Tasks, err = repository.UnmarshalTasks([]byte(tasks.String)); err != nil {
			return nil, err
		}
	}
	if completed.Valid {
		if user.CompletedTasks, err = repository.UnmarshalTasks([]byte(completed.String)); err != nil {
			return nil, err
		}
	}
	user.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	user.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &user, nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
