package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
	"github.com/fastygo/questlog/usecase"
	"github.com/fastygo/questlog/usecase/remotesync"
	"github.com/fastygo/questlog/usecase/taskstore"
)

const shortIDLength = 8

// App bundles the engine components the commands drive. Mutations always go
// through the Dispatcher so they are serialized.
type App struct {
	Dispatcher *usecase.Dispatcher
	Sync       *remotesync.Coordinator
	Remote     usecase.RemoteStore
	Cache      repository.LocalCache
	Location   *time.Location
	Logger     *zap.Logger
}

func (a *App) location() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) snapshot(ctx context.Context) (domain.Snapshot, error) {
	out, err := a.Dispatcher.ExecuteQuery(ctx, usecase.QuerySnapshot, nil)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return out.(domain.Snapshot), nil
}

func (a *App) groups(ctx context.Context) ([]taskstore.Group, error) {
	out, err := a.Dispatcher.ExecuteQuery(ctx, usecase.QueryGroups, nil)
	if err != nil {
		return nil, err
	}
	return out.([]taskstore.Group), nil
}

// resolveTask finds a task by full id or unique id prefix.
func (a *App) resolveTask(ctx context.Context, ref string, completed bool) (domain.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Task{}, domain.NewValidationError("id", "must not be empty")
	}
	snap, err := a.snapshot(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	tasks := snap.Active
	if completed {
		tasks = snap.Completed
	}

	var matches []domain.Task
	for _, task := range tasks {
		if task.ID == ref {
			return task, nil
		}
		if strings.HasPrefix(task.ID, ref) {
			matches = append(matches, task)
		}
	}
	switch len(matches) {
	case 0:
		return domain.Task{}, domain.WrapError(domain.ErrCodeNotFound, fmt.Sprintf("no task matches %q", ref), domain.ErrTaskNotFound)
	case 1:
		return matches[0], nil
	default:
		return domain.Task{}, domain.NewValidationError("id", fmt.Sprintf("%q matches %d tasks", ref, len(matches)))
	}
}

// finishSync waits for background pushes and reports a failure without
// turning it into a command error.
func (a *App) finishSync(w io.Writer) {
	if a.Sync == nil {
		return
	}
	a.Sync.Wait()
	state := a.Sync.State()
	a.logger().Debug("pending pushes settled", zap.String("state", string(state)))
	if state == remotesync.StateError {
		if err := a.Sync.LastError(); err != nil {
			fmt.Fprintf(w, "sync: %v\n", err)
		}
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func parseDeadline(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if day, err := time.Parse("2006-01-02", value); err == nil {
		utc := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		return &utc, nil
	}
	if ts, err := time.ParseInLocation(time.RFC3339, value, loc); err == nil {
		return &ts, nil
	}
	return nil, domain.NewValidationError("due", "use YYYY-MM-DD or RFC 3339")
}
