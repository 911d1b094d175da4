package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/repository"
	"github.com/fastygo/questlog/usecase"
	"github.com/fastygo/questlog/usecase/experience"
	"github.com/fastygo/questlog/usecase/streak"
	"github.com/fastygo/questlog/usecase/taskstore"
)

// EngineState is the mutable engine state owned by one UseCase. It is
// replaced wholesale on clear and on remote pulls, never read before Init.
type EngineState struct {
	Tasks      *taskstore.Store
	Experience *experience.Engine
}

// CompleteResult reports a completion and any level change it caused.
type CompleteResult struct {
	Task      domain.Task
	Progress  domain.Progress
	LeveledUp bool
	NewLevel  int
}

// RemoveRequest is the payload of usecase.IntentRemoveTask.
type RemoveRequest struct {
	ID            string
	FromCompleted bool
}

// RemoveResult reports a removal and the progress after any XP reversal.
type RemoveResult struct {
	Task     domain.Task
	XPDelta  int
	Progress domain.Progress
}

// Config tunes clocks and zones; zero values use the system defaults.
type Config struct {
	Now      func() time.Time
	Location *time.Location
	NewID    func() string
}

// UseCase applies task intents to the engine state, persists the result to
// the local cache and recomputes derived aggregates in one place.
type UseCase struct {
	cache  repository.LocalCache
	logger *zap.Logger
	cfg    Config
	streak *streak.Tracker

	mu          sync.Mutex
	state       *EngineState
	observer    usecase.SnapshotObserver
	lastVersion int64
}

func New(cache repository.LocalCache, logger *zap.Logger, cfg Config) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &UseCase{
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		streak: streak.New(cfg.Now, cfg.Location),
	}
}

// SetObserver registers the consumer of post-mutation snapshots.
func (uc *UseCase) SetObserver(observer usecase.SnapshotObserver) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.observer = observer
}

// Init builds the engine state from the local cache. Missing keys are a
// valid first-run state.
func (uc *UseCase) Init(ctx context.Context) error {
	active, err := uc.cache.ActiveTasks(ctx)
	if err != nil {
		return err
	}
	completed, err := uc.cache.CompletedTasks(ctx)
	if err != nil {
		return err
	}
	xp, _, err := uc.cache.Experience(ctx)
	if err != nil {
		return err
	}

	state := uc.newState(xp)
	state.Tasks.Load(active, completed)

	uc.mu.Lock()
	uc.state = state
	uc.mu.Unlock()

	uc.logger.Debug("engine state loaded",
		zap.Int("active", len(active)),
		zap.Int("completed", len(completed)),
		zap.Int("xp", xp))
	return nil
}

// AddTask validates the draft and appends a new active task.
func (uc *UseCase) AddTask(ctx context.Context, draft domain.TaskDraft) (domain.Task, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	task, err := uc.stateLocked().Tasks.Add(draft)
	if err != nil {
		return domain.Task{}, err
	}
	uc.persistTasksLocked(ctx)
	uc.commitLocked()
	return task, nil
}

// CompleteTask moves a task to completed and credits its experience.
func (uc *UseCase) CompleteTask(ctx context.Context, id string) (CompleteResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	state := uc.stateLocked()
	res, err := state.Tasks.Complete(id)
	if err != nil {
		return CompleteResult{}, err
	}
	outcome := state.Experience.ApplyDelta(res.XPDelta)

	uc.persistTasksLocked(ctx)
	uc.persistProgressLocked(ctx, outcome.Progress)
	uc.commitLocked()

	if outcome.LeveledUp {
		uc.logger.Info("level up", zap.Int("level", outcome.NewLevel))
	}
	return CompleteResult{
		Task:      res.Task,
		Progress:  outcome.Progress,
		LeveledUp: outcome.LeveledUp,
		NewLevel:  outcome.NewLevel,
	}, nil
}

// RemoveTask deletes a task; removing a completed one reverses its XP.
func (uc *UseCase) RemoveTask(ctx context.Context, id string, fromCompleted bool) (RemoveResult, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	state := uc.stateLocked()
	res, err := state.Tasks.Remove(id, fromCompleted)
	if err != nil {
		return RemoveResult{}, err
	}

	progress := state.Experience.Progress()
	if res.XPDelta != 0 {
		progress = state.Experience.ApplyDelta(res.XPDelta).Progress
		uc.persistProgressLocked(ctx, progress)
	}
	uc.persistTasksLocked(ctx)
	uc.commitLocked()

	return RemoveResult{Task: res.Task, XPDelta: res.XPDelta, Progress: progress}, nil
}

// ClearAll empties both collections and resets progress to the minimum level.
func (uc *UseCase) ClearAll(ctx context.Context) domain.Snapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state = uc.newState(0)
	if err := uc.cache.ClearTasks(ctx); err != nil {
		uc.logger.Error("failed to clear cached tasks", zap.Error(err))
	}
	if err := uc.cache.ClearProgress(ctx); err != nil {
		uc.logger.Error("failed to clear cached progress", zap.Error(err))
	}
	return uc.commitLocked()
}

// ApplyRemote overwrites local state with a pulled remote record. Task
// collections are replaced only when the record carries them. A non-nil
// current is checked under the engine lock; when it reports false nothing is
// applied and ok is false.
func (uc *UseCase) ApplyRemote(ctx context.Context, user *domain.User, current func() bool) (snapshot domain.Snapshot, ok bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if current != nil && !current() {
		return uc.snapshotLocked(), false
	}

	state := uc.stateLocked()
	if user.HasTaskState() {
		state.Tasks.Load(user.Tasks, user.CompletedTasks)
		uc.persistTasksLocked(ctx)
	}
	progress := state.Experience.Set(user.XP)
	uc.persistProgressLocked(ctx, progress)

	uc.logger.Info("remote state applied",
		zap.String("user_id", user.ID),
		zap.Int("xp", progress.TotalExperience),
		zap.Bool("tasks_replaced", user.HasTaskState()))
	return uc.snapshotLocked(), true
}

// ResetProgress zeroes XP without touching task content, used on sign-out.
func (uc *UseCase) ResetProgress(ctx context.Context) domain.Progress {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	progress := uc.stateLocked().Experience.Reset()
	if err := uc.cache.ClearProgress(ctx); err != nil {
		uc.logger.Error("failed to clear cached progress", zap.Error(err))
	}
	return progress
}

// Snapshot returns the full current aggregate state.
func (uc *UseCase) Snapshot() domain.Snapshot {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.snapshotLocked()
}

// Groups returns active tasks bucketed by deadline day.
func (uc *UseCase) Groups() []taskstore.Group {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return taskstore.GroupByDay(uc.stateLocked().Tasks.Raw().Active, uc.cfg.Location)
}

// Find resolves a task id in either collection.
func (uc *UseCase) Find(id string) (domain.Task, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.stateLocked().Tasks.Find(id)
}

// RegisterIntents wires the use case into the intent dispatcher.
func (uc *UseCase) RegisterIntents(d *usecase.Dispatcher) {
	d.RegisterCommand(usecase.IntentAddTask, func(ctx context.Context, payload interface{}) (interface{}, error) {
		draft, ok := payload.(domain.TaskDraft)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return uc.AddTask(ctx, draft)
	})
	d.RegisterCommand(usecase.IntentCompleteTask, func(ctx context.Context, payload interface{}) (interface{}, error) {
		id, ok := payload.(string)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return uc.CompleteTask(ctx, id)
	})
	d.RegisterCommand(usecase.IntentRemoveTask, func(ctx context.Context, payload interface{}) (interface{}, error) {
		req, ok := payload.(RemoveRequest)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return uc.RemoveTask(ctx, req.ID, req.FromCompleted)
	})
	d.RegisterCommand(usecase.IntentClearAll, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return uc.ClearAll(ctx), nil
	})
	d.RegisterQuery(usecase.QuerySnapshot, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return uc.Snapshot(), nil
	})
	d.RegisterQuery(usecase.QueryGroups, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return uc.Groups(), nil
	})
}

func (uc *UseCase) newState(xp int) *EngineState {
	return &EngineState{
		Tasks: taskstore.New(
			taskstore.WithClock(uc.cfg.Now),
			taskstore.WithIDGenerator(uc.cfg.NewID),
		),
		Experience: experience.New(xp),
	}
}

// stateLocked lazily creates an empty state so an uninitialized engine
// behaves like a first run rather than panicking.
func (uc *UseCase) stateLocked() *EngineState {
	if uc.state == nil {
		uc.state = uc.newState(0)
	}
	return uc.state
}

func (uc *UseCase) snapshotLocked() domain.Snapshot {
	state := uc.stateLocked()
	view := state.Tasks.Snapshot()

	version := uc.cfg.Now().UnixNano()
	if version <= uc.lastVersion {
		version = uc.lastVersion + 1
	}
	uc.lastVersion = version

	return domain.Snapshot{
		Active:    view.Active,
		Completed: view.Completed,
		Progress:  state.Experience.Progress(),
		Streak:    uc.streak.Compute(view.Completed),
		Version:   version,
	}
}

// commitLocked recomputes aggregates and hands them to the observer. The
// observer must not block; pushes happen in the background.
func (uc *UseCase) commitLocked() domain.Snapshot {
	snapshot := uc.snapshotLocked()
	if uc.observer != nil {
		uc.observer.Observe(snapshot)
	}
	return snapshot
}

// persistTasksLocked writes both collections in full. A failed write does not
// undo the in-memory commit; the next successful one catches the cache up.
func (uc *UseCase) persistTasksLocked(ctx context.Context) {
	raw := uc.stateLocked().Tasks.Raw()
	if err := uc.cache.SetActiveTasks(ctx, raw.Active); err != nil {
		uc.logger.Error("failed to persist active tasks", zap.Error(err))
	}
	if err := uc.cache.SetCompletedTasks(ctx, raw.Completed); err != nil {
		uc.logger.Error("failed to persist completed tasks", zap.Error(err))
	}
}

func (uc *UseCase) persistProgressLocked(ctx context.Context, progress domain.Progress) {
	if err := uc.cache.SetExperience(ctx, progress.TotalExperience); err != nil {
		uc.logger.Error("failed to persist experience", zap.Error(err))
	}
	if err := uc.cache.SetLevel(ctx, progress.Level); err != nil {
		uc.logger.Error("failed to persist level", zap.Error(err))
	}
}
