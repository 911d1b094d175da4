package taskstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/questlog/domain"
)

// Result is the outcome of a state transition. XPDelta tells the caller how
// much experience to apply; the store itself knows nothing about levels.
type Result struct {
	Task    domain.Task
	XPDelta int
}

// View is a read-only copy of both collections.
type View struct {
	Active    []domain.Task
	Completed []domain.Task
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt/completedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store owns the active and completed task collections. A task lives in
// exactly one of them. Store is not safe for concurrent use; callers
// serialize mutations.
type Store struct {
	active    []domain.Task
	completed []domain.Task
	now       func() time.Time
	newID     func() string
}

func New(opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces both collections, e.g. from the local cache or a remote pull.
// Duplicate ids are dropped; a task present in both inputs stays completed.
func (s *Store) Load(active, completed []domain.Task) {
	seen := make(map[string]struct{}, len(active)+len(completed))

	s.completed = make([]domain.Task, 0, len(completed))
	for _, t := range completed {
		if _, dup := seen[t.ID]; dup || t.ID == "" {
			continue
		}
		seen[t.ID] = struct{}{}
		task := t.Clone()
		if task.CompletedAt == nil {
			stamp := task.CreatedAt
			task.CompletedAt = &stamp
		}
		s.completed = append(s.completed, task)
	}

	s.active = make([]domain.Task, 0, len(active))
	for _, t := range active {
		if _, dup := seen[t.ID]; dup || t.ID == "" {
			continue
		}
		seen[t.ID] = struct{}{}
		task := t.Clone()
		task.CompletedAt = nil
		s.active = append(s.active, task)
	}
}

// Add validates the draft, assigns id and createdAt and appends the task to
// the active collection.
func (s *Store) Add(draft domain.TaskDraft) (domain.Task, error) {
	if err := draft.Validate(); err != nil {
		return domain.Task{}, err
	}

	var deadline *time.Time
	if draft.Deadline != nil && !draft.Deadline.IsZero() {
		d := *draft.Deadline
		deadline = &d
	}

	task := domain.Task{
		ID:            s.newID(),
		Name:          draft.Name,
		Description:   draft.Description,
		Difficulty:    draft.Difficulty,
		Importance:    draft.Importance,
		Deadline:      deadline,
		Collaborative: draft.Collaborative,
		Experience:    *draft.Experience,
		CreatedAt:     s.now(),
	}
	s.active = append(s.active, task)
	return task.Clone(), nil
}

// Complete moves an active task to the completed collection and stamps
// completedAt. Completing the same id twice fails: the task is no longer active.
func (s *Store) Complete(id string) (Result, error) {
	idx := indexOf(s.active, id)
	if idx < 0 {
		return Result{}, notFound(id, "active")
	}

	task := s.active[idx]
	completedAt := s.now()
	task.CompletedAt = &completedAt

	s.active = removeAt(s.active, idx)
	s.completed = append(s.completed, task)

	return Result{Task: task.Clone(), XPDelta: task.Experience}, nil
}

// Remove deletes a task from the chosen collection. Removing a completed task
// yields a negative delta so the caller can reverse its experience.
func (s *Store) Remove(id string, fromCompleted bool) (Result, error) {
	if fromCompleted {
		idx := indexOf(s.completed, id)
		if idx < 0 {
			return Result{}, notFound(id, "completed")
		}
		task := s.completed[idx]
		s.completed = removeAt(s.completed, idx)
		return Result{Task: task.Clone(), XPDelta: -task.Experience}, nil
	}

	idx := indexOf(s.active, id)
	if idx < 0 {
		return Result{}, notFound(id, "active")
	}
	task := s.active[idx]
	s.active = removeAt(s.active, idx)
	return Result{Task: task.Clone()}, nil
}

// Find looks a task up in either collection.
func (s *Store) Find(id string) (domain.Task, bool) {
	if idx := indexOf(s.active, id); idx >= 0 {
		return s.active[idx].Clone(), true
	}
	if idx := indexOf(s.completed, id); idx >= 0 {
		return s.completed[idx].Clone(), true
	}
	return domain.Task{}, false
}

// Snapshot returns copies of both collections: active sorted by deadline,
// completed in completion order.
func (s *Store) Snapshot() View {
	return View{
		Active:    SortByDeadline(cloneAll(s.active)),
		Completed: cloneAll(s.completed),
	}
}

// Raw returns both collections in insertion order, as persisted.
func (s *Store) Raw() View {
	return View{
		Active:    cloneAll(s.active),
		Completed: cloneAll(s.completed),
	}
}

func notFound(id, collection string) error {
	return domain.WrapError(
		domain.ErrCodeNotFound,
		fmt.Sprintf("task %s is not in the %s collection", id, collection),
		domain.ErrTaskNotFound,
	)
}

func indexOf(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(tasks []domain.Task, idx int) []domain.Task {
	out := make([]domain.Task, 0, len(tasks)-1)
	out = append(out, tasks[:idx]...)
	return append(out, tasks[idx+1:]...)
}

func cloneAll(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
