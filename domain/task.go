package domain

import (
	"fmt"
	"strings"
	"time"
)

// Quick-add defaults applied when a draft only carries a name.
const (
	DefaultDifficulty = 5
	DefaultImportance = 5
	DefaultExperience = 150

	MinRating = 1
	MaxRating = 10

	// MaxExperience caps a task reward and every XP total. It keeps level
	// arithmetic exact in 32-bit ints and JSON numbers exact as float64.
	MaxExperience = 1_000_000_000
)

// Task represents one unit of work. Experience is fixed at creation and is the
// amount reversed when a completed task is removed.
type Task struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Difficulty    int        `json:"difficulty"`
	Importance    int        `json:"importance"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	Collaborative bool       `json:"collaborative"`
	Experience    int        `json:"experience"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.CompletedAt != nil
}

// HasDeadline reports whether the task is dated.
func (t *Task) HasDeadline() bool {
	return t != nil && t.Deadline != nil && !t.Deadline.IsZero()
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (t Task) Clone() Task {
	out := t
	if t.Deadline != nil {
		d := *t.Deadline
		out.Deadline = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		out.CompletedAt = &c
	}
	return out
}

// TaskDraft carries user input for a new task before an id is assigned.
type TaskDraft struct {
	Name          string
	Description   string
	Difficulty    int
	Importance    int
	Deadline      *time.Time
	Collaborative bool
	Experience    *int
}

// QuickDraft builds a draft with the quick-add defaults.
func QuickDraft(name string) TaskDraft {
	xp := DefaultExperience
	return TaskDraft{
		Name:       name,
		Difficulty: DefaultDifficulty,
		Importance: DefaultImportance,
		Experience: &xp,
	}
}

// Validate checks the draft and fills in defaults for omitted ratings.
func (d *TaskDraft) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return NewValidationError("name", "must not be empty")
	}
	if d.Experience == nil {
		xp := DefaultExperience
		d.Experience = &xp
	}
	if *d.Experience < 0 {
		return NewValidationError("experience", "must not be negative")
	}
	if *d.Experience > MaxExperience {
		return NewValidationError("experience", fmt.Sprintf("must not exceed %d", MaxExperience))
	}
	if d.Difficulty == 0 {
		d.Difficulty = DefaultDifficulty
	}
	if d.Importance == 0 {
		d.Importance = DefaultImportance
	}
	if d.Difficulty < MinRating || d.Difficulty > MaxRating {
		return NewValidationError("difficulty", "must be between 1 and 10")
	}
	if d.Importance < MinRating || d.Importance > MaxRating {
		return NewValidationError("importance", "must be between 1 and 10")
	}
	return nil
}
