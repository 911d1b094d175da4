package transport

import (
	"fmt"
	"math"

	"github.com/fastygo/questlog/domain"
)

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	SessionIdentifier string `json:"session_identifier"`
	XP                int    `json:"xp"`
	Level             int    `json:"level"`
	TasksCompleted    int    `json:"tasks_completed"`
}

// UpdateUserRequest is the body of PUT /api/users/{id}. XP and
// TasksCompleted are pointers so a missing field can be told apart from zero.
type UpdateUserRequest struct {
	XP             *float64      `json:"xp"`
	TasksCompleted *float64      `json:"tasks_completed"`
	Level          int           `json:"level,omitempty"`
	Tasks          []domain.Task `json:"tasks"`
	CompletedTasks []domain.Task `json:"completed_tasks"`
	Version        int64         `json:"version,omitempty"`
}

// Validate checks the numeric fields required by the endpoint: both must be
// whole numbers, xp within [0, domain.MaxExperience].
func (r UpdateUserRequest) Validate() error {
	if err := validateCount("xp", r.XP, domain.MaxExperience); err != nil {
		return err
	}
	return validateCount("tasks_completed", r.TasksCompleted, math.MaxInt32)
}

func validateCount(field string, v *float64, max float64) error {
	if v == nil {
		return domain.NewValidationError(field, "must be a number")
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v != math.Trunc(*v) {
		return domain.NewValidationError(field, "must be a whole number")
	}
	if *v < 0 || *v > max {
		return domain.NewValidationError(field, fmt.Sprintf("must be between 0 and %.0f", max))
	}
	return nil
}

// ToUpdate converts the request into a domain update.
func (r UpdateUserRequest) ToUpdate() domain.ProgressUpdate {
	update := domain.ProgressUpdate{
		Level:          r.Level,
		Tasks:          r.Tasks,
		CompletedTasks: r.CompletedTasks,
		Version:        r.Version,
	}
	if r.XP != nil {
		update.XP = int(*r.XP)
	}
	if r.TasksCompleted != nil {
		update.TasksCompleted = int(*r.TasksCompleted)
	}
	return update
}

// NewUpdateUserRequest builds the wire form of a pushed snapshot.
func NewUpdateUserRequest(update domain.ProgressUpdate) UpdateUserRequest {
	xp := float64(update.XP)
	completed := float64(update.TasksCompleted)
	return UpdateUserRequest{
		XP:             &xp,
		TasksCompleted: &completed,
		Level:          update.Level,
		Tasks:          update.Tasks,
		CompletedTasks: update.CompletedTasks,
		Version:        update.Version,
	}
}
