package domain

import "time"

// User is the remote record holding a player's synced progress.
type User struct {
	ID                string    `json:"id"`
	SessionIdentifier string    `json:"session_identifier"`
	XP                int       `json:"xp"`
	Level             int       `json:"level"`
	TasksCompleted    int       `json:"tasks_completed"`
	Tasks             []Task    `json:"tasks"`
	CompletedTasks    []Task    `json:"completed_tasks"`
	Version           int64     `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasTaskState reports whether the record carries task collections worth
// pulling onto a device.
func (u *User) HasTaskState() bool {
	return u != nil && (u.Tasks != nil || u.CompletedTasks != nil)
}

// InitialProgress seeds a new remote record.
type InitialProgress struct {
	XP             int `json:"xp"`
	Level          int `json:"level"`
	TasksCompleted int `json:"tasks_completed"`
}

// Registration is the outcome of an idempotent user creation.
type Registration struct {
	UserID         string `json:"user_id"`
	Exists         bool   `json:"exists"`
	XP             int    `json:"xp"`
	Level          int    `json:"level"`
	TasksCompleted int    `json:"tasks_completed"`
}

// ProgressUpdate is a full last-write-wins snapshot pushed by a device.
// Nil task slices leave the stored collections untouched.
type ProgressUpdate struct {
	XP             int
	Level          int
	TasksCompleted int
	Tasks          []Task
	CompletedTasks []Task
	Version        int64
}
