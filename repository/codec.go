package repository

import (
	"encoding/json"

	"github.com/fastygo/questlog/domain"
)

// MaxPageSize caps list queries.
const MaxPageSize = 100

// MarshalTasks encodes a task collection for a JSON column. A nil slice maps
// to SQL NULL so "not provided" survives the round trip.
func MarshalTasks(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		return nil, nil
	}
	return json.Marshal(tasks)
}

// UnmarshalTasks decodes a JSON column; NULL yields a nil slice.
func UnmarshalTasks(raw []byte) ([]domain.Task, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tasks []domain.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// ClampLimit bounds a page size to (0, MaxPageSize], using fallback for
// non-positive input.
func ClampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
