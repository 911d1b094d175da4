package domain

// Progress is the derived level state for a total XP value.
type Progress struct {
	TotalExperience int `json:"total_experience"`
	Level           int `json:"level"`
	// IntoLevel is the XP earned since the current level's threshold.
	IntoLevel int `json:"into_level"`
	// ForNextLevel is the XP span of the current level.
	ForNextLevel int `json:"for_next_level"`
}

// Streak holds consecutive-day completion counts.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Snapshot is the full aggregate state pushed wholesale to the remote store.
type Snapshot struct {
	Active    []Task   `json:"active"`
	Completed []Task   `json:"completed"`
	Progress  Progress `json:"progress"`
	Streak    Streak   `json:"streak"`
	// Version orders snapshots issued by one device; higher wins.
	Version int64 `json:"version"`
}
