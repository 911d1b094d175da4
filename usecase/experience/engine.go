// Package experience turns XP totals into levels.
//
// The threshold curve is triangular: advancing from level L to L+1 costs
// 100*L XP, so level L starts at 50*L*(L-1) total XP (1 at 0, 2 at 100,
// 3 at 300, 4 at 600, ...). Thresholds are strictly increasing and every
// total in [0, MaxExperience] maps to exactly one level. Totals saturate at
// MaxExperience, which is level MaxLevel.
package experience

import (
	"math"

	"github.com/fastygo/questlog/domain"
)

const (
	// MinLevel is the level of a zero XP total.
	MinLevel = 1
	// LevelStep is the XP cost of leaving level 1; level L costs LevelStep*L.
	LevelStep = 100
	// MaxExperience is the highest reachable total.
	MaxExperience = domain.MaxExperience
	// MaxLevel is the level of MaxExperience.
	MaxLevel = 4472
)

// Outcome is the result of applying an XP delta.
type Outcome struct {
	Progress domain.Progress
	// LeveledUp is true only when the level strictly increased.
	LeveledUp bool
	// NewLevel is set to the reached level when LeveledUp, zero otherwise.
	NewLevel int
}

// Threshold returns the total XP at which level starts. Levels above
// MaxLevel+1 are treated as MaxLevel+1.
func Threshold(level int) int {
	if level <= MinLevel {
		return 0
	}
	if level > MaxLevel+1 {
		level = MaxLevel + 1
	}
	return int(threshold64(int64(level)))
}

func threshold64(level int64) int64 {
	if level <= MinLevel {
		return 0
	}
	return LevelStep * level * (level - 1) / 2
}

// LevelFor maps a total XP value to its level. It solves the threshold
// quadratic directly and corrects the float estimate by at most a step.
func LevelFor(total int) int {
	total = clampTotal(total)
	if total == 0 {
		return MinLevel
	}
	t := int64(total)
	level := int64((1 + math.Sqrt(1+8*float64(t)/LevelStep)) / 2)
	for level > MinLevel && threshold64(level) > t {
		level--
	}
	for threshold64(level+1) <= t {
		level++
	}
	return int(level)
}

func clampTotal(total int) int {
	switch {
	case total < 0:
		return 0
	case total > MaxExperience:
		return MaxExperience
	default:
		return total
	}
}

// ProgressFor computes the full progress view for a total.
func ProgressFor(total int) domain.Progress {
	total = clampTotal(total)
	level := LevelFor(total)
	return domain.Progress{
		TotalExperience: total,
		Level:           level,
		IntoLevel:       total - Threshold(level),
		ForNextLevel:    Threshold(level+1) - Threshold(level),
	}
}

// Engine keeps the running XP total. The total is clamped to
// [0, MaxExperience]: a negative delta larger than the total (e.g. reversing
// a task whose XP was already wiped by a remote overwrite) stops at zero, and
// a delta past the ceiling saturates there. Either way a later opposite delta
// is off by the clamped amount.
type Engine struct {
	total int
}

func New(total int) *Engine {
	return &Engine{total: clampTotal(total)}
}

// ApplyDelta adds delta to the total and recomputes the level.
func (e *Engine) ApplyDelta(delta int) Outcome {
	before := LevelFor(e.total)

	switch {
	case delta > 0 && e.total > MaxExperience-delta:
		e.total = MaxExperience
	default:
		e.total = clampTotal(e.total + delta)
	}

	progress := ProgressFor(e.total)
	out := Outcome{Progress: progress}
	if progress.Level > before {
		out.LeveledUp = true
		out.NewLevel = progress.Level
	}
	return out
}

// Reset zeroes the total and returns the minimum-level progress.
func (e *Engine) Reset() domain.Progress {
	e.total = 0
	return ProgressFor(0)
}

// Set overwrites the total, used when a remote record is pulled.
func (e *Engine) Set(total int) domain.Progress {
	e.total = clampTotal(total)
	return ProgressFor(e.total)
}

// Progress returns the current derived state.
func (e *Engine) Progress() domain.Progress {
	return ProgressFor(e.total)
}

func (e *Engine) Total() int {
	return e.total
}
