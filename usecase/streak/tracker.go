package streak

import (
	"sort"
	"time"

	"github.com/fastygo/questlog/domain"
)

// Tracker derives streak counts from completion timestamps. It holds no
// state beyond its clock and time zone.
type Tracker struct {
	now func() time.Time
	loc *time.Location
}

func New(now func() time.Time, loc *time.Location) *Tracker {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{now: now, loc: loc}
}

// Compute evaluates the streak as of the tracker's current time.
func (t *Tracker) Compute(completed []domain.Task) domain.Streak {
	return Compute(completed, t.now(), t.loc)
}

// Compute returns the current and longest runs of consecutive calendar days
// (in loc) holding at least one completion. The current run must end today
// or yesterday; otherwise it is zero. Input order does not matter.
func Compute(completed []domain.Task, now time.Time, loc *time.Location) domain.Streak {
	if loc == nil {
		loc = time.Local
	}
	days := distinctDays(completed, loc)
	if len(days) == 0 {
		return domain.Streak{}
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := dayNumber(now, loc)
	last := days[len(days)-1]
	current := 0
	if last >= today-1 {
		current = run
	}

	return domain.Streak{Current: current, Longest: longest}
}

func distinctDays(completed []domain.Task, loc *time.Location) []int64 {
	seen := make(map[int64]struct{}, len(completed))
	days := make([]int64, 0, len(completed))
	for _, task := range completed {
		if task.CompletedAt == nil || task.CompletedAt.IsZero() {
			continue
		}
		day := dayNumber(*task.CompletedAt, loc)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// dayNumber maps an instant to a civil day index in loc, immune to DST
// shifts because the date is re-anchored at UTC midnight.
func dayNumber(ts time.Time, loc *time.Location) int64 {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
