package taskstore

import (
	"sort"
	"time"

	"github.com/fastygo/questlog/domain"
)

// NoDueDateLabel names the bucket holding undated tasks. It is always last.
const NoDueDateLabel = "No due date"

const dayLabelLayout = "Mon, Jan 2, 2006"

// Group is one presentation bucket of active tasks.
type Group struct {
	Label string
	// Day is the bucket's calendar day at local midnight; nil for NoDueDateLabel.
	Day   *time.Time
	Tasks []domain.Task
}

// SortByDeadline orders tasks ascending by deadline, undated tasks last.
// Ties keep their original relative order.
func SortByDeadline(tasks []domain.Task) []domain.Task {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case !a.HasDeadline():
			return false
		case !b.HasDeadline():
			return true
		default:
			return a.Deadline.Before(*b.Deadline)
		}
	})
	return tasks
}

// DeadlineDay buckets a deadline into a calendar day of loc. The timestamp is
// normalized by adding the zone offset first, so a date-only deadline stored
// as UTC midnight lands on its own date regardless of the viewer's zone.
func DeadlineDay(deadline time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := deadline.In(loc)
	_, offset := local.Zone()
	adjusted := local.Add(-time.Duration(offset) * time.Second)
	y, m, d := adjusted.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// GroupByDay sorts tasks by deadline and buckets them per calendar day.
// Groups are chronological with the NoDueDateLabel bucket last.
func GroupByDay(tasks []domain.Task, loc *time.Location) []Group {
	sorted := SortByDeadline(cloneAll(tasks))

	var (
		groups  []Group
		index   = make(map[string]int)
		undated []domain.Task
	)
	for _, task := range sorted {
		if !task.HasDeadline() {
			undated = append(undated, task)
			continue
		}
		day := DeadlineDay(*task.Deadline, loc)
		label := day.Format(dayLabelLayout)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label, Day: &day})
		}
		groups[i].Tasks = append(groups[i].Tasks, task)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Day.Before(*groups[j].Day)
	})

	if len(undated) > 0 {
		groups = append(groups, Group{Label: NoDueDateLabel, Tasks: undated})
	}
	return groups
}
