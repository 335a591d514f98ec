// Package stats derives streaks, period rollups and goal progress from an
// activity snapshot. Every function is pure.
package stats

import (
	"sort"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// Streak summarizes consecutive active days.
type Streak struct {
	// Current counts back from today, or from yesterday when today has no
	// activity yet.
	Current int

	// Longest is the longest run of consecutive active days ever recorded.
	Longest int

	// ActiveDays is the number of distinct active days.
	ActiveDays int
}

// ActiveDays returns the sorted distinct days with at least one non-goal
// record. Records without a date use their timestamp's local day, and
// records with neither count toward now's day.
func ActiveDays(records []model.ActivityRecord, now time.Time) []string {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.IsGoal {
			continue
		}
		set[r.DayKey(now)] = struct{}{}
	}

	days := make([]string, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// Streaks computes the current and longest streaks as of now.
func Streaks(records []model.ActivityRecord, now time.Time) Streak {
	days := ActiveDays(records, now)
	active := make(map[string]bool, len(days))
	for _, d := range days {
		active[d] = true
	}

	return Streak{
		Current:    currentStreak(active, now),
		Longest:    longestStreak(days),
		ActiveDays: len(days),
	}
}

func currentStreak(active map[string]bool, now time.Time) int {
	day := localMidnight(now)
	if !active[day.Format(model.DateLayout)] {
		day = day.AddDate(0, 0, -1)
		if !active[day.Format(model.DateLayout)] {
			return 0
		}
	}

	n := 0
	for active[day.Format(model.DateLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func longestStreak(days []string) int {
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		next, err := model.AddDays(days[i-1], 1)
		if err == nil && next == days[i] {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func localMidnight(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
