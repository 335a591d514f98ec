package model

import (
	"fmt"
	"time"
)

// Period is the span a goal applies to.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", s)}
}

// GoalSchemaVersion is the version written by the dated goal schema.
const GoalSchemaVersion = 2

// GoalValues maps each category to its numeric target. A nil value means no
// goal is set, which is distinct from a goal of zero.
type GoalValues map[Category]*float64

// EmptyGoalValues returns a bucket with every category present and unset.
func EmptyGoalValues() GoalValues {
	v := make(GoalValues, len(Categories))
	for _, c := range Categories {
		v[c] = nil
	}
	return v
}

// AllNull reports whether no category in the bucket carries a value.
func (v GoalValues) AllNull() bool {
	for _, val := range v {
		if val != nil {
			return false
		}
	}
	return true
}

// GoalTree is the dated goal configuration: period -> period key -> values.
type GoalTree struct {
	Version int                   `json:"version"`
	Weekly  map[string]GoalValues `json:"weekly"`
	Monthly map[string]GoalValues `json:"monthly"`
}

// NewGoalTree returns an empty tree at the current schema version.
func NewGoalTree() GoalTree {
	return GoalTree{
		Version: GoalSchemaVersion,
		Weekly:  map[string]GoalValues{},
		Monthly: map[string]GoalValues{},
	}
}

// Buckets returns the period's key map, creating it if needed.
func (t *GoalTree) Buckets(p Period) map[string]GoalValues {
	switch p {
	case PeriodMonthly:
		if t.Monthly == nil {
			t.Monthly = map[string]GoalValues{}
		}
		return t.Monthly
	default:
		if t.Weekly == nil {
			t.Weekly = map[string]GoalValues{}
		}
		return t.Weekly
	}
}

// Value returns the goal for category in the period containing date, or nil.
func (t GoalTree) Value(p Period, c Category, date time.Time) *float64 {
	var buckets map[string]GoalValues
	if p == PeriodMonthly {
		buckets = t.Monthly
	} else {
		buckets = t.Weekly
	}
	values, ok := buckets[PeriodKey(p, date)]
	if !ok {
		return nil
	}
	return values[c]
}

// Clone returns a deep copy so listeners cannot mutate shared state.
func (t GoalTree) Clone() GoalTree {
	out := GoalTree{
		Version: t.Version,
		Weekly:  cloneBuckets(t.Weekly),
		Monthly: cloneBuckets(t.Monthly),
	}
	return out
}

func cloneBuckets(in map[string]GoalValues) map[string]GoalValues {
	out := make(map[string]GoalValues, len(in))
	for key, values := range in {
		cp := make(GoalValues, len(values))
		for c, v := range values {
			if v != nil {
				val := *v
				cp[c] = &val
			} else {
				cp[c] = nil
			}
		}
		out[key] = cp
	}
	return out
}

// WeekStart returns the Monday of the week containing t as YYYY-MM-DD.
func WeekStart(t time.Time) string {
	t = t.In(time.Local)
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return day.AddDate(0, 0, -offset).Format(DateLayout)
}

// MonthKey returns t's month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.In(time.Local).Format("2006-01")
}

// PeriodKey returns the goal bucket key for the period containing t.
func PeriodKey(p Period, t time.Time) string {
	if p == PeriodMonthly {
		return MonthKey(t)
	}
	return WeekStart(t)
}

// Float returns a pointer to v, for building goal values.
func Float(v float64) *float64 {
	return &v
}
