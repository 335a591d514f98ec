package stats

import (
	"strings"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// TitleGroup collects the records of one title within a category.
type TitleGroup struct {
	Title   string
	Records []model.ActivityRecord
}

// CategoryAggregate is the rollup of one category over a period.
type CategoryAggregate struct {
	Category model.Category
	Count    int
	Groups   []TitleGroup
}

// Records flattens the groups back into records, in group order.
func (a CategoryAggregate) Records() []model.ActivityRecord {
	var out []model.ActivityRecord
	for _, g := range a.Groups {
		out = append(out, g.Records...)
	}
	return out
}

// PeriodRange returns the first and last day (inclusive, YYYY-MM-DD) of the
// period containing ref.
func PeriodRange(period model.Period, ref time.Time) (start, end string) {
	day := localMidnight(ref)
	if period == model.PeriodMonthly {
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.Local)
		last := first.AddDate(0, 1, -1)
		return first.Format(model.DateLayout), last.Format(model.DateLayout)
	}

	start = model.WeekStart(day)
	monday, _ := model.ParseDate(start)
	return start, monday.AddDate(0, 0, 6).Format(model.DateLayout)
}

// BuildAggregates rolls up the non-goal records whose day falls in the
// period containing ref. Titles group case-insensitively, in order of first
// appearance.
func BuildAggregates(records []model.ActivityRecord, period model.Period, ref time.Time) map[model.Category]CategoryAggregate {
	start, end := PeriodRange(period, ref)
	out := make(map[model.Category]CategoryAggregate)
	index := make(map[model.Category]map[string]int)

	for _, r := range records {
		if r.IsGoal {
			continue
		}
		day := r.DayKey(ref)
		if day < start || day > end {
			continue
		}

		agg := out[r.Category]
		agg.Category = r.Category
		agg.Count++

		titles, ok := index[r.Category]
		if !ok {
			titles = make(map[string]int)
			index[r.Category] = titles
		}
		key := strings.ToLower(strings.TrimSpace(r.Title))
		if i, ok := titles[key]; ok {
			agg.Groups[i].Records = append(agg.Groups[i].Records, r)
		} else {
			titles[key] = len(agg.Groups)
			agg.Groups = append(agg.Groups, TitleGroup{Title: r.Title, Records: []model.ActivityRecord{r}})
		}
		out[r.Category] = agg
	}
	return out
}
