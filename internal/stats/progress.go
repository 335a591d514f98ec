package stats

import (
	"math"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// Progress is a category's advance toward its goal in one period.
type Progress struct {
	Current         float64
	Goal            float64
	ProgressPercent float64
	Completed       bool
}

// Amount is what a category's records contribute toward a goal: pages for
// books, episodes for series, hours for sport and a plain count otherwise.
func Amount(category model.Category, records []model.ActivityRecord) float64 {
	var total float64
	for _, r := range records {
		switch category {
		case model.CategoryBook:
			total += float64(model.BookPages(r.Detail))
		case model.CategorySeries:
			total += float64(model.CountSeriesEpisodes(r.Detail))
		case model.CategorySport:
			total += model.ParseSportDetail(r.Detail).TotalHours()
		default:
			total++
		}
	}
	return total
}

// CalculateProgress compares the category's aggregate against the goal set
// for the period containing ref. It returns nil when no goal is set, which
// is distinct from a goal of zero. Goals of zero or less count as met.
func CalculateProgress(
	category model.Category,
	period model.Period,
	goals model.GoalTree,
	aggregates map[model.Category]CategoryAggregate,
	ref time.Time,
) *Progress {
	goal := goals.Value(period, category, ref)
	if goal == nil {
		return nil
	}

	target := *goal
	current := Amount(category, aggregates[category].Records())
	p := &Progress{Current: current, Goal: target}
	if target <= 0 {
		p.ProgressPercent = 100
		p.Completed = true
		return p
	}

	p.ProgressPercent = math.Min(100, math.Max(0, current*100/target))
	p.Completed = current >= target
	// Rounding must not report 100% for a goal that is not met.
	if !p.Completed && p.ProgressPercent >= 100 {
		p.ProgressPercent = math.Nextafter(100, 0)
	}
	return p
}
