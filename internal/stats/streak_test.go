package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/tests/testutil"
)

func onDay(id, date string) model.ActivityRecord {
	return model.ActivityRecord{ID: id, Title: id, Category: model.CategoryMovie, Date: date}
}

func TestStreaks_TwoDaysEndingToday(t *testing.T) {
	now := testutil.Day(2024, time.January, 15)
	got := Streaks([]model.ActivityRecord{
		onDay("a", "2024-01-14"),
		onDay("b", "2024-01-15"),
	}, now)

	assert.Equal(t, 2, got.Current)
	assert.GreaterOrEqual(t, got.Longest, 2)
	assert.Equal(t, 2, got.ActiveDays)
}

func TestStreaks_AnchorsAtYesterday(t *testing.T) {
	now := testutil.Day(2024, time.January, 15)
	records := []model.ActivityRecord{
		onDay("a", "2024-01-12"),
		onDay("b", "2024-01-13"),
		onDay("c", "2024-01-14"),
	}

	before := Streaks(records, now)
	assert.Equal(t, 3, before.Current)

	after := Streaks(append(records, onDay("d", "2024-01-15")), now)
	assert.Equal(t, before.Current+1, after.Current)
}

func TestStreaks_Break(t *testing.T) {
	now := testutil.Day(2024, time.January, 15)
	got := Streaks([]model.ActivityRecord{
		onDay("a", "2024-01-01"),
		onDay("b", "2024-01-02"),
		onDay("c", "2024-01-03"),
		onDay("d", "2024-01-13"),
	}, now)

	assert.Equal(t, 0, got.Current)
	assert.Equal(t, 3, got.Longest)
}

func TestStreaks_IgnoresGoals(t *testing.T) {
	now := testutil.Day(2024, time.January, 15)
	goal := onDay("g", "2024-01-15")
	goal.IsGoal = true

	got := Streaks([]model.ActivityRecord{goal}, now)
	assert.Equal(t, Streak{}, got)
}

func TestStreaks_DayFallbacks(t *testing.T) {
	now := testutil.Day(2024, time.January, 15)
	fromTimestamp := model.ActivityRecord{ID: "a", Timestamp: testutil.Day(2024, time.January, 14)}
	undated := model.ActivityRecord{ID: "b"}

	got := Streaks([]model.ActivityRecord{fromTimestamp, undated}, now)
	assert.Equal(t, 2, got.Current)
	assert.Equal(t, []string{"2024-01-14", "2024-01-15"}, ActiveDays([]model.ActivityRecord{fromTimestamp, undated}, now))
}

func TestStreaks_LongestAcrossMonthBoundary(t *testing.T) {
	now := testutil.Day(2024, time.March, 10)
	got := Streaks([]model.ActivityRecord{
		onDay("a", "2024-02-28"),
		onDay("b", "2024-02-29"),
		onDay("c", "2024-03-01"),
		onDay("d", "2024-03-01"),
	}, now)

	assert.Equal(t, 3, got.Longest)
	assert.Equal(t, 3, got.ActiveDays)
	assert.Equal(t, 0, got.Current)
}

func TestStreaks_Empty(t *testing.T) {
	assert.Equal(t, Streak{}, Streaks(nil, time.Now()))
}
