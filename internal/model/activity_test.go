package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIsGoal(t *testing.T) {
	today := "2024-01-15"

	assert.True(t, ComputeIsGoal("2024-01-16", false, today), "future and open is a goal")
	assert.False(t, ComputeIsGoal("2024-01-16", true, today), "completed is never a goal")
	assert.False(t, ComputeIsGoal("2024-01-15", false, today), "today is not a goal")
	assert.False(t, ComputeIsGoal("2024-01-14", false, today), "past is not a goal")
}

func TestRecomputeGoalTracksCompletion(t *testing.T) {
	rec := ActivityRecord{Date: "2024-01-16"}
	rec.RecomputeGoal("2024-01-15")
	assert.True(t, rec.IsGoal)

	rec.IsCompleted = true
	rec.RecomputeGoal("2024-01-15")
	assert.False(t, rec.IsGoal)
}

func TestDayKeyFallbacks(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)

	assert.Equal(t, "2024-01-01", ActivityRecord{Date: "2024-01-01"}.DayKey(now))

	ts := time.Date(2024, 2, 2, 9, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-02-02", ActivityRecord{Timestamp: ts}.DayKey(now))

	assert.Equal(t, "2024-03-10", ActivityRecord{}.DayKey(now))
}

func TestValidate(t *testing.T) {
	valid := ActivityRecord{Title: "Dune", Category: CategoryBook, Date: "2024-01-15"}
	require.NoError(t, valid.Validate())

	cases := map[string]ActivityRecord{
		"blank title":    {Title: "  ", Category: CategoryBook, Date: "2024-01-15"},
		"no category":    {Title: "x", Date: "2024-01-15"},
		"bad category":   {Title: "x", Category: "podcast", Date: "2024-01-15"},
		"bad rating":     {Title: "x", Category: CategoryMovie, Rating: 11, Date: "2024-01-15"},
		"bad date":       {Title: "x", Category: CategoryMovie, Date: "15/01/2024"},
		"bad series row": {Title: "x", Category: CategorySeries, Detail: "0,1", Date: "2024-01-15"},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			err := rec.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)

	_, err = AddDays("nope", 1)
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Series ")
	require.NoError(t, err)
	assert.Equal(t, CategorySeries, c)

	_, err = ParseCategory("podcast")
	assert.True(t, IsValidationError(err))
}
