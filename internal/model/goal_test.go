package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStartAnchorsOnMonday(t *testing.T) {
	monday := time.Date(2024, 1, 15, 8, 0, 0, 0, time.Local)
	sunday := time.Date(2024, 1, 21, 23, 0, 0, 0, time.Local)
	nextMonday := time.Date(2024, 1, 22, 0, 0, 0, 0, time.Local)

	assert.Equal(t, "2024-01-15", WeekStart(monday))
	assert.Equal(t, "2024-01-15", WeekStart(sunday))
	assert.Equal(t, "2024-01-22", WeekStart(nextMonday))
}

func TestPeriodKey(t *testing.T) {
	d := time.Date(2024, 2, 29, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "2024-02-26", PeriodKey(PeriodWeekly, d))
	assert.Equal(t, "2024-02", PeriodKey(PeriodMonthly, d))
}

func TestGoalTreeValueAndClone(t *testing.T) {
	tree := NewGoalTree()
	bucket := EmptyGoalValues()
	bucket[CategoryBook] = Float(100)
	tree.Buckets(PeriodWeekly)["2024-01-15"] = bucket

	d := time.Date(2024, 1, 17, 0, 0, 0, 0, time.Local)
	got := tree.Value(PeriodWeekly, CategoryBook, d)
	if assert.NotNil(t, got) {
		assert.Equal(t, 100.0, *got)
	}
	assert.Nil(t, tree.Value(PeriodWeekly, CategoryGame, d))
	assert.Nil(t, tree.Value(PeriodMonthly, CategoryBook, d))

	cp := tree.Clone()
	*cp.Weekly["2024-01-15"][CategoryBook] = 5
	assert.Equal(t, 100.0, *tree.Weekly["2024-01-15"][CategoryBook])
}

func TestGoalValuesAllNull(t *testing.T) {
	v := EmptyGoalValues()
	assert.True(t, v.AllNull())
	v[CategorySport] = Float(0)
	assert.False(t, v.AllNull())
}
