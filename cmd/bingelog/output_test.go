package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrekiziltepe/binge-log/internal/activity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/theme"
	"github.com/emrekiziltepe/binge-log/tests/testutil"
)

func TestFindRecord(t *testing.T) {
	ctx := context.Background()
	svc := activity.NewService("2024-01-15", activity.Deps{
		KV:     testutil.NewTestStore(t),
		Logger: zerolog.Nop(),
		Now:    testutil.Clock(testutil.Day(2024, time.January, 15)),
	})
	for _, r := range []model.ActivityRecord{
		{ID: "aaaa-11111111", Title: "Dune", Category: model.CategoryBook},
		{ID: "bbbb-22222222", Title: "Emma", Category: model.CategoryBook},
		{ID: "cccc-32222222", Title: "Lost", Category: model.CategorySeries, Detail: "1,1"},
	} {
		_, err := svc.Add(ctx, r)
		require.NoError(t, err)
	}

	got, err := findRecord(svc, "aaaa-11111111")
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	got, err = findRecord(svc, "11111111")
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	_, err = findRecord(svc, "2222222")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = findRecord(svc, "zzzz")
	assert.ErrorContains(t, err, "no record")
}

func TestPrintRecords(t *testing.T) {
	th := theme.ForName("light")
	var buf bytes.Buffer

	printRecords(&buf, th, nil)
	assert.Contains(t, buf.String(), "nothing logged")

	buf.Reset()
	printRecords(&buf, th, []model.ActivityRecord{
		{ID: "0190-abcdef12", Title: "Lost", Category: model.CategorySeries, Detail: "1,1,2,3", Rating: 8, Date: "2024-01-15", IsCompleted: true, RemoteID: "doc-1"},
		{ID: "0190-fedcba98", Title: "Run", Category: model.CategorySport, Date: "2024-01-20", IsGoal: true},
	})
	out := buf.String()
	assert.Contains(t, out, "Lost (1,1,2,3) 8/10")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "planned")
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "abcdef12")
}

func TestParseRating(t *testing.T) {
	n, err := parseRating("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = parseRating(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parseRating("11")
	assert.True(t, model.IsValidationError(err))
	_, err = parseRating("ten")
	assert.True(t, model.IsValidationError(err))

	assert.Error(t, validateDate("15/01/2024"))
	assert.NoError(t, validateDate("2024-01-15"))
	assert.Error(t, validateRequired("Title")("  "))
}

func TestDetailHelpMatchesSeriesFormat(t *testing.T) {
	d, err := model.ParseSeriesDetail(seriesDetailExample)
	require.NoError(t, err)
	assert.Equal(t, 4, d.EpisodeCount())

	add, _, err := rootCmd.Find([]string{"add"})
	require.NoError(t, err)
	flag := add.Flags().Lookup("detail")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, seriesDetailExample)
}
