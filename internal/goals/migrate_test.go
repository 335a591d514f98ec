package goals

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/tests/testutil"
)

func TestMigrate_Legacy(t *testing.T) {
	now := testutil.Day(2024, time.January, 17)
	raw := []byte(`{"weekly":{"book":100,"series":null,"movie":"x"},"monthly":{"sport":12.5}}`)

	tree, migrated, err := Migrate(raw, now)
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, model.GoalSchemaVersion, tree.Version)

	require.Contains(t, tree.Weekly, "2024-01-15")
	assert.Equal(t, 100.0, *tree.Weekly["2024-01-15"][model.CategoryBook])
	assert.Nil(t, tree.Weekly["2024-01-15"][model.CategorySeries])
	assert.Nil(t, tree.Weekly["2024-01-15"][model.CategoryMovie])

	require.Contains(t, tree.Monthly, "2024-01")
	assert.Equal(t, 12.5, *tree.Monthly["2024-01"][model.CategorySport])
}

func TestMigrate_LegacyAllNullDropsPeriod(t *testing.T) {
	tree, migrated, err := Migrate([]byte(`{"weekly":{"book":null},"monthly":{}}`), time.Now())
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Empty(t, tree.Weekly)
	assert.Empty(t, tree.Monthly)
}

func TestMigrate_DatedIsIdempotent(t *testing.T) {
	now := testutil.Day(2024, time.January, 17)
	legacy := []byte(`{"weekly":{"book":100},"monthly":{"game":2}}`)

	first, migrated, err := Migrate(legacy, now)
	require.NoError(t, err)
	require.True(t, migrated)

	data, err := json.Marshal(first)
	require.NoError(t, err)

	second, migrated, err := Migrate(data, now.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, first, second)
}

func TestMigrate_Empty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("null")} {
		tree, migrated, err := Migrate(raw, time.Now())
		require.NoError(t, err)
		assert.False(t, migrated)
		assert.Equal(t, model.NewGoalTree(), tree)
	}
}

func TestMigrate_Corrupt(t *testing.T) {
	_, _, err := Migrate([]byte(`{"weekly":`), time.Now())
	assert.Error(t, err)
}
