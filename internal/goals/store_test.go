package goals

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/stats"
	"github.com/emrekiziltepe/binge-log/internal/store"
	"github.com/emrekiziltepe/binge-log/tests/testutil"
)

var monday = testutil.Day(2024, time.January, 15)

func newTestStore(t *testing.T, user *identity.User) (*Store, *testutil.FlakyKV, *remote.Memory) {
	t.Helper()
	kv := testutil.NewFlakyKV(testutil.NewTestStore(t))
	mem := remote.NewMemory()
	s := NewStore(Deps{
		KV:       kv,
		Remote:   mem,
		Identity: identity.Static{User: user},
		Logger:   zerolog.Nop(),
		Now:      testutil.Clock(monday),
	})
	t.Cleanup(s.Wait)
	return s, kv, mem
}

func TestStore_SetAndGet(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t, nil)

	tree, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(100), monday)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *tree.Value(model.PeriodWeekly, model.CategoryBook, monday))

	bucket := tree.Weekly["2024-01-15"]
	require.Len(t, bucket, len(model.Categories))
	assert.Nil(t, bucket[model.CategoryMovie])

	raw, ok, err := kv.Get(ctx, "goals")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"2024-01-15"`)

	got, err := s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, tree, got)
}

func TestStore_ProgressAgainstWeeklyGoal(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	_, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(100), monday)
	require.NoError(t, err)
	tree, err := s.GetGoals(ctx)
	require.NoError(t, err)

	records := []model.ActivityRecord{
		{ID: "a", Title: "Dune", Category: model.CategoryBook, Detail: "50", Date: "2024-01-16"},
		{ID: "b", Title: "Emma", Category: model.CategoryBook, Detail: "20", Date: "2024-01-18"},
	}
	aggs := stats.BuildAggregates(records, model.PeriodWeekly, monday)

	progress := stats.CalculateProgress(model.CategoryBook, model.PeriodWeekly, tree, aggs, monday)
	require.NotNil(t, progress)
	assert.Equal(t, stats.Progress{Current: 70, Goal: 100, ProgressPercent: 70, Completed: false}, *progress)
}

func TestStore_DeleteCollectsEmptyPeriods(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	_, err := s.SetCategoryGoal(ctx, model.PeriodMonthly, model.CategoryBook, model.Float(300), monday)
	require.NoError(t, err)
	_, err = s.SetCategoryGoal(ctx, model.PeriodMonthly, model.CategoryGame, model.Float(2), monday)
	require.NoError(t, err)

	tree, err := s.DeleteCategoryGoal(ctx, model.PeriodMonthly, model.CategoryBook, monday)
	require.NoError(t, err)
	require.Contains(t, tree.Monthly, "2024-01")
	assert.Nil(t, tree.Monthly["2024-01"][model.CategoryBook])

	tree, err = s.DeleteCategoryGoal(ctx, model.PeriodMonthly, model.CategoryGame, monday)
	require.NoError(t, err)
	assert.NotContains(t, tree.Monthly, "2024-01")

	// Deleting from a period that has no entry is a no-op.
	_, err = s.DeleteCategoryGoal(ctx, model.PeriodWeekly, model.CategoryGame, monday)
	require.NoError(t, err)
}

func TestStore_ZeroIsDistinctFromUnset(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	tree, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryGame, model.Float(0), monday)
	require.NoError(t, err)
	require.NotNil(t, tree.Value(model.PeriodWeekly, model.CategoryGame, monday))

	tree, err = s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryGame, nil, monday)
	require.NoError(t, err)
	assert.Nil(t, tree.Value(model.PeriodWeekly, model.CategoryGame, monday))
}

func TestStore_Validation(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t, nil)

	_, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(-1), monday)
	assert.True(t, model.IsValidationError(err))

	_, err = s.SetCategoryGoal(ctx, "daily", model.CategoryBook, model.Float(1), monday)
	assert.True(t, model.IsValidationError(err))

	_, err = s.SetCategoryGoal(ctx, model.PeriodWeekly, "music", model.Float(1), monday)
	assert.True(t, model.IsValidationError(err))

	_, ok, err := kv.Get(ctx, "goals")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LocalWriteFailure(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t, nil)
	kv.FailWrites(true)

	notified := 0
	s.Subscribe(func(model.GoalTree) { notified++ })

	_, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(10), monday)
	assert.ErrorIs(t, err, model.ErrCouldNotSave)
	assert.Equal(t, 0, notified)
}

func TestStore_ListenersNotified(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	var seen []model.GoalTree
	s.Subscribe(func(model.GoalTree) { panic("listener bug") })
	unsubscribe := s.Subscribe(func(tree model.GoalTree) { seen = append(seen, tree) })

	_, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(5), monday)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, 5.0, *seen[0].Value(model.PeriodWeekly, model.CategoryBook, monday))

	// Listener copies are independent of the store's state.
	*seen[0].Weekly["2024-01-15"][model.CategoryBook] = 999
	tree, err := s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, *tree.Value(model.PeriodWeekly, model.CategoryBook, monday))

	unsubscribe()
	_, err = s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(6), monday)
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestStore_SignedInPrefersRemote(t *testing.T) {
	ctx := context.Background()
	s, kv, mem := newTestStore(t, &identity.User{ID: "u1"})

	remoteTree := model.NewGoalTree()
	values := model.EmptyGoalValues()
	values[model.CategorySport] = model.Float(4)
	remoteTree.Weekly["2024-01-15"] = values
	data, err := json.Marshal(remoteTree)
	require.NoError(t, err)
	require.NoError(t, mem.SaveGoals(ctx, "u1", data))

	got, err := s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *got.Value(model.PeriodWeekly, model.CategorySport, monday))

	raw, ok, err := kv.Get(ctx, "goals_u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(data), raw)
}

func TestStore_SignedInFallsBackAndPushesMigration(t *testing.T) {
	ctx := context.Background()
	s, kv, mem := newTestStore(t, &identity.User{ID: "u1"})
	require.NoError(t, kv.Set(ctx, "goals_u1", `{"weekly":{"book":40},"monthly":{}}`))

	mem.FailOn(remote.OpLoadGoals, errors.New("offline"))
	got, err := s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40.0, *got.Value(model.PeriodWeekly, model.CategoryBook, monday))

	raw, _, err := kv.Get(ctx, "goals_u1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"version":2`)

	s.Wait()
	mem.FailOn(remote.OpLoadGoals, nil)
	pushed, err := mem.LoadGoals(ctx, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(pushed))
}

func TestStore_SetMirrorsToRemote(t *testing.T) {
	ctx := context.Background()
	s, _, mem := newTestStore(t, &identity.User{ID: "u1"})

	_, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryMovie, model.Float(3), monday)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Calls(remote.OpSaveGoals))

	mem.FailAll(errors.New("offline"))
	tree, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryMovie, model.Float(4), monday)
	require.NoError(t, err)
	assert.Equal(t, 4.0, *tree.Value(model.PeriodWeekly, model.CategoryMovie, monday))
}

func TestStore_ScopesByUser(t *testing.T) {
	ctx := context.Background()
	s, kv, _ := newTestStore(t, nil)
	require.NoError(t, kv.Set(ctx, store.GoalsKey("u1"), `{"version":2,"weekly":{"2024-01-15":{"book":1}},"monthly":{}}`))

	tree, err := s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Empty(t, tree.Weekly)
}

// slowRemote delays pushes of trees holding a 100-unit book goal, so an
// older push can finish after a newer one.
type slowRemote struct {
	*remote.Memory
}

func (r slowRemote) SaveGoals(ctx context.Context, userID string, goals json.RawMessage) error {
	if strings.Contains(string(goals), `"book":100`) {
		time.Sleep(100 * time.Millisecond)
	}
	return r.Memory.SaveGoals(ctx, userID, goals)
}

func newSlowRemoteStore(t *testing.T) (*Store, *testutil.FlakyKV, *remote.Memory) {
	t.Helper()
	kv := testutil.NewFlakyKV(testutil.NewTestStore(t))
	mem := remote.NewMemory()
	s := NewStore(Deps{
		KV:       kv,
		Remote:   slowRemote{Memory: mem},
		Identity: identity.Static{User: &identity.User{ID: "u1"}},
		Logger:   zerolog.Nop(),
		Now:      testutil.Clock(monday),
	})
	t.Cleanup(s.Wait)
	return s, kv, mem
}

func assertBookGoal(t *testing.T, raw string, want float64) {
	t.Helper()
	tree, _, err := Migrate([]byte(raw), monday)
	require.NoError(t, err)
	got := tree.Value(model.PeriodWeekly, model.CategoryBook, monday)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestStore_SetOnUnsyncedLocalTreeKeepsNewValue(t *testing.T) {
	ctx := context.Background()
	s, kv, mem := newSlowRemoteStore(t)
	require.NoError(t, kv.Set(ctx, "goals_u1", `{"version":2,"weekly":{"2024-01-15":{"book":100}},"monthly":{}}`))

	_, err := s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(200), monday)
	require.NoError(t, err)
	s.Wait()

	local, _, err := kv.Get(ctx, "goals_u1")
	require.NoError(t, err)
	assertBookGoal(t, local, 200)

	pushed, err := mem.LoadGoals(ctx, "u1")
	require.NoError(t, err)
	assertBookGoal(t, string(pushed), 200)
	assert.Equal(t, 1, mem.Calls(remote.OpSaveGoals))
}

func TestStore_BackgroundPushNeverOverwritesNewerGoals(t *testing.T) {
	ctx := context.Background()
	s, kv, mem := newSlowRemoteStore(t)
	require.NoError(t, kv.Set(ctx, "goals_u1", `{"version":2,"weekly":{"2024-01-15":{"book":100}},"monthly":{}}`))

	// Starts a slow background push of the local tree.
	got, err := s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *got.Value(model.PeriodWeekly, model.CategoryBook, monday))

	_, err = s.SetCategoryGoal(ctx, model.PeriodWeekly, model.CategoryBook, model.Float(200), monday)
	require.NoError(t, err)
	s.Wait()

	pushed, err := mem.LoadGoals(ctx, "u1")
	require.NoError(t, err)
	assertBookGoal(t, string(pushed), 200)

	got, err = s.GetGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, *got.Value(model.PeriodWeekly, model.CategoryBook, monday))
}
