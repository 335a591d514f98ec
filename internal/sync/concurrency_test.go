package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrekiziltepe/binge-log/internal/activity"
	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/store"
	"github.com/emrekiziltepe/binge-log/tests/testutil"
)

// interleavingKV lets another writer append to a bucket right after every
// read of it, the way a concurrent Service.Add would.
type interleavingKV struct {
	store.KV
	key string

	mu     gosync.Mutex
	writes []string
}

func (k *interleavingKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := k.KV.Get(ctx, key)
	if err != nil || key != k.key {
		return v, ok, err
	}

	k.mu.Lock()
	id := fmt.Sprintf("outside-%d", len(k.writes))
	k.writes = append(k.writes, id)
	k.mu.Unlock()

	outside := model.ActivityRecord{ID: id, Title: "Written meanwhile " + id, Category: model.CategoryBook, Date: "2024-01-15"}
	_, werr := store.UpdateBucket(ctx, k.KV, "u1", "2024-01-15", func(current []model.ActivityRecord) ([]model.ActivityRecord, error) {
		return append(current, outside), nil
	})
	return v, ok, werr
}

func (k *interleavingKV) outsideIDs() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.writes...)
}

func TestSyncNow_KeepsRecordsWrittenDuringPass(t *testing.T) {
	ctx := context.Background()
	base := testutil.NewTestStore(t)
	require.NoError(t, store.SaveBucket(ctx, base, "u1", "2024-01-15", []model.ActivityRecord{
		rec("a", "Dune", "2024-01-15", time.Time{}),
	}))

	kv := &interleavingKV{KV: base, key: store.ActivitiesKey("u1", "2024-01-15")}
	mem := remote.NewMemory()
	orch := New(Options{
		KV:       kv,
		Remote:   mem,
		Identity: identity.Static{User: &identity.User{ID: "u1"}},
		Logger:   zerolog.Nop(),
		Now:      testutil.Clock(testutil.Day(2024, time.January, 15)),
	})

	require.True(t, orch.SyncNow(ctx))
	require.NoError(t, orch.Status().LastError)

	bucket, err := store.LoadBucket(ctx, base, "u1", "2024-01-15")
	require.NoError(t, err)

	outside := kv.outsideIDs()
	require.NotEmpty(t, outside)
	assert.Len(t, bucket, 1+len(outside))
	got := map[string]model.ActivityRecord{}
	for _, r := range bucket {
		got[r.ID] = r
	}
	for _, id := range outside {
		assert.Contains(t, got, id)
	}
	assert.NotEmpty(t, got["a"].RemoteID)
}

func TestSyncNow_ConcurrentWithServiceMutations(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewTestStore(t)
	mem := remote.NewMemory()
	user := identity.Static{User: &identity.User{ID: "u1"}}
	now := testutil.Clock(testutil.Day(2024, time.January, 15))
	q := NewQueue(kv, zerolog.Nop())

	orch := New(Options{KV: kv, Remote: mem, Identity: user, Queue: q, Logger: zerolog.Nop(), Now: now})
	// The service cannot reach the remote, so every record it writes is
	// left for the orchestrator to push.
	svc := activity.NewService("2024-01-15", activity.Deps{
		KV:       kv,
		Remote:   remote.Unavailable{},
		Identity: user,
		Queue:    q,
		Logger:   zerolog.Nop(),
		Now:      now,
	})

	const writers, perWriter = 4, 5
	stop := make(chan struct{})
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		for {
			select {
			case <-stop:
				return
			default:
				orch.SyncNow(ctx)
			}
		}
	}()

	var wg gosync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				added, err := svc.Add(ctx, model.ActivityRecord{
					Title:    fmt.Sprintf("Film %d-%d", w, i),
					Category: model.CategoryMovie,
				})
				if !assert.NoError(t, err) {
					return
				}
				added.Rating = 7
				_, err = svc.Update(ctx, added)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-syncDone

	require.True(t, orch.SyncNow(ctx))

	bucket, err := store.LoadBucket(ctx, kv, "u1", "2024-01-15")
	require.NoError(t, err)
	require.Len(t, bucket, writers*perWriter, "no record lost to a concurrent rewrite")
	for _, r := range bucket {
		assert.Equal(t, 7, r.Rating, r.Title)
		assert.NotEmpty(t, r.RemoteID, r.Title)
	}

	docs, err := mem.All(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, writers*perWriter, "each record is created remotely once")
}
