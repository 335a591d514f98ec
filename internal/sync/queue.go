package sync

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// Queue is the durable offline operation queue. Every change is written
// to the local store before the call returns.
type Queue struct {
	kv  store.KV
	log zerolog.Logger
	now func() time.Time

	mu     gosync.Mutex
	ops    []model.PendingOp
	loaded bool
}

// NewQueue returns a Queue persisted in kv under store.OfflineQueueKey.
func NewQueue(kv store.KV, log zerolog.Logger) *Queue {
	return &Queue{
		kv:  kv,
		log: log.With().Str("component", "offline_queue").Logger(),
		now: time.Now,
	}
}

// ensureLoaded reads the persisted queue once. Callers hold mu.
func (q *Queue) ensureLoaded(ctx context.Context) error {
	if q.loaded {
		return nil
	}

	raw, ok, err := q.kv.Get(ctx, store.OfflineQueueKey)
	if err != nil {
		return fmt.Errorf("reading offline queue: %w", err)
	}
	var ops []model.PendingOp
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &ops); err != nil {
			q.log.Error().Err(err).Msg("offline queue unreadable, starting empty")
			ops = nil
		}
	}
	q.ops = ops
	q.loaded = true
	setQueueDepth(len(q.ops))
	return nil
}

// persist writes the queue. Callers hold mu.
func (q *Queue) persist(ctx context.Context) error {
	ops := q.ops
	if ops == nil {
		ops = []model.PendingOp{}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("encoding offline queue: %w", err)
	}
	if err := q.kv.Set(ctx, store.OfflineQueueKey, string(data)); err != nil {
		return fmt.Errorf("writing offline queue: %w", err)
	}
	setQueueDepth(len(q.ops))
	return nil
}

// Enqueue records an intent to replay later.
func (q *Queue) Enqueue(ctx context.Context, op model.OpType, userID string, rec model.ActivityRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating op id: %w", err)
	}
	q.ops = append(q.ops, model.PendingOp{
		ID:       id.String(),
		Type:     op,
		UserID:   userID,
		Record:   rec,
		QueuedAt: q.now(),
	})
	if err := q.persist(ctx); err != nil {
		q.ops = q.ops[:len(q.ops)-1]
		return err
	}

	q.log.Debug().Str("op", string(op)).Str("id", rec.ID).Msg("operation queued")
	return nil
}

// Pending returns a snapshot of the queued operations, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]model.PendingOp, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return append([]model.PendingOp(nil), q.ops...), nil
}

// Len returns the number of queued operations known in memory.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Remove dequeues the operation with id. Unknown ids are ignored.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return err
	}

	for i, op := range q.ops {
		if op.ID == id {
			prev := q.ops
			q.ops = append(q.ops[:i:i], q.ops[i+1:]...)
			if err := q.persist(ctx); err != nil {
				q.ops = prev
				return err
			}
			return nil
		}
	}
	return nil
}

// Requeue moves a failed operation to the back of the queue with its
// attempt count incremented.
func (q *Queue) Requeue(ctx context.Context, failed model.PendingOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return err
	}

	prev := q.ops
	next := make([]model.PendingOp, 0, len(q.ops))
	for _, op := range q.ops {
		if op.ID != failed.ID {
			next = append(next, op)
		}
	}
	failed.Attempts++
	q.ops = append(next, failed)
	if err := q.persist(ctx); err != nil {
		q.ops = prev
		return err
	}
	return nil
}
