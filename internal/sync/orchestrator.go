// Package sync reconciles the local journal with the remote store in the
// background: it pushes local-only records and replays the offline queue
// whenever connectivity returns or a sync is requested.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/observer"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// Status is a snapshot of the orchestrator state.
type Status struct {
	IsOnline       bool
	SyncInProgress bool
	LastSync       time.Time
	LastError      error
}

// Puller pulls remote changes into the local store during a pass.
type Puller interface {
	Pull(ctx context.Context, userID string) error
}

// NoopPuller leaves local state untouched. Reads already write remote data
// through to the local store, so a pass has nothing to pull.
type NoopPuller struct{}

func (NoopPuller) Pull(context.Context, string) error { return nil }

// Options are the collaborators of an Orchestrator.
type Options struct {
	KV       store.KV
	Remote   remote.Store
	Identity identity.Provider
	Queue    *Queue
	Puller   Puller
	Logger   zerolog.Logger
	Now      func() time.Time
}

// passTimeout bounds a single sync pass.
const passTimeout = 2 * time.Minute

// Orchestrator runs sync passes. At most one pass runs at a time; a pass
// requested while another is in flight is skipped.
type Orchestrator struct {
	opts      Options
	log       zerolog.Logger
	listeners *observer.List[Status]

	mu     gosync.Mutex
	status Status

	triggerCh chan struct{}
	statusCh  chan Status
	stopCh    chan struct{}
	stopOnce  gosync.Once
}

// New creates an Orchestrator. It starts offline.
func New(opts Options) *Orchestrator {
	if opts.Remote == nil {
		opts.Remote = remote.Unavailable{}
	}
	if opts.Identity == nil {
		opts.Identity = identity.Static{}
	}
	if opts.Puller == nil {
		opts.Puller = NoopPuller{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Queue == nil {
		opts.Queue = NewQueue(opts.KV, opts.Logger)
	}

	log := opts.Logger.With().Str("component", "sync").Logger()
	return &Orchestrator{
		opts:      opts,
		log:       log,
		listeners: observer.NewList[Status](log),
		triggerCh: make(chan struct{}, 1),
		statusCh:  make(chan Status, 16),
		stopCh:    make(chan struct{}),
	}
}

// Queue returns the offline queue the orchestrator drains.
func (o *Orchestrator) Queue() *Queue {
	return o.opts.Queue
}

// Status returns the current snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Subscribe registers fn for every connectivity edge and sync state change.
// The returned function unsubscribes.
func (o *Orchestrator) Subscribe(fn func(Status)) func() {
	return o.listeners.Subscribe(fn)
}

// SetOnline records a connectivity edge. Going from offline to online
// starts a sync pass.
func (o *Orchestrator) SetOnline(ctx context.Context, online bool) {
	o.mu.Lock()
	wasOnline := o.status.IsOnline
	o.status.IsOnline = online
	snap := o.status
	o.mu.Unlock()

	o.publish(snap)
	if online && !wasOnline {
		o.SyncNow(ctx)
	}
}

// Trigger requests a pass from the Run loop without blocking.
func (o *Orchestrator) Trigger() {
	select {
	case o.triggerCh <- struct{}{}:
	default:
		// A trigger is already pending.
	}
}

// SyncNow runs a pass unless nobody is signed in or a pass is already in
// flight. It reports whether a pass ran. Failures are recorded in the
// status, never returned.
func (o *Orchestrator) SyncNow(ctx context.Context) bool {
	uid := identity.UserID(o.opts.Identity)
	if uid == "" {
		return false
	}

	o.mu.Lock()
	if o.status.SyncInProgress {
		o.mu.Unlock()
		o.log.Debug().Msg("sync already running, skipped")
		return false
	}
	o.status.SyncInProgress = true
	snap := o.status
	o.mu.Unlock()
	o.publish(snap)

	passCtx, cancel := context.WithTimeout(ctx, passTimeout)
	err := o.pass(passCtx, uid)
	cancel()
	recordPass(err)

	o.mu.Lock()
	o.status.SyncInProgress = false
	o.status.LastError = err
	if err == nil {
		o.status.LastSync = o.opts.Now()
	}
	snap = o.status
	o.mu.Unlock()

	if err != nil {
		o.log.Warn().Err(err).Msg("sync pass finished with errors")
	} else {
		o.log.Info().Msg("sync pass finished")
	}
	o.publish(snap)
	return true
}

// Run processes connectivity edges and triggers until ctx is done or Stop
// is called. A nil conn means always online.
func (o *Orchestrator) Run(ctx context.Context, conn Connectivity) error {
	var edges <-chan bool
	if conn != nil {
		edges = conn.Edges()
	} else {
		o.SetOnline(ctx, true)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.stopCh:
			return nil
		case online, ok := <-edges:
			if !ok {
				edges = nil
				continue
			}
			o.SetOnline(ctx, online)
		case <-o.triggerCh:
			o.SyncNow(ctx)
		}
	}
}

// Stop ends Run. Calling it more than once is harmless.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

// publish notifies listeners and feeds the status channel without blocking.
func (o *Orchestrator) publish(s Status) {
	o.listeners.Notify(s)
	select {
	case o.statusCh <- s:
	default:
		// Drop if channel is full to avoid blocking sync
	}
}

// pass pushes local-only records, pulls, then drains the queue. Each phase
// runs even when an earlier one failed.
func (o *Orchestrator) pass(ctx context.Context, uid string) error {
	var errs []error
	if err := o.pushLocalOnly(ctx, uid); err != nil {
		errs = append(errs, fmt.Errorf("push: %w", err))
	}
	if err := o.opts.Puller.Pull(ctx, uid); err != nil {
		errs = append(errs, fmt.Errorf("pull: %w", err))
	}
	if err := o.drainQueue(ctx, uid); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}
	return errors.Join(errs...)
}

// remoteIndex finds existing remote documents by record id or by
// timestamp and title.
type remoteIndex struct {
	byID        map[string]string
	byComposite map[string]string
}

func newRemoteIndex(docs []remote.Document) remoteIndex {
	idx := remoteIndex{
		byID:        make(map[string]string, len(docs)),
		byComposite: make(map[string]string, len(docs)),
	}
	for _, d := range docs {
		if d.Record.ID != "" {
			idx.byID[d.Record.ID] = d.ID
		}
		if key, ok := compositeKey(d.Record); ok {
			idx.byComposite[key] = d.ID
		}
	}
	return idx
}

func (idx remoteIndex) match(rec model.ActivityRecord) (string, bool) {
	if docID, ok := idx.byID[rec.ID]; ok {
		return docID, true
	}
	if key, ok := compositeKey(rec); ok {
		docID, found := idx.byComposite[key]
		return docID, found
	}
	return "", false
}

func compositeKey(rec model.ActivityRecord) (string, bool) {
	if rec.Timestamp.IsZero() {
		return "", false
	}
	return rec.Timestamp.UTC().Format(time.RFC3339Nano) + "|" + rec.Title, true
}

// pushLocalOnly creates remote documents for every local record of uid that
// was never mirrored, attaching the remote ids locally.
func (o *Orchestrator) pushLocalOnly(ctx context.Context, uid string) error {
	dates, err := store.BucketDates(ctx, o.opts.KV, uid)
	if err != nil {
		return fmt.Errorf("listing buckets: %w", err)
	}

	var idx *remoteIndex
	var errs []error
	pushed := 0

	for _, date := range dates {
		records, err := store.LoadBucket(ctx, o.opts.KV, uid, date)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		assigned := map[string]string{}
		for _, rec := range records {
			if !rec.LocalOnly() {
				continue
			}
			if idx == nil {
				docs, err := o.opts.Remote.All(ctx, uid)
				if err != nil {
					return errors.Join(append(errs, fmt.Errorf("listing remote documents: %w", err))...)
				}
				built := newRemoteIndex(docs)
				idx = &built
			}

			if docID, ok := idx.match(rec); ok {
				assigned[rec.ID] = docID
				continue
			}
			docID, err := o.opts.Remote.Create(ctx, uid, rec)
			if err != nil {
				errs = append(errs, fmt.Errorf("creating %s: %w", rec.ID, err))
				continue
			}
			assigned[rec.ID] = docID
			idx.byID[rec.ID] = docID
			if key, ok := compositeKey(rec); ok {
				idx.byComposite[key] = docID
			}
			pushed++
		}

		if len(assigned) > 0 {
			if err := o.attachRemoteIDs(ctx, uid, date, assigned); err != nil {
				errs = append(errs, err)
			}
		}
	}

	recordPushed(pushed)
	if pushed > 0 {
		o.log.Info().Int("count", pushed).Msg("pushed local-only records")
	}
	return errors.Join(errs...)
}

// errNothingAttached aborts a bucket rewrite with no remote id to attach.
var errNothingAttached = errors.New("no remote ids attached")

// attachRemoteIDs stores remote ids by record id in one atomic
// read-modify-write of the bucket, so writes made while the pass was
// running are kept.
func (o *Orchestrator) attachRemoteIDs(ctx context.Context, uid, date string, assigned map[string]string) error {
	_, err := store.UpdateBucket(ctx, o.opts.KV, uid, date, func(records []model.ActivityRecord) ([]model.ActivityRecord, error) {
		changed := false
		for i := range records {
			if docID, ok := assigned[records[i].ID]; ok && records[i].RemoteID == "" {
				records[i].RemoteID = docID
				changed = true
			}
		}
		if !changed {
			return nil, errNothingAttached
		}
		return records, nil
	})
	if errors.Is(err, errNothingAttached) {
		return nil
	}
	return err
}

// drainQueue replays each queued operation of uid once. A failed replay is
// requeued and the drain moves on.
func (o *Orchestrator) drainQueue(ctx context.Context, uid string) error {
	q := o.opts.Queue
	ops, err := q.Pending(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, op := range ops {
		if op.UserID != uid {
			continue
		}

		if err := o.replay(ctx, op); err != nil {
			recordReplay(string(op.Type), outcomeRequeued)
			o.log.Warn().Err(err).Str("op", string(op.Type)).Str("id", op.Record.ID).Msg("replay failed, requeued")
			errs = append(errs, fmt.Errorf("replaying %s %s: %w", op.Type, op.Record.ID, err))
			if qerr := q.Requeue(ctx, op); qerr != nil {
				errs = append(errs, qerr)
			}
			continue
		}

		recordReplay(string(op.Type), outcomeApplied)
		if err := q.Remove(ctx, op.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// replay applies one queued operation. Missing remote documents are
// resolved by embedded id; updates never create documents.
func (o *Orchestrator) replay(ctx context.Context, op model.PendingOp) error {
	rec := op.Record
	uid := op.UserID

	switch op.Type {
	case model.OpAdd:
		docs, err := o.opts.Remote.QueryByField(ctx, uid, remote.FieldID, rec.ID)
		if err != nil {
			return err
		}
		docID := ""
		if len(docs) > 0 {
			docID = docs[0].ID
		} else if docID, err = o.opts.Remote.Create(ctx, uid, rec); err != nil {
			return err
		}
		return o.attachRemoteIDs(ctx, uid, rec.Date, map[string]string{rec.ID: docID})

	case model.OpUpdate:
		err := o.opts.Remote.Update(ctx, uid, rec.RemoteKey(), rec)
		if !errors.Is(err, remote.ErrNotFound) {
			return err
		}
		docs, err := o.opts.Remote.QueryByField(ctx, uid, remote.FieldID, rec.ID)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			o.log.Warn().Str("id", rec.ID).Msg("queued update has no remote document, dropped")
			return nil
		}
		if err := o.opts.Remote.Update(ctx, uid, docs[0].ID, rec); err != nil {
			return err
		}
		return o.attachRemoteIDs(ctx, uid, rec.Date, map[string]string{rec.ID: docs[0].ID})

	case model.OpDelete:
		for _, key := range deleteKeys(rec) {
			err := o.opts.Remote.Delete(ctx, uid, key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, remote.ErrNotFound) {
				return err
			}
		}
		docs, err := o.opts.Remote.QueryByField(ctx, uid, remote.FieldID, rec.ID)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := o.opts.Remote.Delete(ctx, uid, d.ID); err != nil && !errors.Is(err, remote.ErrNotFound) {
				return err
			}
		}
		return nil
	}

	o.log.Warn().Str("op", string(op.Type)).Msg("unknown queued operation dropped")
	return nil
}

func deleteKeys(rec model.ActivityRecord) []string {
	var keys []string
	if rec.RemoteID != "" {
		keys = append(keys, rec.RemoteID)
	}
	if rec.ID != "" && rec.ID != rec.RemoteID {
		keys = append(keys, rec.ID)
	}
	return keys
}
