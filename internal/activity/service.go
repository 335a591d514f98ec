package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// Enqueuer records a remote write to replay once the remote is reachable.
type Enqueuer interface {
	Enqueue(ctx context.Context, op model.OpType, userID string, rec model.ActivityRecord) error
}

// Deps are the collaborators shared by Service and History.
type Deps struct {
	KV       store.KV
	Remote   remote.Store
	Identity identity.Provider
	Queue    Enqueuer
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Remote == nil {
		d.Remote = remote.Unavailable{}
	}
	if d.Identity == nil {
		d.Identity = identity.Static{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Service owns the activity list of one calendar date. Every mutation is
// applied to the local store first; the remote mirror is best-effort.
type Service struct {
	date string
	deps Deps
	log  zerolog.Logger

	mu      sync.Mutex
	records []model.ActivityRecord
}

// NewService returns a Service for date (YYYY-MM-DD). Call Load to populate it.
func NewService(date string, deps Deps) *Service {
	deps = deps.withDefaults()
	return &Service{
		date:    date,
		deps:    deps,
		log:     deps.Logger.With().Str("component", "activity").Str("date", date).Logger(),
		records: []model.ActivityRecord{},
	}
}

// Date returns the calendar date the service manages.
func (s *Service) Date() string {
	return s.date
}

// Records returns a snapshot of the in-memory list.
func (s *Service) Records() []model.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ActivityRecord(nil), s.records...)
}

func (s *Service) userID() string {
	return identity.UserID(s.deps.Identity)
}

func (s *Service) today() string {
	return model.FormatDate(s.deps.Now())
}

// Load reads the date's records. Signed-in users read the remote first and
// fall back to their local bucket. Read failures yield an empty list.
func (s *Service) Load(ctx context.Context) ([]model.ActivityRecord, error) {
	uid := s.userID()

	var tiers []tier[[]model.ActivityRecord]
	if uid != "" {
		tiers = append(tiers, tier[[]model.ActivityRecord]{name: "remote", fetch: func(ctx context.Context) ([]model.ActivityRecord, error) {
			return s.loadRemote(ctx, uid)
		}})
	}
	tiers = append(tiers, tier[[]model.ActivityRecord]{name: "local", fetch: func(ctx context.Context) ([]model.ActivityRecord, error) {
		return store.LoadBucket(ctx, s.deps.KV, uid, s.date)
	}})

	records, source, err := resolve(ctx, s.log, tiers...)
	if err != nil {
		s.log.Error().Err(err).Msg("loading activities failed")
		records = nil
	}
	records = Dedupe(records)

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.log.Debug().Str("source", source).Int("count", len(records)).Msg("activities loaded")
	return append([]model.ActivityRecord(nil), records...), nil
}

// loadRemote queries the remote for the date and writes the result through
// to the local bucket. Local records never mirrored yet are kept so a
// remote read cannot discard unsynced work.
func (s *Service) loadRemote(ctx context.Context, uid string) ([]model.ActivityRecord, error) {
	docs, err := s.deps.Remote.QueryByField(ctx, uid, remote.FieldDate, s.date)
	if err != nil {
		return nil, err
	}

	fetched := onDate(remote.Records(docs), s.date)

	var merged []model.ActivityRecord
	_, err = store.UpdateBucket(ctx, s.deps.KV, uid, s.date, func(local []model.ActivityRecord) ([]model.ActivityRecord, error) {
		merged = withLocalOnly(fetched, local)
		return merged, nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("caching remote activities failed")
		local, err := store.LoadBucket(ctx, s.deps.KV, uid, s.date)
		if err != nil {
			s.log.Warn().Err(err).Msg("reading local bucket for merge failed")
		}
		merged = withLocalOnly(fetched, local)
	}
	return merged, nil
}

// withLocalOnly appends the local records never mirrored to the remote
// list and dedupes the result.
func withLocalOnly(fetched, local []model.ActivityRecord) []model.ActivityRecord {
	out := append([]model.ActivityRecord(nil), fetched...)
	for _, rec := range local {
		if rec.LocalOnly() {
			out = append(out, rec)
		}
	}
	return Dedupe(out)
}

// Save filters records to targetDate, dedupes them and replaces the bucket
// in a single write. It never touches the remote.
func (s *Service) Save(ctx context.Context, records []model.ActivityRecord, targetDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.modify(ctx, s.userID(), targetDate, func([]model.ActivityRecord) ([]model.ActivityRecord, error) {
		return records, nil
	})
}

// errUnchanged aborts a bucket rewrite that would not change anything.
var errUnchanged = errors.New("bucket unchanged")

// modify rewrites the date bucket with fn in one atomic read-modify-write.
// fn sees the bucket as stored; its result is filtered to date and
// deduped. Memory is refreshed for the service's own date. Callers hold mu.
func (s *Service) modify(ctx context.Context, uid, date string, fn func([]model.ActivityRecord) ([]model.ActivityRecord, error)) error {
	written, err := store.UpdateBucket(ctx, s.deps.KV, uid, date, func(current []model.ActivityRecord) ([]model.ActivityRecord, error) {
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		return Dedupe(onDate(next, date)), nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("saving activities for %s: %w", date, err)
	}
	if date == s.date {
		s.records = written
	}
	return nil
}

// Add validates rec, assigns its identity, mirrors it to the remote when
// signed in and stores it locally. Only validation errors and local write
// failures are returned.
func (s *Service) Add(ctx context.Context, rec model.ActivityRecord) (model.ActivityRecord, error) {
	if rec.Date == "" {
		rec.Date = s.date
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}

	now := s.deps.Now()
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	rec.RemoteID = ""
	rec.RecomputeGoal(model.FormatDate(now))

	uid := s.userID()
	if uid != "" {
		docID, err := s.deps.Remote.Create(ctx, uid, rec)
		if err != nil {
			s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote create failed, keeping local only")
		} else {
			rec.RemoteID = docID
		}
	}

	if err := s.insert(ctx, uid, rec); err != nil {
		s.log.Error().Err(err).Str("id", rec.ID).Msg("local save failed")
		return rec, fmt.Errorf("%w: %v", model.ErrCouldNotSave, err)
	}

	if err := store.PushRecent(ctx, s.deps.KV, uid, rec); err != nil {
		s.log.Warn().Err(err).Msg("updating recent activities failed")
	}
	return rec, nil
}

// insert appends rec to its date bucket.
func (s *Service) insert(ctx context.Context, uid string, rec model.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.modify(ctx, uid, rec.Date, func(current []model.ActivityRecord) ([]model.ActivityRecord, error) {
		return append(current, rec), nil
	})
}

// Update validates rec, mirrors the change to the remote and replaces the
// local copy matched by id.
func (s *Service) Update(ctx context.Context, rec model.ActivityRecord) (model.ActivityRecord, error) {
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	rec.RecomputeGoal(s.today())

	uid := s.userID()
	if uid != "" {
		rec = s.mirrorUpdate(ctx, uid, rec)
	}

	if err := s.replace(ctx, uid, rec, s.date, false); err != nil {
		s.log.Error().Err(err).Str("id", rec.ID).Msg("local update failed")
		return rec, fmt.Errorf("%w: %v", model.ErrCouldNotSave, err)
	}
	return rec, nil
}

// mirrorUpdate writes rec to the remote. A missing document is searched by
// the embedded id; transient failures are queued for the next sync.
func (s *Service) mirrorUpdate(ctx context.Context, uid string, rec model.ActivityRecord) model.ActivityRecord {
	err := s.deps.Remote.Update(ctx, uid, rec.RemoteKey(), rec)
	if err == nil {
		if rec.RemoteID == "" {
			rec.RemoteID = rec.ID
		}
		return rec
	}
	if !errors.Is(err, remote.ErrNotFound) {
		s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote update failed, queued")
		s.enqueue(ctx, model.OpUpdate, uid, rec)
		return rec
	}

	docs, err := s.deps.Remote.QueryByField(ctx, uid, remote.FieldID, rec.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote lookup failed, queued")
		s.enqueue(ctx, model.OpUpdate, uid, rec)
		return rec
	}
	if len(docs) == 0 {
		s.log.Warn().Str("id", rec.ID).Msg("remote document not found, updating locally only")
		return rec
	}

	docID := docs[0].ID
	if err := s.deps.Remote.Update(ctx, uid, docID, rec); err != nil {
		s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote update failed, queued")
		s.enqueue(ctx, model.OpUpdate, uid, rec)
		return rec
	}
	rec.RemoteID = docID
	return rec
}

// replace swaps the record matched by id. fromDate is the bucket the record
// lived in; when rec.Date differs the record moves to its new bucket.
// A record missing from the target bucket is only inserted when it was
// moved there or insertMissing is set.
func (s *Service) replace(ctx context.Context, uid string, rec model.ActivityRecord, fromDate string, insertMissing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromDate != rec.Date {
		removed, err := s.removeFrom(ctx, uid, fromDate, rec)
		if err != nil {
			return err
		}
		insertMissing = insertMissing || removed
	}
	return s.upsertInto(ctx, uid, rec.Date, rec, insertMissing)
}

// upsertInto replaces rec by id in the date bucket. An absent record is
// appended only when insertMissing is set; otherwise the bucket is left
// alone. Callers hold mu.
func (s *Service) upsertInto(ctx context.Context, uid, date string, rec model.ActivityRecord, insertMissing bool) error {
	return s.modify(ctx, uid, date, func(current []model.ActivityRecord) ([]model.ActivityRecord, error) {
		for i := range current {
			if current[i].ID == rec.ID {
				current[i] = rec
				return current, nil
			}
		}
		if !insertMissing {
			s.log.Warn().Str("id", rec.ID).Str("bucket", date).Msg("record not found locally, nothing updated")
			return nil, errUnchanged
		}
		return append(current, rec), nil
	})
}

// removeFrom drops records matching rec by id or remote id from the date
// bucket and reports whether any were dropped. Callers hold mu.
func (s *Service) removeFrom(ctx context.Context, uid, date string, rec model.ActivityRecord) (bool, error) {
	removed := false
	err := s.modify(ctx, uid, date, func(current []model.ActivityRecord) ([]model.ActivityRecord, error) {
		kept := current[:0]
		for _, r := range current {
			if matches(r, rec) {
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == len(current) {
			return nil, errUnchanged
		}
		removed = true
		return kept, nil
	})
	return removed, err
}

// Delete removes rec remotely (best-effort) and locally. A document that is
// already gone remotely counts as deleted.
func (s *Service) Delete(ctx context.Context, rec model.ActivityRecord) error {
	uid := s.userID()
	if uid != "" {
		s.mirrorDelete(ctx, uid, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	date := rec.Date
	if date == "" {
		date = s.date
	}
	if _, err := s.removeFrom(ctx, uid, date, rec); err != nil {
		s.log.Error().Err(err).Str("id", rec.ID).Msg("local delete failed")
		return fmt.Errorf("%w: %v", model.ErrCouldNotSave, err)
	}
	if date != s.date {
		if _, err := s.removeFrom(ctx, uid, s.date, rec); err != nil {
			return fmt.Errorf("%w: %v", model.ErrCouldNotSave, err)
		}
	}
	return nil
}

// mirrorDelete tries the remote id, then the record id, then every document
// carrying the embedded id.
func (s *Service) mirrorDelete(ctx context.Context, uid string, rec model.ActivityRecord) {
	keys := []string{}
	if rec.RemoteID != "" {
		keys = append(keys, rec.RemoteID)
	}
	if rec.ID != "" && rec.ID != rec.RemoteID {
		keys = append(keys, rec.ID)
	}

	for _, key := range keys {
		err := s.deps.Remote.Delete(ctx, uid, key)
		if err == nil {
			return
		}
		if !errors.Is(err, remote.ErrNotFound) {
			s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote delete failed, queued")
			s.enqueue(ctx, model.OpDelete, uid, rec)
			return
		}
	}

	docs, err := s.deps.Remote.QueryByField(ctx, uid, remote.FieldID, rec.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote lookup failed, queued")
		s.enqueue(ctx, model.OpDelete, uid, rec)
		return
	}
	for _, doc := range docs {
		if err := s.deps.Remote.Delete(ctx, uid, doc.ID); err != nil && !errors.Is(err, remote.ErrNotFound) {
			s.log.Warn().Err(err).Str("id", rec.ID).Msg("remote delete failed, queued")
			s.enqueue(ctx, model.OpDelete, uid, rec)
			return
		}
	}
}

// CompleteGoal marks a due goal as done today. The record keeps its
// IsCompleted value and moves to today's bucket. Goals dated after today
// return ErrNotYetDue without any change.
func (s *Service) CompleteGoal(ctx context.Context, rec model.ActivityRecord) (model.ActivityRecord, error) {
	now := s.deps.Now()
	today := model.FormatDate(now)
	if rec.Date > today {
		return rec, model.ErrNotYetDue
	}

	fromDate := rec.Date
	if fromDate == "" {
		fromDate = s.date
	}
	rec.Date = today
	rec.Timestamp = now
	rec.RecomputeGoal(today)

	uid := s.userID()
	if uid != "" {
		rec = s.mirrorUpdate(ctx, uid, rec)
	}

	if err := s.replace(ctx, uid, rec, fromDate, true); err != nil {
		s.log.Error().Err(err).Str("id", rec.ID).Msg("local goal completion failed")
		return rec, fmt.Errorf("%w: %v", model.ErrCouldNotSave, err)
	}
	return rec, nil
}

func (s *Service) enqueue(ctx context.Context, op model.OpType, uid string, rec model.ActivityRecord) {
	if s.deps.Queue == nil {
		return
	}
	if err := s.deps.Queue.Enqueue(ctx, op, uid, rec); err != nil {
		s.log.Error().Err(err).Str("op", string(op)).Msg("queueing offline operation failed")
	}
}

func onDate(records []model.ActivityRecord, date string) []model.ActivityRecord {
	out := make([]model.ActivityRecord, 0, len(records))
	for _, r := range records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

func matches(r, target model.ActivityRecord) bool {
	if r.ID == target.ID {
		return true
	}
	return target.RemoteID != "" && r.RemoteID == target.RemoteID
}

// newID returns a time-ordered record id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
