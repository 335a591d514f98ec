package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/observer"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// Deps are the collaborators of a Store.
type Deps struct {
	KV       store.KV
	Remote   remote.Store
	Identity identity.Provider
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Store reads and writes the goal tree of the current identity. The local
// copy is authoritative; the remote is mirrored on a best-effort basis.
type Store struct {
	deps      Deps
	log       zerolog.Logger
	listeners *observer.List[model.GoalTree]

	// mu serializes read-modify-write cycles and hands out pushSeq.
	mu      sync.Mutex
	pushSeq uint64
	pending sync.WaitGroup

	// pushMu orders remote pushes; a push older than the last one sent for
	// the same user is dropped.
	pushMu     sync.Mutex
	lastPushed map[string]uint64
}

// NewStore returns a Store over deps.
func NewStore(deps Deps) *Store {
	if deps.Remote == nil {
		deps.Remote = remote.Unavailable{}
	}
	if deps.Identity == nil {
		deps.Identity = identity.Static{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := deps.Logger.With().Str("component", "goals").Logger()
	return &Store{
		deps:       deps,
		log:        log,
		listeners:  observer.NewList[model.GoalTree](log),
		lastPushed: map[string]uint64{},
	}
}

// Subscribe registers fn to receive the tree after every change. The
// returned function unsubscribes.
func (s *Store) Subscribe(fn func(model.GoalTree)) func() {
	return s.listeners.Subscribe(fn)
}

// Wait blocks until background remote pushes have finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

// GetGoals returns the current goal tree. Signed-in users read the remote
// first and cache it locally; otherwise, or when the remote fails or holds
// nothing, the local copy is used and migrated if needed.
func (s *Store) GetGoals(ctx context.Context) (model.GoalTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, true)
}

// load implements GetGoals. With mirror set, a migrated or remotely
// missing local tree is pushed in the background. Callers hold mu.
func (s *Store) load(ctx context.Context, mirror bool) (model.GoalTree, error) {
	uid := identity.UserID(s.deps.Identity)
	now := s.deps.Now()

	remoteMissing := false
	if uid != "" {
		raw, err := s.deps.Remote.LoadGoals(ctx, uid)
		switch {
		case err == nil && len(raw) > 0:
			tree, _, merr := Migrate(raw, now)
			if merr == nil {
				if err := s.writeLocal(ctx, uid, tree); err != nil {
					s.log.Warn().Err(err).Msg("caching remote goals failed")
				}
				return tree, nil
			}
			s.log.Warn().Err(merr).Msg("remote goals unreadable, using local copy")
		case err == nil, errors.Is(err, remote.ErrNotFound):
			remoteMissing = true
		default:
			s.log.Warn().Err(err).Msg("loading remote goals failed, using local copy")
		}
	}

	raw, ok, err := s.deps.KV.Get(ctx, store.GoalsKey(uid))
	if err != nil {
		s.log.Error().Err(err).Msg("reading local goals failed")
		return model.NewGoalTree(), nil
	}
	if !ok {
		raw = ""
	}

	tree, migrated, err := Migrate([]byte(raw), now)
	if err != nil {
		s.log.Error().Err(err).Msg("local goals unreadable, starting empty")
		return model.NewGoalTree(), nil
	}
	if migrated {
		if err := s.writeLocal(ctx, uid, tree); err != nil {
			s.log.Warn().Err(err).Msg("saving migrated goals failed")
		}
	}
	if mirror && uid != "" && (migrated || (remoteMissing && ok)) {
		s.pushAsync(ctx, uid, tree)
	}
	return tree, nil
}

// SetCategoryGoal sets the goal of category for the period containing
// date. A nil value clears it. Listeners are notified with the new tree.
func (s *Store) SetCategoryGoal(ctx context.Context, period model.Period, category model.Category, value *float64, date time.Time) (model.GoalTree, error) {
	if err := validate(period, category, value); err != nil {
		return model.GoalTree{}, err
	}

	return s.mutate(ctx, func(tree *model.GoalTree) {
		buckets := tree.Buckets(period)
		key := model.PeriodKey(period, date)
		values, ok := buckets[key]
		if !ok {
			values = model.EmptyGoalValues()
			buckets[key] = values
		}
		if value != nil {
			v := *value
			values[category] = &v
		} else {
			values[category] = nil
		}
	})
}

// DeleteCategoryGoal clears the goal of category for the period containing
// date. The period entry is removed once every category in it is unset.
func (s *Store) DeleteCategoryGoal(ctx context.Context, period model.Period, category model.Category, date time.Time) (model.GoalTree, error) {
	if err := validate(period, category, nil); err != nil {
		return model.GoalTree{}, err
	}

	return s.mutate(ctx, func(tree *model.GoalTree) {
		buckets := tree.Buckets(period)
		key := model.PeriodKey(period, date)
		values, ok := buckets[key]
		if !ok {
			return
		}
		values[category] = nil
		if values.AllNull() {
			delete(buckets, key)
		}
	})
}

// mutate applies change to the current tree, persists it locally, mirrors
// it remotely and notifies listeners. The mirror carries the changed tree,
// so the load does not push on its own.
func (s *Store) mutate(ctx context.Context, change func(*model.GoalTree)) (model.GoalTree, error) {
	s.mu.Lock()
	tree, err := s.load(ctx, false)
	if err != nil {
		s.mu.Unlock()
		return model.GoalTree{}, err
	}

	change(&tree)

	uid := identity.UserID(s.deps.Identity)
	if err := s.writeLocal(ctx, uid, tree); err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("saving goals failed")
		return model.GoalTree{}, fmt.Errorf("%w: %v", model.ErrCouldNotSave, err)
	}
	if uid != "" {
		if err := s.push(ctx, uid, tree, s.nextSeq()); err != nil {
			s.log.Warn().Err(err).Msg("mirroring goals failed")
		}
	}
	s.mu.Unlock()

	s.listeners.Notify(tree.Clone())
	return tree.Clone(), nil
}

func (s *Store) writeLocal(ctx context.Context, uid string, tree model.GoalTree) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding goals: %w", err)
	}
	return s.deps.KV.Set(ctx, store.GoalsKey(uid), string(data))
}

// nextSeq numbers a push in the order trees were produced. Callers hold mu.
func (s *Store) nextSeq() uint64 {
	s.pushSeq++
	return s.pushSeq
}

// push sends tree unless a newer push for uid has already been sent.
func (s *Store) push(ctx context.Context, uid string, tree model.GoalTree, seq uint64) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding goals: %w", err)
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	if seq <= s.lastPushed[uid] {
		s.log.Debug().Str("user_id", uid).Uint64("seq", seq).Msg("superseded goal push dropped")
		return nil
	}
	s.lastPushed[uid] = seq
	return s.deps.Remote.SaveGoals(ctx, uid, data)
}

// pushAsync mirrors tree without blocking the caller. The push outlives a
// cancelled request context; Wait joins it. Callers hold mu.
func (s *Store) pushAsync(ctx context.Context, uid string, tree model.GoalTree) {
	tree = tree.Clone()
	ctx = context.WithoutCancel(ctx)
	seq := s.nextSeq()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.push(ctx, uid, tree, seq); err != nil {
			s.log.Warn().Err(err).Msg("background goal push failed")
			return
		}
		s.log.Debug().Str("user_id", uid).Msg("goals pushed")
	}()
}

func validate(period model.Period, category model.Category, value *float64) error {
	if _, err := model.ParsePeriod(string(period)); err != nil {
		return err
	}
	if !category.Valid() {
		return &model.ValidationError{Field: "category", Message: "unknown category " + string(category)}
	}
	if value != nil && (*value < 0 || math.IsNaN(*value) || math.IsInf(*value, 0)) {
		return &model.ValidationError{Field: "value", Message: "goal must be a non-negative number"}
	}
	return nil
}
