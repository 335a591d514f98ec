package activity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/emrekiziltepe/binge-log/internal/identity"
	"github.com/emrekiziltepe/binge-log/internal/model"
	"github.com/emrekiziltepe/binge-log/internal/remote"
	"github.com/emrekiziltepe/binge-log/internal/store"
)

// History gathers every record of the current identity across all dates,
// the input of the streak and rollup calculators.
type History struct {
	deps Deps
	log  zerolog.Logger
}

// NewHistory returns a History over deps. Queue and Now are unused.
func NewHistory(deps Deps) *History {
	deps = deps.withDefaults()
	return &History{
		deps: deps,
		log:  deps.Logger.With().Str("component", "history").Logger(),
	}
}

// All returns the full history, deduplicated. Signed-in users read the
// remote first, plus any local records not yet mirrored; otherwise every
// local bucket is read. Failures yield an empty history.
func (h *History) All(ctx context.Context) []model.ActivityRecord {
	uid := identity.UserID(h.deps.Identity)

	var tiers []tier[[]model.ActivityRecord]
	if uid != "" {
		tiers = append(tiers, tier[[]model.ActivityRecord]{name: "remote", fetch: func(ctx context.Context) ([]model.ActivityRecord, error) {
			docs, err := h.deps.Remote.All(ctx, uid)
			if err != nil {
				return nil, err
			}
			return append(remote.Records(docs), h.localOnly(ctx, uid)...), nil
		}})
	}
	tiers = append(tiers, tier[[]model.ActivityRecord]{name: "local", fetch: func(ctx context.Context) ([]model.ActivityRecord, error) {
		return store.AllRecords(ctx, h.deps.KV, uid)
	}})

	records, _, err := resolve(ctx, h.log, tiers...)
	if err != nil {
		h.log.Error().Err(err).Msg("loading history failed")
		return []model.ActivityRecord{}
	}
	return Dedupe(records)
}

func (h *History) localOnly(ctx context.Context, uid string) []model.ActivityRecord {
	local, err := store.AllRecords(ctx, h.deps.KV, uid)
	if err != nil {
		h.log.Warn().Err(err).Msg("reading local history failed")
		return nil
	}
	var out []model.ActivityRecord
	for _, rec := range local {
		if rec.LocalOnly() {
			out = append(out, rec)
		}
	}
	return out
}
