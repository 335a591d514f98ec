// Package activity manages the per-date activity journal across the local
// and remote tiers.
package activity

import "github.com/emrekiziltepe/binge-log/internal/model"

// Dedupe collapses duplicates that arise when the same activity exists in
// more than one tier. Walking in order, a record is dropped when an earlier
// record shared its id or its non-empty remote id. The first occurrence
// wins. Dedupe never modifies its input and is idempotent.
func Dedupe(records []model.ActivityRecord) []model.ActivityRecord {
	out := make([]model.ActivityRecord, 0, len(records))
	seenIDs := make(map[string]struct{}, len(records))
	seenRemote := make(map[string]struct{}, len(records))

	for _, rec := range records {
		_, dupID := seenIDs[rec.ID]
		_, dupRemote := seenRemote[rec.RemoteID]
		dupRemote = dupRemote && rec.RemoteID != ""

		seenIDs[rec.ID] = struct{}{}
		if rec.RemoteID != "" {
			seenRemote[rec.RemoteID] = struct{}{}
		}

		if dupID || dupRemote {
			continue
		}
		out = append(out, rec)
	}
	return out
}
