// Package goals stores weekly and monthly category goals and keeps
// listeners informed of changes.
package goals

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// Migrate decodes a stored goal document. Legacy documents, which held one
// undated value per category and period, are moved under the period keys
// containing now. Documents already in the dated form come back unchanged
// with migrated false. Empty input yields an empty tree.
func Migrate(raw []byte, now time.Time) (tree model.GoalTree, migrated bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.NewGoalTree(), false, nil
	}

	var doc struct {
		Version *int                       `json:"version"`
		Weekly  map[string]json.RawMessage `json:"weekly"`
		Monthly map[string]json.RawMessage `json:"monthly"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.NewGoalTree(), false, fmt.Errorf("decoding goals: %w", err)
	}

	if !isLegacy(doc.Version, doc.Weekly, doc.Monthly) {
		tree = model.NewGoalTree()
		if err := json.Unmarshal(raw, &tree); err != nil {
			return model.NewGoalTree(), false, fmt.Errorf("decoding dated goals: %w", err)
		}
		tree.Buckets(model.PeriodWeekly)
		tree.Buckets(model.PeriodMonthly)
		if tree.Version != model.GoalSchemaVersion {
			tree.Version = model.GoalSchemaVersion
			migrated = true
		}
		return tree, migrated, nil
	}

	tree = model.NewGoalTree()
	if values := legacyValues(doc.Weekly); !values.AllNull() {
		tree.Weekly[model.PeriodKey(model.PeriodWeekly, now)] = values
	}
	if values := legacyValues(doc.Monthly); !values.AllNull() {
		tree.Monthly[model.PeriodKey(model.PeriodMonthly, now)] = values
	}
	return tree, true, nil
}

// isLegacy reports whether a document uses the undated layout: no version
// and category names, not period keys, directly under a period.
func isLegacy(version *int, periods ...map[string]json.RawMessage) bool {
	if version != nil && *version >= model.GoalSchemaVersion {
		return false
	}
	for _, p := range periods {
		for key := range p {
			if model.Category(key).Valid() {
				return true
			}
		}
	}
	return false
}

// legacyValues reads category -> number|null, skipping anything else.
func legacyValues(in map[string]json.RawMessage) model.GoalValues {
	values := model.EmptyGoalValues()
	for key, raw := range in {
		c := model.Category(key)
		if !c.Valid() {
			continue
		}
		var v *float64
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		values[c] = v
	}
	return values
}
