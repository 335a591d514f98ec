package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// RecentLimit is the number of recent activities kept per user.
const RecentLimit = 5

// RecentActivity is a quick-pick entry remembered from a previous add.
type RecentActivity struct {
	Title    string         `json:"title"`
	Category model.Category `json:"category"`
	Detail   string         `json:"detail,omitempty"`
}

// Recent returns the recent-activities list for userID, most recent first.
func Recent(ctx context.Context, kv KV, userID string) ([]RecentActivity, error) {
	raw, ok, err := kv.Get(ctx, RecentKey(userID))
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var list []RecentActivity
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decoding recent activities: %w", err)
	}
	return list, nil
}

// PushRecent moves rec to the front of the recent list, dropping older
// entries with the same title (case-insensitive) and trimming to RecentLimit.
func PushRecent(ctx context.Context, kv KV, userID string, rec model.ActivityRecord) error {
	return kv.Update(ctx, RecentKey(userID), func(raw string, ok bool) (string, error) {
		var list []RecentActivity
		if ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &list); err != nil {
				return "", fmt.Errorf("decoding recent activities: %w", err)
			}
		}

		title := strings.TrimSpace(rec.Title)
		next := []RecentActivity{{Title: title, Category: rec.Category, Detail: rec.Detail}}
		for _, r := range list {
			if strings.EqualFold(r.Title, title) {
				continue
			}
			next = append(next, r)
			if len(next) == RecentLimit {
				break
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return "", fmt.Errorf("encoding recent activities: %w", err)
		}
		return string(data), nil
	})
}
