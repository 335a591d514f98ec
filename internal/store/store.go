package store

import (
	"context"
	"strings"
)

// KV is the local durable key-value store the journal persists into.
// Values are serialized JSON documents.
type KV interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Update atomically replaces the value under key with fn's result.
	// fn receives the current value (ok is false when absent) and must not
	// call back into the store. An error from fn aborts without writing.
	Update(ctx context.Context, key string, fn func(old string, ok bool) (string, error)) error

	// ListKeys returns every key starting with prefix, sorted ascending.
	// An empty prefix lists all keys.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// Key prefixes and fixed keys used in the local store.
const (
	activitiesPrefix    = "activities_"
	goalsKey            = "goals"
	recentKey           = "recentActivities"
	OfflineQueueKey     = "offline_queue"
	ThemeKey            = "theme"
	SelectedLanguageKey = "selectedLanguage"
)

// ActivitiesKey returns the bucket key for a date, scoped to userID when set:
// activities_<date> or activities_<userID>_<date>.
func ActivitiesKey(userID, date string) string {
	if userID == "" {
		return activitiesPrefix + date
	}
	return activitiesPrefix + userID + "_" + date
}

// ActivitiesPrefix returns the prefix shared by every bucket key of userID.
func ActivitiesPrefix(userID string) string {
	if userID == "" {
		return activitiesPrefix
	}
	return activitiesPrefix + userID + "_"
}

// BucketDate extracts the date from a bucket key belonging to userID.
// ok is false when the key belongs to another scope or is malformed.
func BucketDate(userID, key string) (string, bool) {
	prefix := ActivitiesPrefix(userID)
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	if !isDateKey(rest) {
		return "", false
	}
	return rest, true
}

// GoalsKey returns goals or goals_<userID>.
func GoalsKey(userID string) string {
	if userID == "" {
		return goalsKey
	}
	return goalsKey + "_" + userID
}

// RecentKey returns recentActivities or recentActivities_<userID>.
func RecentKey(userID string) string {
	if userID == "" {
		return recentKey
	}
	return recentKey + "_" + userID
}

// isDateKey reports whether s has the YYYY-MM-DD shape.
func isDateKey(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, r := range s {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
