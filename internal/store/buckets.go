package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/emrekiziltepe/binge-log/internal/model"
)

// LoadBucket reads the activity bucket for (userID, date). A missing bucket
// yields an empty slice.
func LoadBucket(ctx context.Context, kv KV, userID, date string) ([]model.ActivityRecord, error) {
	raw, ok, err := kv.Get(ctx, ActivitiesKey(userID, date))
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []model.ActivityRecord{}, nil
	}

	var records []model.ActivityRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decoding bucket %s: %w", date, err)
	}
	if records == nil {
		records = []model.ActivityRecord{}
	}
	return records, nil
}

// SaveBucket replaces the activity bucket for (userID, date) in one write.
func SaveBucket(ctx context.Context, kv KV, userID, date string, records []model.ActivityRecord) error {
	if records == nil {
		records = []model.ActivityRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding bucket %s: %w", date, err)
	}
	return kv.Set(ctx, ActivitiesKey(userID, date), string(data))
}

// UpdateBucket atomically rewrites the activity bucket for (userID, date)
// with fn's result and returns what was written. fn sees the bucket as
// currently stored.
func UpdateBucket(ctx context.Context, kv KV, userID, date string, fn func([]model.ActivityRecord) ([]model.ActivityRecord, error)) ([]model.ActivityRecord, error) {
	var written []model.ActivityRecord
	err := kv.Update(ctx, ActivitiesKey(userID, date), func(old string, ok bool) (string, error) {
		records := []model.ActivityRecord{}
		if ok && old != "" {
			if err := json.Unmarshal([]byte(old), &records); err != nil {
				return "", fmt.Errorf("decoding bucket %s: %w", date, err)
			}
		}
		next, err := fn(records)
		if err != nil {
			return "", err
		}
		if next == nil {
			next = []model.ActivityRecord{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return "", fmt.Errorf("encoding bucket %s: %w", date, err)
		}
		written = next
		return string(data), nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// BucketDates lists the dates that have a bucket in userID's scope,
// ascending.
func BucketDates(ctx context.Context, kv KV, userID string) ([]string, error) {
	keys, err := kv.ListKeys(ctx, ActivitiesPrefix(userID))
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(keys))
	for _, k := range keys {
		if d, ok := BucketDate(userID, k); ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// AllRecords concatenates every bucket in userID's scope, oldest date first.
func AllRecords(ctx context.Context, kv KV, userID string) ([]model.ActivityRecord, error) {
	dates, err := BucketDates(ctx, kv, userID)
	if err != nil {
		return nil, err
	}
	var all []model.ActivityRecord
	for _, d := range dates {
		records, err := LoadBucket(ctx, kv, userID, d)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}
