package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/emrekiziltepe/binge-log/internal/store"
)

// ErrInjected is returned by FlakyKV while failures are switched on.
var ErrInjected = errors.New("injected storage failure")

// FlakyKV wraps a KV and fails reads and/or writes on demand.
type FlakyKV struct {
	store.KV

	mu         sync.Mutex
	failReads  bool
	failWrites bool
}

// NewFlakyKV wraps kv.
func NewFlakyKV(kv store.KV) *FlakyKV {
	return &FlakyKV{KV: kv}
}

// FailReads toggles Get and ListKeys failures.
func (f *FlakyKV) FailReads(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = on
}

// FailWrites toggles Set and Update failures.
func (f *FlakyKV) FailWrites(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = on
}

func (f *FlakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return "", false, ErrInjected
	}
	return f.KV.Get(ctx, key)
}

func (f *FlakyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.KV.Set(ctx, key, value)
}

func (f *FlakyKV) Update(ctx context.Context, key string, fn func(string, bool) (string, error)) error {
	f.mu.Lock()
	fail := f.failReads || f.failWrites
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.KV.Update(ctx, key, fn)
}

func (f *FlakyKV) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return f.KV.ListKeys(ctx, prefix)
}

// Clock returns a now function pinned to t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Day returns local noon on the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
}
