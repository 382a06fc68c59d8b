package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"telemon/internal/store"
)

type failingStore struct {
	store.Store
}

func (f *failingStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestAllow_CeilingEnforced(t *testing.T) {
	l := New(store.NewLocalStore(), "monitoring", 10*time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "fp-1") {
			t.Fatalf("occurrence %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "fp-1") {
		t.Error("fourth occurrence should exceed the ceiling")
	}
	if l.Allow(ctx, "fp-1") {
		t.Error("fifth occurrence should exceed the ceiling")
	}
}

func TestAllow_IndependentFingerprints(t *testing.T) {
	l := New(store.NewLocalStore(), "monitoring", 10*time.Minute, 1)
	ctx := context.Background()

	if !l.Allow(ctx, "fp-a") {
		t.Fatal("fp-a first occurrence should be allowed")
	}
	if !l.Allow(ctx, "fp-b") {
		t.Error("fp-b must have its own counter")
	}
}

func TestAllow_NewWindowResetsCount(t *testing.T) {
	l := New(store.NewLocalStore(), "monitoring", 10*time.Minute, 1)
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	if !l.Allow(ctx, "fp-1") {
		t.Fatal("first occurrence should be allowed")
	}
	if l.Allow(ctx, "fp-1") {
		t.Fatal("second occurrence in the same window should be dropped")
	}

	// Crossing the window boundary scopes the counter to a new key.
	current = current.Add(10 * time.Minute)
	if !l.Allow(ctx, "fp-1") {
		t.Error("occurrence in a new window should be allowed")
	}
}

func TestAllow_FailsOpenOnStoreError(t *testing.T) {
	l := New(&failingStore{}, "monitoring", 10*time.Minute, 1)

	if !l.Allow(context.Background(), "fp-1") {
		t.Error("store failure must fail open, not drop")
	}
}
