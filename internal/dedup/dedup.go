// Package dedup suppresses repeated notifications for the same fingerprint
// within a cool-down window.
package dedup

import (
	"context"
	"log/slog"
	"time"

	"telemon/internal/store"
)

// Deduplicator decides whether an alert for a fingerprint may be delivered.
// It is safe for concurrent use from any number of processes sharing the
// same store: the set-if-absent write is the synchronization primitive, a
// lock with automatic expiry, not a check-then-set.
type Deduplicator struct {
	store  store.Store
	prefix string
	window time.Duration
}

// New creates a Deduplicator with the given cool-down window.
func New(st store.Store, prefix string, window time.Duration) *Deduplicator {
	return &Deduplicator{
		store:  st,
		prefix: prefix,
		window: window,
	}
}

// ShouldSuppress reports whether an alert for fingerprint fired within the
// cool-down window. The caller that observes false owns the right to
// deliver; every other caller inside the window observes true.
//
// A store failure fails open: the alert is not suppressed, trading possible
// duplicates for guaranteed visibility while the store is degraded.
func (d *Deduplicator) ShouldSuppress(ctx context.Context, fingerprint string) bool {
	key := store.Key(d.prefix, "dedup", fingerprint)

	acquired, err := d.store.SetIfAbsent(ctx, key, "1", d.window)
	if err != nil {
		slog.Warn("Dedup check failed, failing open",
			"fingerprint", fingerprint,
			"error", err,
		)
		return false
	}
	return !acquired
}
