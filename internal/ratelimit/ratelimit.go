// Package ratelimit caps how many alerts for one fingerprint may pass
// through per time window, independently of deduplication. It protects the
// channel from a tight crash loop whose fingerprint legitimately differs
// slightly across dedup window boundaries.
package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"telemon/internal/store"
)

// Limiter counts admissions per fingerprint per window against a ceiling.
type Limiter struct {
	store   store.Store
	prefix  string
	window  time.Duration
	ceiling int64
	now     func() time.Time
}

// New creates a Limiter allowing at most ceiling admissions per window.
func New(st store.Store, prefix string, window time.Duration, ceiling int64) *Limiter {
	return &Limiter{
		store:   st,
		prefix:  prefix,
		window:  window,
		ceiling: ceiling,
		now:     time.Now,
	}
}

// Allow atomically counts an occurrence of fingerprint in the current
// window and reports whether it is within the ceiling. A store failure
// fails open.
func (l *Limiter) Allow(ctx context.Context, fingerprint string) bool {
	windowID := l.now().UTC().Truncate(l.window).Unix()
	key := store.Key(l.prefix, "rate", fingerprint, strconv.FormatInt(windowID, 10))

	count, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		slog.Warn("Rate limit check failed, failing open",
			"fingerprint", fingerprint,
			"error", err,
		)
		return true
	}
	if count > l.ceiling {
		slog.Debug("Alert rate limited",
			"fingerprint", fingerprint,
			"count", count,
			"ceiling", l.ceiling,
		)
		return false
	}
	return true
}
