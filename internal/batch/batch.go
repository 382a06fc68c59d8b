// Package batch accumulates non-critical alerts into fixed time windows and
// flushes each window as one combined notification. WARNING and INFO levels
// batch independently so a flood of one never delays the other.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"telemon/internal/events"
	"telemon/internal/store"
)

// flushLookbackPeriods is how many closed periods DueWindows probes even
// when the pending index has no entry for them.
const flushLookbackPeriods = 3

// Window identifies one accumulation bucket: a level plus the wall-clock
// start of the period, truncated to the batch window size. All producers
// in the same period share one window.
type Window struct {
	Level events.AlertLevel
	Start time.Time
}

// ID returns the stable identifier used in store keys.
func (w Window) ID() string {
	return strconv.FormatInt(w.Start.Unix(), 10)
}

// Batcher manages batch windows in the shared state store.
type Batcher struct {
	store      store.Store
	prefix     string
	window     time.Duration
	maxAlerts  int64
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates a Batcher. maxAlerts bounds how many summaries accumulate in
// one window before the caller force-flushes it; defaultTTL is the safety
// expiry for abandoned windows.
func New(st store.Store, prefix string, window time.Duration, maxAlerts int64, defaultTTL time.Duration) *Batcher {
	return &Batcher{
		store:      st,
		prefix:     prefix,
		window:     window,
		maxAlerts:  maxAlerts,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Add appends a summary to the current window for level and returns the
// window together with its new count. A count at or above the configured
// maximum means the window is due for an immediate size-triggered flush.
func (b *Batcher) Add(ctx context.Context, level events.AlertLevel, summary string) (Window, int64, error) {
	w := Window{Level: level, Start: b.now().UTC().Truncate(b.window)}

	// The list bound sits above the flush trigger: producers racing past
	// maxAlerts before the size flush drains the window must not trim a
	// pending summary away.
	n, err := b.store.Append(ctx, b.windowKey(w), summary, 2*b.maxAlerts, b.defaultTTL)
	if err != nil {
		return w, 0, fmt.Errorf("failed to append to batch window: %w", err)
	}

	// The first item registers the window in the pending index so that
	// time-triggered flushes can find it after traffic pauses.
	if n == 1 {
		if _, err := b.store.Append(ctx, b.indexKey(level), w.ID(), 0, b.defaultTTL); err != nil {
			slog.Warn("Failed to register batch window in pending index",
				"level", level,
				"window", w.ID(),
				"error", err,
			)
		}
	}

	return w, n, nil
}

// Full reports whether a window count has reached the forced-flush size.
func (b *Batcher) Full(count int64) bool {
	return count >= b.maxAlerts
}

// DueWindows returns the windows whose period has ended. Errors are logged
// and swallowed: a missed check here is retried on the next event or tick,
// and flushing an already drained window is a safe no-op.
func (b *Batcher) DueWindows(ctx context.Context) []Window {
	var due []Window
	for _, level := range []events.AlertLevel{events.LevelWarning, events.LevelInfo} {
		due = append(due, b.dueForLevel(ctx, level)...)
	}
	return due
}

func (b *Batcher) dueForLevel(ctx context.Context, level events.AlertLevel) []Window {
	now := b.now().UTC()

	pending, err := b.store.DrainAndDelete(ctx, b.indexKey(level))
	if err != nil {
		slog.Warn("Failed to read pending batch windows",
			"level", level,
			"error", err,
		)
		pending = nil
	}

	// The last few periods are always candidates, so a window survives even
	// if its index entry was lost, including across a crash between the
	// index drain above and the re-append below.
	candidates := map[string]bool{}
	for _, id := range pending {
		candidates[id] = true
	}
	for i := 1; i <= flushLookbackPeriods; i++ {
		prev := Window{Level: level, Start: now.Truncate(b.window).Add(-time.Duration(i) * b.window)}
		candidates[prev.ID()] = true
	}

	var due []Window
	for id := range candidates {
		start, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		w := Window{Level: level, Start: time.Unix(start, 0).UTC()}
		if !now.Before(w.Start.Add(b.window)) {
			due = append(due, w)
			continue
		}
		// Still open: put it back for a later check.
		if _, err := b.store.Append(ctx, b.indexKey(level), w.ID(), 0, b.defaultTTL); err != nil {
			slog.Warn("Failed to restore pending batch window",
				"level", level,
				"window", w.ID(),
				"error", err,
			)
		}
	}
	return due
}

// Flush atomically drains and deletes the window. Exactly one of any
// number of concurrent flushers receives the contents; the rest receive an
// empty slice.
func (b *Batcher) Flush(ctx context.Context, w Window) ([]string, error) {
	items, err := b.store.DrainAndDelete(ctx, b.windowKey(w))
	if err != nil {
		return nil, fmt.Errorf("failed to flush batch window: %w", err)
	}
	return items, nil
}

// Compose renders the combined notification for a flushed window.
func (b *Batcher) Compose(w Window, items []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s alert(s) between %s and %s:\n",
		len(items),
		w.Level,
		w.Start.Format("15:04"),
		w.Start.Add(b.window).Format("15:04"),
	)
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Batcher) windowKey(w Window) string {
	return store.Key(b.prefix, "batch", strings.ToLower(string(w.Level)), w.ID())
}

func (b *Batcher) indexKey(level events.AlertLevel) string {
	return store.Key(b.prefix, "batch_index", strings.ToLower(string(level)))
}
