// Package store provides the shared state used to coordinate alert pipeline
// instances across processes. All coordination (dedup markers, rate-limit
// counters, batch windows, the daily report guard) goes through single
// atomic operations against a Store, so no in-process locking is needed by
// callers and no multi-key transactions are needed by implementations.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers are expected to fail open: treat the operation as if nothing
// were suppressed and deliver immediately.
var ErrUnavailable = errors.New("state store unavailable")

// Store is the atomic key/value contract shared by all pipeline components.
type Store interface {
	// Get returns the value for key. The second return value reports
	// whether the key existed.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfAbsent stores value under key only if the key does not exist.
	// Returns true if the value was stored, false if the key already
	// existed. This is the pipeline's locking primitive: exactly one
	// caller per key observes true until the ttl expires.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Increment atomically increments the counter at key and returns the
	// new value. The ttl is applied when the counter is created.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Append appends item to the list at key and returns the new length.
	// When maxLen > 0 the list is trimmed to its most recent maxLen items.
	Append(ctx context.Context, key, item string, maxLen int64, ttl time.Duration) (int64, error)

	// DrainAndDelete atomically returns the full contents of the list at
	// key and deletes the key. Draining an absent key returns an empty
	// slice. At most one concurrent caller receives the contents.
	DrainAndDelete(ctx context.Context, key string) ([]string, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// HealthCheck verifies the store is reachable within the timeout.
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Key joins parts into a namespaced store key under the given prefix.
func Key(prefix string, parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}
